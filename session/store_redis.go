// Package session (this file) provides an optional Redis-backed mirror of
// a Controller's display table, for out-of-process inspection and
// debugging of a running session. It is never consulted to route worker
// messages or to resume state across a restart; Controller's in-memory
// displayTable remains the single source of truth for that.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/itsneelabh/evalsession/core"
)

const (
	defaultStoreNamespace = "evalsession:displays"
	defaultStoreTTL       = 10 * time.Minute
)

// RedisDisplayMirror implements DisplayMirror against Redis: each open
// display id for a session is stored as a set member under a namespaced
// key, so a separate debugging process can answer "what is session X
// currently displaying" without talking to the controller directly.
type RedisDisplayMirror struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	logger    core.Logger
}

// RedisDisplayMirrorOption configures a RedisDisplayMirror.
type RedisDisplayMirrorOption func(*RedisDisplayMirror)

// WithMirrorLogger installs a structured logger; defaults to core.NoOpLogger.
func WithMirrorLogger(logger core.Logger) RedisDisplayMirrorOption {
	return func(m *RedisDisplayMirror) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMirrorTTL overrides how long an untouched session's display set
// lingers in Redis before expiring.
func WithMirrorTTL(ttl time.Duration) RedisDisplayMirrorOption {
	return func(m *RedisDisplayMirror) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// NewRedisDisplayMirror connects to redisURL and returns a mirror
// namespaced under "evalsession:displays".
func NewRedisDisplayMirror(redisURL string, opts ...RedisDisplayMirrorOption) (*RedisDisplayMirror, error) {
	redisOpt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", core.ErrInvalidConfiguration)
	}

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", core.ErrConnectionFailed)
	}

	m := &RedisDisplayMirror{
		client:    client,
		namespace: defaultStoreNamespace,
		ttl:       defaultStoreTTL,
		logger:    &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Shutdown releases the underlying Redis connection. Call it once, when
// the owning session controller is torn down; it does not affect the
// already-recorded Redis keys, which expire on their own via WithMirrorTTL.
func (m *RedisDisplayMirror) Shutdown() error {
	return m.client.Close()
}

func (m *RedisDisplayMirror) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", m.namespace, sessionID)
}

// Open records displayID as open for sessionID. Failures are logged and
// swallowed: a debugging mirror must never affect evaluation.
func (m *RedisDisplayMirror) Open(sessionID, displayID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := m.key(sessionID)
	pipe := m.client.TxPipeline()
	pipe.SAdd(ctx, key, displayID)
	pipe.Expire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		m.logger.Warn("display mirror: failed to record open", map[string]interface{}{
			"session_id": sessionID,
			"display_id": displayID,
			"error":      err.Error(),
		})
	}
}

// Close removes displayID from sessionID's open set.
func (m *RedisDisplayMirror) Close(sessionID, displayID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.client.SRem(ctx, m.key(sessionID), displayID).Err(); err != nil {
		m.logger.Warn("display mirror: failed to record close", map[string]interface{}{
			"session_id": sessionID,
			"display_id": displayID,
			"error":      err.Error(),
		})
	}
}

// OpenDisplays returns the display ids currently recorded as open for
// sessionID. Intended for an operator tool or debug endpoint, not for
// anything on the evaluation path.
func (m *RedisDisplayMirror) OpenDisplays(ctx context.Context, sessionID string) ([]string, error) {
	ids, err := m.client.SMembers(ctx, m.key(sessionID)).Result()
	if err != nil && err != redis.Nil {
		return nil, &core.FrameworkError{Op: "session.OpenDisplays", Kind: "session", ID: sessionID, Err: err}
	}
	return ids, nil
}

var _ DisplayMirror = (*RedisDisplayMirror)(nil)
