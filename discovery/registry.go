// Package discovery registers a running session controller in Redis so a
// host process managing more than one independent evaluation session — or
// an external tool — can find a SessionController by id without hand-rolled
// bookkeeping. It mirrors the teacher framework's Discovery/Registry model
// (core.Discovery, core.ServiceInfo) rather than inventing a parallel one.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/itsneelabh/evalsession/core"
)

// Key layout under the configured namespace:
//
//	{namespace}:services:{id}            JSON-encoded core.ServiceInfo, TTL'd
//	{namespace}:types:{type}             set of service ids
//	{namespace}:names:{name}             set of service ids
//	{namespace}:capabilities:{cap}       set of service ids
const (
	defaultNamespace = "evalsession"
	defaultTTL       = 30 * time.Second
)

// RedisRegistryOption configures a RedisRegistry.
type RedisRegistryOption func(*RedisRegistry)

// WithLogger installs a structured logger; defaults to core.NoOpLogger.
func WithLogger(logger core.Logger) RedisRegistryOption {
	return func(r *RedisRegistry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTelemetry installs a telemetry sink; defaults to core.NoOpTelemetry.
func WithTelemetry(t core.Telemetry) RedisRegistryOption {
	return func(r *RedisRegistry) {
		if t != nil {
			r.telemetry = t
		}
	}
}

// WithTTL overrides how long a registration survives without a Heartbeat
// call before Redis expires it. A dead supervisor's sessions age out on
// their own rather than lingering in the registry forever.
func WithTTL(ttl time.Duration) RedisRegistryOption {
	return func(r *RedisRegistry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// RedisRegistry implements core.Discovery against Redis, namespacing every
// key so more than one environment can share a Redis instance.
type RedisRegistry struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	logger    core.Logger
	telemetry core.Telemetry
}

// NewRedisRegistry connects to redisURL and returns a registry namespaced
// under "evalsession".
func NewRedisRegistry(redisURL string, opts ...RedisRegistryOption) (*RedisRegistry, error) {
	return NewRedisRegistryWithNamespace(redisURL, defaultNamespace, opts...)
}

// NewRedisRegistryWithNamespace connects to redisURL scoped to namespace.
func NewRedisRegistryWithNamespace(redisURL, namespace string, opts ...RedisRegistryOption) (*RedisRegistry, error) {
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

	if namespace == "" {
		namespace = defaultNamespace
	}

	r := &RedisRegistry{
		client:    client,
		namespace: namespace,
		ttl:       defaultTTL,
		logger:    &core.NoOpLogger{},
		telemetry: &core.NoOpTelemetry{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close releases the underlying Redis connection.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

func (r *RedisRegistry) serviceKey(id string) string {
	return fmt.Sprintf("%s:services:%s", r.namespace, id)
}

func (r *RedisRegistry) typeKey(t core.ComponentType) string {
	return fmt.Sprintf("%s:types:%s", r.namespace, t)
}

func (r *RedisRegistry) nameKey(name string) string {
	return fmt.Sprintf("%s:names:%s", r.namespace, name)
}

func (r *RedisRegistry) capabilityKey(cap string) string {
	return fmt.Sprintf("%s:capabilities:%s", r.namespace, cap)
}

// Register stores info and indexes it by type, name, and capability so
// Discover can look it up without scanning every registration.
func (r *RedisRegistry) Register(ctx context.Context, info *core.ServiceInfo) error {
	if info == nil || info.ID == "" {
		return &core.FrameworkError{Op: "discovery.Register", Kind: "discovery", Message: "service info requires an id", Err: core.ErrInvalidConfiguration}
	}
	info.LastSeen = time.Now()
	if info.Health == "" {
		info.Health = core.HealthHealthy
	}

	data, err := json.Marshal(info)
	if err != nil {
		return &core.FrameworkError{Op: "discovery.Register", Kind: "discovery", ID: info.ID, Err: err}
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.serviceKey(info.ID), data, r.ttl)
	if info.Type != "" {
		pipe.SAdd(ctx, r.typeKey(info.Type), info.ID)
	}
	if info.Name != "" {
		pipe.SAdd(ctx, r.nameKey(info.Name), info.ID)
	}
	for _, cap := range info.Capabilities {
		pipe.SAdd(ctx, r.capabilityKey(cap.Name), info.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("failed to register service", map[string]interface{}{"id": info.ID, "error": err})
		return &core.FrameworkError{Op: "discovery.Register", Kind: "discovery", ID: info.ID, Err: err}
	}

	if registry := core.GetGlobalMetricsRegistry(); registry != nil {
		registry.Counter("discovery.registrations", "namespace", r.namespace, "type", string(info.Type))
	}
	r.logger.Info("service registered", map[string]interface{}{"id": info.ID, "name": info.Name, "type": string(info.Type)})
	return nil
}

// Heartbeat refreshes a registration's TTL and LastSeen by re-registering
// the stored record (re-adding its index entries, which is idempotent),
// for a long-lived session controller that calls it on a timer.
func (r *RedisRegistry) Heartbeat(ctx context.Context, id string) error {
	info, err := r.Lookup(ctx, id)
	if err != nil {
		return err
	}
	return r.Register(ctx, info)
}

// UpdateHealth rewrites the stored health status by re-registering the
// record, which resets its TTL and LastSeen.
func (r *RedisRegistry) UpdateHealth(ctx context.Context, id string, status core.HealthStatus) error {
	info, err := r.Lookup(ctx, id)
	if err != nil {
		return err
	}
	info.Health = status
	return r.Register(ctx, info)
}

// Unregister removes a service and its index entries.
func (r *RedisRegistry) Unregister(ctx context.Context, id string) error {
	info, err := r.Lookup(ctx, id)
	if err != nil {
		if err == core.ErrServiceNotFound {
			return nil
		}
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.serviceKey(id))
	if info.Type != "" {
		pipe.SRem(ctx, r.typeKey(info.Type), id)
	}
	if info.Name != "" {
		pipe.SRem(ctx, r.nameKey(info.Name), id)
	}
	for _, cap := range info.Capabilities {
		pipe.SRem(ctx, r.capabilityKey(cap.Name), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return &core.FrameworkError{Op: "discovery.Unregister", Kind: "discovery", ID: id, Err: err}
	}
	r.logger.Info("service unregistered", map[string]interface{}{"id": id})
	return nil
}

// Lookup fetches a single registration by id.
func (r *RedisRegistry) Lookup(ctx context.Context, id string) (*core.ServiceInfo, error) {
	data, err := r.client.Get(ctx, r.serviceKey(id)).Result()
	if err == redis.Nil {
		return nil, core.ErrServiceNotFound
	}
	if err != nil {
		return nil, &core.FrameworkError{Op: "discovery.Lookup", Kind: "discovery", ID: id, Err: err}
	}
	var info core.ServiceInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return nil, &core.FrameworkError{Op: "discovery.Lookup", Kind: "discovery", ID: id, Err: err}
	}
	return &info, nil
}

// Discover finds services matching filter, intersecting type/name/capability
// indices before fetching and applying the (uninindexed) metadata filter.
func (r *RedisRegistry) Discover(ctx context.Context, filter core.DiscoveryFilter) ([]*core.ServiceInfo, error) {
	start := time.Now()
	ids, err := r.candidateIDs(ctx, filter)
	if err != nil {
		return nil, err
	}

	var services []*core.ServiceInfo
	for _, id := range ids {
		info, err := r.Lookup(ctx, id)
		if err == core.ErrServiceNotFound {
			continue // expired between index read and fetch
		}
		if err != nil {
			return nil, err
		}
		if !matchesMetadata(info, filter.Metadata) {
			continue
		}
		services = append(services, info)
	}

	if registry := core.GetGlobalMetricsRegistry(); registry != nil {
		registry.Histogram("discovery.lookup.duration_ms", float64(time.Since(start).Milliseconds()), "namespace", r.namespace)
		registry.Gauge("discovery.services.found", float64(len(services)), "namespace", r.namespace)
	}
	return services, nil
}

func (r *RedisRegistry) candidateIDs(ctx context.Context, filter core.DiscoveryFilter) ([]string, error) {
	if filter.Type == "" && filter.Name == "" && len(filter.Capabilities) == 0 {
		pattern := fmt.Sprintf("%s:services:*", r.namespace)
		keys, err := r.client.Keys(ctx, pattern).Result()
		if err != nil {
			return nil, &core.FrameworkError{Op: "discovery.Discover", Kind: "discovery", Err: err}
		}
		prefix := fmt.Sprintf("%s:services:", r.namespace)
		ids := make([]string, 0, len(keys))
		for _, k := range keys {
			ids = append(ids, k[len(prefix):])
		}
		return ids, nil
	}

	var ids []string
	haveIDs := false

	intersectOrSeed := func(next []string) {
		if !haveIDs {
			ids = next
			haveIDs = true
			return
		}
		ids = intersect(ids, next)
	}

	if filter.Type != "" {
		members, err := r.client.SMembers(ctx, r.typeKey(filter.Type)).Result()
		if err != nil && err != redis.Nil {
			return nil, &core.FrameworkError{Op: "discovery.Discover", Kind: "discovery", Err: err}
		}
		intersectOrSeed(members)
	}
	if filter.Name != "" {
		members, err := r.client.SMembers(ctx, r.nameKey(filter.Name)).Result()
		if err != nil && err != redis.Nil {
			return nil, &core.FrameworkError{Op: "discovery.Discover", Kind: "discovery", Err: err}
		}
		intersectOrSeed(members)
	}
	for _, cap := range filter.Capabilities {
		members, err := r.client.SMembers(ctx, r.capabilityKey(cap)).Result()
		if err != nil && err != redis.Nil {
			return nil, &core.FrameworkError{Op: "discovery.Discover", Kind: "discovery", Err: err}
		}
		intersectOrSeed(members)
	}
	return dedupe(ids), nil
}

// FindService finds services by name (core.Discovery backward-compat method).
func (r *RedisRegistry) FindService(ctx context.Context, name string) ([]*core.ServiceInfo, error) {
	return r.Discover(ctx, core.DiscoveryFilter{Name: name})
}

// FindByCapability finds services by capability (core.Discovery backward-compat method).
func (r *RedisRegistry) FindByCapability(ctx context.Context, capability string) ([]*core.ServiceInfo, error) {
	return r.Discover(ctx, core.DiscoveryFilter{Capabilities: []string{capability}})
}

func matchesMetadata(info *core.ServiceInfo, want map[string]interface{}) bool {
	for k, v := range want {
		if info.Metadata[k] != v {
			return false
		}
	}
	return true
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	var result []string
	for _, v := range b {
		if set[v] {
			result = append(result, v)
		}
	}
	return dedupe(result)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

var _ core.Discovery = (*RedisRegistry)(nil)
