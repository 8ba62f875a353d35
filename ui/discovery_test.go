package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/itsneelabh/evalsession/config"
	"github.com/itsneelabh/evalsession/core"
)

// failingRegistry wraps core.MockDiscovery but fails every Register call,
// used to verify CreateSession treats discovery registration as best-effort.
type failingRegistry struct {
	*core.MockDiscovery
}

func (f *failingRegistry) Register(ctx context.Context, info *core.ServiceInfo) error {
	return errors.New("registry unavailable")
}

func newTestAgent(t *testing.T, discovery core.Registry) *DefaultEvalAgent {
	t.Helper()
	manager := NewMockSessionManager(SessionConfig{
		TTL:             time.Minute,
		RateLimitWindow: time.Minute,
		RateLimitMax:    60,
	})
	opts := []EvalAgentOption{WithLogger(&core.NoOpLogger{})}
	if discovery != nil {
		opts = append(opts, WithDiscovery(discovery))
	}
	return NewDefaultEvalAgent("evalsession-test", config.WorkerConfig{}, config.QueueConfig{}, nil, manager, opts...)
}

func TestCreateSessionRegistersWithDiscovery(t *testing.T) {
	discovery := core.NewMockDiscovery()
	agent := newTestAgent(t, discovery)

	sess, err := agent.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	found, err := discovery.Discover(context.Background(), core.DiscoveryFilter{Name: "evalsession-test"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(found) != 1 || found[0].ID != sess.ID {
		t.Fatalf("expected session %q registered with discovery, got %+v", sess.ID, found)
	}
}

func TestCreateSessionSurvivesDiscoveryFailure(t *testing.T) {
	agent := newTestAgent(t, &failingRegistry{MockDiscovery: core.NewMockDiscovery()})

	sess, err := agent.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession should succeed even if discovery registration fails: %v", err)
	}
	if sess == nil || sess.ID == "" {
		t.Fatal("expected a valid session despite discovery failure")
	}
}

func TestCreateSessionWithoutDiscovery(t *testing.T) {
	agent := newTestAgent(t, nil)

	if _, err := agent.CreateSession(context.Background()); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
}
