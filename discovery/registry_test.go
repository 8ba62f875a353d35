package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/evalsession/core"
)

// newTestRegistry mirrors the teacher's miniredis test setup
// (orchestration/hitl_checkpoint_store_test.go): build the *redis.Client
// directly against miniredis and construct the registry by hand, bypassing
// the URL-parsing constructor.
func newTestRegistry(t *testing.T) (*miniredis.Miniredis, *RedisRegistry) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := &RedisRegistry{
		client:    client,
		namespace: "test",
		ttl:       time.Minute,
		logger:    &core.NoOpLogger{},
		telemetry: &core.NoOpTelemetry{},
	}
	return mr, r
}

func TestRegisterAndLookup(t *testing.T) {
	mr, r := newTestRegistry(t)
	defer mr.Close()
	ctx := context.Background()

	info := &core.ServiceInfo{
		ID:   "session-1",
		Name: "repl-a",
		Type: core.ComponentTypeAgent,
		Capabilities: []core.Capability{
			{Name: "evaluate"},
		},
	}
	require.NoError(t, r.Register(ctx, info))

	got, err := r.Lookup(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "repl-a", got.Name)
	assert.Equal(t, core.HealthHealthy, got.Health)
	assert.False(t, got.LastSeen.IsZero())
}

func TestLookupMissing(t *testing.T) {
	mr, r := newTestRegistry(t)
	defer mr.Close()

	_, err := r.Lookup(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrServiceNotFound)
}

func TestUnregisterRemovesIndices(t *testing.T) {
	mr, r := newTestRegistry(t)
	defer mr.Close()
	ctx := context.Background()

	info := &core.ServiceInfo{ID: "s1", Name: "repl", Type: core.ComponentTypeAgent, Capabilities: []core.Capability{{Name: "evaluate"}}}
	require.NoError(t, r.Register(ctx, info))
	require.NoError(t, r.Unregister(ctx, "s1"))

	_, err := r.Lookup(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrServiceNotFound)

	byName, err := r.FindService(ctx, "repl")
	require.NoError(t, err)
	assert.Empty(t, byName)

	byCap, err := r.FindByCapability(ctx, "evaluate")
	require.NoError(t, err)
	assert.Empty(t, byCap)
}

func TestUnregisterMissingIsNotAnError(t *testing.T) {
	mr, r := newTestRegistry(t)
	defer mr.Close()

	assert.NoError(t, r.Unregister(context.Background(), "never-registered"))
}

func TestUpdateHealth(t *testing.T) {
	mr, r := newTestRegistry(t)
	defer mr.Close()
	ctx := context.Background()

	info := &core.ServiceInfo{ID: "s1", Name: "repl", Type: core.ComponentTypeAgent}
	require.NoError(t, r.Register(ctx, info))
	require.NoError(t, r.UpdateHealth(ctx, "s1", core.HealthUnhealthy))

	got, err := r.Lookup(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, core.HealthUnhealthy, got.Health)
}

func TestDiscoverByTypeNameCapability(t *testing.T) {
	mr, r := newTestRegistry(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, &core.ServiceInfo{
		ID: "s1", Name: "repl-a", Type: core.ComponentTypeAgent,
		Capabilities: []core.Capability{{Name: "evaluate"}, {Name: "inspect"}},
	}))
	require.NoError(t, r.Register(ctx, &core.ServiceInfo{
		ID: "s2", Name: "repl-b", Type: core.ComponentTypeAgent,
		Capabilities: []core.Capability{{Name: "evaluate"}},
	}))
	require.NoError(t, r.Register(ctx, &core.ServiceInfo{
		ID: "s3", Name: "repl-c", Type: core.ComponentTypeTool,
		Capabilities: []core.Capability{{Name: "evaluate"}},
	}))

	byType, err := r.Discover(ctx, core.DiscoveryFilter{Type: core.ComponentTypeAgent})
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	byName, err := r.Discover(ctx, core.DiscoveryFilter{Name: "repl-a"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "s1", byName[0].ID)

	byCap, err := r.Discover(ctx, core.DiscoveryFilter{Capabilities: []string{"inspect"}})
	require.NoError(t, err)
	require.Len(t, byCap, 1)
	assert.Equal(t, "s1", byCap[0].ID)

	combined, err := r.Discover(ctx, core.DiscoveryFilter{Type: core.ComponentTypeAgent, Capabilities: []string{"evaluate"}})
	require.NoError(t, err)
	assert.Len(t, combined, 2)
}

func TestDiscoverAllWhenNoFilter(t *testing.T) {
	mr, r := newTestRegistry(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, &core.ServiceInfo{ID: "s1", Name: "repl-a"}))
	require.NoError(t, r.Register(ctx, &core.ServiceInfo{ID: "s2", Name: "repl-b"}))

	all, err := r.Discover(ctx, core.DiscoveryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDiscoverMetadataFilter(t *testing.T) {
	mr, r := newTestRegistry(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, &core.ServiceInfo{
		ID: "s1", Name: "repl-a", Metadata: map[string]interface{}{"region": "us-west"},
	}))
	require.NoError(t, r.Register(ctx, &core.ServiceInfo{
		ID: "s2", Name: "repl-b", Metadata: map[string]interface{}{"region": "us-east"},
	}))

	found, err := r.Discover(ctx, core.DiscoveryFilter{Metadata: map[string]interface{}{"region": "us-west"}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "s1", found[0].ID)
}

func TestRegisterRequiresID(t *testing.T) {
	mr, r := newTestRegistry(t)
	defer mr.Close()

	err := r.Register(context.Background(), &core.ServiceInfo{Name: "no-id"})
	var fe *core.FrameworkError
	assert.ErrorAs(t, err, &fe)
}

func TestHeartbeatRefreshesTTL(t *testing.T) {
	mr, r := newTestRegistry(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, &core.ServiceInfo{ID: "s1", Name: "repl"}))
	first, err := r.Lookup(ctx, "s1")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, r.Heartbeat(ctx, "s1"))

	second, err := r.Lookup(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, second.LastSeen.After(first.LastSeen))
}

func TestIntersectDedupes(t *testing.T) {
	got := intersect([]string{"a", "b", "c"}, []string{"b", "b", "c", "d"})
	assert.Equal(t, []string{"b", "c"}, got)
}
