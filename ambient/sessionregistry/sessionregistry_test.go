package sessionregistry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client, time.Minute)
}

func TestRegisterAndLookup(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "sess-1", "gateway-a"))

	info, ok, err := r.Lookup(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, StatusRunning, info.Status)
	require.Equal(t, "gateway-a", info.Instance)
}

func TestLookupMissingSession(t *testing.T) {
	r := newTestRegistry(t)
	_, ok, err := r.Lookup(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetStatusTransitions(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, r.Register(ctx, "sess-1", "gateway-a"))
	require.NoError(t, r.SetStatus(ctx, "sess-1", StatusDone))

	info, ok, err := r.Lookup(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, StatusDone, info.Status)
}

func TestForgetRemovesEntry(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, r.Register(ctx, "sess-1", "gateway-a"))
	require.NoError(t, r.Forget(ctx, "sess-1"))

	_, ok, err := r.Lookup(ctx, "sess-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPing(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Ping(context.Background()))
}
