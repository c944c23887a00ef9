package session

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestRedisStore(t *testing.T) {
	rdb := newRedisClient(t)
	exerciseStore(t, NewRedisStore(rdb, time.Hour))
}

func TestRedisStore_KeyLayout(t *testing.T) {
	rdb := newRedisClient(t)
	store := NewRedisStore(rdb, time.Minute)
	ctx := context.Background()

	_, err := store.Update(ctx, "abc", func(st *State) error {
		st.BeginPending(PendingAuth{UserID: "u-1", Username: "alice", Action: ActionRegister})
		return nil
	})
	require.NoError(t, err)

	ttl, err := rdb.TTL(ctx, "session:abc").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
