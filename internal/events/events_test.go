package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestNewEvent(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	evt, err := NewEvent(AuthCompleted, AuthPayload{UserID: "u-1", Username: "alice", Action: "login", At: at})
	require.NoError(t, err)

	assert.Equal(t, AuthCompleted, evt.Type)
	var got AuthPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &got))
	assert.Equal(t, "alice", got.Username)
	assert.True(t, at.Equal(got.At))
}

func TestDiscard(t *testing.T) {
	var p Publisher = Discard{}
	assert.NoError(t, p.Publish(context.Background(), AuthLogout, AuthPayload{}))
}

func TestRedisPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	sub := rdb.Subscribe(ctx, EventsChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisPublisher(rdb)
	require.NoError(t, pub.Publish(ctx, AuthPending, AuthPayload{UserID: "u-1", Action: "register", At: time.Now()}))

	select {
	case msg := <-sub.Channel():
		var evt Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &evt))
		assert.Equal(t, AuthPending, evt.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for published event")
	}
}
