package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ctchen222/Finger-Auth/internal/challenge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every Store implementation must share.
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("missing session reads as zero", func(t *testing.T) {
		st, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.True(t, st.IsZero())
	})

	t.Run("update persists", func(t *testing.T) {
		_, err := store.Update(ctx, "s1", func(st *State) error {
			st.BeginPending(PendingAuth{UserID: "u-1", Username: "alice", Action: ActionLogin})
			st.SetChallenge(challenge.State{Target: 3, IssuedAt: time.Now().UTC()})
			return nil
		})
		require.NoError(t, err)

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		require.True(t, got.IsPending())
		assert.Equal(t, "alice", got.Pending.Username)
		assert.Equal(t, 3, got.Challenge.Target)
	})

	t.Run("failed update writes nothing", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := store.Update(ctx, "s1", func(st *State) error {
			st.Logout()
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, got.IsPending())
	})

	t.Run("zero result removes the session", func(t *testing.T) {
		_, err := store.Update(ctx, "s1", func(st *State) error {
			st.Logout()
			return nil
		})
		require.NoError(t, err)

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("delete", func(t *testing.T) {
		_, err := store.Update(ctx, "s2", func(st *State) error {
			st.SetChallenge(challenge.State{Target: 1})
			return nil
		})
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, "s2"))

		got, err := store.Get(ctx, "s2")
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("concurrent completions promote exactly once", func(t *testing.T) {
		_, err := store.Update(ctx, "s3", func(st *State) error {
			st.BeginPending(PendingAuth{UserID: "u-2", Username: "bob", Action: ActionLogin})
			return nil
		})
		require.NoError(t, err)

		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Update(ctx, "s3", func(st *State) error {
					_, err := st.CompleteChallenge(true, time.Now())
					return err
				})
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, succeeded)
		got, err := store.Get(ctx, "s3")
		require.NoError(t, err)
		assert.True(t, got.IsAuthenticated())
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour))
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }

	_, err := store.Update(context.Background(), "s", func(st *State) error {
		st.SetChallenge(challenge.State{Target: 2})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	now = now.Add(2 * time.Minute)
	got, err := store.Get(context.Background(), "s")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
	assert.Equal(t, 0, store.Len())
}

func TestGenerateID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := GenerateID()
		require.NoError(t, err)
		assert.Len(t, id, 43)
		assert.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}
