package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ctchen222/Finger-Auth/internal/api/models"
	"ctchen222/Finger-Auth/internal/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestRepo(t *testing.T) UserRepository {
	t.Helper()
	pool, err := db.Connect(context.Background(), filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return NewUserRepository(pool)
}

func newUser(username, email string) *models.User {
	return &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		JoinDate: models.FormatJoinDate(time.Now()),
	}
}

func TestCreateUser_HashesPassword(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := newUser("alice", "alice@example.com")
	require.NoError(t, repo.CreateUser(ctx, u, "s3cret"))

	got, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.NotEqual(t, "s3cret", got.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("s3cret")))
	assert.Zero(t, got.LoginCount)
	assert.Zero(t, got.ChallengesCompleted)
}

func TestCreateUser_Duplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateUser(ctx, newUser("alice", "alice@example.com"), "pw"))

	tests := []struct {
		name    string
		user    *models.User
		wantErr error
	}{
		{name: "same username", user: newUser("alice", "other@example.com"), wantErr: ErrUsernameTaken},
		{name: "same email", user: newUser("bob", "alice@example.com"), wantErr: ErrEmailTaken},
		{name: "both", user: newUser("alice", "alice@example.com"), wantErr: ErrUsernameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.CreateUser(ctx, tt.user, "pw")
			assert.ErrorIs(t, err, tt.wantErr)

			n, err := repo.CountUsers(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestCreateUser_ConcurrentSameUsername(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const workers = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.CreateUser(ctx, newUser("racer", fmt.Sprintf("racer%d@example.com", i)), "pw")
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	n, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetUser_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for name, get := range map[string]func() (*models.User, error){
		"id":       func() (*models.User, error) { return repo.GetUserByID(ctx, "nope") },
		"username": func() (*models.User, error) { return repo.GetUserByUsername(ctx, "nope") },
		"email":    func() (*models.User, error) { return repo.GetUserByEmail(ctx, "nope@example.com") },
	} {
		t.Run(name, func(t *testing.T) {
			u, err := get()
			assert.NoError(t, err)
			assert.Nil(t, u)
		})
	}
}

func TestRecordChallengeCompletion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newUser("alice", "alice@example.com")
	require.NoError(t, repo.CreateUser(ctx, u, "pw"))

	require.NoError(t, repo.RecordChallengeCompletion(ctx, u.ID, false))
	require.NoError(t, repo.RecordChallengeCompletion(ctx, u.ID, true))
	require.NoError(t, repo.RecordChallengeCompletion(ctx, u.ID, true))

	got, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.ChallengesCompleted)
	assert.EqualValues(t, 2, got.LoginCount)

	assert.ErrorIs(t, repo.RecordChallengeCompletion(ctx, "missing", true), ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newUser("alice", "alice@example.com")
	require.NoError(t, repo.CreateUser(ctx, u, "pw"))

	require.NoError(t, repo.DeleteUser(ctx, u.ID))
	got, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// The username is free again.
	require.NoError(t, repo.CreateUser(ctx, newUser("alice", "alice@example.com"), "pw"))
	require.NoError(t, repo.DeleteUser(ctx, "missing"))
}
