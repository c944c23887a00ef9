package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.db")

	pool, err := Connect(ctx, path)
	require.NoError(t, err)
	defer pool.Close()

	var n int
	require.NoError(t, pool.GetContext(ctx, &n, "SELECT COUNT(*) FROM users"))
	assert.Equal(t, 0, n)
}

func TestConnect_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.db")

	pool, err := Connect(ctx, path)
	require.NoError(t, err)
	_, err = pool.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, join_date) VALUES ('1','a','a@x','h','2026-01-01 00:00:00')`)
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	pool, err = Connect(ctx, path)
	require.NoError(t, err)
	defer pool.Close()

	var n int
	require.NoError(t, pool.GetContext(ctx, &n, "SELECT COUNT(*) FROM users"))
	assert.Equal(t, 1, n)
}

func TestConnect_CorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	require.NoError(t, os.WriteFile(path, []byte("this is definitely not a sqlite database file at all"), 0o600))

	_, err := Connect(context.Background(), path)
	assert.Error(t, err)
}
