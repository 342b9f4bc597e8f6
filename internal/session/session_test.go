package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-todo-api/pkg/client"
)

func TestStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.toml")
	store := NewStore(path)

	sess, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, sess.Token, "missing file yields an empty session")

	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(&Session{
		Server: "http://todo.test", Token: "tok", UserID: "u-1", Email: "a@example.com", ExpiresAt: expires,
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://todo.test", loaded.Server)
	assert.Equal(t, "tok", loaded.Token)
	assert.True(t, loaded.ExpiresAt.Equal(expires))

	require.NoError(t, store.Clear())
	cleared, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, cleared.Token)
	assert.Equal(t, "http://todo.test", cleared.Server)
}

func TestStore_Token(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.toml"))
	ctx := context.Background()

	_, err := store.Token(ctx)
	assert.ErrorIs(t, err, client.ErrNotAuthenticated)

	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	require.NoError(t, store.Save(&Session{Token: "tok", ExpiresAt: now.Add(time.Hour)}))

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	store.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = store.Token(ctx)
	assert.ErrorIs(t, err, client.ErrNotAuthenticated, "expired sessions are not used")
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, os.WriteFile(path, []byte("token = "), 0o600))

	_, err := NewStore(path).Token(context.Background())
	assert.ErrorIs(t, err, client.ErrNotAuthenticated)
}
