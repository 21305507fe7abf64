package credentials_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"quickassist/config"
	"quickassist/shared/credentials"
)

func newTestStore(t *testing.T) (credentials.Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "credentials.json")

	cfg := &config.Config{}
	cfg.Auth.CredentialsFile = path

	return credentials.NewFileStore(cfg), path
}

func TestFileStore_SetAndGet(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Set("access-1", "refresh-1")
	assert.NoError(t, err)

	assert.Equal(t, "access-1", store.Access())
	assert.Equal(t, "refresh-1", store.Refresh())
}

func TestFileStore_SetAccessKeepsRefresh(t *testing.T) {
	store, _ := newTestStore(t)

	assert.NoError(t, store.Set("access-1", "refresh-1"))
	assert.NoError(t, store.SetAccess("access-2"))

	assert.Equal(t, "access-2", store.Access())
	assert.Equal(t, "refresh-1", store.Refresh())
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	store, path := newTestStore(t)

	assert.NoError(t, store.Set("access-1", "refresh-1"))

	cfg := &config.Config{}
	cfg.Auth.CredentialsFile = path

	reloaded := credentials.NewFileStore(cfg)
	assert.Equal(t, "access-1", reloaded.Access())
	assert.Equal(t, "refresh-1", reloaded.Refresh())
}

func TestFileStore_Clear(t *testing.T) {
	store, path := newTestStore(t)

	assert.NoError(t, store.Set("access-1", "refresh-1"))
	assert.NoError(t, store.Clear())

	assert.Empty(t, store.Access())
	assert.Empty(t, store.Refresh())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Clear is idempotent.
	assert.NoError(t, store.Clear())
}

func TestFileStore_MissingFileStartsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	assert.Empty(t, store.Access())
	assert.Empty(t, store.Refresh())
}
