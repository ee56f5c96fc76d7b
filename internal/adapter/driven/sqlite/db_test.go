package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reqbridge.db")

	db, err := NewDB(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, path, db.Path())
	require.NoError(t, RunMigrations(db.Writer))

	repo := NewSecretRepo(db, testKey)
	require.NoError(t, repo.Set(context.Background(), "reqbridge:active:default:clientId", "cid"))

	value, found, err := repo.Get(context.Background(), "reqbridge:active:default:clientId")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "cid", value)
}
