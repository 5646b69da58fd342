package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/4406arthur/copilot/config"
	"github.com/4406arthur/copilot/storage/memory"
	"github.com/4406arthur/copilot/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StorageConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	s, err = Open(ctx, config.StorageConfig{Driver: "sqlite", SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "s.db")}})
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, s)
	assert.NoError(t, s.Close())

	s, err = Open(ctx, config.StorageConfig{Driver: "etcd"})
	assert.Error(t, err)
	assert.Nil(t, s)
}
