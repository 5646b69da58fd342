package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/4406arthur/copilot/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := NewStore(path)
	require.NoError(t, err)

	_, err = s.Get(ctx, domain.KeyToken)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Set(ctx, domain.KeyToken, "first"))
	require.NoError(t, s.Set(ctx, domain.KeyToken, "second"))
	require.NoError(t, s.Set(ctx, domain.KeyCurrentCourseID, "c1"))
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(ctx, domain.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	require.NoError(t, s.Delete(ctx, domain.KeyToken))
	_, err = s.Get(ctx, domain.KeyToken)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Clear(ctx))
	_, err = s.Get(ctx, domain.KeyCurrentCourseID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
