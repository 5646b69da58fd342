package memory

import (
	"context"
	"testing"

	"github.com/4406arthur/copilot/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.Get(ctx, domain.KeyToken)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Set(ctx, domain.KeyToken, "a"))
	require.NoError(t, s.Set(ctx, domain.KeyToken, "b"))
	require.NoError(t, s.Set(ctx, domain.KeyUser, "{}"))
	v, err := s.Get(ctx, domain.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Delete(ctx, domain.KeyToken))
	require.NoError(t, s.Delete(ctx, domain.KeyToken))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())
	assert.NoError(t, s.Close())
}
