package usecase

import (
	"testing"
	"time"

	"github.com/4406arthur/copilot/domain"
	"github.com/stretchr/testify/assert"
)

func TestRegistryCooldownAndInFlight(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	r := NewRegistry(DefaultCooldown)
	r.now = func() time.Time { return now }

	assert.NoError(t, r.Begin("e1"))
	assert.True(t, r.Ongoing("e1"))
	assert.ErrorIs(t, r.Begin("e1"), domain.ErrEvaluationInFlight)

	now = now.Add(time.Second)
	assert.ErrorIs(t, r.Begin("e2"), domain.ErrCooldown)

	now = now.Add(3 * time.Second)
	assert.NoError(t, r.Begin("e2"))

	r.Finish("e1", true)
	assert.False(t, r.Ongoing("e1"))
	assert.True(t, r.Completed("e1"))

	r.Finish("e2", false)
	assert.False(t, r.Completed("e2"))
}

func TestRegistryAttachSkipsCooldown(t *testing.T) {
	r := NewRegistry(time.Hour)
	assert.NoError(t, r.Begin("e1"))
	assert.NoError(t, r.Attach("e2"))
	assert.ErrorIs(t, r.Attach("e2"), domain.ErrEvaluationInFlight)
}

func TestRegistryMarkSchemes(t *testing.T) {
	r := NewRegistry(0)
	assert.False(t, r.HasMarkScheme("e1"))
	r.RecordMarkScheme("e1")
	assert.True(t, r.HasMarkScheme("e1"))
}
