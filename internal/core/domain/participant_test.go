package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParticipant(t *testing.T) {
	t.Parallel()

	t.Run("Starts active with the chosen share level", func(t *testing.T) {
		t.Parallel()

		p := NewParticipant("challenge-1", "user-1", []string{"habit-1"}, ShareStreaksOnly)

		assert.NotEmpty(t, p.ID)
		assert.Equal(t, ParticipantActive, p.Status)
		assert.Equal(t, ShareStreaksOnly, p.Share)
		assert.Zero(t, p.Progress.CurrentValue)
	})

	t.Run("Empty share level defaults to full", func(t *testing.T) {
		t.Parallel()

		p := NewParticipant("challenge-1", "user-1", nil, "")
		assert.Equal(t, ShareFull, p.Share)
	})
}

func TestParticipantDrop(t *testing.T) {
	t.Parallel()

	p := NewParticipant("challenge-1", "user-1", nil, ShareFull)

	require.NoError(t, p.Drop())
	assert.Equal(t, ParticipantDropped, p.Status)

	assert.ErrorIs(t, p.Drop(), ErrParticipantDropped)
}

func TestParticipantComplete(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("Active becomes completed", func(t *testing.T) {
		t.Parallel()

		p := NewParticipant("challenge-1", "user-1", nil, ShareFull)
		p.Complete(now)

		assert.Equal(t, ParticipantCompleted, p.Status)
		assert.Equal(t, now, p.UpdatedAt)
	})

	t.Run("Dropped participants never complete", func(t *testing.T) {
		t.Parallel()

		p := NewParticipant("challenge-1", "user-1", nil, ShareFull)
		require.NoError(t, p.Drop())

		p.Complete(now)
		assert.Equal(t, ParticipantDropped, p.Status)
	})
}

func TestMilestoneReach(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	m := NewMilestone("challenge-1", 50, "Halfway")

	assert.False(t, m.HasReached("user-1"))
	assert.True(t, m.Reach("user-1", at))
	assert.True(t, m.HasReached("user-1"))

	// Second crossing is a no-op: one row per (milestone, user).
	assert.False(t, m.Reach("user-1", at.Add(time.Hour)))
	require.Len(t, m.ReachedBy, 1)
	assert.Equal(t, at, m.ReachedBy[0].ReachedAt)

	assert.True(t, m.Reach("user-2", at))
	assert.Len(t, m.ReachedBy, 2)
}
