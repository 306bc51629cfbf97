package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strovahq/challenge-engine/internal/adapters/repository"
	"github.com/strovahq/challenge-engine/internal/core/domain"
)

// challengeFixture wires the challenge service over in-memory adapters
// with a frozen clock, so window math is deterministic.
type challengeFixture struct {
	svc          *ChallengeService
	habits       *repository.InMemoryHabitRepository
	entries      *repository.InMemoryEntryRepository
	participants *repository.InMemoryParticipantRepository
	milestones   *repository.InMemoryMilestoneRepository
	now          time.Time
}

type recordingInvalidator struct {
	invalidated []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, challengeID string) error {
	r.invalidated = append(r.invalidated, challengeID)
	return nil
}

func newChallengeFixture(t *testing.T) (*challengeFixture, *recordingInvalidator) {
	t.Helper()

	participants := repository.NewInMemoryParticipantRepository()
	f := &challengeFixture{
		habits:       repository.NewInMemoryHabitRepository(),
		entries:      repository.NewInMemoryEntryRepository(),
		participants: participants,
		milestones:   repository.NewInMemoryMilestoneRepository(),
		// Frozen, but anchored to the wall clock: the repositories judge
		// challenge activity against real time.
		now: time.Now().UTC(),
	}

	boards := &recordingInvalidator{}
	f.svc = NewChallengeService(
		repository.NewInMemoryChallengeRepository(participants),
		participants, f.milestones, f.habits, f.entries, boards,
	)
	f.svc.now = func() time.Time { return f.now }

	return f, boards
}

func (f *challengeFixture) createChallenge(t *testing.T, cType domain.ChallengeType, target int, milestones ...MilestoneInput) *domain.Challenge {
	t.Helper()

	c, err := f.svc.Create(context.Background(), CreateChallengeInput{
		WorkspaceID: "ws-1",
		CreatorID:   "creator-1",
		Title:       "Test challenge",
		Type:        cType,
		Rules:       domain.ChallengeRules{TargetValue: target},
		MatchMode:   domain.MatchSingle,
		StartDate:   f.now.AddDate(0, 0, -10),
		EndDate:     f.now.AddDate(0, 0, 10),
		Milestones:  milestones,
	})
	require.NoError(t, err)
	return c
}

func (f *challengeFixture) createHabit(t *testing.T, ownerID, methodology string, target int) *domain.Habit {
	t.Helper()

	h, err := domain.NewHabit(ownerID, "Habit of "+ownerID, methodology, "", target,
		domain.Recurrence{Type: domain.RecurrenceDaily})
	require.NoError(t, err)
	require.NoError(t, f.habits.Create(context.Background(), h))
	return h
}

func (f *challengeFixture) logEntry(t *testing.T, h *domain.Habit, userID string, dayOffset, value int) {
	t.Helper()

	e := domain.NewCompletionEntry(h.ID, userID, f.now.AddDate(0, 0, dayOffset), true, value)
	require.NoError(t, f.entries.Upsert(context.Background(), e))
}

func TestChallengeService_Join(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: links owned habits", func(t *testing.T) {
		f, _ := newChallengeFixture(t)
		c := f.createChallenge(t, domain.ChallengeCumulative, 100)
		h := f.createHabit(t, "user-1", domain.MethodologyNumeric, 5)

		p, err := f.svc.Join(ctx, c.ID, "user-1", []string{h.ID}, domain.ShareFull)

		require.NoError(t, err)
		assert.Equal(t, domain.ParticipantActive, p.Status)
		assert.Equal(t, []string{h.ID}, p.LinkedHabitIDs)
	})

	t.Run("Fail: double join", func(t *testing.T) {
		f, _ := newChallengeFixture(t)
		c := f.createChallenge(t, domain.ChallengeCumulative, 100)
		h := f.createHabit(t, "user-1", domain.MethodologyNumeric, 5)

		_, err := f.svc.Join(ctx, c.ID, "user-1", []string{h.ID}, "")
		require.NoError(t, err)

		_, err = f.svc.Join(ctx, c.ID, "user-1", []string{h.ID}, "")
		assert.ErrorIs(t, err, domain.ErrAlreadyJoined)
	})

	t.Run("Fail: someone else's habit", func(t *testing.T) {
		f, _ := newChallengeFixture(t)
		c := f.createChallenge(t, domain.ChallengeCumulative, 100)
		h := f.createHabit(t, "user-1", domain.MethodologyNumeric, 5)

		_, err := f.svc.Join(ctx, c.ID, "user-2", []string{h.ID}, "")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("Fail: weekly_count habit cannot back a streak challenge", func(t *testing.T) {
		f, _ := newChallengeFixture(t)
		c := f.createChallenge(t, domain.ChallengeStreak, 7)

		h, err := domain.NewHabit("user-1", "Flexible", domain.MethodologyBoolean, "", 0,
			domain.Recurrence{Type: domain.RecurrenceWeeklyCount, WeeklyCount: 3})
		require.NoError(t, err)
		require.NoError(t, f.habits.Create(ctx, h))

		_, err = f.svc.Join(ctx, c.ID, "user-1", []string{h.ID}, "")
		assert.ErrorIs(t, err, domain.ErrHabitNotStreakable)
	})

	t.Run("Fail: cancelled challenge rejects joins", func(t *testing.T) {
		f, _ := newChallengeFixture(t)
		c := f.createChallenge(t, domain.ChallengeCumulative, 100)
		h := f.createHabit(t, "user-1", domain.MethodologyNumeric, 5)

		require.NoError(t, f.svc.Cancel(ctx, c.ID, "creator-1"))

		_, err := f.svc.Join(ctx, c.ID, "user-1", []string{h.ID}, "")
		assert.ErrorIs(t, err, domain.ErrChallengeCancelled)
	})
}

func TestChallengeService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("Only the creator may cancel", func(t *testing.T) {
		f, _ := newChallengeFixture(t)
		c := f.createChallenge(t, domain.ChallengeCumulative, 100)

		assert.ErrorIs(t, f.svc.Cancel(ctx, c.ID, "user-9"), domain.ErrUnauthorized)
		assert.NoError(t, f.svc.Cancel(ctx, c.ID, "creator-1"))
	})

	t.Run("Cancel is terminal", func(t *testing.T) {
		f, _ := newChallengeFixture(t)
		c := f.createChallenge(t, domain.ChallengeCumulative, 100)

		require.NoError(t, f.svc.Cancel(ctx, c.ID, "creator-1"))
		assert.ErrorIs(t, f.svc.Cancel(ctx, c.ID, "creator-1"), domain.ErrChallengeCancelled)
	})
}

func TestChallengeService_Recompute(t *testing.T) {
	ctx := context.Background()

	t.Run("Cumulative progress accrues and completes", func(t *testing.T) {
		f, boards := newChallengeFixture(t)
		c := f.createChallenge(t, domain.ChallengeCumulative, 20)
		h := f.createHabit(t, "user-1", domain.MethodologyNumeric, 5)

		_, err := f.svc.Join(ctx, c.ID, "user-1", []string{h.ID}, "")
		require.NoError(t, err)

		f.logEntry(t, h, "user-1", -2, 8)
		f.logEntry(t, h, "user-1", -1, 7)

		require.NoError(t, f.svc.RecomputeForHabit(ctx, h.ID))

		p, err := f.svc.GetParticipant(ctx, c.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 15.0, p.Progress.CurrentValue)
		assert.Equal(t, domain.ParticipantActive, p.Status)
		assert.NotEmpty(t, boards.invalidated)

		f.logEntry(t, h, "user-1", 0, 6)
		require.NoError(t, f.svc.RecomputeForHabit(ctx, h.ID))

		p, err = f.svc.GetParticipant(ctx, c.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 21.0, p.Progress.CurrentValue)
		assert.Equal(t, domain.ParticipantCompleted, p.Status)
	})

	t.Run("Milestone reaches are recorded once per user", func(t *testing.T) {
		f, _ := newChallengeFixture(t)
		c := f.createChallenge(t, domain.ChallengeCumulative, 100,
			MilestoneInput{Value: 10, Label: "Ten"},
			MilestoneInput{Value: 50, Label: "Fifty"},
		)
		h := f.createHabit(t, "user-1", domain.MethodologyNumeric, 5)

		_, err := f.svc.Join(ctx, c.ID, "user-1", []string{h.ID}, "")
		require.NoError(t, err)

		f.logEntry(t, h, "user-1", -1, 12)

		// Recompute twice over the same ledger: the second run must not
		// duplicate the crossing.
		require.NoError(t, f.svc.RecomputeForHabit(ctx, h.ID))
		require.NoError(t, f.svc.RecomputeForHabit(ctx, h.ID))

		milestones, err := f.milestones.ListByChallengeID(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, milestones, 2)

		assert.Len(t, milestones[0].ReachedBy, 1)
		assert.Equal(t, "user-1", milestones[0].ReachedBy[0].UserID)
		assert.Empty(t, milestones[1].ReachedBy)
	})

	t.Run("Dropped participants are skipped", func(t *testing.T) {
		f, _ := newChallengeFixture(t)
		c := f.createChallenge(t, domain.ChallengeCumulative, 100)
		h := f.createHabit(t, "user-1", domain.MethodologyNumeric, 5)

		_, err := f.svc.Join(ctx, c.ID, "user-1", []string{h.ID}, "")
		require.NoError(t, err)
		require.NoError(t, f.svc.Leave(ctx, c.ID, "user-1"))

		f.logEntry(t, h, "user-1", -1, 8)
		require.NoError(t, f.svc.RecomputeForHabit(ctx, h.ID))

		p, err := f.svc.GetParticipant(ctx, c.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 0.0, p.Progress.CurrentValue)
		assert.Equal(t, domain.ParticipantDropped, p.Status)
	})

	t.Run("Team goal settles everyone when the pool meets the target", func(t *testing.T) {
		f, _ := newChallengeFixture(t)
		c := f.createChallenge(t, domain.ChallengeTeamGoal, 20)

		hA := f.createHabit(t, "user-a", domain.MethodologyNumeric, 5)
		hB := f.createHabit(t, "user-b", domain.MethodologyNumeric, 5)

		_, err := f.svc.Join(ctx, c.ID, "user-a", []string{hA.ID}, "")
		require.NoError(t, err)
		_, err = f.svc.Join(ctx, c.ID, "user-b", []string{hB.ID}, "")
		require.NoError(t, err)

		f.logEntry(t, hA, "user-a", -1, 8)
		require.NoError(t, f.svc.RecomputeForHabit(ctx, hA.ID))

		pA, _ := f.svc.GetParticipant(ctx, c.ID, "user-a")
		assert.Equal(t, domain.ParticipantActive, pA.Status, "pool at 8, nobody completes")

		f.logEntry(t, hB, "user-b", -1, 13)
		require.NoError(t, f.svc.RecomputeForHabit(ctx, hB.ID))

		pA, _ = f.svc.GetParticipant(ctx, c.ID, "user-a")
		pB, _ := f.svc.GetParticipant(ctx, c.ID, "user-b")
		assert.Equal(t, domain.ParticipantCompleted, pA.Status)
		assert.Equal(t, domain.ParticipantCompleted, pB.Status)

		assert.Equal(t, 8.0, pA.Progress.CurrentValue, "individual contribution survives settlement")
		assert.Equal(t, 13.0, pB.Progress.CurrentValue)
	})

	t.Run("Only challenges whose window covers today are recomputed", func(t *testing.T) {
		f, _ := newChallengeFixture(t)
		h := f.createHabit(t, "user-1", domain.MethodologyNumeric, 5)

		upcoming, err := f.svc.Create(ctx, CreateChallengeInput{
			WorkspaceID: "ws-1",
			CreatorID:   "creator-1",
			Title:       "Starts next week",
			Type:        domain.ChallengeCumulative,
			Rules:       domain.ChallengeRules{TargetValue: 100},
			MatchMode:   domain.MatchSingle,
			StartDate:   f.now.AddDate(0, 0, 5),
			EndDate:     f.now.AddDate(0, 0, 15),
		})
		require.NoError(t, err)

		cancelled := f.createChallenge(t, domain.ChallengeCumulative, 100)

		_, err = f.svc.Join(ctx, upcoming.ID, "user-1", []string{h.ID}, "")
		require.NoError(t, err)
		_, err = f.svc.Join(ctx, cancelled.ID, "user-1", []string{h.ID}, "")
		require.NoError(t, err)
		require.NoError(t, f.svc.Cancel(ctx, cancelled.ID, "creator-1"))

		f.logEntry(t, h, "user-1", -1, 8)
		require.NoError(t, f.svc.RecomputeForHabit(ctx, h.ID))

		for _, id := range []string{upcoming.ID, cancelled.ID} {
			p, err := f.svc.GetParticipant(ctx, id, "user-1")
			require.NoError(t, err)
			assert.Equal(t, 0.0, p.Progress.CurrentValue)
		}
	})

	t.Run("Batch recompute matches incremental", func(t *testing.T) {
		f, _ := newChallengeFixture(t)
		c := f.createChallenge(t, domain.ChallengeCumulative, 100)
		h := f.createHabit(t, "user-1", domain.MethodologyNumeric, 5)

		_, err := f.svc.Join(ctx, c.ID, "user-1", []string{h.ID}, "")
		require.NoError(t, err)

		f.logEntry(t, h, "user-1", -3, 6)
		f.logEntry(t, h, "user-1", -2, 9)

		require.NoError(t, f.svc.RecomputeForHabit(ctx, h.ID))
		incremental, err := f.svc.GetParticipant(ctx, c.ID, "user-1")
		require.NoError(t, err)

		require.NoError(t, f.svc.RecomputeChallenge(ctx, c.ID))
		batch, err := f.svc.GetParticipant(ctx, c.ID, "user-1")
		require.NoError(t, err)

		assert.Equal(t, incremental.Progress, batch.Progress)
	})
}
