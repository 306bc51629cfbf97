package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

func testChallenge(cType domain.ChallengeType, mode domain.MatchMode, target int) *domain.Challenge {
	return &domain.Challenge{
		ID:        "ch-1",
		Type:      cType,
		MatchMode: mode,
		Rules:     domain.ChallengeRules{TargetValue: target},
		StartDate: day(0),
		EndDate:   day(27),
	}
}

func testParticipant(userID string, habitIDs ...string) *domain.Participant {
	return &domain.Participant{
		ID:             "p-" + userID,
		ChallengeID:    "ch-1",
		UserID:         userID,
		LinkedHabitIDs: habitIDs,
		Status:         domain.ParticipantActive,
		JoinedAt:       day(0),
	}
}

func TestComputeProgress_StreakChallenge(t *testing.T) {
	h := dailyHabit()
	ch := testChallenge(domain.ChallengeStreak, domain.MatchSingle, 30)
	p := testParticipant("u1", h.ID)

	entries := []*domain.CompletionEntry{
		checked(h.ID, day(0)),
		checked(h.ID, day(1)),
		checked(h.ID, day(2)),
		checked(h.ID, day(4)),
	}

	res := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{h.ID: h},
		Entries:     entries,
		Now:         day(4),
	})

	assert.Equal(t, 1.0, res.Progress.CurrentValue)
	assert.Equal(t, 1, res.Progress.CurrentStreak)
	assert.Equal(t, 3, res.Progress.LongestStreak)
	assert.False(t, res.TargetMet)
}

func TestComputeProgress_GraceKeepsMissedDayAlive(t *testing.T) {
	h := dailyHabit()
	ch := testChallenge(domain.ChallengeStreak, domain.MatchSingle, 30)
	ch.Rules.AllowMakeupDays = true
	ch.Rules.GracePeriodHours = 6
	p := testParticipant("u1", h.ID)

	// Day 1 has no entry, but day 2's completion was logged at 02:00 —
	// inside the six-hour window after day 1 ended.
	entries := []*domain.CompletionEntry{
		checked(h.ID, day(0)),
		{HabitID: h.ID, EntryDate: day(2), Completed: true, RecordedAt: day(2).Add(2 * time.Hour)},
	}

	res := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{h.ID: h},
		Entries:     entries,
		Now:         day(2),
	})

	assert.Equal(t, 3, res.Progress.CurrentStreak, "graced day keeps the chain alive")
	assert.Equal(t, 3.0, res.Progress.CurrentValue)
}

func TestComputeProgress_GraceWindowIsStrict(t *testing.T) {
	newInput := func(allowMakeup bool, graceHours int, recordedAt time.Time) ProgressInput {
		h := dailyHabit()
		ch := testChallenge(domain.ChallengeStreak, domain.MatchSingle, 30)
		ch.Rules.AllowMakeupDays = allowMakeup
		ch.Rules.GracePeriodHours = graceHours

		return ProgressInput{
			Challenge:   ch,
			Participant: testParticipant("u1", h.ID),
			Habits:      map[string]*domain.Habit{h.ID: h},
			Entries: []*domain.CompletionEntry{
				checked(h.ID, day(0)),
				{HabitID: h.ID, EntryDate: day(2), Completed: true, RecordedAt: recordedAt},
			},
			Now: day(2),
		}
	}

	t.Run("recording after the window does not cover the miss", func(t *testing.T) {
		res := ComputeProgress(newInput(true, 6, day(2).Add(8*time.Hour)))
		assert.Equal(t, 1, res.Progress.CurrentStreak, "the missed day 1 breaks the run")
	})

	t.Run("grace hours without makeup days are inert", func(t *testing.T) {
		res := ComputeProgress(newInput(false, 6, day(2).Add(2*time.Hour)))
		assert.Equal(t, 1, res.Progress.CurrentStreak)
	})
}

func TestComputeProgress_ConsistencyAnyMode(t *testing.T) {
	// Scenario: consistency challenge, any mode over two habits; a day
	// where only habit A is completed still earns the numerator.
	a := dailyHabit()
	b := &domain.Habit{
		ID:          "h-b",
		Methodology: domain.MethodologyBoolean,
		TargetValue: 1,
		Recurrence:  domain.Recurrence{Type: domain.RecurrenceDaily},
	}

	ch := testChallenge(domain.ChallengeConsistency, domain.MatchAny, 80)
	p := testParticipant("u1", a.ID, b.ID)

	entries := []*domain.CompletionEntry{
		checked(a.ID, day(0)), // only A on day 0: still credited
		checked(a.ID, day(1)),
		checked(b.ID, day(1)),
	}

	res := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{a.ID: a, b.ID: b},
		Entries:     entries,
		Now:         day(2),
	})

	// Days 0 and 1 credited, day 2 missed -> 66.7%.
	assert.Equal(t, 66.7, res.Progress.CurrentValue)
	assert.Equal(t, 66.7, res.Progress.CompletionRate)
	assert.False(t, res.TargetMet)
}

func TestComputeProgress_CumulativeNumeric(t *testing.T) {
	h := &domain.Habit{
		ID:          "h-reps",
		Methodology: domain.MethodologyNumeric,
		TargetValue: 10,
		Recurrence:  domain.Recurrence{Type: domain.RecurrenceDaily},
	}
	ch := testChallenge(domain.ChallengeCumulative, domain.MatchSingle, 100)
	p := testParticipant("u1", h.ID)

	entries := []*domain.CompletionEntry{
		{HabitID: h.ID, EntryDate: day(0), Value: 40, RecordedAt: day(0)},
		{HabitID: h.ID, EntryDate: day(1), Value: 5, RecordedAt: day(1)}, // below habit target, ignored
		{HabitID: h.ID, EntryDate: day(2), Value: 60, RecordedAt: day(2)},
	}

	res := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{h.ID: h},
		Entries:     entries,
		Now:         day(2),
	})

	assert.Equal(t, 100.0, res.Progress.CurrentValue)
	assert.True(t, res.TargetMet)
}

func TestComputeProgress_BooleanCumulativeCountsDays(t *testing.T) {
	h := dailyHabit()
	ch := testChallenge(domain.ChallengeCumulative, domain.MatchSingle, 10)
	p := testParticipant("u1", h.ID)

	entries := []*domain.CompletionEntry{
		checked(h.ID, day(0)),
		checked(h.ID, day(2)),
		checked(h.ID, day(3)),
	}

	res := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{h.ID: h},
		Entries:     entries,
		Now:         day(3),
	})

	assert.Equal(t, 3.0, res.Progress.CurrentValue)
}

func TestComputeProgress_MinimumMode(t *testing.T) {
	// Scenario: minimum 2 of 3 linked habits.
	habits := map[string]*domain.Habit{}
	ids := []string{"h1", "h2", "h3"}
	for _, id := range ids {
		habits[id] = &domain.Habit{
			ID:          id,
			Methodology: domain.MethodologyBoolean,
			TargetValue: 1,
			Recurrence:  domain.Recurrence{Type: domain.RecurrenceDaily},
		}
	}

	ch := testChallenge(domain.ChallengeConsistency, domain.MatchMinimum, 80)
	ch.MatchMinimum = 2
	p := testParticipant("u1", ids...)

	entries := []*domain.CompletionEntry{
		// Day 0: 2 of 3 -> credited.
		checked("h1", day(0)),
		checked("h2", day(0)),
		// Day 1: 1 of 3 -> missed.
		checked("h1", day(1)),
	}

	res := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      habits,
		Entries:     entries,
		Now:         day(1),
	})

	assert.Equal(t, 50.0, res.Progress.CurrentValue)
}

func TestComputeProgress_ArchivedHabitUnsatisfiedFromArchiveDay(t *testing.T) {
	a := dailyHabit()
	b := &domain.Habit{
		ID:          "h-gone",
		Methodology: domain.MethodologyBoolean,
		TargetValue: 1,
		Recurrence:  domain.Recurrence{Type: domain.RecurrenceDaily},
	}
	archivedAt := day(1).Add(9 * time.Hour)
	b.ArchivedAt = &archivedAt

	ch := testChallenge(domain.ChallengeConsistency, domain.MatchAll, 80)
	p := testParticipant("u1", a.ID, b.ID)

	entries := []*domain.CompletionEntry{
		checked(a.ID, day(0)),
		checked(b.ID, day(0)), // live on day 0: the credit stands
		checked(a.ID, day(1)),
		checked(b.ID, day(1)), // archived on day 1: entry cannot rescue the slot
	}

	res := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{a.ID: a, b.ID: b},
		Entries:     entries,
		Now:         day(1),
	})

	// Day 0 credited, day 1 missed because the archived slot blocks `all`.
	assert.Equal(t, 50.0, res.Progress.CurrentValue)
}

func TestComputeProgress_ArchiveDoesNotErasePriorCumulativeValue(t *testing.T) {
	h := &domain.Habit{
		ID:          "h-reps",
		Methodology: domain.MethodologyNumeric,
		TargetValue: 5,
		Recurrence:  domain.Recurrence{Type: domain.RecurrenceDaily},
	}
	ch := testChallenge(domain.ChallengeCumulative, domain.MatchSingle, 100)
	p := testParticipant("u1", h.ID)

	entries := []*domain.CompletionEntry{
		{HabitID: h.ID, EntryDate: day(0), Value: 10, RecordedAt: day(0)},
		{HabitID: h.ID, EntryDate: day(1), Value: 10, RecordedAt: day(1)},
		{HabitID: h.ID, EntryDate: day(2), Value: 10, RecordedAt: day(2)},
	}

	before := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{h.ID: h},
		Entries:     entries,
		Now:         day(2),
	})
	require.Equal(t, 30.0, before.Progress.CurrentValue)

	// Archive on day 3 and recompute: value earned while the habit was
	// live must survive, keeping cumulative progress monotone.
	archivedAt := day(3)
	h.ArchivedAt = &archivedAt
	p.Progress = before.Progress

	after := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{h.ID: h},
		Entries:     entries,
		Now:         day(3),
	})

	assert.Equal(t, 30.0, after.Progress.CurrentValue)
	assert.GreaterOrEqual(t, after.Progress.CurrentValue, before.Progress.CurrentValue)
}

func TestComputeProgress_JoinClampsWindow(t *testing.T) {
	h := dailyHabit()
	ch := testChallenge(domain.ChallengeConsistency, domain.MatchSingle, 80)
	p := testParticipant("u1", h.ID)
	p.JoinedAt = day(2)

	// Misses before joining are not held against the participant.
	entries := []*domain.CompletionEntry{
		checked(h.ID, day(2)),
		checked(h.ID, day(3)),
	}

	res := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{h.ID: h},
		Entries:     entries,
		Now:         day(3),
	})

	assert.Equal(t, 100.0, res.Progress.CurrentValue)
}

func TestComputeProgress_BeforeStartIsZero(t *testing.T) {
	h := dailyHabit()
	ch := testChallenge(domain.ChallengeStreak, domain.MatchSingle, 7)
	ch.StartDate = day(5)
	ch.EndDate = day(12)
	p := testParticipant("u1", h.ID)

	res := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{h.ID: h},
		Entries:     []*domain.CompletionEntry{checked(h.ID, day(1))},
		Now:         day(2),
	})

	assert.Equal(t, 0.0, res.Progress.CurrentValue)
	assert.Empty(t, res.NewReaches)
}

func TestComputeProgress_Milestones(t *testing.T) {
	h := dailyHabit()
	ch := testChallenge(domain.ChallengeStreak, domain.MatchSingle, 30)
	p := testParticipant("u1", h.ID)

	milestones := []*domain.Milestone{
		domain.NewMilestone(ch.ID, 14, "two weeks"),
		domain.NewMilestone(ch.ID, 7, "one week"),
		domain.NewMilestone(ch.ID, 30, "one month"),
	}

	var entries []*domain.CompletionEntry
	for i := 0; i < 7; i++ {
		entries = append(entries, checked(h.ID, day(i)))
	}

	in := ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{h.ID: h},
		Entries:     entries,
		Milestones:  milestones,
		Now:         day(6),
	}

	res := ComputeProgress(in)
	require.Len(t, res.NewReaches, 1)
	assert.Equal(t, "u1", res.NewReaches[0].Reach.UserID)

	// Persist the reach, extend the run by one day, recompute: the 7-day
	// milestone must not be re-appended.
	for _, m := range milestones {
		if m.ID == res.NewReaches[0].MilestoneID {
			m.Reach(res.NewReaches[0].Reach.UserID, res.NewReaches[0].Reach.ReachedAt)
		}
	}

	in.Entries = append(entries, checked(h.ID, day(7)))
	in.Now = day(7)
	in.Participant.Progress = res.Progress

	res2 := ComputeProgress(in)
	assert.Equal(t, 8.0, res2.Progress.CurrentValue)
	assert.Empty(t, res2.NewReaches)

	// And a recompute with nothing new at all stays quiet too.
	res3 := ComputeProgress(in)
	assert.Empty(t, res3.NewReaches)
}

func TestComputeProgress_MilestoneJumpCrossesSeveral(t *testing.T) {
	h := &domain.Habit{
		ID:          "h-reps",
		Methodology: domain.MethodologyNumeric,
		TargetValue: 1,
		Recurrence:  domain.Recurrence{Type: domain.RecurrenceDaily},
	}
	ch := testChallenge(domain.ChallengeCumulative, domain.MatchSingle, 1000)
	p := testParticipant("u1", h.ID)

	milestones := []*domain.Milestone{
		domain.NewMilestone(ch.ID, 100, ""),
		domain.NewMilestone(ch.ID, 250, ""),
		domain.NewMilestone(ch.ID, 500, ""),
	}

	res := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{h.ID: h},
		Entries: []*domain.CompletionEntry{
			{HabitID: h.ID, EntryDate: day(0), Value: 300, RecordedAt: day(0)},
		},
		Milestones: milestones,
		Now:        day(0),
	})

	// A single write that lands at 300 crosses 100 and 250 at once.
	require.Len(t, res.NewReaches, 2)
}

func TestPoolTotal(t *testing.T) {
	mk := func(user string, value float64, status domain.ParticipantStatus) *domain.Participant {
		p := testParticipant(user, "h")
		p.Progress.CurrentValue = value
		p.Status = status
		return p
	}

	// Scenario: contributions 200 + 150 + 300 -> pool 650 of a 1000
	// target, 65% complete.
	participants := []*domain.Participant{
		mk("u1", 200, domain.ParticipantActive),
		mk("u2", 150, domain.ParticipantActive),
		mk("u3", 300, domain.ParticipantActive),
	}

	pool := PoolTotal(participants)
	assert.Equal(t, 650.0, pool)
	assert.Equal(t, 65.0, RoundPercent(1000, int(pool)))

	t.Run("pool equals the sum of member progress exactly", func(t *testing.T) {
		var sum float64
		for _, p := range participants {
			sum += p.Progress.CurrentValue
		}
		assert.Equal(t, sum, PoolTotal(participants))
	})

	t.Run("dropped participants leave the pool", func(t *testing.T) {
		participants[1].Status = domain.ParticipantDropped
		assert.Equal(t, 500.0, PoolTotal(participants))
	})
}

// The central correctness property: recompute-from-scratch over the full
// ledger equals the cumulative result of per-write incremental recomputes,
// for any write order that preserves per-(habit, day) upsert semantics.
func TestComputeProgress_RecomputeEquivalence(t *testing.T) {
	h := &domain.Habit{
		ID:          "h-reps",
		Methodology: domain.MethodologyNumeric,
		TargetValue: 5,
		Recurrence:  domain.Recurrence{Type: domain.RecurrenceDaily},
	}
	ch := testChallenge(domain.ChallengeCumulative, domain.MatchSingle, 500)

	writes := []*domain.CompletionEntry{
		{HabitID: h.ID, EntryDate: day(0), Value: 10, RecordedAt: day(0)},
		{HabitID: h.ID, EntryDate: day(1), Value: 20, RecordedAt: day(1)},
		{HabitID: h.ID, EntryDate: day(2), Value: 3, RecordedAt: day(2)},
		{HabitID: h.ID, EntryDate: day(3), Value: 40, RecordedAt: day(3)},
		{HabitID: h.ID, EntryDate: day(4), Value: 15, RecordedAt: day(4)},
	}

	batch := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: testParticipant("u1", h.ID),
		Habits:      map[string]*domain.Habit{h.ID: h},
		Entries:     writes,
		Now:         day(4),
	})

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		perm := rng.Perm(len(writes))

		// Replay the writes in permuted order, recomputing after each one
		// the way the worker does, carrying progress forward.
		ledger := map[string]*domain.CompletionEntry{}
		p := testParticipant("u1", h.ID)

		var last ProgressResult
		for _, i := range perm {
			w := writes[i]
			ledger[domain.DayKey(w.EntryDate)] = w // upsert by (habit, day)

			var snapshot []*domain.CompletionEntry
			for _, e := range ledger {
				snapshot = append(snapshot, e)
			}

			last = ComputeProgress(ProgressInput{
				Challenge:   ch,
				Participant: p,
				Habits:      map[string]*domain.Habit{h.ID: h},
				Entries:     snapshot,
				Now:         day(4),
			})
			p.Progress = last.Progress
		}

		assert.Equal(t, batch.Progress.CurrentValue, last.Progress.CurrentValue, "perm %v", perm)
		assert.Equal(t, batch.Progress.CompletionRate, last.Progress.CompletionRate, "perm %v", perm)
		assert.Equal(t, batch.Progress.CurrentStreak, last.Progress.CurrentStreak, "perm %v", perm)
	}
}

func TestComputeProgress_ValueReachedAtOnlyMovesForward(t *testing.T) {
	h := dailyHabit()
	ch := testChallenge(domain.ChallengeStreak, domain.MatchSingle, 30)
	p := testParticipant("u1", h.ID)

	entries := []*domain.CompletionEntry{checked(h.ID, day(0))}

	first := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{h.ID: h},
		Entries:     entries,
		Now:         day(0).Add(13 * time.Hour),
	})
	require.False(t, first.Progress.ValueReachedAt.IsZero())

	// Same ledger, later clock: the metric did not rise, so the reached-at
	// stamp must not move.
	p.Progress = first.Progress
	second := ComputeProgress(ProgressInput{
		Challenge:   ch,
		Participant: p,
		Habits:      map[string]*domain.Habit{h.ID: h},
		Entries:     entries,
		Now:         day(0).Add(20 * time.Hour),
	})

	assert.Equal(t, first.Progress.ValueReachedAt, second.Progress.ValueReachedAt)
}
