package engine

import (
	"sort"
	"time"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

// ProgressInput is an immutable snapshot of everything one participant's
// progress depends on. Habits holds the linked habit definitions still on
// record; a linked id missing from the map (deleted or unloadable) is
// treated as an always-unsatisfied slot rather than an error. Now is the
// caller-resolved canonical instant.
type ProgressInput struct {
	Challenge   *domain.Challenge
	Participant *domain.Participant
	Habits      map[string]*domain.Habit
	Entries     []*domain.CompletionEntry
	Milestones  []*domain.Milestone
	Now         time.Time
}

// ReachEvent is a milestone crossing detected by this recompute. The
// caller persists it; the append is idempotent on the (milestone, user)
// pair either way.
type ReachEvent struct {
	MilestoneID string
	Reach       domain.MilestoneReach
}

// ProgressResult carries the freshly computed progress and side outputs.
// Nothing in the input is mutated: recomputing twice over the same ledger
// returns the same result.
type ProgressResult struct {
	Progress   domain.Progress
	NewReaches []ReachEvent

	// TargetMet is the participant's own metric against rules.TargetValue.
	// For team_goal challenges completion is decided by the shared pool at
	// the service layer, not here.
	TargetMet bool
}

// ComputeProgress replays the participant's slice of the ledger through
// the schedule, match, streak, and consistency calculators and routes the
// result by challenge type.
func ComputeProgress(in ProgressInput) ProgressResult {
	prev := in.Participant.Progress

	from := in.Challenge.StartDate
	if joined := domain.DayOf(in.Participant.JoinedAt); joined.After(from) {
		from = joined
	}
	to := domain.DayOf(in.Now)
	if to.After(in.Challenge.EndDate) {
		to = in.Challenge.EndDate
	}

	if to.Before(from) {
		return ProgressResult{Progress: domain.Progress{ValueReachedAt: prev.ValueReachedAt}}
	}

	ledger := indexEntries(in.Entries)

	booleanOnly := true
	for _, id := range in.Participant.LinkedHabitIDs {
		h, ok := in.Habits[id]
		if !ok || h.Methodology != domain.MethodologyBoolean {
			booleanOnly = false
			break
		}
	}

	var (
		credits []Credit
		days    []time.Time
		sum     float64
	)

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		states := make(map[string]DayState, len(in.Participant.LinkedHabitIDs))
		for _, id := range in.Participant.LinkedHabitIDs {
			states[id] = habitStateOn(in.Habits[id], ledger.on(id, day), day, in.Challenge.Rules.MinimumDailyValue)
		}

		credit := DayCredit(in.Challenge.MatchMode, in.Challenge.MatchMinimum, states)
		credits = append(credits, credit)
		days = append(days, day)

		if booleanOnly {
			if credit == CreditEarned {
				sum++
			}
		} else {
			sum += ledger.valueOn(in.Participant.LinkedHabitIDs, in.Habits, day, in.Challenge.Rules.MinimumDailyValue)
		}
	}

	graced := func(i int) bool {
		return ledger.graceCovered(days[i], in.Challenge.Rules)
	}

	current, longest := streakOverCredits(credits, graced)
	percent := consistencyOverCredits(credits)

	var metric float64
	switch in.Challenge.Type {
	case domain.ChallengeStreak:
		metric = float64(current)
	case domain.ChallengeConsistency:
		metric = percent
	default: // cumulative and team_goal accumulate value
		metric = sum
	}

	progress := domain.Progress{
		CurrentValue:   metric,
		CurrentStreak:  current,
		LongestStreak:  longest,
		CompletionRate: percent,
		ValueReachedAt: prev.ValueReachedAt,
	}
	if metric > prev.CurrentValue {
		progress.ValueReachedAt = in.Now.UTC()
	}

	return ProgressResult{
		Progress:   progress,
		NewReaches: milestoneReaches(in.Milestones, in.Participant.UserID, metric, in.Now),
		TargetMet:  metric >= float64(in.Challenge.Rules.TargetValue),
	}
}

// habitStateOn maps one habit's situation on one day to a DayState.
//
// A missing habit, or one already archived by the day in question, is
// unsatisfied: it can no longer earn credit but still counts against
// all/minimum modes, so a team cannot quietly shrink its obligations by
// archiving. Days before the archive keep whatever state they earned while
// the habit was live. weekly_count habits are eligible every day:
// completing counts for the day, not completing never blames the day.
// Fixed-schedule habits abstain on days they are not due, so an off-day
// completion neither extends nor rescues anything.
func habitStateOn(h *domain.Habit, e *domain.CompletionEntry, day time.Time, minimum int) DayState {
	if h == nil || archivedOn(h, day) {
		return StateUnsatisfied
	}

	qualifies := e != nil && e.QualifiesWithMinimum(h, minimum)

	if h.Recurrence.Type == domain.RecurrenceWeeklyCount {
		if qualifies {
			return StateSatisfied
		}
		return StateNotDue
	}

	if !DueOn(h.Recurrence, day) {
		return StateNotDue
	}
	if qualifies {
		return StateSatisfied
	}
	return StateUnsatisfied
}

// archivedOn reports whether the habit was already archived on the given
// calendar day. The replay judges each day with the habit state that held
// on that day, so archiving never rewrites history.
func archivedOn(h *domain.Habit, day time.Time) bool {
	return h.ArchivedAt != nil && !day.Before(domain.DayOf(*h.ArchivedAt))
}

// streakOverCredits runs the streak walk over a day-credit series.
// Neutral days are transparent; a missed day covered by grace keeps the
// chain alive.
func streakOverCredits(credits []Credit, graced func(int) bool) (current, longest int) {
	run := 0
	for i := range credits {
		switch {
		case credits[i] == CreditNeutral:
			continue
		case credits[i] == CreditEarned || graced(i):
			run++
			if run > longest {
				longest = run
			}
		default:
			run = 0
		}
	}
	current = run
	return current, longest
}

// consistencyOverCredits is the challenge-level completion rate: credited
// days over decided days, neutral days excluded from the denominator.
func consistencyOverCredits(credits []Credit) float64 {
	var due, met int
	for _, c := range credits {
		switch c {
		case CreditEarned:
			due++
			met++
		case CreditMissed:
			due++
		}
	}
	return RoundPercent(due, met)
}

// milestoneReaches returns every threshold at or below the new metric the
// user has not crossed yet, ascending. Recomputing over an unchanged
// ledger finds nothing new.
func milestoneReaches(milestones []*domain.Milestone, userID string, metric float64, now time.Time) []ReachEvent {
	if len(milestones) == 0 {
		return nil
	}

	sorted := make([]*domain.Milestone, len(milestones))
	copy(sorted, milestones)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })

	var reaches []ReachEvent
	for _, m := range sorted {
		if m.Value > metric {
			break
		}
		if m.HasReached(userID) {
			continue
		}
		reaches = append(reaches, ReachEvent{
			MilestoneID: m.ID,
			Reach:       domain.MilestoneReach{UserID: userID, ReachedAt: now.UTC()},
		})
	}
	return reaches
}

// PoolTotal is the team_goal shared pool: a pure sum over contributions at
// read time, never an incrementally mutated counter, so concurrent
// recomputes cannot lose updates. Dropped participants keep their runs out
// of the pool; completed ones stay in.
func PoolTotal(participants []*domain.Participant) float64 {
	var total float64
	for _, p := range participants {
		if p.Status == domain.ParticipantDropped {
			continue
		}
		total += p.Progress.CurrentValue
	}
	return total
}

// entryIndex views the combined ledger by (habit, day).
type entryIndex struct {
	byHabitDay map[string]map[string]*domain.CompletionEntry
	entries    []*domain.CompletionEntry
}

func indexEntries(entries []*domain.CompletionEntry) *entryIndex {
	idx := &entryIndex{
		byHabitDay: make(map[string]map[string]*domain.CompletionEntry),
		entries:    entries,
	}
	for _, e := range entries {
		days, ok := idx.byHabitDay[e.HabitID]
		if !ok {
			days = make(map[string]*domain.CompletionEntry)
			idx.byHabitDay[e.HabitID] = days
		}
		days[domain.DayKey(e.EntryDate)] = e
	}
	return idx
}

func (idx *entryIndex) on(habitID string, day time.Time) *domain.CompletionEntry {
	return idx.byHabitDay[habitID][domain.DayKey(day)]
}

// valueOn sums the day's qualifying contributions across linked habits:
// numeric-family entries contribute their value, boolean ones a single
// count.
func (idx *entryIndex) valueOn(habitIDs []string, habits map[string]*domain.Habit, day time.Time, minimum int) float64 {
	var total float64
	for _, id := range habitIDs {
		h, ok := habits[id]
		if !ok || archivedOn(h, day) {
			continue
		}
		e := idx.on(id, day)
		if e == nil || !e.QualifiesWithMinimum(h, minimum) {
			continue
		}
		if h.Methodology == domain.MethodologyBoolean {
			total++
		} else {
			total += float64(e.Value)
		}
	}
	return total
}

// graceCovered reports whether any qualifying-looking completion was
// recorded inside the grace window after the day's end. Judged on recorded
// timestamps alone; which habit it belonged to does not matter, the late
// log is evidence the participant showed up.
func (idx *entryIndex) graceCovered(day time.Time, rules domain.ChallengeRules) bool {
	if !rules.AllowMakeupDays || rules.GracePeriodHours <= 0 {
		return false
	}

	dayEnd := day.AddDate(0, 0, 1)
	graceEnd := dayEnd.Add(time.Duration(rules.GracePeriodHours) * time.Hour)

	for _, e := range idx.entries {
		if e.RecordedAt.After(dayEnd) && !e.RecordedAt.After(graceEnd) {
			return true
		}
	}
	return false
}
