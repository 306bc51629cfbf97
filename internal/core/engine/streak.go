package engine

import (
	"time"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

// StreakPolicy carries the challenge-level knobs that soften a broken
// streak. The zero value is the strict interpretation: a missed due day
// ends the run.
type StreakPolicy struct {
	GraceHours        int
	AllowMakeup       bool
	MinimumDailyValue int
}

type StreakResult struct {
	Current int
	Longest int
}

// ComputeStreak walks a habit's completion ledger and returns the current
// streak (trailing run of satisfied due days ending at asOf) and the
// longest streak anywhere in the ledger.
//
// Days the rule does not require are skipped: they neither extend nor break
// a run. If asOf itself is not a due day, evaluation starts at the most
// recent due day before it. Rules without a fixed schedule (weekly_count)
// have no streak; they yield 0/0 and are rejected for streak challenges at
// join time.
func ComputeStreak(habit *domain.Habit, entries []*domain.CompletionEntry, asOf time.Time, policy StreakPolicy) StreakResult {
	if habit == nil || !habit.Recurrence.HasFixedSchedule() || len(entries) == 0 {
		return StreakResult{}
	}

	ledger := newLedgerView(habit, entries, policy)
	if len(ledger.satisfiedDays) == 0 && !policy.AllowMakeup {
		return StreakResult{}
	}

	asOfDay := domain.DayOf(asOf)

	start, ok := lastDueOnOrBefore(habit.Recurrence, asOfDay)
	if !ok {
		return StreakResult{}
	}

	result := StreakResult{}

	// Current: backward from the most recent due day until the first
	// unmet due day not covered by grace.
	for day := start; !day.Before(ledger.firstDay); day = day.AddDate(0, 0, -1) {
		if !DueOn(habit.Recurrence, day) {
			continue
		}
		if !ledger.satisfiedOn(day) {
			break
		}
		result.Current++
	}

	// Longest: one forward pass over the whole ledger span rather than
	// repeated backward walks.
	run := 0
	for day := ledger.firstDay; !day.After(start); day = day.AddDate(0, 0, 1) {
		if !DueOn(habit.Recurrence, day) {
			continue
		}
		if ledger.satisfiedOn(day) {
			run++
			if run > result.Longest {
				result.Longest = run
			}
		} else {
			run = 0
		}
	}

	if result.Current > result.Longest {
		result.Longest = result.Current
	}

	return result
}

// ledgerView indexes one habit's entries by calendar day and pre-extracts
// the qualifying recorded-at instants used for grace coverage.
type ledgerView struct {
	satisfiedDays map[string]bool
	recordedAts   []time.Time
	firstDay      time.Time
	policy        StreakPolicy
}

func newLedgerView(habit *domain.Habit, entries []*domain.CompletionEntry, policy StreakPolicy) *ledgerView {
	v := &ledgerView{
		satisfiedDays: make(map[string]bool, len(entries)),
		policy:        policy,
	}

	for _, e := range entries {
		day := domain.DayOf(e.EntryDate)
		if v.firstDay.IsZero() || day.Before(v.firstDay) {
			v.firstDay = day
		}
		if e.QualifiesWithMinimum(habit, policy.MinimumDailyValue) {
			v.satisfiedDays[domain.DayKey(day)] = true
			v.recordedAts = append(v.recordedAts, e.RecordedAt)
		}
	}

	return v
}

// satisfiedOn reports whether the due day was met: a qualifying entry on
// the day itself, or, when makeup days are allowed, any qualifying
// completion recorded within the grace window after the day's end. The
// grace interpretation is a documented assumption: late logging within
// GraceHours of midnight keeps the chain alive.
func (v *ledgerView) satisfiedOn(day time.Time) bool {
	if v.satisfiedDays[domain.DayKey(day)] {
		return true
	}

	if !v.policy.AllowMakeup || v.policy.GraceHours <= 0 {
		return false
	}

	dayEnd := day.AddDate(0, 0, 1)
	graceEnd := dayEnd.Add(time.Duration(v.policy.GraceHours) * time.Hour)

	for _, at := range v.recordedAts {
		if at.After(dayEnd) && !at.After(graceEnd) {
			return true
		}
	}
	return false
}
