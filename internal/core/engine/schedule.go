// Package engine is the temporal analytics core: pure functions that turn a
// raw completion ledger into streaks, consistency percentages, challenge
// progress, milestone crossings, and leaderboard rankings.
//
// Everything here is deterministic over immutable snapshots of the domain
// entities. Callers resolve "today" to a single UTC calendar day before
// invoking; the engine never infers timezones, never logs, and never touches
// storage. That purity is what makes recompute-from-scratch provably equal
// to incremental per-write updates.
package engine

import (
	"time"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

// DueOn decides whether a habit's recurrence rule requires a completion on
// the given calendar day.
//
// weekly_count rules have no per-day dueness: the obligation is "N times
// this week", judged over the whole week by the consistency and cumulative
// calculators. DueOn therefore answers false for them, and streak logic
// refuses such rules upstream.
func DueOn(rule domain.Recurrence, date time.Time) bool {
	switch rule.Type {
	case domain.RecurrenceDaily:
		return true
	case domain.RecurrenceSpecificDays:
		wd := int(date.UTC().Weekday())
		for _, d := range rule.Weekdays {
			if d == wd {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// lastDueOnOrBefore walks back from the given day to the most recent due
// day, bounded so a rule with no due weekdays cannot loop forever.
func lastDueOnOrBefore(rule domain.Recurrence, day time.Time) (time.Time, bool) {
	for i := 0; i < 7; i++ {
		if DueOn(rule, day) {
			return day, true
		}
		day = day.AddDate(0, 0, -1)
	}
	return time.Time{}, false
}
