package engine

import (
	"math"
	"time"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

// ComputeConsistency returns the habit's completion rate over the window
// as a percentage in [0,100], rounded to one decimal for reproducibility.
//
// For fixed-schedule rules the denominator is the count of due days in the
// window and the numerator the count of those days carrying a qualifying
// completion. weekly_count rules are judged per ISO week (Monday start):
// each week owes min(N, days of that week inside the window) and earns up
// to that many satisfied days. A window with no due days yields 0 rather
// than dividing by zero.
func ComputeConsistency(habit *domain.Habit, entries []*domain.CompletionEntry, windowStart, windowEnd time.Time) float64 {
	if habit == nil {
		return 0
	}

	start := domain.DayOf(windowStart)
	end := domain.DayOf(windowEnd)
	if end.Before(start) {
		return 0
	}

	satisfied := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Qualifies(habit) {
			satisfied[domain.DayKey(e.EntryDate)] = true
		}
	}

	var due, met int

	if habit.Recurrence.Type == domain.RecurrenceWeeklyCount {
		due, met = weeklyCountTally(habit.Recurrence.WeeklyCount, satisfied, start, end)
	} else {
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			if !DueOn(habit.Recurrence, day) {
				continue
			}
			due++
			if satisfied[domain.DayKey(day)] {
				met++
			}
		}
	}

	return RoundPercent(due, met)
}

// weeklyCountTally walks the window one ISO week at a time. A partial week
// at either edge owes at most as many completions as it has days.
func weeklyCountTally(n int, satisfied map[string]bool, start, end time.Time) (due, met int) {
	weekStart := startOfISOWeek(start)

	for !weekStart.After(end) {
		weekEnd := weekStart.AddDate(0, 0, 6)

		lo, hi := weekStart, weekEnd
		if lo.Before(start) {
			lo = start
		}
		if hi.After(end) {
			hi = end
		}

		days := int(hi.Sub(lo).Hours()/24) + 1
		owed := n
		if days < owed {
			owed = days
		}

		got := 0
		for day := lo; !day.After(hi); day = day.AddDate(0, 0, 1) {
			if satisfied[domain.DayKey(day)] {
				got++
			}
		}
		if got > owed {
			got = owed
		}

		due += owed
		met += got

		weekStart = weekStart.AddDate(0, 0, 7)
	}

	return due, met
}

func startOfISOWeek(day time.Time) time.Time {
	wd := int(day.Weekday())
	if wd == 0 {
		wd = 7
	}
	return day.AddDate(0, 0, -(wd - 1))
}

// RoundPercent converts a met/due tally into a percentage rounded to one
// decimal, the documented precision for every rate the engine emits.
func RoundPercent(due, met int) float64 {
	if due == 0 {
		return 0
	}
	return math.Round(float64(met)/float64(due)*1000) / 10
}
