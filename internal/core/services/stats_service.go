package services

import (
	"context"
	"time"

	"github.com/strovahq/challenge-engine/internal/core/domain"
	"github.com/strovahq/challenge-engine/internal/core/engine"
)

type StatsService struct {
	habitRepo domain.HabitRepository
	entryRepo domain.CompletionEntryRepository

	now func() time.Time
}

func NewStatsService(habitRepo domain.HabitRepository, entryRepo domain.CompletionEntryRepository) *StatsService {
	return &StatsService{
		habitRepo: habitRepo,
		entryRepo: entryRepo,
		now:       time.Now,
	}
}

// GetWindowStats runs the personal (non-challenge) analytics for every
// habit the user owns: consistency over the window plus current and
// longest streaks over the full ledger.
func (s *StatsService) GetWindowStats(ctx context.Context, input domain.StatsInput) (*domain.WindowStats, error) {
	startDate := domain.DayOf(input.StartDate)
	endDate := domain.DayOf(input.EndDate)

	habits, err := s.habitRepo.ListByOwnerID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	stats := &domain.WindowStats{
		StartDate:   domain.DayKey(startDate),
		EndDate:     domain.DayKey(endDate),
		TotalHabits: len(habits),
		HabitStats:  make([]domain.HabitStat, 0, len(habits)),
	}

	var rateSum float64
	var rated int

	for _, h := range habits {
		if h.IsArchived() {
			continue
		}

		entries, err := s.entryRepo.ListByHabitID(ctx, h.ID)
		if err != nil {
			return nil, err
		}

		hStat := domain.HabitStat{
			HabitID:     h.ID,
			HabitName:   h.Name,
			TargetValue: h.TargetValue,
			Unit:        h.Unit,
		}

		for _, e := range entries {
			if e.EntryDate.Before(startDate) || e.EntryDate.After(endDate) {
				continue
			}
			hStat.TotalValue += e.Value
			if e.Qualifies(h) {
				hStat.DaysCompleted++
			}
		}

		hStat.CompletionRate = engine.ComputeConsistency(h, entries, startDate, endDate)

		streaks := engine.ComputeStreak(h, entries, s.now(), engine.StreakPolicy{})
		hStat.CurrentStreak = streaks.Current
		hStat.LongestStreak = streaks.Longest

		stats.HabitStats = append(stats.HabitStats, hStat)

		rateSum += hStat.CompletionRate
		rated++
	}

	if rated > 0 {
		stats.OverallRate = rateSum / float64(rated)
	}

	return stats, nil
}
