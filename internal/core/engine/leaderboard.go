package engine

import (
	"sort"
	"time"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

// RankRow is one participant flattened to the facts ranking needs.
type RankRow struct {
	UserID    string
	Metric    float64
	ReachedAt time.Time
	JoinedAt  time.Time
}

// BuildRankRows extracts rank rows from participant snapshots. Dropped
// participants never appear on a leaderboard; for team_goal the ranked
// metric is the individual contribution, the pool total is reported
// alongside, not ranked.
func BuildRankRows(participants []*domain.Participant) []RankRow {
	rows := make([]RankRow, 0, len(participants))
	for _, p := range participants {
		if p.Status == domain.ParticipantDropped {
			continue
		}
		rows = append(rows, RankRow{
			UserID:    p.UserID,
			Metric:    p.Progress.CurrentValue,
			ReachedAt: p.Progress.ValueReachedAt,
			JoinedAt:  p.JoinedAt,
		})
	}
	return rows
}

// Rank orders rows by metric descending with deterministic tie-breaks:
// whoever reached the tied value first, then whoever joined first. Ranks
// follow standard competition ranking, so two participants tied at rank 2
// push the next distinct value to rank 4.
func Rank(rows []RankRow) []domain.LeaderboardEntry {
	if len(rows) == 0 {
		return []domain.LeaderboardEntry{}
	}

	sorted := make([]RankRow, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Metric != b.Metric {
			return a.Metric > b.Metric
		}
		if !reachedEqual(a.ReachedAt, b.ReachedAt) {
			return reachedBefore(a.ReachedAt, b.ReachedAt)
		}
		return a.JoinedAt.Before(b.JoinedAt)
	})

	entries := make([]domain.LeaderboardEntry, len(sorted))
	for i, row := range sorted {
		rank := i + 1
		if i > 0 && row.Metric == sorted[i-1].Metric {
			rank = entries[i-1].Rank
		}
		entries[i] = domain.LeaderboardEntry{
			Rank:        rank,
			UserID:      row.UserID,
			MetricValue: row.Metric,
		}
	}
	return entries
}

// A zero ReachedAt means the metric never rose above its starting point;
// such rows sort after anyone with a real timestamp at the same value.
func reachedBefore(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	if b.IsZero() {
		return true
	}
	return a.Before(b)
}

func reachedEqual(a, b time.Time) bool {
	return a.Equal(b) || (a.IsZero() && b.IsZero())
}
