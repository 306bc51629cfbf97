package domain

import "time"

// LeaderboardEntry is ephemeral: derived fresh from participant progress on
// every read, never persisted.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"user_id"`
	MetricValue float64 `json:"metric_value"`
}

// Leaderboard bundles the ranked rows with the team_goal pool figures so a
// single read answers both "where am I" and "how far along are we".
type Leaderboard struct {
	ChallengeID string             `json:"challenge_id"`
	Type        ChallengeType      `json:"type"`
	Entries     []LeaderboardEntry `json:"entries"`
	PoolTotal   float64            `json:"pool_total,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}
