package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrMilestoneNotFound = errors.New("milestone not found")

// MilestoneReach records one user crossing one threshold. Append-only; a
// user appears at most once per milestone.
type MilestoneReach struct {
	UserID    string    `json:"user_id" db:"user_id"`
	ReachedAt time.Time `json:"reached_at" db:"reached_at"`
}

type Milestone struct {
	ID          string  `json:"id" db:"id"`
	ChallengeID string  `json:"challenge_id" db:"challenge_id"`
	Value       float64 `json:"value" db:"value"`
	Label       string  `json:"label" db:"label"`

	ReachedBy []MilestoneReach `json:"reached_by"`
}

func NewMilestone(challengeID string, value float64, label string) *Milestone {
	return &Milestone{
		ID:          uuid.NewString(),
		ChallengeID: challengeID,
		Value:       value,
		Label:       label,
	}
}

// HasReached reports whether a user already appears in ReachedBy.
func (m *Milestone) HasReached(userID string) bool {
	for _, r := range m.ReachedBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// Reach appends the user once. Re-reaching is a no-op, which is what makes
// repeated recomputation over an unchanged ledger idempotent.
func (m *Milestone) Reach(userID string, at time.Time) bool {
	if m.HasReached(userID) {
		return false
	}
	m.ReachedBy = append(m.ReachedBy, MilestoneReach{UserID: userID, ReachedAt: at.UTC()})
	return true
}
