package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrAlreadyJoined       = errors.New("user already joined this challenge")
	ErrParticipantDropped  = errors.New("participant has left the challenge")
)

type ParticipantStatus string

const (
	ParticipantActive    ParticipantStatus = "active"
	ParticipantCompleted ParticipantStatus = "completed"
	ParticipantDropped   ParticipantStatus = "dropped"
)

// Progress is recomputed from the ledger, never hand-edited. ValueReachedAt
// records when CurrentValue last increased; the leaderboard uses it to
// reward whoever reached a tied value first.
type Progress struct {
	CurrentValue   float64   `json:"current_value" db:"current_value"`
	CurrentStreak  int       `json:"current_streak" db:"current_streak"`
	LongestStreak  int       `json:"longest_streak" db:"longest_streak"`
	CompletionRate float64   `json:"completion_rate" db:"completion_rate"`
	ValueReachedAt time.Time `json:"value_reached_at" db:"value_reached_at"`
}

type Participant struct {
	ID          string `json:"id" db:"id"`
	ChallengeID string `json:"challenge_id" db:"challenge_id"`
	UserID      string `json:"user_id" db:"user_id"`

	LinkedHabitIDs []string `json:"linked_habit_ids"`

	Progress Progress          `json:"progress"`
	Status   ParticipantStatus `json:"status" db:"status"`

	// Share is how much of this participant's progress other workspace
	// members may see. The participant picks it at join time.
	Share ShareLevel `json:"share_level" db:"share_level"`

	JoinedAt  time.Time `json:"joined_at" db:"joined_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func NewParticipant(challengeID, userID string, linkedHabitIDs []string, share ShareLevel) *Participant {
	now := time.Now().UTC()

	if share == "" {
		share = ShareFull
	}

	return &Participant{
		ID:             uuid.NewString(),
		ChallengeID:    challengeID,
		UserID:         userID,
		LinkedHabitIDs: linkedHabitIDs,
		Status:         ParticipantActive,
		Share:          share,
		JoinedAt:       now,
		UpdatedAt:      now,
	}
}

// Drop is the only path to dropped status: an explicit leave action. The
// engine never drops anyone automatically.
func (p *Participant) Drop() error {
	if p.Status == ParticipantDropped {
		return ErrParticipantDropped
	}
	p.Status = ParticipantDropped
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (p *Participant) Complete(now time.Time) {
	if p.Status != ParticipantActive {
		return
	}
	p.Status = ParticipantCompleted
	p.UpdatedAt = now.UTC()
}
