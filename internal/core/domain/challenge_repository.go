package domain

import "context"

type ChallengeRepository interface {
	// Create persists a new challenge definition.
	Create(ctx context.Context, challenge *Challenge) error

	// GetByID retrieves a challenge by its unique identifier.
	GetByID(ctx context.Context, id string) (*Challenge, error)

	// ListByWorkspaceID retrieves the workspace's challenges.
	ListByWorkspaceID(ctx context.Context, workspaceID string) ([]*Challenge, error)

	// ListActiveByHabitID retrieves challenges with a participant linking
	// the given habit whose window covers today. Drives incremental
	// recomputation after a ledger write.
	ListActiveByHabitID(ctx context.Context, habitID string) ([]*Challenge, error)

	// Update modifies an existing challenge (cancellation only; rules and
	// dates are immutable once participants exist).
	Update(ctx context.Context, challenge *Challenge) error
}

type ParticipantRepository interface {
	// Create persists a new participant. Must reject a second join of the
	// same (challenge, user) pair with ErrAlreadyJoined.
	Create(ctx context.Context, p *Participant) error

	// Get retrieves the participant for a (challenge, user) pair.
	Get(ctx context.Context, challengeID, userID string) (*Participant, error)

	// ListByChallengeID retrieves every participant of a challenge.
	ListByChallengeID(ctx context.Context, challengeID string) ([]*Participant, error)

	// ListByHabitID retrieves participants that linked the given habit.
	ListByHabitID(ctx context.Context, habitID string) ([]*Participant, error)

	// Update persists recomputed progress or a status transition.
	Update(ctx context.Context, p *Participant) error
}

type MilestoneRepository interface {
	// Create persists a milestone threshold.
	Create(ctx context.Context, m *Milestone) error

	// ListByChallengeID retrieves a challenge's milestones sorted by value
	// ascending, reaches included.
	ListByChallengeID(ctx context.Context, challengeID string) ([]*Milestone, error)

	// AppendReach records a user crossing a milestone. Append-only and
	// idempotent: a (milestone, user) pair is stored at most once, no
	// matter how many recomputes observe the crossing.
	AppendReach(ctx context.Context, milestoneID string, reach MilestoneReach) error
}
