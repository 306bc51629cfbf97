package services

import (
	"context"
	"fmt"
	"time"

	"github.com/strovahq/challenge-engine/internal/core/domain"
	"github.com/strovahq/challenge-engine/internal/core/engine"
)

// BoardInvalidator drops a challenge's cached leaderboard after progress
// moves. Optional: a nil invalidator just means every read is fresh.
type BoardInvalidator interface {
	Invalidate(ctx context.Context, challengeID string) error
}

type ChallengeService struct {
	challengeRepo   domain.ChallengeRepository
	participantRepo domain.ParticipantRepository
	milestoneRepo   domain.MilestoneRepository
	habitRepo       domain.HabitRepository
	entryRepo       domain.CompletionEntryRepository
	boards          BoardInvalidator

	// now is injected for tests; production wiring uses time.Now.
	now func() time.Time
}

func NewChallengeService(
	challengeRepo domain.ChallengeRepository,
	participantRepo domain.ParticipantRepository,
	milestoneRepo domain.MilestoneRepository,
	habitRepo domain.HabitRepository,
	entryRepo domain.CompletionEntryRepository,
	boards BoardInvalidator,
) *ChallengeService {
	return &ChallengeService{
		challengeRepo:   challengeRepo,
		participantRepo: participantRepo,
		milestoneRepo:   milestoneRepo,
		habitRepo:       habitRepo,
		entryRepo:       entryRepo,
		boards:          boards,
		now:             time.Now,
	}
}

type MilestoneInput struct {
	Value float64
	Label string
}

type CreateChallengeInput struct {
	WorkspaceID  string
	CreatorID    string
	Title        string
	Type         domain.ChallengeType
	Rules        domain.ChallengeRules
	MatchMode    domain.MatchMode
	MatchMinimum int
	StartDate    time.Time
	EndDate      time.Time
	Milestones   []MilestoneInput
}

func (s *ChallengeService) Create(ctx context.Context, input CreateChallengeInput) (*domain.Challenge, error) {
	challenge, err := domain.NewChallenge(
		input.WorkspaceID, input.CreatorID, input.Title,
		input.Type, input.Rules, input.MatchMode, input.MatchMinimum,
		input.StartDate, input.EndDate,
	)
	if err != nil {
		return nil, err
	}

	if err := s.challengeRepo.Create(ctx, challenge); err != nil {
		return nil, err
	}

	for _, m := range input.Milestones {
		milestone := domain.NewMilestone(challenge.ID, m.Value, m.Label)
		if err := s.milestoneRepo.Create(ctx, milestone); err != nil {
			return nil, fmt.Errorf("challenge service: failed to create milestone: %w", err)
		}
	}

	return challenge, nil
}

func (s *ChallengeService) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	return s.challengeRepo.GetByID(ctx, id)
}

func (s *ChallengeService) ListByWorkspaceID(ctx context.Context, workspaceID string) ([]*domain.Challenge, error) {
	return s.challengeRepo.ListByWorkspaceID(ctx, workspaceID)
}

// Join links the user's habits into the challenge. All configuration
// errors surface here, before any progress is ever computed: the engine is
// entitled to assume a valid setup.
func (s *ChallengeService) Join(ctx context.Context, challengeID, userID string, habitIDs []string, share domain.ShareLevel) (*domain.Participant, error) {
	challenge, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	switch challenge.StatusAt(s.now()) {
	case domain.StatusCancelled:
		return nil, domain.ErrChallengeCancelled
	case domain.StatusCompleted:
		return nil, domain.ErrChallengeFinished
	}

	habitMap, err := s.habitRepo.GetByIDs(ctx, habitIDs)
	if err != nil {
		return nil, err
	}

	habits := make([]*domain.Habit, 0, len(habitIDs))
	for _, id := range habitIDs {
		h, ok := habitMap[id]
		if !ok {
			return nil, domain.ErrHabitNotFound
		}
		if h.OwnerID != userID {
			return nil, domain.ErrUnauthorized
		}
		habits = append(habits, h)
	}

	if err := challenge.ValidateLinkedHabits(habits); err != nil {
		return nil, err
	}

	participant := domain.NewParticipant(challengeID, userID, habitIDs, share)
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		return nil, err
	}

	return participant, nil
}

// Leave is the only way a participant becomes dropped.
func (s *ChallengeService) Leave(ctx context.Context, challengeID, userID string) error {
	participant, err := s.participantRepo.Get(ctx, challengeID, userID)
	if err != nil {
		return err
	}

	if err := participant.Drop(); err != nil {
		return err
	}

	if err := s.participantRepo.Update(ctx, participant); err != nil {
		return err
	}

	s.invalidateBoard(ctx, challengeID)
	return nil
}

func (s *ChallengeService) Cancel(ctx context.Context, challengeID, userID string) error {
	challenge, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return err
	}

	if challenge.CreatorID != userID {
		return domain.ErrUnauthorized
	}

	if err := challenge.Cancel(s.now()); err != nil {
		return err
	}

	return s.challengeRepo.Update(ctx, challenge)
}

func (s *ChallengeService) GetParticipant(ctx context.Context, challengeID, userID string) (*domain.Participant, error) {
	return s.participantRepo.Get(ctx, challengeID, userID)
}

func (s *ChallengeService) ListMilestones(ctx context.Context, challengeID string) ([]*domain.Milestone, error) {
	if _, err := s.challengeRepo.GetByID(ctx, challengeID); err != nil {
		return nil, err
	}
	return s.milestoneRepo.ListByChallengeID(ctx, challengeID)
}

// RecomputeForHabit refreshes every participant whose linked habits
// include the written habit. Only challenges whose window covers today are
// touched: upcoming ones have nothing to replay yet, finished and
// cancelled ones no longer move. This is the incremental path; it calls
// the same pure computation a full batch recompute would, so the two
// always agree.
func (s *ChallengeService) RecomputeForHabit(ctx context.Context, habitID string) error {
	challenges, err := s.challengeRepo.ListActiveByHabitID(ctx, habitID)
	if err != nil {
		return err
	}
	if len(challenges) == 0 {
		return nil
	}

	active := make(map[string]*domain.Challenge, len(challenges))
	for _, c := range challenges {
		active[c.ID] = c
	}

	participants, err := s.participantRepo.ListByHabitID(ctx, habitID)
	if err != nil {
		return err
	}

	for _, p := range participants {
		if p.Status == domain.ParticipantDropped {
			continue
		}

		challenge, ok := active[p.ChallengeID]
		if !ok {
			continue
		}

		if err := s.RecomputeParticipant(ctx, challenge, p); err != nil {
			return err
		}
	}

	return nil
}

// RecomputeChallenge refreshes every participant of one challenge: the
// batch path.
func (s *ChallengeService) RecomputeChallenge(ctx context.Context, challengeID string) error {
	challenge, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return err
	}

	participants, err := s.participantRepo.ListByChallengeID(ctx, challengeID)
	if err != nil {
		return err
	}

	for _, p := range participants {
		if p.Status == domain.ParticipantDropped {
			continue
		}
		if err := s.RecomputeParticipant(ctx, challenge, p); err != nil {
			return err
		}
	}

	return nil
}

// RecomputeParticipant snapshots the ledger, runs the engine, and persists
// the outputs: new progress, any milestone crossings, and completion
// transitions. The milestone append is idempotent at the repository level
// as well, so replays cannot double-record a crossing.
func (s *ChallengeService) RecomputeParticipant(ctx context.Context, challenge *domain.Challenge, participant *domain.Participant) error {
	now := s.now()

	habits, err := s.habitRepo.GetByIDs(ctx, participant.LinkedHabitIDs)
	if err != nil {
		return err
	}

	entries, err := s.entryRepo.ListByHabitIDs(ctx, participant.LinkedHabitIDs)
	if err != nil {
		return err
	}

	milestones, err := s.milestoneRepo.ListByChallengeID(ctx, challenge.ID)
	if err != nil {
		return err
	}

	result := engine.ComputeProgress(engine.ProgressInput{
		Challenge:   challenge,
		Participant: participant,
		Habits:      habits,
		Entries:     entries,
		Milestones:  milestones,
		Now:         now,
	})

	participant.Progress = result.Progress
	participant.UpdatedAt = now.UTC()

	if result.TargetMet && challenge.Type != domain.ChallengeTeamGoal {
		participant.Complete(now)
	}

	if err := s.participantRepo.Update(ctx, participant); err != nil {
		return err
	}

	for _, reach := range result.NewReaches {
		if err := s.milestoneRepo.AppendReach(ctx, reach.MilestoneID, reach.Reach); err != nil {
			return err
		}
	}

	if challenge.Type == domain.ChallengeTeamGoal {
		if err := s.settleTeamGoal(ctx, challenge); err != nil {
			return err
		}
	}

	s.invalidateBoard(ctx, challenge.ID)
	return nil
}

// settleTeamGoal completes every active participant at once when the
// shared pool meets the target. The pool is always a read-time sum over
// contributions, never a mutated counter.
func (s *ChallengeService) settleTeamGoal(ctx context.Context, challenge *domain.Challenge) error {
	participants, err := s.participantRepo.ListByChallengeID(ctx, challenge.ID)
	if err != nil {
		return err
	}

	if engine.PoolTotal(participants) < float64(challenge.Rules.TargetValue) {
		return nil
	}

	now := s.now()
	for _, p := range participants {
		if p.Status != domain.ParticipantActive {
			continue
		}
		p.Complete(now)
		if err := s.participantRepo.Update(ctx, p); err != nil {
			return err
		}
	}

	return nil
}

func (s *ChallengeService) invalidateBoard(ctx context.Context, challengeID string) {
	if s.boards == nil {
		return
	}
	// Cache staleness is tolerable; the next read repopulates.
	_ = s.boards.Invalidate(ctx, challengeID)
}
