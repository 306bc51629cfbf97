package services

import (
	"context"
	"time"

	"github.com/strovahq/challenge-engine/internal/core/domain"
	"github.com/strovahq/challenge-engine/internal/core/engine"
)

// BoardCache holds computed leaderboards for their short shelf life.
// A nil cache disables caching entirely.
type BoardCache interface {
	Get(ctx context.Context, challengeID string) (*domain.Leaderboard, bool)
	Set(ctx context.Context, board *domain.Leaderboard)
	Invalidate(ctx context.Context, challengeID string) error
}

type LeaderboardService struct {
	challengeRepo   domain.ChallengeRepository
	participantRepo domain.ParticipantRepository
	cache           BoardCache

	now func() time.Time
}

func NewLeaderboardService(challengeRepo domain.ChallengeRepository, participantRepo domain.ParticipantRepository, cache BoardCache) *LeaderboardService {
	return &LeaderboardService{
		challengeRepo:   challengeRepo,
		participantRepo: participantRepo,
		cache:           cache,
		now:             time.Now,
	}
}

// Get derives the leaderboard fresh from participant progress. Nothing is
// persisted: a board with zero participants is simply empty rows, not an
// error.
func (s *LeaderboardService) Get(ctx context.Context, challengeID string) (*domain.Leaderboard, error) {
	if s.cache != nil {
		if board, ok := s.cache.Get(ctx, challengeID); ok {
			return board, nil
		}
	}

	challenge, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	participants, err := s.participantRepo.ListByChallengeID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	board := &domain.Leaderboard{
		ChallengeID: challengeID,
		Type:        challenge.Type,
		Entries:     engine.Rank(engine.BuildRankRows(participants)),
		GeneratedAt: s.now().UTC(),
	}

	if challenge.Type == domain.ChallengeTeamGoal {
		board.PoolTotal = engine.PoolTotal(participants)
	}

	if s.cache != nil {
		s.cache.Set(ctx, board)
	}

	return board, nil
}
