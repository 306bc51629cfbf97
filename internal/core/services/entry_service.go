package services

import (
	"context"
	"time"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

// Recomputer is the downstream that reacts to ledger writes. Satisfied by
// the progress worker; the entry service only knows something must be
// recomputed, not how.
type Recomputer interface {
	Enqueue(habitID string)
}

type EntryService struct {
	repo       domain.CompletionEntryRepository
	habitRepo  domain.HabitRepository
	recomputer Recomputer
}

func NewEntryService(repo domain.CompletionEntryRepository, habitRepo domain.HabitRepository, recomputer Recomputer) *EntryService {
	return &EntryService{
		repo:       repo,
		habitRepo:  habitRepo,
		recomputer: recomputer,
	}
}

type CheckInput struct {
	HabitID   string
	UserID    string
	EntryDate time.Time
	Completed bool
	Value     int
}

// Check records a completion for one (habit, calendar day) slot. The write
// is an atomic upsert keyed on that pair: checking a day twice, or two
// racing checks, leave exactly one entry with the last write winning, so a
// day can never earn double credit.
func (s *EntryService) Check(ctx context.Context, input CheckInput) (*domain.CompletionEntry, error) {
	habit, err := s.habitRepo.GetByID(ctx, input.HabitID)
	if err != nil {
		return nil, err
	}
	if habit.OwnerID != input.UserID {
		return nil, domain.ErrUnauthorized
	}
	if habit.IsArchived() {
		return nil, domain.ErrHabitArchived
	}

	entry := domain.NewCompletionEntry(input.HabitID, input.UserID, input.EntryDate, input.Completed, input.Value)
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, err
	}

	s.recomputer.Enqueue(entry.HabitID)

	return entry, nil
}

// Uncheck removes the slot's entry. Unchecking a day that was never
// checked is a no-op, not an error.
func (s *EntryService) Uncheck(ctx context.Context, habitID, userID string, entryDate time.Time) error {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return err
	}
	if habit.OwnerID != userID {
		return domain.ErrUnauthorized
	}

	if err := s.repo.Delete(ctx, habitID, domain.DayOf(entryDate)); err != nil {
		return err
	}

	s.recomputer.Enqueue(habitID)

	return nil
}

func (s *EntryService) ListByHabitID(ctx context.Context, habitID, userID string, from, to time.Time) ([]*domain.CompletionEntry, error) {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.OwnerID != userID {
		return nil, domain.ErrUnauthorized
	}

	return s.repo.ListByHabitIDWithRange(ctx, habitID, domain.DayOf(from), domain.DayOf(to))
}
