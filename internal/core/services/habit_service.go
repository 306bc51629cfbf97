package services

import (
	"context"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

type HabitService struct {
	repo domain.HabitRepository
}

func NewHabitService(repo domain.HabitRepository) *HabitService {
	return &HabitService{
		repo: repo,
	}
}

type CreateHabitInput struct {
	OwnerID     string
	Name        string
	Methodology string
	Unit        string
	TargetValue int
	Recurrence  domain.Recurrence
}

type UpdateHabitInput struct {
	ID          string
	OwnerID     string
	Name        string
	Methodology string
	Unit        string
	TargetValue int
	Recurrence  domain.Recurrence
}

func (s *HabitService) Create(ctx context.Context, input CreateHabitInput) (*domain.Habit, error) {
	habit, err := domain.NewHabit(input.OwnerID, input.Name, input.Methodology, input.Unit, input.TargetValue, input.Recurrence)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

func (s *HabitService) GetByID(ctx context.Context, id, ownerID string) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if habit.OwnerID != ownerID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

func (s *HabitService) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Habit, error) {
	return s.repo.ListByOwnerID(ctx, ownerID)
}

func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	habit, err := s.GetByID(ctx, input.ID, input.OwnerID)
	if err != nil {
		return nil, err
	}

	if err := habit.Update(input.Name, input.Methodology, input.Unit, input.TargetValue, input.Recurrence); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

// Archive soft-archives the habit. Definitions are never hard-deleted
// while a challenge may still reference them; from here on the habit's
// challenge slots read as always-unsatisfied.
func (s *HabitService) Archive(ctx context.Context, id, ownerID string) error {
	habit, err := s.GetByID(ctx, id, ownerID)
	if err != nil {
		return err
	}

	habit.Archive()
	return s.repo.Update(ctx, habit)
}

func (s *HabitService) Restore(ctx context.Context, id, ownerID string) error {
	habit, err := s.GetByID(ctx, id, ownerID)
	if err != nil {
		return err
	}

	habit.Restore()
	return s.repo.Update(ctx, habit)
}
