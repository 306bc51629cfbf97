package domain

import (
	"context"
	"errors"
)

var ErrHabitNotFound = errors.New("habit not found")

type HabitRepository interface {
	// Create persists a new habit definition.
	Create(ctx context.Context, habit *Habit) error

	// GetByID retrieves a habit by its unique identifier, archived or not.
	GetByID(ctx context.Context, id string) (*Habit, error)

	// GetByIDs retrieves a batch of habits keyed by id. Missing ids are
	// simply absent from the result; a linked habit deleted mid-challenge
	// must not fail the whole read.
	GetByIDs(ctx context.Context, ids []string) (map[string]*Habit, error)

	// ListByOwnerID retrieves all habits belonging to a user.
	ListByOwnerID(ctx context.Context, ownerID string) ([]*Habit, error)

	// Update modifies the state of an existing habit.
	Update(ctx context.Context, habit *Habit) error
}
