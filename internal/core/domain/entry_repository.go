package domain

import (
	"context"
	"time"
)

type CompletionEntryRepository interface {
	// Upsert writes the entry for its (habit, entry date) slot atomically.
	// Two simultaneous check/uncheck actions on the same slot must resolve
	// to a single row with the last write winning.
	Upsert(ctx context.Context, entry *CompletionEntry) error

	// Delete removes the entry for one (habit, entry date) slot; an
	// uncheck of a day that was never checked is a no-op.
	Delete(ctx context.Context, habitID string, entryDate time.Time) error

	// ListByHabitID retrieves the habit's full ledger, oldest first.
	ListByHabitID(ctx context.Context, habitID string) ([]*CompletionEntry, error)

	// ListByHabitIDs retrieves the combined ledger for several habits, for
	// challenge progress reads.
	ListByHabitIDs(ctx context.Context, habitIDs []string) ([]*CompletionEntry, error)

	// ListByHabitIDWithRange retrieves entries inside a date window.
	ListByHabitIDWithRange(ctx context.Context, habitID string, from, to time.Time) ([]*CompletionEntry, error)
}
