package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

type PostgresEntryRepository struct {
	db *sqlx.DB
}

func NewPostgresEntryRepository(db *sqlx.DB) *PostgresEntryRepository {
	return &PostgresEntryRepository{db: db}
}

const entryColumns = `id, habit_id, user_id, entry_date, completed, value, recorded_at, created_at, updated_at`

func scanEntry(row scannable) (*domain.CompletionEntry, error) {
	var e domain.CompletionEntry
	err := row.Scan(
		&e.ID, &e.HabitID, &e.UserID,
		&e.EntryDate, &e.Completed, &e.Value,
		&e.RecordedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.EntryDate = domain.DayOf(e.EntryDate)
	return &e, nil
}

// Upsert enforces the one-entry-per-day rule at the database: the unique
// index on (habit_id, entry_date) turns a second check of the same day
// into an update of the existing row.
func (r *PostgresEntryRepository) Upsert(ctx context.Context, e *domain.CompletionEntry) error {
	query := `
        INSERT INTO completion_entries (` + entryColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (habit_id, entry_date) DO UPDATE SET
            completed = EXCLUDED.completed,
            value = EXCLUDED.value,
            recorded_at = EXCLUDED.recorded_at,
            updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.HabitID, e.UserID,
		e.EntryDate, e.Completed, e.Value,
		e.RecordedAt, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}

	return nil
}

func (r *PostgresEntryRepository) Delete(ctx context.Context, habitID string, entryDate time.Time) error {
	query := `DELETE FROM completion_entries WHERE habit_id = $1 AND entry_date = $2`

	if _, err := r.db.ExecContext(ctx, query, habitID, domain.DayOf(entryDate)); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

func (r *PostgresEntryRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.CompletionEntry, error) {
	query := `
        SELECT ` + entryColumns + ` FROM completion_entries
        WHERE habit_id = $1
        ORDER BY entry_date ASC`

	return r.queryEntries(ctx, query, habitID)
}

func (r *PostgresEntryRepository) ListByHabitIDs(ctx context.Context, habitIDs []string) ([]*domain.CompletionEntry, error) {
	if len(habitIDs) == 0 {
		return nil, nil
	}

	query := `
        SELECT ` + entryColumns + ` FROM completion_entries
        WHERE habit_id = ANY($1)
        ORDER BY habit_id, entry_date ASC`

	return r.queryEntries(ctx, query, pq.Array(habitIDs))
}

func (r *PostgresEntryRepository) ListByHabitIDWithRange(ctx context.Context, habitID string, from, to time.Time) ([]*domain.CompletionEntry, error) {
	query := `
        SELECT ` + entryColumns + ` FROM completion_entries
        WHERE habit_id = $1 AND entry_date BETWEEN $2 AND $3
        ORDER BY entry_date ASC`

	return r.queryEntries(ctx, query, habitID, domain.DayOf(from), domain.DayOf(to))
}

func (r *PostgresEntryRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*domain.CompletionEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var entries []*domain.CompletionEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
