package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/strovahq/challenge-engine/internal/core/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresHabitRepository struct {
	db *sqlx.DB
}

func NewPostgresHabitRepository(db *sqlx.DB) *PostgresHabitRepository {
	return &PostgresHabitRepository{db: db}
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresHabitRepository) scanRow(row scannable) (*domain.Habit, error) {
	var h domain.Habit
	var weekdays []int64

	err := row.Scan(
		&h.ID, &h.OwnerID, &h.Name,
		&h.Recurrence.Type, pq.Array(&weekdays), &h.Recurrence.WeeklyCount,
		&h.Methodology, &h.TargetValue, &h.Unit,
		&h.ArchivedAt, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, d := range weekdays {
		h.Recurrence.Weekdays = append(h.Recurrence.Weekdays, int(d))
	}

	return &h, nil
}

func weekdaysArray(days []int) pq.Int64Array {
	arr := make(pq.Int64Array, 0, len(days))
	for _, d := range days {
		arr = append(arr, int64(d))
	}
	return arr
}

func (r *PostgresHabitRepository) Create(ctx context.Context, h *domain.Habit) error {
	query := `
        INSERT INTO habits (
            id, owner_id, name,
            recurrence_type, weekdays, weekly_count,
            methodology, target_value, unit,
            archived_at, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		h.ID, h.OwnerID, h.Name,
		h.Recurrence.Type, weekdaysArray(h.Recurrence.Weekdays), h.Recurrence.WeeklyCount,
		h.Methodology, h.TargetValue, h.Unit,
		h.ArchivedAt, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	return nil
}

func (r *PostgresHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	query := `
        SELECT id, owner_id, name,
               recurrence_type, weekdays, weekly_count,
               methodology, target_value, unit,
               archived_at, created_at, updated_at
        FROM habits WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	h, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return h, nil
}

func (r *PostgresHabitRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Habit, error) {
	if len(ids) == 0 {
		return map[string]*domain.Habit{}, nil
	}

	query := `
        SELECT id, owner_id, name,
               recurrence_type, weekdays, weekly_count,
               methodology, target_value, unit,
               archived_at, created_at, updated_at
        FROM habits WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	found := make(map[string]*domain.Habit, len(ids))
	for rows.Next() {
		h, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		found[h.ID] = h
	}

	return found, rows.Err()
}

func (r *PostgresHabitRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Habit, error) {
	query := `
        SELECT id, owner_id, name,
               recurrence_type, weekdays, weekly_count,
               methodology, target_value, unit,
               archived_at, created_at, updated_at
        FROM habits
        WHERE owner_id = $1
        ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var habits []*domain.Habit
	for rows.Next() {
		h, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		habits = append(habits, h)
	}

	return habits, rows.Err()
}

func (r *PostgresHabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	query := `
        UPDATE habits SET
            name=$1, recurrence_type=$2, weekdays=$3, weekly_count=$4,
            methodology=$5, target_value=$6, unit=$7,
            archived_at=$8, updated_at=$9
        WHERE id=$10`

	res, err := r.db.ExecContext(ctx, query,
		h.Name, h.Recurrence.Type, weekdaysArray(h.Recurrence.Weekdays), h.Recurrence.WeeklyCount,
		h.Methodology, h.TargetValue, h.Unit,
		h.ArchivedAt, h.UpdatedAt,
		h.ID,
	)
	if err != nil {
		return fmt.Errorf("update query failed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrHabitNotFound
	}

	return nil
}
