package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

type PostgresChallengeRepository struct {
	db *sqlx.DB
}

func NewPostgresChallengeRepository(db *sqlx.DB) *PostgresChallengeRepository {
	return &PostgresChallengeRepository{db: db}
}

const challengeColumns = `id, workspace_id, creator_id, title, type,
               target_value, target_unit, minimum_daily_value, grace_period_hours, allow_makeup_days,
               match_mode, match_minimum,
               start_date, end_date, cancelled_at, created_at, updated_at`

func scanChallenge(row scannable) (*domain.Challenge, error) {
	var c domain.Challenge
	err := row.Scan(
		&c.ID, &c.WorkspaceID, &c.CreatorID, &c.Title, &c.Type,
		&c.Rules.TargetValue, &c.Rules.TargetUnit, &c.Rules.MinimumDailyValue,
		&c.Rules.GracePeriodHours, &c.Rules.AllowMakeupDays,
		&c.MatchMode, &c.MatchMinimum,
		&c.StartDate, &c.EndDate, &c.CancelledAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.StartDate = domain.DayOf(c.StartDate)
	c.EndDate = domain.DayOf(c.EndDate)
	return &c, nil
}

func (r *PostgresChallengeRepository) Create(ctx context.Context, c *domain.Challenge) error {
	query := `
        INSERT INTO challenges (` + challengeColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.WorkspaceID, c.CreatorID, c.Title, c.Type,
		c.Rules.TargetValue, c.Rules.TargetUnit, c.Rules.MinimumDailyValue,
		c.Rules.GracePeriodHours, c.Rules.AllowMakeupDays,
		c.MatchMode, c.MatchMinimum,
		c.StartDate, c.EndDate, c.CancelledAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert challenge: %w", err)
	}

	return nil
}

func (r *PostgresChallengeRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`

	c, err := scanChallenge(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return c, nil
}

func (r *PostgresChallengeRepository) ListByWorkspaceID(ctx context.Context, workspaceID string) ([]*domain.Challenge, error) {
	query := `
        SELECT ` + challengeColumns + ` FROM challenges
        WHERE workspace_id = $1
        ORDER BY start_date ASC`

	return r.queryChallenges(ctx, query, workspaceID)
}

// ListActiveByHabitID resolves which running challenges a habit write can
// affect: any challenge with a non-dropped participant who linked the
// habit, restricted to the active calendar window.
func (r *PostgresChallengeRepository) ListActiveByHabitID(ctx context.Context, habitID string) ([]*domain.Challenge, error) {
	query := `
        SELECT DISTINCT
               c.id, c.workspace_id, c.creator_id, c.title, c.type,
               c.target_value, c.target_unit, c.minimum_daily_value, c.grace_period_hours, c.allow_makeup_days,
               c.match_mode, c.match_minimum,
               c.start_date, c.end_date, c.cancelled_at, c.created_at, c.updated_at
        FROM challenges c
        JOIN participants p ON p.challenge_id = c.id
        JOIN participant_habits ph ON ph.participant_id = p.id
        WHERE ph.habit_id = $1
          AND p.status <> 'dropped'
          AND c.cancelled_at IS NULL
          AND c.start_date <= CURRENT_DATE
          AND c.end_date >= CURRENT_DATE`

	return r.queryChallenges(ctx, query, habitID)
}

func (r *PostgresChallengeRepository) Update(ctx context.Context, c *domain.Challenge) error {
	query := `
        UPDATE challenges SET
            title=$1, cancelled_at=$2, updated_at=$3
        WHERE id=$4`

	res, err := r.db.ExecContext(ctx, query, c.Title, c.CancelledAt, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update query failed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrChallengeNotFound
	}

	return nil
}

func (r *PostgresChallengeRepository) queryChallenges(ctx context.Context, query string, args ...interface{}) ([]*domain.Challenge, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var challenges []*domain.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		challenges = append(challenges, c)
	}

	return challenges, rows.Err()
}
