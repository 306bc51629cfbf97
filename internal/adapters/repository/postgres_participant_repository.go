package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

type PostgresParticipantRepository struct {
	db *sqlx.DB
}

func NewPostgresParticipantRepository(db *sqlx.DB) *PostgresParticipantRepository {
	return &PostgresParticipantRepository{db: db}
}

const participantColumns = `id, challenge_id, user_id,
               current_value, current_streak, longest_streak, completion_rate, value_reached_at,
               status, share_level, joined_at, updated_at`

func scanParticipant(row scannable) (*domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(
		&p.ID, &p.ChallengeID, &p.UserID,
		&p.Progress.CurrentValue, &p.Progress.CurrentStreak, &p.Progress.LongestStreak,
		&p.Progress.CompletionRate, &p.Progress.ValueReachedAt,
		&p.Status, &p.Share, &p.JoinedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts the participant and their habit links in one transaction.
// The unique index on (challenge_id, user_id) makes double joins a
// constraint violation rather than a race.
func (r *PostgresParticipantRepository) Create(ctx context.Context, p *domain.Participant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO participants (` + participantColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = tx.ExecContext(ctx, query,
		p.ID, p.ChallengeID, p.UserID,
		p.Progress.CurrentValue, p.Progress.CurrentStreak, p.Progress.LongestStreak,
		p.Progress.CompletionRate, p.Progress.ValueReachedAt,
		p.Status, p.Share, p.JoinedAt, p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrAlreadyJoined
		}
		return fmt.Errorf("failed to insert participant: %w", err)
	}

	for _, habitID := range p.LinkedHabitIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO participant_habits (participant_id, habit_id) VALUES ($1, $2)`,
			p.ID, habitID,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23503" {
				return domain.ErrHabitNotFound
			}
			return fmt.Errorf("failed to link habit: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PostgresParticipantRepository) Get(ctx context.Context, challengeID, userID string) (*domain.Participant, error) {
	query := `
        SELECT ` + participantColumns + ` FROM participants
        WHERE challenge_id = $1 AND user_id = $2`

	p, err := scanParticipant(r.db.QueryRowContext(ctx, query, challengeID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	if err := r.loadHabitLinks(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (r *PostgresParticipantRepository) ListByChallengeID(ctx context.Context, challengeID string) ([]*domain.Participant, error) {
	query := `
        SELECT ` + participantColumns + ` FROM participants
        WHERE challenge_id = $1
        ORDER BY joined_at ASC`

	return r.queryParticipants(ctx, query, challengeID)
}

func (r *PostgresParticipantRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.Participant, error) {
	query := `
        SELECT p.id, p.challenge_id, p.user_id,
               p.current_value, p.current_streak, p.longest_streak, p.completion_rate, p.value_reached_at,
               p.status, p.share_level, p.joined_at, p.updated_at
        FROM participants p
        JOIN participant_habits ph ON ph.participant_id = p.id
        WHERE ph.habit_id = $1
        ORDER BY p.joined_at ASC`

	return r.queryParticipants(ctx, query, habitID)
}

func (r *PostgresParticipantRepository) Update(ctx context.Context, p *domain.Participant) error {
	query := `
        UPDATE participants SET
            current_value=$1, current_streak=$2, longest_streak=$3,
            completion_rate=$4, value_reached_at=$5,
            status=$6, share_level=$7, updated_at=$8
        WHERE id=$9`

	res, err := r.db.ExecContext(ctx, query,
		p.Progress.CurrentValue, p.Progress.CurrentStreak, p.Progress.LongestStreak,
		p.Progress.CompletionRate, p.Progress.ValueReachedAt,
		p.Status, p.Share, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update query failed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrParticipantNotFound
	}

	return nil
}

func (r *PostgresParticipantRepository) queryParticipants(ctx context.Context, query string, args ...interface{}) ([]*domain.Participant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var participants []*domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range participants {
		if err := r.loadHabitLinks(ctx, p); err != nil {
			return nil, err
		}
	}

	return participants, nil
}

func (r *PostgresParticipantRepository) loadHabitLinks(ctx context.Context, p *domain.Participant) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT habit_id FROM participant_habits WHERE participant_id = $1 ORDER BY habit_id`,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("habit link query error: %w", err)
	}
	defer rows.Close()

	p.LinkedHabitIDs = nil
	for rows.Next() {
		var habitID string
		if err := rows.Scan(&habitID); err != nil {
			return fmt.Errorf("habit link scan error: %w", err)
		}
		p.LinkedHabitIDs = append(p.LinkedHabitIDs, habitID)
	}

	return rows.Err()
}
