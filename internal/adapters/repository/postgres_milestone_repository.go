package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

type PostgresMilestoneRepository struct {
	db *sqlx.DB
}

func NewPostgresMilestoneRepository(db *sqlx.DB) *PostgresMilestoneRepository {
	return &PostgresMilestoneRepository{db: db}
}

func (r *PostgresMilestoneRepository) Create(ctx context.Context, m *domain.Milestone) error {
	query := `
        INSERT INTO milestones (id, challenge_id, value, label)
        VALUES ($1, $2, $3, $4)`

	if _, err := r.db.ExecContext(ctx, query, m.ID, m.ChallengeID, m.Value, m.Label); err != nil {
		return fmt.Errorf("failed to insert milestone: %w", err)
	}

	return nil
}

func (r *PostgresMilestoneRepository) ListByChallengeID(ctx context.Context, challengeID string) ([]*domain.Milestone, error) {
	query := `
        SELECT id, challenge_id, value, label
        FROM milestones
        WHERE challenge_id = $1
        ORDER BY value ASC`

	rows, err := r.db.QueryContext(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var milestones []*domain.Milestone
	for rows.Next() {
		var m domain.Milestone
		if err := rows.Scan(&m.ID, &m.ChallengeID, &m.Value, &m.Label); err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		milestones = append(milestones, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, m := range milestones {
		if err := r.loadReaches(ctx, m); err != nil {
			return nil, err
		}
	}

	return milestones, nil
}

// AppendReach is idempotent: the primary key on (milestone_id, user_id)
// plus DO NOTHING means recomputing an unchanged ledger never duplicates
// a reach or moves its timestamp.
func (r *PostgresMilestoneRepository) AppendReach(ctx context.Context, milestoneID string, reach domain.MilestoneReach) error {
	query := `
        INSERT INTO milestone_reaches (milestone_id, user_id, reached_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (milestone_id, user_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, milestoneID, reach.UserID, reach.ReachedAt); err != nil {
		return fmt.Errorf("failed to append milestone reach: %w", err)
	}

	return nil
}

func (r *PostgresMilestoneRepository) loadReaches(ctx context.Context, m *domain.Milestone) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, reached_at FROM milestone_reaches WHERE milestone_id = $1 ORDER BY reached_at ASC`,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("reach query error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reach domain.MilestoneReach
		if err := rows.Scan(&reach.UserID, &reach.ReachedAt); err != nil {
			return fmt.Errorf("reach scan error: %w", err)
		}
		m.ReachedBy = append(m.ReachedBy, reach)
	}

	return rows.Err()
}
