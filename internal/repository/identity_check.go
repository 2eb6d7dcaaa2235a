package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

type IdentityCheckRepository struct {
	pool PgxPool
}

func NewIdentityCheckRepository(pool PgxPool) *IdentityCheckRepository {
	return &IdentityCheckRepository{pool: pool}
}

func (r *IdentityCheckRepository) Create(ctx context.Context, check *domain.IdentityCheck) error {
	query := `
		INSERT INTO identity_checks (id, session_id, candidate_id, verified, match_score, distance, reason, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`

	if check.ID == uuid.Nil {
		check.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		check.ID,
		check.SessionID,
		check.CandidateID,
		check.Verified,
		check.MatchScore,
		check.Distance,
		check.Reason,
		check.LatencyMs,
	).Scan(&check.CreatedAt)

	if err != nil {
		return fmt.Errorf("create identity check: %w", err)
	}

	return nil
}

func (r *IdentityCheckRepository) ListBySession(ctx context.Context, sessionID, candidateID string) ([]domain.IdentityCheck, error) {
	query := `
		SELECT id, session_id, candidate_id, verified, match_score, distance, reason, latency_ms, created_at
		FROM identity_checks
		WHERE session_id = $1 AND candidate_id = $2
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, sessionID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list identity checks: %w", err)
	}
	defer rows.Close()

	var checks []domain.IdentityCheck
	for rows.Next() {
		var c domain.IdentityCheck
		if err := rows.Scan(
			&c.ID,
			&c.SessionID,
			&c.CandidateID,
			&c.Verified,
			&c.MatchScore,
			&c.Distance,
			&c.Reason,
			&c.LatencyMs,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan identity check: %w", err)
		}
		checks = append(checks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity checks: %w", err)
	}

	return checks, nil
}
