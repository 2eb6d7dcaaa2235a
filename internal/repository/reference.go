package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

// ReferenceRepository stores enrolled descriptors in a pgvector column.
type ReferenceRepository struct {
	pool PgxPool
}

func NewReferenceRepository(pool PgxPool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

// Save enrolls or replaces the candidate's reference descriptor
func (r *ReferenceRepository) Save(ctx context.Context, ref *domain.CandidateReference) error {
	if len(ref.Descriptor) == 0 {
		return domain.ErrValidationFailed.WithError(errors.New("empty reference descriptor"))
	}

	query := `
		INSERT INTO candidate_references (candidate_id, descriptor, source, dimensions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (candidate_id) DO UPDATE
		SET descriptor = EXCLUDED.descriptor,
			source = EXCLUDED.source,
			dimensions = EXCLUDED.dimensions,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	ref.Dimensions = len(ref.Descriptor)

	err := r.pool.QueryRow(ctx, query,
		ref.CandidateID,
		toVector(ref.Descriptor),
		ref.Source,
		ref.Dimensions,
	).Scan(&ref.CreatedAt, &ref.UpdatedAt)

	if err != nil {
		return fmt.Errorf("save reference: %w", err)
	}

	return nil
}

func (r *ReferenceRepository) Get(ctx context.Context, candidateID string) (*domain.CandidateReference, error) {
	query := `
		SELECT candidate_id, descriptor, source, dimensions, created_at, updated_at
		FROM candidate_references
		WHERE candidate_id = $1
	`

	var ref domain.CandidateReference
	var descriptor *pgvector.Vector

	err := r.pool.QueryRow(ctx, query, candidateID).Scan(
		&ref.CandidateID,
		&descriptor,
		&ref.Source,
		&ref.Dimensions,
		&ref.CreatedAt,
		&ref.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReferenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reference: %w", err)
	}

	ref.Descriptor = fromVector(descriptor)

	return &ref, nil
}

func (r *ReferenceRepository) Delete(ctx context.Context, candidateID string) error {
	query := `
		DELETE FROM candidate_references
		WHERE candidate_id = $1
	`

	result, err := r.pool.Exec(ctx, query, candidateID)
	if err != nil {
		return fmt.Errorf("delete reference: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrReferenceNotFound
	}

	return nil
}
