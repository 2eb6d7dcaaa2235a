package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

func TestReferenceRepository_Save(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		ref       *domain.CandidateReference
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "upserts descriptor as vector",
			ref:  &domain.CandidateReference{CandidateID: "c-1", Descriptor: []float64{0.1, 0.2, 0.3}, Source: "faceapi"},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				vec := pgvector.NewVector([]float32{0.1, 0.2, 0.3})
				mock.ExpectQuery(`INSERT INTO candidate_references (.+) ON CONFLICT \(candidate_id\) DO UPDATE`).
					WithArgs("c-1", &vec, "faceapi", 3).
					WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
			},
		},
		{
			name:      "empty descriptor is rejected",
			ref:       &domain.CandidateReference{CandidateID: "c-1", Source: "faceapi"},
			mockSetup: func(mock pgxmock.PgxPoolIface) {},
			wantErr:   domain.ErrValidationFailed,
		},
		{
			name: "database error",
			ref:  &domain.CandidateReference{CandidateID: "c-1", Descriptor: []float64{1}, Source: "mock"},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO candidate_references`).
					WithArgs("c-1", pgxmock.AnyArg(), "mock", 1).
					WillReturnError(errors.New("extension vector missing"))
			},
			wantErr: errors.New("save reference: extension vector missing"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewReferenceRepository(mock)
			err = repo.Save(context.Background(), tt.ref)

			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrValidationFailed) {
					assert.ErrorIs(t, err, domain.ErrValidationFailed)
				} else {
					assert.EqualError(t, err, tt.wantErr.Error())
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, len(tt.ref.Descriptor), tt.ref.Dimensions)
				assert.Equal(t, now, tt.ref.CreatedAt)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReferenceRepository_Get(t *testing.T) {
	now := time.Now()
	columns := []string{"candidate_id", "descriptor", "source", "dimensions", "created_at", "updated_at"}

	t.Run("converts vector back to float64", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		vec := pgvector.NewVector([]float32{0.5, -0.25})
		mock.ExpectQuery(`SELECT candidate_id, descriptor, source, dimensions, created_at, updated_at FROM candidate_references WHERE candidate_id = \$1`).
			WithArgs("c-1").
			WillReturnRows(pgxmock.NewRows(columns).AddRow("c-1", &vec, "faceapi", 2, now, now))

		repo := NewReferenceRepository(mock)
		ref, err := repo.Get(context.Background(), "c-1")

		require.NoError(t, err)
		assert.Equal(t, []float64{0.5, -0.25}, ref.Descriptor)
		assert.Equal(t, "faceapi", ref.Source)
		assert.Equal(t, 2, ref.Dimensions)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`FROM candidate_references`).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

		repo := NewReferenceRepository(mock)
		_, err = repo.Get(context.Background(), "ghost")

		assert.ErrorIs(t, err, domain.ErrReferenceNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReferenceRepository_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "deleted", affected: 1},
		{name: "not found", affected: 0, wantErr: domain.ErrReferenceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectExec(`DELETE FROM candidate_references WHERE candidate_id = \$1`).
				WithArgs("c-1").
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))

			err = NewReferenceRepository(mock).Delete(context.Background(), "c-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIdentityCheckRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	check := &domain.IdentityCheck{
		SessionID:   "s-1",
		CandidateID: "c-1",
		Verified:    true,
		MatchScore:  0.75,
		Distance:    0.15,
		LatencyMs:   42,
	}

	mock.ExpectQuery(`INSERT INTO identity_checks`).
		WithArgs(pgxmock.AnyArg(), "s-1", "c-1", true, 0.75, 0.15, "", int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	err = NewIdentityCheckRepository(mock).Create(context.Background(), check)

	require.NoError(t, err)
	assert.NotEqual(t, [16]byte{}, [16]byte(check.ID))
	assert.Equal(t, now, check.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityCheckRepository_ListBySession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	check := domain.IdentityCheck{SessionID: "s-1", CandidateID: "c-1", Reason: "match score below threshold"}
	rows := pgxmock.NewRows([]string{
		"id", "session_id", "candidate_id", "verified", "match_score", "distance", "reason", "latency_ms", "created_at",
	}).AddRow(check.ID, "s-1", "c-1", false, 0.1, 0.54, check.Reason, int64(12), now)

	mock.ExpectQuery(`FROM identity_checks WHERE session_id = \$1 AND candidate_id = \$2`).
		WithArgs("s-1", "c-1").
		WillReturnRows(rows)

	got, err := NewIdentityCheckRepository(mock).ListBySession(context.Background(), "s-1", "c-1")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Verified)
	assert.Equal(t, "match score below threshold", got[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}
