package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool used by the repositories.
// pgxmock.PgxPoolIface satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// MutateFunc edits a record in place inside an atomic read-modify-write.
// Returning an error aborts the write.
type MutateFunc func(record *domain.SessionAnalytics) error

// SessionAnalyticsStore persists one analytics record per (session, candidate).
// Implementations serialize writers per key.
type SessionAnalyticsStore interface {
	// Upsert finds or creates the record for the key and applies mutate atomically
	Upsert(ctx context.Context, sessionID, candidateID string, mutate MutateFunc) (*domain.SessionAnalytics, error)
	// Update applies mutate to an existing record. Returns domain.ErrAnalyticsNotFound when absent
	Update(ctx context.Context, sessionID, candidateID string, mutate MutateFunc) (*domain.SessionAnalytics, error)
	// Get returns domain.ErrAnalyticsNotFound when absent
	Get(ctx context.Context, sessionID, candidateID string) (*domain.SessionAnalytics, error)
	// ListBySession returns every candidate record of a session, oldest first
	ListBySession(ctx context.Context, sessionID string) ([]*domain.SessionAnalytics, error)
}

// ReferenceStore keeps one enrolled descriptor per candidate.
type ReferenceStore interface {
	Save(ctx context.Context, ref *domain.CandidateReference) error
	Get(ctx context.Context, candidateID string) (*domain.CandidateReference, error)
	Delete(ctx context.Context, candidateID string) error
}

// IdentityCheckStore records identity verification attempts.
type IdentityCheckStore interface {
	Create(ctx context.Context, check *domain.IdentityCheck) error
	ListBySession(ctx context.Context, sessionID, candidateID string) ([]domain.IdentityCheck, error)
}
