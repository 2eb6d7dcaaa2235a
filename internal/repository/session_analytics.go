package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

const analyticsColumns = `id, session_id, candidate_id, presence_logs, attention_logs, emotion_timeline,
		anti_cheat, summary, finalized_at, created_at, updated_at`

// SessionAnalyticsRepository stores analytics records as JSONB documents,
// one row per (session_id, candidate_id).
type SessionAnalyticsRepository struct {
	pool PgxPool
	now  func() time.Time
}

func NewSessionAnalyticsRepository(pool PgxPool) *SessionAnalyticsRepository {
	return &SessionAnalyticsRepository{pool: pool, now: time.Now}
}

// Upsert creates the row when absent (ON CONFLICT DO NOTHING), then locks it
// with SELECT ... FOR UPDATE and writes the mutated document back in the same
// transaction. Concurrent writers to one key are serialized by the row lock.
func (r *SessionAnalyticsRepository) Upsert(ctx context.Context, sessionID, candidateID string, mutate MutateFunc) (*domain.SessionAnalytics, error) {
	return r.modify(ctx, sessionID, candidateID, true, mutate)
}

func (r *SessionAnalyticsRepository) Update(ctx context.Context, sessionID, candidateID string, mutate MutateFunc) (*domain.SessionAnalytics, error) {
	return r.modify(ctx, sessionID, candidateID, false, mutate)
}

func (r *SessionAnalyticsRepository) modify(ctx context.Context, sessionID, candidateID string, create bool, mutate MutateFunc) (*domain.SessionAnalytics, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin analytics transaction: %w", err)
	}

	record, err := r.modifyTx(ctx, tx, sessionID, candidateID, create, mutate)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit analytics transaction: %w", err)
	}

	return record, nil
}

func (r *SessionAnalyticsRepository) modifyTx(ctx context.Context, tx pgx.Tx, sessionID, candidateID string, create bool, mutate MutateFunc) (*domain.SessionAnalytics, error) {
	if create {
		insert := `
			INSERT INTO session_analytics (id, session_id, candidate_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (session_id, candidate_id) DO NOTHING
		`
		if _, err := tx.Exec(ctx, insert, uuid.New(), sessionID, candidateID, r.now().UTC()); err != nil {
			return nil, fmt.Errorf("create analytics record: %w", err)
		}
	}

	query := `
		SELECT ` + analyticsColumns + `
		FROM session_analytics
		WHERE session_id = $1 AND candidate_id = $2
		FOR UPDATE
	`
	record, err := scanAnalytics(tx.QueryRow(ctx, query, sessionID, candidateID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAnalyticsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock analytics record: %w", err)
	}

	if err := mutate(record); err != nil {
		return nil, err
	}

	if err := r.write(ctx, tx, record); err != nil {
		return nil, err
	}

	return record, nil
}

func (r *SessionAnalyticsRepository) write(ctx context.Context, tx pgx.Tx, record *domain.SessionAnalytics) error {
	presence, err := marshalJSON("presence_logs", record.PresenceLogs)
	if err != nil {
		return err
	}
	attention, err := marshalJSON("attention_logs", record.AttentionLogs)
	if err != nil {
		return err
	}
	emotion, err := marshalJSON("emotion_timeline", record.EmotionTimeline)
	if err != nil {
		return err
	}
	antiCheat, err := marshalNullable("anti_cheat", record.AntiCheat)
	if err != nil {
		return err
	}
	summary, err := marshalNullable("summary", record.Summary)
	if err != nil {
		return err
	}

	query := `
		UPDATE session_analytics
		SET presence_logs = $3,
			attention_logs = $4,
			emotion_timeline = $5,
			anti_cheat = $6,
			summary = $7,
			finalized_at = $8,
			updated_at = $9
		WHERE session_id = $1 AND candidate_id = $2
	`

	result, err := tx.Exec(ctx, query,
		record.SessionID,
		record.CandidateID,
		presence,
		attention,
		emotion,
		antiCheat,
		summary,
		record.FinalizedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update analytics record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAnalyticsNotFound
	}

	return nil
}

func (r *SessionAnalyticsRepository) Get(ctx context.Context, sessionID, candidateID string) (*domain.SessionAnalytics, error) {
	query := `
		SELECT ` + analyticsColumns + `
		FROM session_analytics
		WHERE session_id = $1 AND candidate_id = $2
	`

	record, err := scanAnalytics(r.pool.QueryRow(ctx, query, sessionID, candidateID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAnalyticsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analytics record: %w", err)
	}

	return record, nil
}

func (r *SessionAnalyticsRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.SessionAnalytics, error) {
	query := `
		SELECT ` + analyticsColumns + `
		FROM session_analytics
		WHERE session_id = $1
		ORDER BY created_at ASC, candidate_id ASC
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list analytics records: %w", err)
	}
	defer rows.Close()

	var records []*domain.SessionAnalytics
	for rows.Next() {
		record, err := scanAnalytics(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analytics record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analytics records: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalytics(row rowScanner) (*domain.SessionAnalytics, error) {
	var (
		record                       domain.SessionAnalytics
		presence, attention, emotion []byte
		antiCheat, summary           []byte
	)

	err := row.Scan(
		&record.ID,
		&record.SessionID,
		&record.CandidateID,
		&presence,
		&attention,
		&emotion,
		&antiCheat,
		&summary,
		&record.FinalizedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON("presence_logs", presence, &record.PresenceLogs); err != nil {
		return nil, err
	}
	if err := unmarshalJSON("attention_logs", attention, &record.AttentionLogs); err != nil {
		return nil, err
	}
	if err := unmarshalJSON("emotion_timeline", emotion, &record.EmotionTimeline); err != nil {
		return nil, err
	}
	if len(antiCheat) > 0 {
		record.AntiCheat = &domain.AntiCheatState{}
		if err := unmarshalJSON("anti_cheat", antiCheat, record.AntiCheat); err != nil {
			return nil, err
		}
	}
	if len(summary) > 0 {
		record.Summary = &domain.Summary{}
		if err := unmarshalJSON("summary", summary, record.Summary); err != nil {
			return nil, err
		}
	}

	return &record, nil
}
