package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PGCooldowns is a PostgreSQL-backed set of expiring keys. Replicas sharing
// the database share the cooldowns.
type PGCooldowns struct {
	db  DB
	now func() time.Time
}

func NewPGCooldowns(db DB) *PGCooldowns {
	return &PGCooldowns{db: db, now: time.Now}
}

// Allow claims key for ttl. It returns false while an earlier claim is unexpired.
func (c *PGCooldowns) Allow(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO alert_cooldowns (key, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE
		SET expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
		WHERE alert_cooldowns.expires_at <= $3
		RETURNING key
	`

	now := c.now()
	var claimed string
	err := c.db.QueryRow(ctx, query, key, now.Add(ttl), now).Scan(&claimed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim cooldown %s: %w", key, err)
	}
	return true, nil
}

// CleanupExpired removes all expired entries
func (c *PGCooldowns) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM alert_cooldowns WHERE expires_at < $1`
	result, err := c.db.Exec(ctx, query, c.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup cooldowns: %w", err)
	}
	return result.RowsAffected(), nil
}
