package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/config"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	action := flag.String("action", "up", "Migration action: up, down, version, force")
	steps := flag.Int("steps", 1, "Migrations to roll back (down action)")
	target := flag.Int("version", -1, "Version to mark as applied (force action)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return fmt.Errorf("migrations require STORE_DRIVER=%s", config.StoreDriverPostgres)
	}

	logger := config.NewLogger(cfg.Environment, cfg.LogFile)

	ctx := context.Background()
	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	logger.Info("connected to database")

	migrator, err := database.NewMigrator(database.SQLDB(pool), databaseName(cfg.DatabaseURL), database.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	switch *action {
	case "up":
		logger.Info("running migrations")
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
		logger.Info("migrations completed")

	case "down":
		logger.Info("rolling back migrations", slog.Int("steps", *steps))
		if err := migrator.Rollback(*steps); err != nil {
			return fmt.Errorf("migration down failed: %w", err)
		}
		logger.Info("migrations rolled back")

	case "version":
		status, err := migrator.Status()
		if err != nil {
			return fmt.Errorf("failed to read schema status: %w", err)
		}
		logger.Info("schema status",
			slog.Uint64("version", uint64(status.Version)),
			slog.Uint64("latest", uint64(status.Latest)),
			slog.Bool("pending", status.Pending()),
			slog.Bool("dirty", status.Dirty),
		)

	case "force":
		if *target < 0 {
			return fmt.Errorf("version flag is required for force action")
		}
		logger.Warn("forcing migration version", slog.Int("version", *target))
		if err := migrator.Force(*target); err != nil {
			return fmt.Errorf("force migration failed: %w", err)
		}

	default:
		return fmt.Errorf("invalid action: %s (use: up, down, version, force)", *action)
	}

	return nil
}

// databaseName extracts the database from a postgres URL for the migrate lock key
func databaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "sentinela"
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		return name
	}
	return "sentinela"
}
