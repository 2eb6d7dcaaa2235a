package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/alert"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/analysis"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/api"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/audit"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/cache"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/config"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/database"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/face"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/identity"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/metrics"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/monitor"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/repository"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/service"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/webhook"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/ws"
)

const (
	shutdownTimeout  = 10 * time.Second
	cooldownSweepGap = 5 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type stores struct {
	analytics repository.SessionAnalyticsStore
	refs      repository.ReferenceStore
	checks    repository.IdentityCheckStore
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment, cfg.LogFile)
	slog.SetDefault(logger)

	logger.Info("starting Sentinela API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.ProviderType),
		slog.String("store", cfg.StoreDriver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background workers outlive the signal context until shutdown completes
	bgCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	m := metrics.New()
	auditLogger := audit.NewSlogLogger(logger)
	readiness := map[string]handler.ReadinessCheck{}

	source, err := face.NewLandmarkSource(ctx, cfg, auditLogger)
	if err != nil {
		return fmt.Errorf("failed to create landmark source: %w", err)
	}
	readiness["landmark_source"] = source.Health

	var (
		st   stores
		pool *pgxpool.Pool
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err = database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		st = stores{
			analytics: repository.NewSessionAnalyticsRepository(pool),
			refs:      repository.NewReferenceRepository(pool),
			checks:    repository.NewIdentityCheckRepository(pool),
		}
		readiness["database"] = func(ctx context.Context) error {
			return database.HealthCheck(ctx, pool)
		}
	default:
		logger.Warn("using in-memory store, analytics are lost on restart")
		st = stores{
			analytics: repository.NewMemorySessionAnalyticsStore(),
			refs:      repository.NewMemoryReferenceStore(),
			checks:    repository.NewMemoryIdentityCheckStore(),
		}
	}

	var debouncer alert.Debouncer = alert.NewMemoryDebouncer()
	switch {
	case cfg.RedisURL != "":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()

		debouncer = alert.NewRedisDebouncer(client)
		readiness["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	case pool != nil:
		cooldowns := cache.NewPGCooldowns(pool)
		debouncer = cooldowns
		go cleanupCooldowns(bgCtx, cooldowns, logger)
	}

	hub := ws.NewHub(logger)
	go hub.Run(bgCtx)

	channels := []alert.Channel{alert.NewHubChannel(hub)}
	var webhookWorker *webhook.Worker
	if cfg.WebhookURL != "" {
		webhookWorker = webhook.NewWorker(webhook.NewService(cfg.WebhookURL, cfg.WebhookSecret), logger)
		go webhookWorker.Run(bgCtx)
		channels = append(channels, alert.NewWebhookChannel(webhookWorker))
	}

	dispatcher := alert.NewDispatcher(debouncer, alert.NewNotifier(logger, channels...),
		alert.WithCooldown(cfg.AlertCooldown),
		alert.WithMetrics(m),
		alert.WithLogger(logger),
	)

	analyticsService := service.NewAnalyticsService(st.analytics, auditLogger, m, logger)
	identityService := service.NewIdentityService(
		source,
		identity.NewVerifier(source, logger, m),
		st.refs,
		st.checks,
		auditLogger,
		logger,
	)

	extractor := analysis.NewExtractor(
		analysis.WithThreshold(cfg.LookingAwayThreshold),
		analysis.WithConcurrency(cfg.ConcurrentAnalyses),
		analysis.WithLogger(logger),
		analysis.WithMetrics(m),
	)

	manager := monitor.NewManager(source, extractor,
		func(key monitor.Key) monitor.Sink {
			return monitor.Fanout(
				monitor.IngestSink(analyticsService, key, logger),
				monitor.BroadcastSink(hub, key),
				dispatcher.Sink(key.SessionID, key.CandidateID),
			)
		},
		monitor.WithManagerInterval(cfg.DetectionInterval),
		monitor.WithManagerLogger(logger),
		monitor.WithManagerMetrics(m),
		monitor.WithAuditLogger(auditLogger),
	)

	reaper := monitor.NewReaper(manager, cfg.MonitorIdleTimeout, logger)
	go reaper.Start(bgCtx)

	router := api.NewRouter(logger, &api.Dependencies{
		Analytics: analyticsService,
		Identity:  identityService,
		Monitors:  manager,
		Alerts:    dispatcher,
		Hub:       hub,
		Metrics:   m,
		Readiness: readiness,
	})
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	reaper.Stop()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("detection loops did not drain", slog.Any("error", err))
	}
	if webhookWorker != nil {
		webhookWorker.Stop()
	}
	cancelWorkers()

	logger.Info("server stopped")
	return nil
}

// cleanupCooldowns deletes expired alert cooldowns until ctx is done
func cleanupCooldowns(ctx context.Context, cooldowns *cache.PGCooldowns, logger *slog.Logger) {
	ticker := time.NewTicker(cooldownSweepGap)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := cooldowns.CleanupExpired(ctx)
			if err != nil {
				logger.Warn("failed to clean up alert cooldowns", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				logger.Debug("expired alert cooldowns removed", slog.Int64("count", n))
			}
		}
	}
}
