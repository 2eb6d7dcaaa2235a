package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/metrics"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/ws"
)

const Version = "1.0.0"

// Dependencies are the services behind the HTTP surface. Alerts, Hub and
// Metrics are optional.
type Dependencies struct {
	Analytics handler.AnalyticsService
	Identity  handler.IdentityService
	Monitors  handler.MonitorManager
	Alerts    handler.AlertDispatcher
	Hub       *ws.Hub
	Metrics   *metrics.Metrics
	Readiness map[string]handler.ReadinessCheck
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(logger),
		AppName:               "Sentinela API",
		BodyLimit:             12 * 1024 * 1024,
		DisableStartupMessage: true,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var readiness map[string]handler.ReadinessCheck
	if r.deps != nil {
		readiness = r.deps.Readiness
	}
	healthHandler := handler.NewHealthHandler(Version, readiness)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	if r.deps.Metrics != nil {
		r.app.Get("/metrics", adaptor.HTTPHandler(r.deps.Metrics.Handler()))
	}

	v1 := r.app.Group("/v1")
	if r.deps.Metrics != nil {
		v1.Use(middleware.Metrics(r.deps.Metrics))
	}

	var feed handler.LiveFeed
	if r.deps.Hub != nil {
		feed = r.deps.Hub
	}

	sessions := v1.Group("/sessions/:session_id")
	candidate := sessions.Group("/candidates/:candidate_id")

	if r.deps.Analytics != nil {
		analyticsHandler := handler.NewAnalyticsHandler(r.deps.Analytics, r.deps.Alerts, feed, r.logger)
		candidate.Post("/events", analyticsHandler.SubmitEvent)
		candidate.Get("/analytics", analyticsHandler.Get)
		candidate.Post("/finalize", analyticsHandler.Finalize)
		sessions.Get("/analytics", analyticsHandler.List)
	}

	if r.deps.Monitors != nil {
		monitorHandler := handler.NewMonitorHandler(r.deps.Monitors, feed, r.logger)
		candidate.Post("/monitor/start", monitorHandler.Start)
		candidate.Post("/monitor/stop", monitorHandler.Stop)
		candidate.Get("/monitor", monitorHandler.Status)
		candidate.Post("/frames", monitorHandler.PushFrame)
		candidate.Post("/analyze", monitorHandler.Analyze)
	}

	if r.deps.Identity != nil {
		identityHandler := handler.NewIdentityHandler(r.deps.Identity, r.logger)
		v1.Put("/candidates/:candidate_id/reference", identityHandler.Enroll)
		v1.Delete("/candidates/:candidate_id/reference", identityHandler.DeleteReference)
		candidate.Post("/identity", identityHandler.Verify)
		candidate.Get("/identity", identityHandler.History)
	}

	if r.deps.Hub != nil {
		sessions.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

// Shutdown stops accepting requests. Background workers are owned by the caller.
func (r *Router) Shutdown() error {
	return r.app.Shutdown()
}
