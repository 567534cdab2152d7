package router

import (
	"database/sql"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/bazaarhq/bazaar_backend/config"
	"github.com/bazaarhq/bazaar_backend/internal/api/http/handler"
	"github.com/bazaarhq/bazaar_backend/internal/api/http/middleware"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg   *config.Config
	Redis *redis.Client
	DB    *sql.DB
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	r.registerSystemRoutes(app)

	authRequired := middleware.AuthRequired(r.p.Redis)

	userH := handler.NewUserHandler()

	api := app.Group("/api")
	users := api.Group("/users", authRequired)
	users.Get("/me", userH.GetMe)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	health := handler.NewHealthHandler(r.p.DB, r.p.Redis)

	app.Get("/healthz", healthcheck.New())
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: health.Ready,
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
