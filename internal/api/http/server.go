package http

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/bazaarhq/bazaar_backend/config"
	"github.com/bazaarhq/bazaar_backend/internal/api/http/middleware"
	"github.com/bazaarhq/bazaar_backend/internal/api/http/router"
	"github.com/bazaarhq/bazaar_backend/internal/audit"
	"github.com/bazaarhq/bazaar_backend/internal/identity"
	"github.com/bazaarhq/bazaar_backend/pkg/observability"
)

// Module provides the HTTP Server to the fx graph.
var Module = fx.Module("http", fx.Provide(NewServer))

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	Logger    *slog.Logger
	Redis     *redis.Client
	Resolver  *identity.Resolver
	Audit     *audit.Dispatcher
	Router    *router.Router
	OTel      *observability.Provider `optional:"true"`
}

func NewServer(p Params) *fiber.App {
	production := p.Cfg.Server.IsProduction()

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(p.Logger, production),
	})

	configureGlobalMiddleware(app, p)

	p.Router.Register(app)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			addr := fmt.Sprintf(":%d", p.Cfg.Server.Port)
			go func() {
				if err := app.Listen(addr); err != nil {
					slog.Error("HTTP server error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})

	return app
}

// configureGlobalMiddleware sets up the pipeline. Order matters: the
// pipeline middleware is outermost so its on-send hooks see the final
// response, and the recoverer sits inside it so panics surface as errors
// the pipeline's envelope stage can handle.
func configureGlobalMiddleware(app *fiber.App, p Params) {
	production := p.Cfg.Server.IsProduction()

	if p.OTel != nil && p.Cfg.Observability.Tracing.Enabled {
		app.Use(observability.FiberMiddleware(p.Cfg.Observability.ServiceName))
	}

	app.Use(middleware.Pipeline(middleware.PipelineConfig{
		Logger:     p.Logger,
		Resolver:   p.Resolver,
		Audit:      p.Audit,
		Production: production,
	}))
	app.Use(recoverer.New())

	if production {
		app.Use(helmet.New())
		if p.Cfg.Server.CORS.Enabled {
			app.Use(cors.New(cors.Config{AllowOrigins: p.Cfg.Server.CORS.AllowOrigins}))
		}
		app.Use(middleware.NewLimiterWithRedis(p.Redis))
	}
}
