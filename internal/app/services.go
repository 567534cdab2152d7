package app

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/bazaarhq/bazaar_backend/config"
	"github.com/bazaarhq/bazaar_backend/internal/audit"
	"github.com/bazaarhq/bazaar_backend/internal/identity"
	"github.com/bazaarhq/bazaar_backend/pkg/apikey"
	pasetotoken "github.com/bazaarhq/bazaar_backend/pkg/paseto"
)

// ServiceModule provides the pipeline's collaborators.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvidePasetoManager,
		ProvideAPIKeyLookup,
		ProvideIdentityResolver,
		ProvideAuditStore,
		ProvideAuditDispatcher,
	),
)

func ProvidePasetoManager(cfg *config.Config) (*pasetotoken.Manager, error) {
	return pasetotoken.NewManagerFromConfig(cfg)
}

func ProvideAPIKeyLookup(rdb *redis.Client) apikey.Lookup {
	return apikey.NewRedisLookup(rdb)
}

func ProvideIdentityResolver(mgr *pasetotoken.Manager, keys apikey.Lookup, logger *slog.Logger) *identity.Resolver {
	return identity.NewResolver(mgr, keys, logger)
}

func ProvideAuditStore(db *sql.DB) audit.Store {
	return audit.NewPostgresStore(db)
}

func ProvideAuditDispatcher(lc fx.Lifecycle, store audit.Store, logger *slog.Logger, cfg *config.Config) *audit.Dispatcher {
	d := audit.NewDispatcher(store, logger, cfg.Audit.QueueSize, cfg.Audit.Workers)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining audit dispatcher")
			return d.Close(ctx)
		},
	})
	return d
}
