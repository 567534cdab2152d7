package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"

	"github.com/bazaarhq/bazaar_backend/pkg/reqctx"
)

type HealthHandler struct {
	db  *sql.DB
	rdb *redis.Client
}

func NewHealthHandler(db *sql.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

// Ready probes the backing stores. Each probe runs under its own span so a
// slow dependency is visible in the trace.
func (h *HealthHandler) Ready(c fiber.Ctx) bool {
	if h.db != nil {
		ctx, span := reqctx.StartSpan(c.Context(), "probe postgres", nil)
		err := h.db.PingContext(ctx)
		if err != nil {
			span.SetError(err)
		}
		span.End(nil)
		if err != nil {
			return false
		}
	}

	if h.rdb != nil {
		ctx, span := reqctx.StartSpan(c.Context(), "probe redis", nil)
		err := h.rdb.Ping(ctx).Err()
		if err != nil {
			span.SetError(err)
		}
		span.End(nil)
		if err != nil {
			return false
		}
	}

	return true
}
