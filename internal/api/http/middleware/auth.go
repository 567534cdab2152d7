package middleware

import (
	"slices"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"

	"github.com/bazaarhq/bazaar_backend/pkg/reqctx"
)

// AuthRequired guards routes that need an authenticated caller. Identity was
// already resolved by the pipeline; this only enforces it, and checks that a
// token-carried session is still live in Redis.
func AuthRequired(rdb *redis.Client) fiber.Handler {
	return func(c fiber.Ctx) error {
		rc, ok := RequestFromFiber(c)
		if !ok || !rc.Authenticated {
			return fiber.ErrUnauthorized
		}

		if rdb != nil && rc.SessionID != "" {
			key := "session:" + rc.SessionID
			if err := rdb.Get(c.Context(), key).Err(); err != nil {
				return fiber.ErrUnauthorized
			}
		}

		return c.Next()
	}
}

// RequirePermission guards routes behind a single permission.
// Super admins pass unconditionally.
func RequirePermission(perm string) fiber.Handler {
	return func(c fiber.Ctx) error {
		rc, ok := RequestFromFiber(c)
		if !ok || !rc.Authenticated {
			return fiber.ErrUnauthorized
		}
		if rc.UserType == reqctx.UserTypeSuperAdmin {
			return c.Next()
		}
		if slices.Contains(rc.Permissions, perm) {
			return c.Next()
		}
		return fiber.ErrForbidden
	}
}
