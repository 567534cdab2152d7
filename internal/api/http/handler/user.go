package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/bazaarhq/bazaar_backend/internal/api/http/middleware"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// GET /api/users/me
func (h *UserHandler) GetMe(c fiber.Ctx) error {
	rc, valid := middleware.RequestFromFiber(c)
	if !valid || !rc.Authenticated {
		return unauthorized(c)
	}

	return ok(c, fiber.Map{
		"user_id":     rc.UserID,
		"user_type":   string(rc.UserType),
		"session_id":  rc.SessionID,
		"permissions": rc.Permissions,
	})
}
