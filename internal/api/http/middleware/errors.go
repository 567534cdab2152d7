package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/bazaarhq/bazaar_backend/pkg/logs"
)

// genericMessage replaces 5xx error messages in production so internals
// never leak to clients.
const genericMessage = "Internal Server Error"

// ErrorCoder lets domain errors attach a machine-readable code to the
// envelope.
type ErrorCoder interface {
	ErrorCode() string
}

type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	ID         string `json:"id"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
}

// newEnvelope shapes an error into the client-facing envelope. The id is
// fresh per error and is the join key between the response and the server
// log line.
func newEnvelope(err error, production bool) (int, errorEnvelope) {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	message := err.Error()
	if production && status >= fiber.StatusInternalServerError {
		message = genericMessage
	}

	var code string
	var coder ErrorCoder
	if errors.As(err, &coder) {
		code = coder.ErrorCode()
	}

	return status, errorEnvelope{Error: errorDetail{
		ID:         uuid.NewString(),
		Message:    message,
		Code:       code,
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}}
}

// respondError writes the envelope and emits the paired error log. It is the
// single terminal stage for anything a handler or middleware returned as an
// error.
func respondError(c fiber.Ctx, logger *slog.Logger, err error, production bool) error {
	status, env := newEnvelope(err, production)

	args := []any{
		"error_id", env.Error.ID,
		"status", status,
		"method", c.Method(),
		"path", c.Path(),
		"error", err.Error(),
	}
	if env.Error.Code != "" {
		args = append(args, "code", env.Error.Code)
	}
	logger.Error("unhandled error", args...)

	if span, ok := RootSpanFromFiber(c); ok {
		span.SetError(err)
	}
	return c.Status(status).JSON(env)
}

// ErrorHandler is the app-level fallback for errors that escape the
// pipeline middleware itself.
func ErrorHandler(logger *slog.Logger, production bool) fiber.ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c fiber.Ctx, err error) error {
		l := logger
		if rc, ok := RequestFromFiber(c); ok {
			l = logs.ForRequest(logger, rc)
		}
		return respondError(c, l, err, production)
	}
}
