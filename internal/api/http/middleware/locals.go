package middleware

import (
	"github.com/gofiber/fiber/v3"

	"github.com/bazaarhq/bazaar_backend/pkg/reqctx"
)

// Request headers owned by this package. Trace headers live in pkg/reqctx.
const (
	HeaderAPIKey       = "x-api-key"
	HeaderResponseTime = "x-response-time"
)

const (
	localRequestContext = "request_context"
	localRootSpan       = "root_span"
)

// RequestFromFiber retrieves the RequestContext built by the pipeline.
func RequestFromFiber(c fiber.Ctx) (*reqctx.RequestContext, bool) {
	rc, ok := c.Locals(localRequestContext).(*reqctx.RequestContext)
	return rc, ok && rc != nil
}

// RootSpanFromFiber retrieves the request's root span.
func RootSpanFromFiber(c fiber.Ctx) (*reqctx.Span, bool) {
	s, ok := c.Locals(localRootSpan).(*reqctx.Span)
	return s, ok && s != nil
}
