package middleware

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/bazaarhq/bazaar_backend/internal/audit"
	"github.com/bazaarhq/bazaar_backend/internal/identity"
	"github.com/bazaarhq/bazaar_backend/pkg/logs"
	"github.com/bazaarhq/bazaar_backend/pkg/redact"
	"github.com/bazaarhq/bazaar_backend/pkg/reqctx"
)

const defaultSlowThreshold = 1000 * time.Millisecond

// PipelineConfig wires the request pipeline's collaborators.
type PipelineConfig struct {
	Logger   *slog.Logger
	Resolver *identity.Resolver
	Audit    audit.Sink

	Production bool

	// SlowThreshold above which a completed request logs a warning.
	// Defaults to one second.
	SlowThreshold time.Duration
}

// Pipeline is the outermost request middleware. On the way in it builds the
// RequestContext, opens the root span, resolves caller identity, and sets the
// tracing response headers. On the way out it stamps the response time,
// writes the error envelope for anything the handlers returned as an error,
// emits the completion or failure log, submits the audit record, and ends
// the root span. It always returns nil: every error is terminal here.
func Pipeline(cfg PipelineConfig) fiber.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	slow := cfg.SlowThreshold
	if slow <= 0 {
		slow = defaultSlowThreshold
	}

	return func(c fiber.Ctx) error {
		traceID := c.Get(reqctx.HeaderTraceID)
		if traceID == "" {
			traceID = reqctx.GenerateID()
		}
		rc := reqctx.New(traceID)
		rc.CorrelationID = c.Get(reqctx.HeaderCorrelationID)
		rc.ClientIP = c.IP()
		rc.UserAgent = c.Get("User-Agent")

		ctx := reqctx.WithRequest(c.Context(), rc)
		ctx, rootSpan := reqctx.StartRootSpan(ctx, logger, rc, c.Method()+" "+c.Path())
		c.SetContext(ctx)
		c.Locals(localRequestContext, rc)
		c.Locals(localRootSpan, rootSpan)

		c.Set(reqctx.HeaderTraceID, rc.TraceID)
		c.Set(reqctx.HeaderSpanID, rc.SpanID)
		if rc.CorrelationID != "" {
			c.Set(reqctx.HeaderCorrelationID, rc.CorrelationID)
		}

		// Identity resolves before any handler runs. Invalid credentials
		// degrade to anonymous; the request is never rejected here.
		if cfg.Resolver != nil {
			id := cfg.Resolver.Resolve(ctx, c.Get("Authorization"), c.Get(HeaderAPIKey))
			id.Apply(rc)
		}

		reqLogger := logs.ForRequest(logger, rc)
		reqLogger.Info("request received",
			"method", c.Method(),
			"path", c.Path(),
			"ip", rc.ClientIP,
			"user_agent", rc.UserAgent,
			"actor", rc.ActorID(),
			"user_type", string(rc.UserType),
		)

		body := sanitizedBody(c)
		if body != nil {
			reqLogger.Debug("request body",
				"content_type", c.Get("Content-Type"),
				"body", body,
			)
		}

		err := c.Next()

		elapsed := rc.Elapsed()
		c.Set(HeaderResponseTime, strconv.FormatInt(elapsed.Milliseconds(), 10)+"ms")

		if err != nil {
			_ = respondError(c, reqLogger, err, cfg.Production)
		} else {
			logCompletion(c, reqLogger, rc, body, elapsed)
		}

		if elapsed > slow {
			reqLogger.Warn("slow request",
				"method", c.Method(),
				"path", c.Path(),
				"duration_ms", elapsed.Milliseconds(),
				"threshold_ms", slow.Milliseconds(),
			)
		}

		status := c.Response().StatusCode()
		if cfg.Audit != nil && audit.Auditable(c.Method(), c.Path(), status) {
			var changes map[string]any
			if rc.UserType.Privileged() {
				changes, _ = body.(map[string]any)
			}
			cfg.Audit.Submit(audit.BuildRecord(rc, c.Method(), c.Path(), status, elapsed, changes))
		}

		rootSpan.End(map[string]any{"status_code": status})
		return nil
	}
}

// sanitizedBody parses a JSON request body and strips sensitive values.
// Non-JSON and empty bodies yield nil.
func sanitizedBody(c fiber.Ctx) any {
	raw := c.Body()
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return redact.Sanitize(v)
}

func logCompletion(c fiber.Ctx, logger *slog.Logger, rc *reqctx.RequestContext, body any, elapsed time.Duration) {
	status := c.Response().StatusCode()
	args := []any{
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration_ms", elapsed.Milliseconds(),
		"actor", rc.ActorID(),
	}

	if status < fiber.StatusBadRequest {
		logger.Info("request completed", args...)
		return
	}

	// Failed responses carry sanitized request details for forensics.
	if body != nil {
		args = append(args, "body", body)
	}
	if q := c.Queries(); len(q) > 0 {
		args = append(args, "query", redact.Sanitize(q))
	}
	if names := c.Route().Params; len(names) > 0 {
		params := make(map[string]string, len(names))
		for _, n := range names {
			params[n] = c.Params(n)
		}
		args = append(args, "params", redact.Sanitize(params))
	}
	logger.Error("request failed", args...)
}
