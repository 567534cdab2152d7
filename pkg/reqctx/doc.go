// Package reqctx provides centralized request context management.
//
// This package is the single source of truth for all request-scoped data:
// caller identity, trace/span linkage, correlation ids, and free-form span
// attributes. HTTP middleware builds a *RequestContext once per inbound
// request and stores it in the context.Context that flows through handlers;
// nothing downstream re-derives identity or trace state on its own.
//
// # Ambient propagation
//
// "What span am I in" is answered through context.Context values rather than
// explicit span parameters on every function. Each child span lives in a new
// derived context, so concurrently in-flight requests (and sibling spans
// within one request) can never observe each other's ambient span — the
// isolation unit is the context chain, not a process-wide slot.
//
// Setting values (typically in middleware):
//
//	rc := reqctx.New(traceID)
//	ctx = reqctx.WithRequest(ctx, rc)
//	ctx, span := reqctx.StartRootSpan(ctx, logger, rc, "POST /api/orders")
//
// Reading values (in handlers, instrumentation, outbound clients):
//
//	rc, ok := reqctx.RequestFromContext(ctx)
//	ctx, span := reqctx.StartSpan(ctx, "db.query", nil)
//	defer span.End(nil)
//	headers := reqctx.TracingHeaders(ctx)
//
// # Contracts
//
//   - RequestContext is always set by HTTP middleware before any handler runs
//   - TraceID never changes for the lifetime of a request
//   - A child span's ParentSpanID equals the span id of the context it was
//     started from
//   - Span.End is idempotent; spans left open on request timeout are simply
//     orphaned
package reqctx
