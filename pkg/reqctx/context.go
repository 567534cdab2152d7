package reqctx

import (
	"context"
	"sync"
	"time"
)

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey int

const (
	keyRequest ctxKey = iota
	keySpan
)

// UserType classifies the caller for audit routing and logging.
type UserType string

const (
	UserTypeAnonymous  UserType = "ANONYMOUS"
	UserTypeUser       UserType = "USER"
	UserTypeSeller     UserType = "SELLER"
	UserTypeAdmin      UserType = "ADMIN"
	UserTypeSuperAdmin UserType = "SUPER_ADMIN"
	UserTypeAPI        UserType = "API"
)

// Privileged reports whether the caller gets the heavyweight audit shape.
func (t UserType) Privileged() bool {
	return t == UserTypeAdmin || t == UserTypeSuperAdmin || t == UserTypeSeller
}

// RequestContext holds everything the pipeline knows about one inbound
// request. It is created once by middleware, owned by the request, and reads
// the same from every stage. TraceID is immutable after creation; identity
// fields are written exactly once by the identity stage before the handler
// runs; Attributes is append-only.
type RequestContext struct {
	TraceID       string
	SpanID        string // root span id
	ParentSpanID  string
	CorrelationID string

	// Start uses the monotonic clock carried by time.Time.
	Start time.Time

	Authenticated bool
	UserID        string
	UserType      UserType
	SessionID     string
	Permissions   []string
	APIKeyID      string // set only for API-key authentication

	ClientIP  string
	UserAgent string

	mu    sync.Mutex
	attrs map[string]any
}

// New creates a RequestContext for the given trace id with the clock started.
func New(traceID string) *RequestContext {
	return &RequestContext{
		TraceID:  traceID,
		Start:    time.Now(),
		UserType: UserTypeAnonymous,
		attrs:    make(map[string]any),
	}
}

// SetAttribute appends one key/value to the span metadata bag.
// Existing keys are overwritten; nothing is ever removed.
func (rc *RequestContext) SetAttribute(key string, value any) {
	rc.mu.Lock()
	rc.attrs[key] = value
	rc.mu.Unlock()
}

// Attributes returns a snapshot copy of the metadata bag.
func (rc *RequestContext) Attributes() map[string]any {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make(map[string]any, len(rc.attrs))
	for k, v := range rc.attrs {
		out[k] = v
	}
	return out
}

// Elapsed returns time since the request was received.
func (rc *RequestContext) Elapsed() time.Duration {
	return time.Since(rc.Start)
}

// ActorID returns the best identifier for the caller: user id, API key id,
// or "anonymous".
func (rc *RequestContext) ActorID() string {
	switch {
	case rc.UserID != "":
		return rc.UserID
	case rc.APIKeyID != "":
		return rc.APIKeyID
	default:
		return "anonymous"
	}
}

// WithRequest stores the RequestContext in the context.
func WithRequest(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, keyRequest, rc)
}

// RequestFromContext retrieves the RequestContext.
// Returns nil, false if not set.
func RequestFromContext(ctx context.Context) (*RequestContext, bool) {
	v := ctx.Value(keyRequest)
	if v == nil {
		return nil, false
	}
	rc, ok := v.(*RequestContext)
	return rc, ok
}

// MustRequest retrieves the RequestContext.
// Panics if not set. Use only where middleware guarantees it's present.
func MustRequest(ctx context.Context) *RequestContext {
	rc, ok := RequestFromContext(ctx)
	if !ok || rc == nil {
		panic("reqctx: RequestContext not found in context")
	}
	return rc
}

// TraceIDFromContext returns the trace id, or empty string if no
// RequestContext is set.
func TraceIDFromContext(ctx context.Context) string {
	rc, ok := RequestFromContext(ctx)
	if !ok || rc == nil {
		return ""
	}
	return rc.TraceID
}
