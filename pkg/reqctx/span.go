package reqctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

// Trace and correlation headers (request/response contract).
const (
	HeaderTraceID       = "x-trace-id"
	HeaderSpanID        = "x-span-id"
	HeaderCorrelationID = "x-correlation-id"
)

// SpanStatus is the lifecycle state of a span.
type SpanStatus string

const (
	SpanOpen    SpanStatus = "open"
	SpanSuccess SpanStatus = "success"
	SpanError   SpanStatus = "error"
)

// Span is a single logical unit of work within a trace. It is owned by the
// code that opened it and ended exactly once; ending twice is a no-op.
type Span struct {
	Name         string
	TraceID      string
	SpanID       string
	ParentSpanID string
	StartTime    time.Time

	logger *slog.Logger

	mu      sync.Mutex
	attrs   map[string]any
	endTime time.Time
	status  SpanStatus
	ended   bool
}

// GenerateID creates a random 16-character lowercase hex identifier,
// used for both trace ids and span ids.
func GenerateID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func newSpan(name, traceID, parentID string, logger *slog.Logger, attrs map[string]any) *Span {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Span{
		Name:         name,
		TraceID:      traceID,
		SpanID:       GenerateID(),
		ParentSpanID: parentID,
		StartTime:    time.Now(),
		logger:       logger,
		attrs:        make(map[string]any, len(attrs)),
		status:       SpanOpen,
	}
	for k, v := range attrs {
		s.attrs[k] = v
	}
	return s
}

// WithSpan stores the span as the ambient current span.
func WithSpan(ctx context.Context, s *Span) context.Context {
	return context.WithValue(ctx, keySpan, s)
}

// CurrentSpan returns the ambient current span, if any.
func CurrentSpan(ctx context.Context) (*Span, bool) {
	v := ctx.Value(keySpan)
	if v == nil {
		return nil, false
	}
	s, ok := v.(*Span)
	return s, ok
}

// StartRootSpan opens the root span for a request and makes it ambient.
// The root span reuses the RequestContext trace id and publishes its span id
// back onto the RequestContext.
func StartRootSpan(ctx context.Context, logger *slog.Logger, rc *RequestContext, name string) (context.Context, *Span) {
	s := newSpan(name, rc.TraceID, "", logger, nil)
	rc.SpanID = s.SpanID
	return WithSpan(ctx, s), s
}

// StartSpan opens a child of the ambient current span and makes the child
// ambient in the returned context. The parent stays ambient in the original
// context, so sibling spans started from the same parent context never see
// each other. With no ambient span, a new root trace is started.
func StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, *Span) {
	parent, ok := CurrentSpan(ctx)
	if !ok || parent == nil {
		s := newSpan(name, GenerateID(), "", nil, attrs)
		return WithSpan(ctx, s), s
	}
	s := newSpan(name, parent.TraceID, parent.SpanID, parent.logger, attrs)
	return WithSpan(ctx, s), s
}

// SetAttribute adds metadata to the span. Safe after End (it just won't be
// in the end log).
func (s *Span) SetAttribute(key string, value any) {
	s.mu.Lock()
	s.attrs[key] = value
	s.mu.Unlock()
}

// SetError marks the span as failed and records the error message.
func (s *Span) SetError(err error) {
	s.mu.Lock()
	s.status = SpanError
	if err != nil {
		s.attrs["error"] = err.Error()
	}
	s.mu.Unlock()
}

// Status returns the current lifecycle state.
func (s *Span) Status() SpanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Duration returns end minus start for ended spans, time since start for
// open ones.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return s.endTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// End records the end time, merges final attributes, and emits the
// "span ended" log with the elapsed duration. A span that was not marked
// failed ends as success. Calling End again is a no-op.
func (s *Span) End(attrs map[string]any) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.endTime = time.Now()
	if s.status == SpanOpen {
		s.status = SpanSuccess
	}
	for k, v := range attrs {
		s.attrs[k] = v
	}

	logArgs := []any{
		"span", s.Name,
		"trace_id", s.TraceID,
		"span_id", s.SpanID,
		"status", string(s.status),
		"duration_ms", s.endTime.Sub(s.StartTime).Milliseconds(),
	}
	if s.ParentSpanID != "" {
		logArgs = append(logArgs, "parent_span_id", s.ParentSpanID)
	}
	for k, v := range s.attrs {
		logArgs = append(logArgs, k, v)
	}
	logger := s.logger
	s.mu.Unlock()

	logger.Debug("span ended", logArgs...)
}

// TracingHeaders returns the headers an outbound call to another service
// should carry so remote work links back to this request: the trace id, the
// current span id (the remote side's parent), and the caller correlation id
// when one was supplied.
func TracingHeaders(ctx context.Context) map[string]string {
	h := make(map[string]string, 3)
	if rc, ok := RequestFromContext(ctx); ok && rc != nil {
		h[HeaderTraceID] = rc.TraceID
		if rc.CorrelationID != "" {
			h[HeaderCorrelationID] = rc.CorrelationID
		}
	}
	if s, ok := CurrentSpan(ctx); ok && s != nil {
		h[HeaderSpanID] = s.SpanID
		if _, set := h[HeaderTraceID]; !set {
			h[HeaderTraceID] = s.TraceID
		}
	}
	return h
}
