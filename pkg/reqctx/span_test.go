package reqctx

import (
	"context"
	"testing"
)

func TestGenerateID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if len(id) != 16 {
			t.Fatalf("GenerateID length = %d, want 16", len(id))
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("GenerateID produced duplicate %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestStartRootSpan(t *testing.T) {
	rc := New("abc123abc123abc1")
	ctx, root := StartRootSpan(context.Background(), nil, rc, "GET /api/products")

	if root.TraceID != rc.TraceID {
		t.Errorf("root span trace id = %q, want %q", root.TraceID, rc.TraceID)
	}
	if root.ParentSpanID != "" {
		t.Errorf("root span should have no parent, got %q", root.ParentSpanID)
	}
	if rc.SpanID != root.SpanID {
		t.Errorf("RequestContext.SpanID = %q, want root span id %q", rc.SpanID, root.SpanID)
	}

	ambient, ok := CurrentSpan(ctx)
	if !ok || ambient != root {
		t.Error("root span should be ambient in the returned context")
	}
}

func TestStartSpan_ChildLinkage(t *testing.T) {
	rc := New(GenerateID())
	ctx, root := StartRootSpan(context.Background(), nil, rc, "root")

	childCtx, child := StartSpan(ctx, "db.query", map[string]any{"table": "orders"})

	if child.ParentSpanID != root.SpanID {
		t.Errorf("child.ParentSpanID = %q, want %q", child.ParentSpanID, root.SpanID)
	}
	if child.TraceID != root.TraceID {
		t.Errorf("child.TraceID = %q, want %q", child.TraceID, root.TraceID)
	}

	// Child is ambient only in its own context; the parent context still
	// sees the root span.
	if s, _ := CurrentSpan(childCtx); s != child {
		t.Error("child should be ambient in child context")
	}
	if s, _ := CurrentSpan(ctx); s != root {
		t.Error("root should remain ambient in the parent context")
	}
}

func TestStartSpan_SiblingIsolation(t *testing.T) {
	rc := New(GenerateID())
	ctx, root := StartRootSpan(context.Background(), nil, rc, "root")

	ctxA, a := StartSpan(ctx, "sibling-a", nil)
	a.End(nil)
	ctxB, b := StartSpan(ctx, "sibling-b", nil)
	b.End(nil)

	if a.ParentSpanID != root.SpanID || b.ParentSpanID != root.SpanID {
		t.Errorf("both siblings must report the root as parent: a=%q b=%q root=%q",
			a.ParentSpanID, b.ParentSpanID, root.SpanID)
	}
	if sa, _ := CurrentSpan(ctxA); sa != a {
		t.Error("sibling A's context should hold A")
	}
	if sb, _ := CurrentSpan(ctxB); sb != b {
		t.Error("sibling B's context should hold B")
	}
	if a.SpanID == b.SpanID {
		t.Error("sibling spans must have distinct ids")
	}
}

func TestStartSpan_NoAmbientStartsRoot(t *testing.T) {
	_, s := StartSpan(context.Background(), "orphan", nil)
	if s.ParentSpanID != "" {
		t.Errorf("span without ambient parent should be a root, got parent %q", s.ParentSpanID)
	}
	if len(s.TraceID) != 16 {
		t.Errorf("fresh trace id should be 16 chars, got %q", s.TraceID)
	}
}

func TestSpanEnd(t *testing.T) {
	rc := New(GenerateID())
	_, root := StartRootSpan(context.Background(), nil, rc, "root")

	if root.Status() != SpanOpen {
		t.Errorf("new span status = %v, want open", root.Status())
	}

	root.End(map[string]any{"status_code": 200})

	if root.Status() != SpanSuccess {
		t.Errorf("ended span status = %v, want success", root.Status())
	}
	if root.Duration() < 0 {
		t.Errorf("span duration must be >= 0, got %v", root.Duration())
	}

	// End is idempotent.
	first := root.Duration()
	root.End(nil)
	if root.Status() != SpanSuccess {
		t.Error("second End must not change status")
	}
	if root.Duration() != first {
		t.Error("second End must not move the end time")
	}
}

func TestSpanSetError(t *testing.T) {
	rc := New(GenerateID())
	_, root := StartRootSpan(context.Background(), nil, rc, "root")

	root.SetError(context.DeadlineExceeded)
	root.End(nil)

	if root.Status() != SpanError {
		t.Errorf("status = %v, want error", root.Status())
	}
}

func TestTracingHeaders(t *testing.T) {
	rc := New("feedfacefeedface")
	rc.CorrelationID = "corr-7"
	ctx := WithRequest(context.Background(), rc)
	ctx, root := StartRootSpan(ctx, nil, rc, "root")
	ctx, child := StartSpan(ctx, "outbound", nil)

	h := TracingHeaders(ctx)

	if h[HeaderTraceID] != "feedfacefeedface" {
		t.Errorf("trace header = %q", h[HeaderTraceID])
	}
	if h[HeaderSpanID] != child.SpanID {
		t.Errorf("span header = %q, want current span %q", h[HeaderSpanID], child.SpanID)
	}
	if h[HeaderCorrelationID] != "corr-7" {
		t.Errorf("correlation header = %q", h[HeaderCorrelationID])
	}
	_ = root
}

func TestTracingHeaders_Empty(t *testing.T) {
	h := TracingHeaders(context.Background())
	if len(h) != 0 {
		t.Errorf("headers without any context should be empty, got %v", h)
	}
}
