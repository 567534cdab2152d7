package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/bazaarhq/bazaar_backend/internal/audit"
	"github.com/bazaarhq/bazaar_backend/internal/identity"
	pasetotoken "github.com/bazaarhq/bazaar_backend/pkg/paseto"
	"github.com/bazaarhq/bazaar_backend/pkg/reqctx"
)

// captureSink records submitted audit records for assertions.
type captureSink struct {
	mu   sync.Mutex
	recs []audit.Record
}

func (s *captureSink) Submit(rec audit.Record) {
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
}

func (s *captureSink) records() []audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Record, len(s.recs))
	copy(out, s.recs)
	return out
}

// staticVerifier maps raw tokens to claims.
type staticVerifier map[string]*pasetotoken.Claims

func (v staticVerifier) Verify(token string) (*pasetotoken.Claims, error) {
	c, ok := v[token]
	if !ok {
		return nil, pasetotoken.ErrInvalidToken{Err: errors.New("unknown token")}
	}
	return c, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func adminClaims(userID string) *pasetotoken.Claims {
	return &pasetotoken.Claims{
		Type:   pasetotoken.TokenTypeAccess,
		UserID: uuid.MustParse(userID),
		Role:   string(reqctx.UserTypeAdmin),
	}
}

type testEnv struct {
	app  *fiber.App
	sink *captureSink
}

func newTestEnv(tokens staticVerifier, production bool) *testEnv {
	logger := quietLogger()
	sink := &captureSink{}

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(logger, production),
	})
	app.Use(Pipeline(PipelineConfig{
		Logger:     logger,
		Resolver:   identity.NewResolver(tokens, nil, logger),
		Audit:      sink,
		Production: production,
	}))

	return &testEnv{app: app, sink: sink}
}

type envelopeBody struct {
	Error struct {
		ID         string `json:"id"`
		Message    string `json:"message"`
		Code       string `json:"code"`
		StatusCode int    `json:"statusCode"`
		Timestamp  string `json:"timestamp"`
	} `json:"error"`
}

func TestPipeline_GeneratesTraceAndHeaders(t *testing.T) {
	env := newTestEnv(nil, false)
	env.app.Get("/api/products", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": []string{}})
	})

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/products", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	traceID := resp.Header.Get(reqctx.HeaderTraceID)
	if len(traceID) != 16 {
		t.Errorf("trace id = %q, want 16 hex chars", traceID)
	}
	if spanID := resp.Header.Get(reqctx.HeaderSpanID); len(spanID) != 16 {
		t.Errorf("span id = %q, want 16 hex chars", spanID)
	}
	rt := resp.Header.Get(HeaderResponseTime)
	if !strings.HasSuffix(rt, "ms") {
		t.Errorf("response time = %q, want ms suffix", rt)
	}

	// Plain GET off the audited prefixes produces no record.
	if got := env.sink.records(); len(got) != 0 {
		t.Errorf("audit records = %d, want 0", len(got))
	}
}

func TestPipeline_EchoesCallerTraceID(t *testing.T) {
	env := newTestEnv(nil, false)
	env.app.Get("/api/products", func(c fiber.Ctx) error {
		rc := reqctx.MustRequest(c.Context())
		if rc.TraceID != "abc123" {
			t.Errorf("handler saw trace id %q", rc.TraceID)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/products", nil)
	req.Header.Set(reqctx.HeaderTraceID, "abc123")
	req.Header.Set(reqctx.HeaderCorrelationID, "corr-9")

	resp, err := env.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get(reqctx.HeaderTraceID); got != "abc123" {
		t.Errorf("trace id = %q, want abc123", got)
	}
	if got := resp.Header.Get(reqctx.HeaderCorrelationID); got != "corr-9" {
		t.Errorf("correlation id = %q, want corr-9", got)
	}
}

func TestPipeline_ErrorEnvelope(t *testing.T) {
	env := newTestEnv(staticVerifier{
		"admin-token": adminClaims("6f1e0a52-1f3b-4e2a-9c5d-0b7a9b6a1e22"),
	}, false)
	env.app.Post("/api/orders", func(c fiber.Ctx) error {
		return errors.New("db connection lost")
	})

	req := httptest.NewRequest("POST", "/api/orders", strings.NewReader(`{"sku":"x1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer admin-token")

	resp, err := env.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	var body envelopeBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if body.Error.ID == "" {
		t.Error("envelope id is empty")
	}
	if body.Error.Message != "db connection lost" {
		t.Errorf("message = %q, want raw message outside production", body.Error.Message)
	}
	if body.Error.StatusCode != 500 {
		t.Errorf("statusCode = %d, want 500", body.Error.StatusCode)
	}
	if _, err := time.Parse(time.RFC3339, body.Error.Timestamp); err != nil {
		t.Errorf("timestamp %q not RFC3339: %v", body.Error.Timestamp, err)
	}

	// The throwing request is still audited, shaped for the admin actor.
	recs := env.sink.records()
	if len(recs) != 1 {
		t.Fatalf("audit records = %d, want 1", len(recs))
	}
	if recs[0].Kind() != audit.KindAdminAction {
		t.Fatalf("kind = %v, want admin_action", recs[0].Kind())
	}
	a := recs[0].AdminAction
	if a.ActorID != "6f1e0a52-1f3b-4e2a-9c5d-0b7a9b6a1e22" || a.ActorType != reqctx.UserTypeAdmin {
		t.Errorf("actor = %s/%s", a.ActorID, a.ActorType)
	}
	if a.Resource != "/api/orders" || a.Action != "POST" {
		t.Errorf("action = %s %s", a.Action, a.Resource)
	}
}

func TestPipeline_ProductionMasksServerErrors(t *testing.T) {
	env := newTestEnv(nil, true)
	env.app.Get("/boom", func(c fiber.Ctx) error {
		return errors.New("secret internal detail")
	})

	resp, err := env.app.Test(httptest.NewRequest("GET", "/boom", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(raw), "secret internal detail") {
		t.Errorf("production envelope leaked the raw message: %s", raw)
	}
	var body envelopeBody
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if body.Error.Message != "Internal Server Error" {
		t.Errorf("message = %q, want generic", body.Error.Message)
	}
}

type codedError struct{ msg, code string }

func (e codedError) Error() string     { return e.msg }
func (e codedError) ErrorCode() string { return e.code }

func TestPipeline_ErrorCodePassthrough(t *testing.T) {
	env := newTestEnv(nil, false)
	env.app.Get("/coded", func(c fiber.Ctx) error {
		return codedError{msg: "out of stock", code: "OUT_OF_STOCK"}
	})

	resp, err := env.app.Test(httptest.NewRequest("GET", "/coded", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	var body envelopeBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if body.Error.Code != "OUT_OF_STOCK" {
		t.Errorf("code = %q, want OUT_OF_STOCK", body.Error.Code)
	}
}

func TestPipeline_InvalidBearerStillReachesHandler(t *testing.T) {
	env := newTestEnv(staticVerifier{}, false)

	reached := false
	env.app.Get("/api/products", func(c fiber.Ctx) error {
		reached = true
		rc := reqctx.MustRequest(c.Context())
		if rc.Authenticated {
			t.Error("invalid bearer must resolve to anonymous")
		}
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/products", nil)
	req.Header.Set("Authorization", "Bearer bogus")

	resp, err := env.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	if !reached {
		t.Error("handler never ran")
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPipeline_AuditsUnauthorizedResponses(t *testing.T) {
	env := newTestEnv(nil, false)
	env.app.Get("/api/products", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusUnauthorized)
	})

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/products", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	resp.Body.Close()

	recs := env.sink.records()
	if len(recs) != 1 {
		t.Fatalf("audit records = %d, want 1", len(recs))
	}
	if recs[0].Kind() != audit.KindSystemTraffic {
		t.Errorf("kind = %v, want system_traffic", recs[0].Kind())
	}
	if recs[0].SystemTraffic.StatusCode != 401 {
		t.Errorf("status = %d, want 401", recs[0].SystemTraffic.StatusCode)
	}
}

func TestPipeline_PrivilegedChangesAreRedacted(t *testing.T) {
	env := newTestEnv(staticVerifier{
		"admin-token": adminClaims("6f1e0a52-1f3b-4e2a-9c5d-0b7a9b6a1e22"),
	}, false)
	env.app.Post("/api/admin/products", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	req := httptest.NewRequest("POST", "/api/admin/products",
		strings.NewReader(`{"name":"rug","password":"hunter2"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer admin-token")

	resp, err := env.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	resp.Body.Close()

	recs := env.sink.records()
	if len(recs) != 1 {
		t.Fatalf("audit records = %d, want 1", len(recs))
	}
	changes := recs[0].AdminAction.Changes
	if changes["name"] != "rug" {
		t.Errorf("changes[name] = %v", changes["name"])
	}
	if changes["password"] != "[REDACTED]" {
		t.Errorf("changes[password] = %v, want redaction marker", changes["password"])
	}
}

func TestPipeline_HandlerChildSpans(t *testing.T) {
	env := newTestEnv(nil, false)
	env.app.Get("/api/products", func(c fiber.Ctx) error {
		root, ok := reqctx.CurrentSpan(c.Context())
		if !ok {
			t.Fatal("no ambient root span in handler")
		}

		_, first := reqctx.StartSpan(c.Context(), "load inventory", nil)
		first.End(nil)
		_, second := reqctx.StartSpan(c.Context(), "load pricing", nil)
		second.End(nil)

		// Siblings share the root as parent and never chain to each other.
		if first.ParentSpanID != root.SpanID || second.ParentSpanID != root.SpanID {
			t.Errorf("parents = %s/%s, want %s", first.ParentSpanID, second.ParentSpanID, root.SpanID)
		}
		if first.SpanID == second.SpanID {
			t.Error("sibling spans share an id")
		}
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/products", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	resp.Body.Close()
}
