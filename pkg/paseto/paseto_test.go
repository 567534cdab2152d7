package pasetotoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := New(Config{
		Mode:      ModeLocal,
		Issuer:    "bazaar",
		Audience:  "bazaar-api",
		AccessTTL: 5 * time.Minute,
	}, NewLocalKeys())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return m
}

func TestIssueAndVerifyAccess(t *testing.T) {
	m := newTestManager(t)

	userID := uuid.New()
	sessionID := uuid.New()
	perms := []string{"orders:write", "products:read"}

	tok, err := m.IssueAccess(userID, &sessionID, "SELLER", perms)
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if claims.Type != TokenTypeAccess {
		t.Errorf("Type = %v, want access", claims.Type)
	}
	if claims.UserID != userID {
		t.Errorf("UserID = %v, want %v", claims.UserID, userID)
	}
	if claims.SessionID == nil || *claims.SessionID != sessionID {
		t.Errorf("SessionID = %v, want %v", claims.SessionID, sessionID)
	}
	if claims.Role != "SELLER" {
		t.Errorf("Role = %q, want SELLER", claims.Role)
	}
	if len(claims.Permissions) != 2 || claims.Permissions[0] != "orders:write" {
		t.Errorf("Permissions = %v", claims.Permissions)
	}
	if claims.IsExpired() {
		t.Error("fresh token should not be expired")
	}
}

func TestVerify_WrongKeyRejected(t *testing.T) {
	issuer := newTestManager(t)
	verifier := newTestManager(t) // different random key

	tok, err := issuer.IssueAccess(uuid.New(), nil, "USER", nil)
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	if _, err := verifier.Verify(tok); err == nil {
		t.Error("Verify with a different key should fail")
	}
}

func TestVerify_Garbage(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Verify("v4.local.not-a-token"); err == nil {
		t.Error("Verify of garbage should fail")
	}
}

func TestNew_ConfigValidation(t *testing.T) {
	keys := NewLocalKeys()

	if _, err := New(Config{Mode: ModePublic, Issuer: "i", Audience: "a"}, keys); err == nil {
		t.Error("mode mismatch should be rejected")
	}
	if _, err := New(Config{Mode: ModeLocal, Audience: "a"}, keys); err == nil {
		t.Error("missing issuer should be rejected")
	}
	if _, err := New(Config{Mode: ModeLocal, Issuer: "i"}, keys); err == nil {
		t.Error("missing audience should be rejected")
	}
}
