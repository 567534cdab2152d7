package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/bazaarhq/bazaar_backend/pkg/apikey"
	pasetotoken "github.com/bazaarhq/bazaar_backend/pkg/paseto"
	"github.com/bazaarhq/bazaar_backend/pkg/reqctx"
)

type fakeVerifier struct {
	claims map[string]*pasetotoken.Claims
	err    error
}

func (f *fakeVerifier) Verify(token string) (*pasetotoken.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.claims[token]
	if !ok {
		return nil, pasetotoken.ErrInvalidToken{Err: errors.New("unknown token")}
	}
	return c, nil
}

type failingLookup struct{}

func (failingLookup) Lookup(context.Context, string) (*apikey.Key, error) {
	return nil, errors.New("redis down")
}

func accessClaims(userID uuid.UUID, role string, perms []string) *pasetotoken.Claims {
	sid := uuid.New()
	return &pasetotoken.Claims{
		Type:        pasetotoken.TokenTypeAccess,
		UserID:      userID,
		SessionID:   &sid,
		Role:        role,
		Permissions: perms,
	}
}

func TestResolve_BearerToken(t *testing.T) {
	userID := uuid.New()
	verifier := &fakeVerifier{claims: map[string]*pasetotoken.Claims{
		"good": accessClaims(userID, "ADMIN", []string{"admin:all"}),
	}}
	r := NewResolver(verifier, apikey.Static{}, nil)

	id := r.Resolve(context.Background(), "Bearer good", "")

	if !id.Authenticated {
		t.Fatal("valid bearer should authenticate")
	}
	if id.UserID != userID.String() {
		t.Errorf("UserID = %q", id.UserID)
	}
	if id.UserType != reqctx.UserTypeAdmin {
		t.Errorf("UserType = %q, want ADMIN", id.UserType)
	}
	if id.SessionID == "" {
		t.Error("SessionID should carry over from claims")
	}
	if len(id.Permissions) != 1 || id.Permissions[0] != "admin:all" {
		t.Errorf("Permissions = %v", id.Permissions)
	}
	if id.APIKeyID != "" {
		t.Error("APIKeyID must be empty for bearer auth")
	}
}

func TestResolve_InvalidBearerIsAnonymous(t *testing.T) {
	r := NewResolver(&fakeVerifier{claims: map[string]*pasetotoken.Claims{}}, apikey.Static{}, nil)

	id := r.Resolve(context.Background(), "Bearer expired-or-garbage", "")

	if id.Authenticated {
		t.Error("invalid bearer must resolve to anonymous, not an error")
	}
	if id.UserType != reqctx.UserTypeAnonymous {
		t.Errorf("UserType = %q, want ANONYMOUS", id.UserType)
	}
}

func TestResolve_BearerWinsOverAPIKey(t *testing.T) {
	userID := uuid.New()
	verifier := &fakeVerifier{claims: map[string]*pasetotoken.Claims{
		"good": accessClaims(userID, "USER", nil),
	}}
	keys := apikey.Static{"k1": {ID: "ak_1", UserID: "u-key", IsActive: true}}
	r := NewResolver(verifier, keys, nil)

	// Valid bearer + valid key: bearer wins.
	id := r.Resolve(context.Background(), "Bearer good", "k1")
	if id.UserID != userID.String() || id.APIKeyID != "" {
		t.Errorf("bearer should win: %+v", id)
	}

	// Invalid bearer + valid key: still anonymous — precedence, not fallback.
	id = r.Resolve(context.Background(), "Bearer bad", "k1")
	if id.Authenticated {
		t.Errorf("invalid bearer must not fall back to api key: %+v", id)
	}
}

func TestResolve_APIKey(t *testing.T) {
	keys := apikey.Static{
		"live": {ID: "ak_live", UserID: "u-42", Permissions: []string{"orders:read"}, IsActive: true},
		"dead": {ID: "ak_dead", UserID: "u-43", IsActive: false},
	}
	r := NewResolver(&fakeVerifier{}, keys, nil)

	id := r.Resolve(context.Background(), "", "live")
	if !id.Authenticated || id.UserType != reqctx.UserTypeAPI {
		t.Fatalf("active key should authenticate as API: %+v", id)
	}
	if id.APIKeyID != "ak_live" || id.UserID != "u-42" {
		t.Errorf("key identity wrong: %+v", id)
	}

	if id := r.Resolve(context.Background(), "", "dead"); id.Authenticated {
		t.Error("inactive key must resolve to anonymous")
	}
	if id := r.Resolve(context.Background(), "", "unknown"); id.Authenticated {
		t.Error("unknown key must resolve to anonymous")
	}
}

func TestResolve_LookupFailureIsAnonymous(t *testing.T) {
	r := NewResolver(&fakeVerifier{}, failingLookup{}, nil)

	id := r.Resolve(context.Background(), "", "whatever")
	if id.Authenticated {
		t.Error("lookup errors must degrade to anonymous, never propagate")
	}
}

func TestResolve_NoCredentials(t *testing.T) {
	r := NewResolver(&fakeVerifier{}, apikey.Static{}, nil)

	id := r.Resolve(context.Background(), "", "")
	if id.Authenticated || id.UserType != reqctx.UserTypeAnonymous {
		t.Errorf("no credentials should be anonymous: %+v", id)
	}
}

func TestResolve_MalformedAuthorizationHeader(t *testing.T) {
	for _, h := range []string{"Basic dXNlcg==", "Bearer", "Bearer ", "garbage"} {
		r := NewResolver(&fakeVerifier{}, apikey.Static{}, nil)
		if id := r.Resolve(context.Background(), h, ""); id.Authenticated {
			t.Errorf("header %q should not authenticate", h)
		}
	}
}

func TestResolve_RefreshTokenRejected(t *testing.T) {
	c := accessClaims(uuid.New(), "USER", nil)
	c.Type = pasetotoken.TokenTypeRefresh
	r := NewResolver(&fakeVerifier{claims: map[string]*pasetotoken.Claims{"r": c}}, apikey.Static{}, nil)

	if id := r.Resolve(context.Background(), "Bearer r", ""); id.Authenticated {
		t.Error("refresh tokens must not authenticate requests")
	}
}

func TestApply(t *testing.T) {
	rc := reqctx.New(reqctx.GenerateID())
	id := Identity{
		Authenticated: true,
		UserID:        "u1",
		UserType:      reqctx.UserTypeSeller,
		SessionID:     "s1",
		Permissions:   []string{"p1"},
	}
	id.Apply(rc)

	if !rc.Authenticated || rc.UserID != "u1" || rc.UserType != reqctx.UserTypeSeller {
		t.Errorf("Apply did not copy identity: %+v", rc)
	}
}
