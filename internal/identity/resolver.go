package identity

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bazaarhq/bazaar_backend/pkg/apikey"
	pasetotoken "github.com/bazaarhq/bazaar_backend/pkg/paseto"
	"github.com/bazaarhq/bazaar_backend/pkg/reqctx"
)

// TokenVerifier verifies a bearer token and returns its claims.
// *pasetotoken.Manager is the production implementation.
type TokenVerifier interface {
	Verify(token string) (*pasetotoken.Claims, error)
}

// Resolver resolves caller identity from request credentials.
type Resolver struct {
	tokens TokenVerifier
	keys   apikey.Lookup
	logger *slog.Logger
}

func NewResolver(tokens TokenVerifier, keys apikey.Lookup, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{tokens: tokens, keys: keys, logger: logger}
}

// Resolve inspects the authorization and x-api-key header values. The bearer
// scheme takes precedence: when a bearer token is present, the API key is
// not consulted even if verification fails. Every failure path returns
// Anonymous; nothing propagates.
func (r *Resolver) Resolve(ctx context.Context, authorization, apiKeyHeader string) Identity {
	if token, ok := bearerToken(authorization); ok {
		return r.resolveBearer(token)
	}
	if apiKeyHeader != "" {
		return r.resolveAPIKey(ctx, apiKeyHeader)
	}
	return Anonymous()
}

func (r *Resolver) resolveBearer(token string) Identity {
	claims, err := r.tokens.Verify(token)
	if err != nil {
		r.logger.Debug("bearer token rejected",
			"token_prefix", prefix(token),
			"error", err.Error(),
		)
		return Anonymous()
	}

	// Refresh tokens never authenticate a request
	if claims.Type != pasetotoken.TokenTypeAccess {
		r.logger.Debug("non-access token rejected", "token_type", string(claims.Type))
		return Anonymous()
	}

	id := Identity{
		Authenticated: true,
		UserID:        claims.UserID.String(),
		UserType:      ParseUserType(claims.Role),
		Permissions:   claims.Permissions,
	}
	if claims.SessionID != nil {
		id.SessionID = claims.SessionID.String()
	}
	return id
}

func (r *Resolver) resolveAPIKey(ctx context.Context, rawKey string) Identity {
	if r.keys == nil {
		return Anonymous()
	}

	key, err := r.keys.Lookup(ctx, rawKey)
	if err != nil {
		if err == apikey.ErrNotFound {
			r.logger.Debug("unknown api key", "key_prefix", prefix(rawKey))
		} else {
			r.logger.Warn("api key lookup failed",
				"key_prefix", prefix(rawKey),
				"error", err.Error(),
			)
		}
		return Anonymous()
	}
	if !key.IsActive {
		r.logger.Debug("inactive api key", "key_prefix", prefix(rawKey))
		return Anonymous()
	}

	userID := key.UserID
	if userID == "" {
		userID = "api:" + key.ID
	}
	return Identity{
		Authenticated: true,
		UserID:        userID,
		UserType:      reqctx.UserTypeAPI,
		Permissions:   key.Permissions,
		APIKeyID:      key.ID,
	}
}

func bearerToken(authorization string) (string, bool) {
	if authorization == "" {
		return "", false
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// prefix truncates a credential for forensic logging, max 8 chars.
func prefix(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
