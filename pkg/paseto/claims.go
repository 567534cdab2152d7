package pasetotoken

import (
	"time"

	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the app-facing token payload. Role and Permissions ride as
// custom claims so the pipeline can shape audit records and downstream
// authorization without another lookup.
type Claims struct {
	Type TokenType

	UserID    uuid.UUID
	SessionID *uuid.UUID

	// Role is the caller role, e.g. "USER", "SELLER", "ADMIN", "SUPER_ADMIN".
	Role string

	// Permissions are the granted permission names for this token.
	Permissions []string

	Issuer   string
	Audience string

	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
	TokenID   string // jti
	Subject   string
}

func (c *Claims) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}
