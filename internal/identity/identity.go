// Package identity resolves caller identity from the two supported
// credential schemes: bearer PASETO tokens and API keys. Resolution never
// fails a request — any invalid or unverifiable credential degrades to
// anonymous and the request proceeds unauthenticated.
package identity

import "github.com/bazaarhq/bazaar_backend/pkg/reqctx"

// Identity is the resolved caller. Exactly one credential scheme wins per
// request; Authenticated implies a non-empty UserID.
type Identity struct {
	Authenticated bool
	UserID        string
	UserType      reqctx.UserType
	SessionID     string
	Permissions   []string

	// APIKeyID is set only when the API-key scheme won.
	APIKeyID string
}

// Anonymous is the identity of unauthenticated traffic.
func Anonymous() Identity {
	return Identity{UserType: reqctx.UserTypeAnonymous}
}

// ParseUserType maps a role claim to a UserType. Unknown roles degrade to
// plain USER rather than failing resolution.
func ParseUserType(role string) reqctx.UserType {
	switch reqctx.UserType(role) {
	case reqctx.UserTypeUser, reqctx.UserTypeSeller, reqctx.UserTypeAdmin,
		reqctx.UserTypeSuperAdmin, reqctx.UserTypeAPI:
		return reqctx.UserType(role)
	default:
		return reqctx.UserTypeUser
	}
}

// Apply copies the identity onto a RequestContext. This is the only place
// identity fields are written; downstream stages read, never re-derive.
func (id Identity) Apply(rc *reqctx.RequestContext) {
	rc.Authenticated = id.Authenticated
	rc.UserID = id.UserID
	rc.UserType = id.UserType
	rc.SessionID = id.SessionID
	rc.Permissions = id.Permissions
	rc.APIKeyID = id.APIKeyID
}
