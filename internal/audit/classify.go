package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bazaarhq/bazaar_backend/pkg/reqctx"
)

// auditedPrefixes are the sensitive URL path prefixes that make any request
// auditable regardless of method.
var auditedPrefixes = []string{
	"/api/auth",
	"/api/payments",
	"/api/orders",
	"/api/admin",
	"/api/sellers/payouts",
	"/api/users/delete",
	"/api/settings",
}

// Auditable reports whether a completed request must produce an audit
// record: mutating method, sensitive path prefix, or a 401 response.
func Auditable(method, path string, statusCode int) bool {
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	for _, p := range auditedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return statusCode == 401
}

// BuildRecord shapes the record by caller role. Privileged actors (admin,
// super admin, seller) get the full action record including the sanitized
// request body as the change set; authenticated users and API callers get
// the lighter activity record; anonymous traffic gets the traffic record.
func BuildRecord(rc *reqctx.RequestContext, method, path string, statusCode int, elapsed time.Duration, changes map[string]any) Record {
	now := time.Now()

	switch {
	case rc.Authenticated && rc.UserType.Privileged():
		return Record{AdminAction: &AdminAction{
			ID:        uuid.NewString(),
			ActorID:   rc.UserID,
			ActorType: rc.UserType,
			Action:    method,
			Resource:  path,
			Changes:   changes,
			IP:        rc.ClientIP,
			UserAgent: rc.UserAgent,
			TraceID:   rc.TraceID,
			CreatedAt: now,
		}}

	case rc.Authenticated:
		return Record{UserActivity: &UserActivity{
			ID:        uuid.NewString(),
			UserID:    rc.UserID,
			Activity:  method + " " + path,
			IP:        rc.ClientIP,
			UserAgent: rc.UserAgent,
			TraceID:   rc.TraceID,
			CreatedAt: now,
		}}

	default:
		return Record{SystemTraffic: &SystemTraffic{
			ID:             uuid.NewString(),
			Method:         method,
			Path:           path,
			StatusCode:     statusCode,
			ResponseTimeMs: elapsed.Milliseconds(),
			IP:             rc.ClientIP,
			TraceID:        rc.TraceID,
			CreatedAt:      now,
		}}
	}
}
