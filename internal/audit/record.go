// Package audit classifies completed requests and persists role-shaped audit
// records. Persistence is best-effort by contract: a failing or slow audit
// store must never fail, delay, or otherwise surface in the primary request.
// Failures are made visible through Prometheus counters instead.
package audit

import (
	"time"

	"github.com/bazaarhq/bazaar_backend/pkg/reqctx"
)

// Kind names the audit record variant.
type Kind string

const (
	KindAdminAction   Kind = "admin_action"
	KindUserActivity  Kind = "user_activity"
	KindSystemTraffic Kind = "system_traffic"
)

// AdminAction records a privileged (admin/seller) mutation with full detail.
type AdminAction struct {
	ID        string
	ActorID   string
	ActorType reqctx.UserType
	Action    string
	Resource  string
	Changes   map[string]any // sanitized request body, if any
	IP        string
	UserAgent string
	TraceID   string
	CreatedAt time.Time
}

// UserActivity is the lighter record for end-user and API-key actions.
type UserActivity struct {
	ID        string
	UserID    string
	Activity  string
	IP        string
	UserAgent string
	TraceID   string
	CreatedAt time.Time
}

// SystemTraffic records anonymous or system traffic that still matched an
// audit rule.
type SystemTraffic struct {
	ID             string
	Method         string
	Path           string
	StatusCode     int
	ResponseTimeMs int64
	IP             string
	TraceID        string
	CreatedAt      time.Time
}

// Record is a tagged union: exactly one variant is non-nil. Records are
// immutable once built.
type Record struct {
	AdminAction   *AdminAction
	UserActivity  *UserActivity
	SystemTraffic *SystemTraffic
}

func (r Record) Kind() Kind {
	switch {
	case r.AdminAction != nil:
		return KindAdminAction
	case r.UserActivity != nil:
		return KindUserActivity
	default:
		return KindSystemTraffic
	}
}

// TraceID returns the trace id of whichever variant is set.
func (r Record) TraceID() string {
	switch {
	case r.AdminAction != nil:
		return r.AdminAction.TraceID
	case r.UserActivity != nil:
		return r.UserActivity.TraceID
	case r.SystemTraffic != nil:
		return r.SystemTraffic.TraceID
	}
	return ""
}
