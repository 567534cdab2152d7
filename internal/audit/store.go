package audit

import "context"

// Store persists audit records, one create operation per variant.
// Implementations must be safe for concurrent use.
type Store interface {
	CreateAdminAction(ctx context.Context, rec *AdminAction) error
	CreateUserActivity(ctx context.Context, rec *UserActivity) error
	CreateSystemTraffic(ctx context.Context, rec *SystemTraffic) error
}

// Sink accepts completed records from the pipeline. Submit must never block
// the caller and must never return an error to it.
type Sink interface {
	Submit(rec Record)
}
