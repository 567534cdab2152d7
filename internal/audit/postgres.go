package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Schema creates the audit tables. Applied by `bazaar system migrate`.
const Schema = `
CREATE TABLE IF NOT EXISTS admin_audit_logs (
	id           UUID PRIMARY KEY,
	actor_id     TEXT NOT NULL,
	actor_type   TEXT NOT NULL,
	action       TEXT NOT NULL,
	resource     TEXT NOT NULL,
	changes      JSONB,
	ip           TEXT NOT NULL DEFAULT '',
	user_agent   TEXT NOT NULL DEFAULT '',
	trace_id     TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS admin_audit_logs_actor_idx ON admin_audit_logs (actor_id, created_at);

CREATE TABLE IF NOT EXISTS user_activity_logs (
	id           UUID PRIMARY KEY,
	user_id      TEXT NOT NULL,
	activity     TEXT NOT NULL,
	ip           TEXT NOT NULL DEFAULT '',
	user_agent   TEXT NOT NULL DEFAULT '',
	trace_id     TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS user_activity_logs_user_idx ON user_activity_logs (user_id, created_at);

CREATE TABLE IF NOT EXISTS system_traffic_logs (
	id               UUID PRIMARY KEY,
	method           TEXT NOT NULL,
	path             TEXT NOT NULL,
	status_code      INT NOT NULL,
	response_time_ms BIGINT NOT NULL,
	ip               TEXT NOT NULL DEFAULT '',
	trace_id         TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresStore persists audit records into Postgres.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the audit schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("audit: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAdminAction(ctx context.Context, rec *AdminAction) error {
	var changes []byte
	if rec.Changes != nil {
		var err error
		if changes, err = json.Marshal(rec.Changes); err != nil {
			return fmt.Errorf("audit: encode changes: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_audit_logs (id, actor_id, actor_type, action, resource, changes, ip, user_agent, trace_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.ActorID, string(rec.ActorType), rec.Action, rec.Resource,
		nullableJSON(changes), rec.IP, rec.UserAgent, rec.TraceID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert admin action: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateUserActivity(ctx context.Context, rec *UserActivity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_activity_logs (id, user_id, activity, ip, user_agent, trace_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.UserID, rec.Activity, rec.IP, rec.UserAgent, rec.TraceID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert user activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateSystemTraffic(ctx context.Context, rec *SystemTraffic) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_traffic_logs (id, method, path, status_code, response_time_ms, ip, trace_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Method, rec.Path, rec.StatusCode, rec.ResponseTimeMs, rec.IP, rec.TraceID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert system traffic: %w", err)
	}
	return nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
