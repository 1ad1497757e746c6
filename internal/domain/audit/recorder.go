// Package audit persists API access events written by the audit middleware.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthgateway/gateway/internal/platform/db"
	"github.com/healthgateway/gateway/internal/platform/middleware"
)

const insertEvent = `
	INSERT INTO audit_event (id, request_id, hdid, application, method, path, status, remote_ip, created_at)
	VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, NULLIF($8, ''), $9)`

// Recorder implements middleware.AuditRecorder over the audit_event table.
type Recorder struct {
	q db.Queryable
}

func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{q: pool}
}

func (r *Recorder) Record(ctx context.Context, ev middleware.AuditEvent) error {
	path := ev.Route
	if path == "" {
		path = ev.Path
	}
	_, err := r.q.Exec(ctx, insertEvent,
		uuid.New(), ev.RequestID, ev.Hdid, ev.Application, ev.Method, path, ev.Status, ev.RemoteIP, ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

var _ middleware.AuditRecorder = (*Recorder)(nil)
