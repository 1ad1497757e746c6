package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/healthgateway/gateway/internal/platform/middleware"
)

type execRecorder struct {
	sql  string
	args []interface{}
	err  error
}

func (e *execRecorder) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (e *execRecorder) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return nil
}

func (e *execRecorder) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	e.sql, e.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), e.err
}

func TestRecorder_Record(t *testing.T) {
	q := &execRecorder{}
	r := &Recorder{q: q}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := r.Record(context.Background(), middleware.AuditEvent{
		RequestID:   "req-1",
		Hdid:        "hdid-1",
		Application: "gateway",
		Method:      "GET",
		Route:       "/api/v1/profiles/:hdid",
		Path:        "/api/v1/profiles/hdid-1",
		Status:      200,
		RemoteIP:    "10.0.0.1",
		OccurredAt:  at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.args) != 9 {
		t.Fatalf("expected 9 args, got %d", len(q.args))
	}
	if q.args[5] != "/api/v1/profiles/:hdid" {
		t.Errorf("expected route template stored, got %v", q.args[5])
	}
	if q.args[6] != 200 || q.args[8] != at {
		t.Errorf("unexpected args %v", q.args)
	}
}

func TestRecorder_FallsBackToPath(t *testing.T) {
	q := &execRecorder{}
	r := &Recorder{q: q}
	if err := r.Record(context.Background(), middleware.AuditEvent{Path: "/api/v1/unknown"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.args[5] != "/api/v1/unknown" {
		t.Errorf("expected raw path, got %v", q.args[5])
	}
}

func TestRecorder_WrapsError(t *testing.T) {
	boom := errors.New("boom")
	r := &Recorder{q: &execRecorder{err: boom}}
	if err := r.Record(context.Background(), middleware.AuditEvent{}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}
