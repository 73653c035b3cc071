package audit

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"sourzka.org/internal/auth"
	"sourzka.org/internal/obs"
)

type memorySink struct {
	entries []Entry
	err     error
}

func (m *memorySink) AppendAudit(_ context.Context, e Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	restore := obs.SetLogger(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestRecorderPersistsAndLogs(t *testing.T) {
	logs := observe(t)
	sink := &memorySink{}
	rec := NewRecorder(sink)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = auth.ContextWithPrincipal(ctx, auth.Principal{UserID: "admin-1", Role: auth.RoleStaff})

	entry, err := rec.Record(ctx, ActionManufacturerVerified, ResourceManufacturer, "mfr-1", map[string]any{"isVerified": true})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(sink.entries) != 1 || sink.entries[0].ID != entry.ID {
		t.Fatalf("entry not persisted: %+v", sink.entries)
	}
	if entry.ActorID != "admin-1" || entry.RequestID != "req-123" {
		t.Fatalf("context not captured: %+v", entry)
	}
	if entry.OccurredAt.IsZero() {
		t.Fatalf("timestamp missing")
	}

	lines := logs.FilterMessage("audit").All()
	if len(lines) != 1 {
		t.Fatalf("expected one audit log line, got %d", len(lines))
	}
	fields := lines[0].ContextMap()
	if fields["action"] != string(ActionManufacturerVerified) || fields["request_id"] != "req-123" {
		t.Fatalf("unexpected log fields: %v", fields)
	}
}

func TestRecorderSinkFailure(t *testing.T) {
	logs := observe(t)
	rec := NewRecorder(&memorySink{err: errors.New("db down")})

	if _, err := rec.Record(context.Background(), ActionAdminLogin, ResourceAdmin, "admin-1", nil); err == nil {
		t.Fatalf("expected sink error")
	}
	if logs.FilterMessage("audit append failed").Len() != 1 {
		t.Fatalf("expected warning about failed append")
	}
}

func TestNewEntryValidation(t *testing.T) {
	if _, err := NewEntry(context.Background(), "", ResourceAdmin, "a1", nil); err == nil {
		t.Fatalf("expected error for missing action")
	}
	if _, err := NewEntry(context.Background(), ActionAdminLogin, ResourceAdmin, " ", nil); err == nil {
		t.Fatalf("expected error for missing resource id")
	}

	meta := map[string]any{"k": "v"}
	entry, err := NewEntry(context.Background(), ActionAdminLogin, ResourceAdmin, "a1", meta)
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	meta["k"] = "changed"
	if entry.Metadata["k"] != "v" {
		t.Fatalf("metadata should be copied")
	}
}

func TestWithRequestIDIgnoresBlank(t *testing.T) {
	ctx := WithRequestID(context.Background(), "  ")
	if RequestIDFromContext(ctx) != "" {
		t.Fatalf("blank request id should not be stored")
	}
}
