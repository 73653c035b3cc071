package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"sourzka.org/internal/auth"
	"sourzka.org/internal/ids"
	"sourzka.org/internal/obs"
)

// Action names an auditable operation.
type Action string

const (
	ActionAdminCreated              Action = "ADMIN_CREATED"
	ActionAdminLogin                Action = "ADMIN_LOGIN"
	ActionManufacturerVerified      Action = "MANUFACTURER_VERIFIED"
	ActionManufacturerRejected      Action = "MANUFACTURER_REJECTED"
	ActionManufacturerReviewToggled Action = "MANUFACTURER_REVIEW_TOGGLED"
	ActionGSTINVerified             Action = "GSTIN_VERIFIED"
)

// Resources referenced by audit entries.
const (
	ResourceAdmin        = "admin"
	ResourceManufacturer = "manufacturer"
)

// Entry is one append-only audit record.
type Entry struct {
	ID         string         `json:"id"`
	Action     Action         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resourceId"`
	ActorID    string         `json:"actorId,omitempty"`
	RequestID  string         `json:"requestId,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Query narrows an audit listing. Zero fields match everything.
type Query struct {
	Resource   string
	ResourceID string
	Action     Action
	Limit      int
}

// Sink persists audit entries.
type Sink interface {
	AppendAudit(ctx context.Context, entry Entry) error
}

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the audit request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// NewEntry builds an entry enriched with the request id and acting principal.
func NewEntry(ctx context.Context, action Action, resource, resourceID string, metadata map[string]any) (Entry, error) {
	if strings.TrimSpace(string(action)) == "" {
		return Entry{}, errors.New("audit action is required")
	}
	if strings.TrimSpace(resourceID) == "" {
		return Entry{}, errors.New("audit resource id is required")
	}
	var meta map[string]any
	if len(metadata) > 0 {
		meta = make(map[string]any, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}
	return Entry{
		ID:         ids.New(),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		ActorID:    auth.ActorIDFromContext(ctx),
		RequestID:  RequestIDFromContext(ctx),
		Metadata:   meta,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// Log mirrors entry to the structured log.
func Log(ctx context.Context, entry Entry) {
	obs.FromContext(ctx).Info("audit",
		zap.String("type", "audit"),
		zap.String("audit_id", entry.ID),
		zap.String("action", string(entry.Action)),
		zap.String("resource", entry.Resource),
		zap.String("resource_id", entry.ResourceID),
		zap.String("actor_id", entry.ActorID),
		zap.String("request_id", entry.RequestID),
		zap.Any("metadata", entry.Metadata),
	)
}

// Recorder appends entries to a sink and mirrors them to the log.
type Recorder struct {
	sink Sink
}

// NewRecorder returns a Recorder. A nil sink only logs.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Record builds and persists an entry. Callers treat failures as best-effort
// unless the entry is part of a decision that must not be lost.
func (r *Recorder) Record(ctx context.Context, action Action, resource, resourceID string, metadata map[string]any) (Entry, error) {
	entry, err := NewEntry(ctx, action, resource, resourceID, metadata)
	if err != nil {
		return Entry{}, err
	}
	if r != nil && r.sink != nil {
		if err := r.sink.AppendAudit(ctx, entry); err != nil {
			obs.FromContext(ctx).Warn("audit append failed",
				zap.String("action", string(action)),
				zap.String("resource_id", resourceID),
				zap.Error(err),
			)
			return entry, err
		}
	}
	Log(ctx, entry)
	return entry, nil
}
