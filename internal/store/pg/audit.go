package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"sourzka.org/internal/audit"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAudit(ctx context.Context, db execer, e audit.Entry) error {
	meta := []byte("{}")
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		meta = data
	}
	_, err := db.ExecContext(ctx, `
		insert into audit_log (id, action, resource, resource_id, actor_id, request_id, metadata, occurred_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, string(e.Action), e.Resource, e.ResourceID, nullIfEmpty(e.ActorID), nullIfEmpty(e.RequestID), meta, e.OccurredAt)
	return err
}

func (s *Store) AppendAudit(ctx context.Context, e audit.Entry) error {
	return insertAudit(ctx, s.db, e)
}

func (s *Store) ListAudit(ctx context.Context, q audit.Query) ([]audit.Entry, error) {
	var (
		conds []string
		args  []any
	)
	if q.Resource != "" {
		args = append(args, q.Resource)
		conds = append(conds, fmt.Sprintf("resource = $%d", len(args)))
	}
	if q.ResourceID != "" {
		args = append(args, q.ResourceID)
		conds = append(conds, fmt.Sprintf("resource_id = $%d", len(args)))
	}
	if q.Action != "" {
		args = append(args, string(q.Action))
		conds = append(conds, fmt.Sprintf("action = $%d", len(args)))
	}
	query := `select id, action, resource, resource_id, actor_id, request_id, metadata, occurred_at from audit_log`
	if len(conds) > 0 {
		query += " where " + strings.Join(conds, " and ")
	}
	query += " order by occurred_at desc, id desc"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" limit $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]audit.Entry, 0)
	for rows.Next() {
		var (
			e                  audit.Entry
			action             string
			actorID, requestID sql.NullString
			rawMeta            []byte
		)
		if err := rows.Scan(&e.ID, &action, &e.Resource, &e.ResourceID, &actorID, &requestID, &rawMeta, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Action = audit.Action(action)
		e.ActorID = actorID.String
		e.RequestID = requestID.String
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode audit metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
