package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AuditEvent is one row of the append-only activity log.
type AuditEvent struct {
	ID        int64
	Event     string
	ThreadID  string
	Detail    string
	CreatedAt time.Time
}

// AuditStore appends and reads activity events. Rows are never updated or
// deleted by the engine.
type AuditStore struct {
	store *Store
}

// NewAuditStore creates an audit store from a base store
func NewAuditStore(store *Store) *AuditStore {
	if store == nil {
		return nil
	}
	return &AuditStore{store: store}
}

// Append records one event.
func (as *AuditStore) Append(ctx context.Context, event, threadID, detail string) error {
	if as == nil || as.store == nil || as.store.db == nil {
		return fmt.Errorf("audit store not initialized")
	}
	if strings.TrimSpace(event) == "" {
		return fmt.Errorf("empty audit event")
	}
	_, err := as.store.db.ExecContext(ctx,
		`INSERT INTO audit_log(event, thread_id, detail, created_at) VALUES(?,?,?,?)`,
		event, threadID, detail, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (as *AuditStore) Recent(ctx context.Context, limit int) ([]AuditEvent, error) {
	if as == nil || as.store == nil || as.store.db == nil {
		return nil, fmt.Errorf("audit store not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := as.store.db.QueryContext(ctx,
		`SELECT id, event, thread_id, detail, created_at FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	defer rows.Close()
	var out []AuditEvent
	for rows.Next() {
		var ev AuditEvent
		var ts int64
		if err := rows.Scan(&ev.ID, &ev.Event, &ev.ThreadID, &ev.Detail, &ts); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.CreatedAt = time.Unix(ts, 0)
		out = append(out, ev)
	}
	return out, rows.Err()
}
