package services

import (
	"context"
	"log"

	"github.com/mailwing/mailwing/internal/db"
	"github.com/mailwing/mailwing/internal/host"
)

// AuditServiceImpl implements AuditService over the append-only store.
// Recording never surfaces errors to callers: a broken audit trail must not
// break reconciliation or reply generation.
type AuditServiceImpl struct {
	store   *db.AuditStore
	runtime host.Runtime
	logger  *log.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(store *db.AuditStore, runtime host.Runtime) *AuditServiceImpl {
	return &AuditServiceImpl{store: store, runtime: runtime}
}

// SetLogger sets an optional logger
func (s *AuditServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// Record appends one event, best effort.
func (s *AuditServiceImpl) Record(ctx context.Context, event, threadID, detail string) {
	if s.runtime != nil && !s.runtime.Valid() {
		return
	}
	if s.store == nil {
		return
	}
	if err := s.store.Append(ctx, event, threadID, detail); err != nil && s.logger != nil {
		s.logger.Printf("audit append failed: %v", err)
	}
}

// Recent returns the newest events.
func (s *AuditServiceImpl) Recent(ctx context.Context, limit int) ([]db.AuditEvent, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Recent(ctx, limit)
}
