package services

import (
	"context"
	"time"

	"github.com/mailwing/mailwing/internal/db"
)

// KVStore is the extension-style configuration store contract: Get returns a
// mapping holding only the requested keys that exist, Set upserts a mapping.
type KVStore interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
}

// PrefsService handles per-thread preference reads and writes. Both
// directions fail soft when the extension runtime is gone: reads report the
// default and writes become no-ops instead of erroring.
type PrefsService interface {
	ThreadEnabled(ctx context.Context, threadID string) (bool, error)
	SetThreadEnabled(ctx context.Context, threadID string, enabled bool) error
}

// ReplyOptions parameterizes a reply generation request.
type ReplyOptions struct {
	ThreadID  string
	MaxLength int
}

// ReplyResult is a generated draft awaiting the user's accept/reject.
type ReplyResult struct {
	Text     string
	Provider string
	Duration time.Duration
}

// ReplyService generates a draft reply from the visible conversation text.
type ReplyService interface {
	GenerateReply(ctx context.Context, content string, options ReplyOptions) (*ReplyResult, error)
}

// AuditService is the append-only activity sink.
type AuditService interface {
	Record(ctx context.Context, event, threadID, detail string)
	Recent(ctx context.Context, limit int) ([]db.AuditEvent, error)
}
