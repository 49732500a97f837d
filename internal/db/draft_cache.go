package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// DraftCache stores generated drafts keyed by thread and a hash of the prompt
// input. The visible conversation text is part of the key, so a thread that
// gained a new message misses the cache and regenerates.
type DraftCache struct {
	store *Store
}

// NewDraftCache creates a draft cache from a base store
func NewDraftCache(store *Store) *DraftCache {
	if store == nil {
		return nil
	}
	return &DraftCache{store: store}
}

// InputHash derives the cache key component from the prompt input.
func InputHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Save upserts a draft for (thread_id, input_hash)
func (dc *DraftCache) Save(ctx context.Context, threadID, inputHash, draft, provider string) error {
	if dc == nil || dc.store == nil || dc.store.db == nil {
		return fmt.Errorf("draft cache not initialized")
	}
	if strings.TrimSpace(threadID) == "" || strings.TrimSpace(inputHash) == "" || strings.TrimSpace(draft) == "" {
		return fmt.Errorf("invalid draft inputs")
	}
	_, err := dc.store.db.ExecContext(ctx, `INSERT INTO draft_cache(thread_id, input_hash, draft, provider, updated_at)
VALUES(?,?,?,?,?)
ON CONFLICT(thread_id, input_hash) DO UPDATE SET draft=excluded.draft, provider=excluded.provider, updated_at=excluded.updated_at;
`, threadID, inputHash, draft, provider, time.Now().Unix())
	return err
}

// Load returns a cached draft if present
func (dc *DraftCache) Load(ctx context.Context, threadID, inputHash string) (draft, provider string, ok bool, err error) {
	if dc == nil || dc.store == nil || dc.store.db == nil {
		return "", "", false, fmt.Errorf("draft cache not initialized")
	}
	err = dc.store.db.QueryRowContext(ctx,
		`SELECT draft, provider FROM draft_cache WHERE thread_id=? AND input_hash=?`,
		threadID, inputHash).Scan(&draft, &provider)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return draft, provider, true, nil
}

// DeleteThread drops all cached drafts for a thread.
func (dc *DraftCache) DeleteThread(ctx context.Context, threadID string) error {
	if dc == nil || dc.store == nil || dc.store.db == nil {
		return fmt.Errorf("draft cache not initialized")
	}
	_, err := dc.store.db.ExecContext(ctx, `DELETE FROM draft_cache WHERE thread_id=?`, threadID)
	return err
}
