package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PrefStore persists extension-style key/value preferences. It implements
// the configuration-store contract the engine consumes: Get for a set of
// keys returns a mapping holding only the keys that exist.
type PrefStore struct {
	store *Store
}

// NewPrefStore creates a preference store from a base store
func NewPrefStore(store *Store) *PrefStore {
	if store == nil {
		return nil
	}
	return &PrefStore{store: store}
}

// Get returns the values for the requested keys; absent keys are omitted.
func (ps *PrefStore) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	if ps == nil || ps.store == nil || ps.store.db == nil {
		return nil, fmt.Errorf("pref store not initialized")
	}
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	rows, err := ps.store.db.QueryContext(ctx,
		`SELECT key, value FROM prefs WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan pref: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}
	return out, nil
}

// Set upserts every entry of the mapping.
func (ps *PrefStore) Set(ctx context.Context, values map[string]string) error {
	if ps == nil || ps.store == nil || ps.store.db == nil {
		return fmt.Errorf("pref store not initialized")
	}
	if len(values) == 0 {
		return nil
	}
	tx, err := ps.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	for k, v := range values {
		if strings.TrimSpace(k) == "" {
			_ = tx.Rollback()
			return fmt.Errorf("empty pref key")
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO prefs(key, value, updated_at)
VALUES(?,?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at;
`, k, v, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("write pref %q: %w", k, err)
		}
	}
	return tx.Commit()
}
