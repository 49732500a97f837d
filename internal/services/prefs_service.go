package services

import (
	"context"
	"log"

	"github.com/mailwing/mailwing/internal/host"
)

// PrefKeyPrefix scopes per-thread toggles in the configuration store.
const PrefKeyPrefix = "threadEnabled:"

// PrefKey returns the configuration-store key for a thread's toggle.
func PrefKey(threadID string) string { return PrefKeyPrefix + threadID }

// PrefsServiceImpl implements PrefsService over a KVStore.
type PrefsServiceImpl struct {
	store   KVStore
	runtime host.Runtime
	logger  *log.Logger
}

// NewPrefsService creates a new preference service
func NewPrefsService(store KVStore, runtime host.Runtime) *PrefsServiceImpl {
	return &PrefsServiceImpl{store: store, runtime: runtime}
}

// SetLogger sets an optional logger
func (s *PrefsServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// ThreadEnabled reports whether the AI-reply toggle is on for the thread.
// A missing entry, a dead runtime or an unreadable store all report the
// default (off): the toggle must render something rather than error.
func (s *PrefsServiceImpl) ThreadEnabled(ctx context.Context, threadID string) (bool, error) {
	if s.runtime != nil && !s.runtime.Valid() {
		return false, nil
	}
	if s.store == nil || threadID == "" {
		return false, nil
	}
	values, err := s.store.Get(ctx, PrefKey(threadID))
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("prefs read failed for %q: %v", threadID, err)
		}
		return false, nil
	}
	return values[PrefKey(threadID)] == "true", nil
}

// SetThreadEnabled persists the toggle for the thread. The entry is created
// lazily on first toggle and never deleted. Unlike reads, a write the user
// asked for must not pretend to succeed: a dead runtime is reported so the
// caller can tell the user instead of flipping the label over nothing.
func (s *PrefsServiceImpl) SetThreadEnabled(ctx context.Context, threadID string, enabled bool) error {
	if s.runtime != nil && !s.runtime.Valid() {
		return ErrRuntimeInvalid
	}
	if threadID == "" {
		return ErrInvalidInput
	}
	if s.store == nil {
		return nil
	}
	value := "false"
	if enabled {
		value = "true"
	}
	if err := s.store.Set(ctx, map[string]string{PrefKey(threadID): value}); err != nil {
		if s.logger != nil {
			s.logger.Printf("prefs write failed for %q: %v", threadID, err)
		}
		return err
	}
	return nil
}
