package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mailwing/mailwing/internal/config"
	"github.com/mailwing/mailwing/internal/db"
	"github.com/mailwing/mailwing/internal/host"
	"github.com/mailwing/mailwing/internal/llm"
)

// ReplyServiceImpl implements ReplyService
type ReplyServiceImpl struct {
	provider llm.Provider
	config   *config.Config
	runtime  host.Runtime
	audit    AuditService
	cache    *db.DraftCache
}

// NewReplyService creates a new reply service
func NewReplyService(provider llm.Provider, cfg *config.Config, runtime host.Runtime, audit AuditService) *ReplyServiceImpl {
	return &ReplyServiceImpl{
		provider: provider,
		config:   cfg,
		runtime:  runtime,
		audit:    audit,
	}
}

// SetDraftCache wires the optional draft cache.
func (s *ReplyServiceImpl) SetDraftCache(cache *db.DraftCache) {
	s.cache = cache
}

// GenerateReply produces a draft reply for the given conversation text. The
// caller previews the result and decides whether to insert it; nothing is
// written into the page here.
func (s *ReplyServiceImpl) GenerateReply(ctx context.Context, content string, options ReplyOptions) (*ReplyResult, error) {
	if s.runtime != nil && !s.runtime.Valid() {
		// The user is actively waiting on this one; surface it instead of
		// going quiet like background work does.
		return nil, ErrRuntimeInvalid
	}
	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrNoContent
	}

	start := time.Now()

	// Truncate content if too long
	maxLength := s.config.LLM.MaxContextChars
	if options.MaxLength > 0 {
		maxLength = options.MaxLength
	}
	if maxLength > 0 && len([]rune(content)) > maxLength {
		content = string([]rune(content)[:maxLength])
	}

	// Serve from the draft cache when the conversation text is unchanged.
	var inputHash string
	if s.cache != nil && options.ThreadID != "" {
		inputHash = db.InputHash(content)
		if draft, provider, ok, err := s.cache.Load(ctx, options.ThreadID, inputHash); err == nil && ok {
			if s.audit != nil {
				s.audit.Record(ctx, "reply_cached", options.ThreadID, provider)
			}
			return &ReplyResult{Text: draft, Provider: provider, Duration: time.Since(start)}, nil
		}
	}

	prompt := s.config.LLM.GetReplyPrompt()
	prompt = strings.ReplaceAll(prompt, "{{body}}", content)

	text, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		if s.audit != nil {
			s.audit.Record(ctx, "reply_failed", options.ThreadID, err.Error())
		}
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	}

	result := &ReplyResult{
		Text:     text,
		Provider: s.provider.Name(),
		Duration: time.Since(start),
	}
	if s.cache != nil && inputHash != "" {
		// Best effort; a failed cache write must not fail the reply.
		_ = s.cache.Save(ctx, options.ThreadID, inputHash, text, result.Provider)
	}
	if s.audit != nil {
		s.audit.Record(ctx, "reply_generated", options.ThreadID,
			fmt.Sprintf("%d chars in %s", len(text), result.Duration.Round(time.Millisecond)))
	}
	return result, nil
}
