package detect

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SelectorPack holds the CSS selector lists the detector runs against the
// host page. Lists are ordered by priority and intentionally overlapping:
// the host page's markup changes across rollouts and A/B variants, and a
// single stale selector must never produce a false negative on its own.
//
// The compiled-in defaults can be overridden per list from a YAML file so a
// drifted selector can be patched without shipping a new build.
type SelectorPack struct {
	// Compose indicators: a compose dialog layered over any view.
	Compose []string `yaml:"compose"`
	// EmailContent indicators: an open conversation in the main region.
	EmailContent []string `yaml:"email_content"`
	// ReplyAffordance: last-resort reply/forward controls anywhere.
	ReplyAffordance []string `yaml:"reply_affordance"`
	// ListGuards: nodes whose presence means the page is NOT unambiguously
	// a list view (used to gate destructive cleanup mid-navigation).
	ListGuards []string `yaml:"list_guards"`

	// Anchor cascade for control-surface insertion, highest priority first.
	ReplyToolbar []string `yaml:"reply_toolbar"`
	EmailHeader  []string `yaml:"email_header"`
	ReplyButton  []string `yaml:"reply_button"`
	MessageNode  []string `yaml:"message_node"`
	MainRegion   []string `yaml:"main_region"`

	// MessageBody: containers holding the visible message text.
	MessageBody []string `yaml:"message_body"`
}

// DefaultSelectors returns the compiled-in selector lists.
func DefaultSelectors() *SelectorPack {
	return &SelectorPack{
		Compose: []string{
			`div[role="dialog"] div[aria-label*="Message Body"]`,
			`div[role="dialog"][aria-label*="Compose"]`,
			`div[aria-label="New Message"]`,
			`div[role="dialog"] div[role="button"][aria-label*="Send"]`,
			`div[aria-label*="Message Body"][contenteditable="true"]`,
			`div.Am.editable`,
		},
		EmailContent: []string{
			`div[role="main"] h2[data-thread-perm-id]`,
			`h2[data-legacy-thread-id]`,
			`div[role="main"] article`,
			`div[data-message-id]`,
			`div.adn.ads`,
			`div.a3s`,
		},
		ReplyAffordance: []string{
			`div[role="button"][aria-label*="Reply"]`,
			`div[role="button"][aria-label*="Forward"]`,
			`span.ams[role="link"]`,
			`span[role="link"][data-tooltip*="Reply"]`,
		},
		ListGuards: []string{
			`div[role="dialog"]`,
			`div[aria-label*="Message Body"]`,
			`h2[data-thread-perm-id]`,
			`div[role="main"] article`,
			`div[data-message-id]`,
		},
		ReplyToolbar: []string{
			`div.amn`,
			`div[role="toolbar"]`,
		},
		EmailHeader: []string{
			`div.ha`,
			`div[role="main"] h2[data-thread-perm-id]`,
		},
		ReplyButton: []string{
			`div[role="button"][aria-label*="Reply"]`,
			`span.ams[role="link"]`,
		},
		MessageNode: []string{
			`div[data-message-id]`,
			`div.adn`,
		},
		MainRegion: []string{
			`div[role="main"]`,
			`main`,
		},
		MessageBody: []string{
			`div[data-message-id] div.a3s`,
			`div.a3s`,
			`div[role="main"] article`,
		},
	}
}

// LoadSelectorPack reads a YAML override file and merges it over the
// defaults. Only non-empty lists replace their default counterpart.
func LoadSelectorPack(path string) (*SelectorPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selector pack: %w", err)
	}
	return ParseSelectorPack(data)
}

// ParseSelectorPack merges YAML override data over the defaults. Only
// non-empty lists replace their default counterpart.
func ParseSelectorPack(data []byte) (*SelectorPack, error) {
	var override SelectorPack
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse selector pack: %w", err)
	}
	pack := DefaultSelectors()
	pack.merge(&override)
	return pack, nil
}

func (p *SelectorPack) merge(o *SelectorPack) {
	replace := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	replace(&p.Compose, o.Compose)
	replace(&p.EmailContent, o.EmailContent)
	replace(&p.ReplyAffordance, o.ReplyAffordance)
	replace(&p.ListGuards, o.ListGuards)
	replace(&p.ReplyToolbar, o.ReplyToolbar)
	replace(&p.EmailHeader, o.EmailHeader)
	replace(&p.ReplyButton, o.ReplyButton)
	replace(&p.MessageNode, o.MessageNode)
	replace(&p.MainRegion, o.MainRegion)
	replace(&p.MessageBody, o.MessageBody)
}
