// Package detect classifies what the host page is currently showing and
// derives a stable identity for the open conversation. Both computations are
// performed fresh on every call: the URL and the DOM can change under the
// engine at any time, so nothing here is memoized.
package detect

import (
	"regexp"
	"sync/atomic"

	"github.com/mailwing/mailwing/internal/dom"
	"github.com/mailwing/mailwing/internal/host"
)

// ViewState is what the page is showing right now.
type ViewState int

const (
	// ListView is a conversation list (or anything that is neither an open
	// email nor a compose surface).
	ListView ViewState = iota
	// EmailView is an open conversation.
	EmailView
	// ComposeView is a compose surface, possibly layered over a list.
	ComposeView
)

func (v ViewState) String() string {
	switch v {
	case EmailView:
		return "email"
	case ComposeView:
		return "compose"
	default:
		return "list"
	}
}

// threadIDPattern matches the long opaque conversation segment the host page
// puts after the hash fragment, e.g. "#inbox/FMfcgAbCdEfGhIjK123456789".
var threadIDPattern = regexp.MustCompile(`#.*?/([A-Za-z0-9_-]{10,})`)

// Detector implements view classification and thread identity resolution
// against a live page.
type Detector struct {
	page host.Page
	sels atomic.Pointer[SelectorPack]
}

// NewDetector builds a Detector. A nil pack means compiled-in defaults.
func NewDetector(page host.Page, pack *SelectorPack) *Detector {
	d := &Detector{page: page}
	if pack == nil {
		pack = DefaultSelectors()
	}
	d.sels.Store(pack)
	return d
}

// SetSelectors swaps the selector pack, e.g. after a live reload of the
// override file. Safe to call from any goroutine.
func (d *Detector) SetSelectors(pack *SelectorPack) {
	if pack != nil {
		d.sels.Store(pack)
	}
}

// Selectors returns the currently active pack.
func (d *Detector) Selectors() *SelectorPack { return d.sels.Load() }

// Classify determines the current ViewState.
//
// Ordering matters: the URL shape is the cheapest and most specific signal,
// so it short-circuits the DOM scans entirely. Compose detection runs before
// email detection because a compose dialog can sit on top of a list view.
// The reply/forward fallback exists because content markup varies across
// host-page variants and must not cause a false ListView.
func (d *Detector) Classify() ViewState {
	if threadIDPattern.MatchString(d.page.URL()) {
		return EmailView
	}
	doc := d.page.Document()
	pack := d.sels.Load()
	if dom.MatchAny(doc, pack.Compose) {
		return ComposeView
	}
	if dom.MatchAny(doc, pack.EmailContent) {
		return EmailView
	}
	if dom.MatchAny(doc, pack.ReplyAffordance) {
		return EmailView
	}
	return ListView
}

// ThreadID derives the identity of the currently open conversation from the
// URL. When the URL carries no opaque segment the full URL is returned: a
// degenerate identity, but a stable one.
func (d *Detector) ThreadID() string {
	u := d.page.URL()
	if m := threadIDPattern.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return u
}

// DefinitelyListView reports whether the page is unambiguously a list view.
// During navigations the DOM passes through intermediate states where content
// nodes are gone but the new view has not rendered yet; destroying the
// control surface on such a transient would cause flicker, so cleanup only
// proceeds when none of the guard nodes is present.
func (d *Detector) DefinitelyListView() bool {
	return !dom.MatchAny(d.page.Document(), d.sels.Load().ListGuards)
}
