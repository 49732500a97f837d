// Package host abstracts the surrounding page and extension runtime so the
// reconciliation engine can run against a real browser DOM, a parsed
// snapshot, or a scripted test double.
package host

import (
	"github.com/mailwing/mailwing/internal/dom"
)

// Runtime is the capability probe for the surrounding extension runtime.
// Every asynchronous continuation consults it before touching storage or the
// page; once it reports false the engine goes quiet instead of failing.
type Runtime interface {
	Valid() bool
}

// Page is the live host page: the single source of truth for the current URL
// and the document the engine observes and mutates.
type Page interface {
	URL() string
	Document() dom.Document
	// Navigations delivers one signal per history navigation (back/forward
	// or hash change) performed by the host page.
	Navigations() <-chan struct{}
}
