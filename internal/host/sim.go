package host

import (
	"sync"
	"sync/atomic"

	"github.com/mailwing/mailwing/internal/dom"
)

// SimPage is an in-process Page over a TreeDocument. The snapshot CLI loads
// captured markup into one; tests drive URL changes and history navigations
// through it.
type SimPage struct {
	mu  sync.Mutex
	url string
	doc dom.Document
	nav chan struct{}
}

// NewSimPage wraps a document with an initial URL.
func NewSimPage(url string, doc dom.Document) *SimPage {
	return &SimPage{url: url, doc: doc, nav: make(chan struct{}, 8)}
}

func (p *SimPage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *SimPage) Document() dom.Document { return p.doc }

func (p *SimPage) Navigations() <-chan struct{} { return p.nav }

// SetURL changes the current URL without a history event, the way the host
// page rewrites location during in-app transitions.
func (p *SimPage) SetURL(url string) {
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
}

// Navigate changes the URL and emits a history navigation signal.
func (p *SimPage) Navigate(url string) {
	p.SetURL(url)
	select {
	case p.nav <- struct{}{}:
	default:
	}
}

// SimRuntime is a Runtime probe that can be invalidated by tests to model an
// extension reload tearing the context down.
type SimRuntime struct {
	invalid atomic.Bool
}

func NewSimRuntime() *SimRuntime { return &SimRuntime{} }

func (r *SimRuntime) Valid() bool { return !r.invalid.Load() }

// Invalidate makes the probe report an unusable runtime from now on.
func (r *SimRuntime) Invalidate() { r.invalid.Store(true) }
