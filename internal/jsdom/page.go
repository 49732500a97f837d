//go:build js && wasm

package jsdom

import (
	"sync"
	"syscall/js"

	"github.com/mailwing/mailwing/internal/dom"
)

// Page binds host.Page to window.location and the history events.
type Page struct {
	doc *Document

	mu       sync.Mutex
	nav      chan struct{}
	handlers []js.Func
}

// NewPage builds a Page over the live document and subscribes to the history
// signals. Hash-only transitions fire hashchange, back/forward fires
// popstate; script-driven location rewrites fire neither, which is why the
// engine also polls the URL.
func NewPage(doc *Document) *Page {
	p := &Page{doc: doc, nav: make(chan struct{}, 8)}
	window := js.Global()
	for _, event := range []string{"hashchange", "popstate"} {
		h := js.FuncOf(func(this js.Value, args []js.Value) any {
			select {
			case p.nav <- struct{}{}:
			default:
			}
			return nil
		})
		window.Call("addEventListener", event, h)
		p.mu.Lock()
		p.handlers = append(p.handlers, h)
		p.mu.Unlock()
	}
	return p
}

func (p *Page) URL() string {
	return js.Global().Get("location").Get("href").String()
}

func (p *Page) Document() dom.Document { return p.doc }

func (p *Page) Navigations() <-chan struct{} { return p.nav }

// Runtime probes the extension runtime. chrome.runtime.id disappears the
// moment the extension is reloaded or removed while the content script is
// still alive in the tab.
type Runtime struct{}

func NewRuntime() *Runtime { return &Runtime{} }

func (r *Runtime) Valid() (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	chrome := js.Global().Get("chrome")
	if chrome.IsNull() || chrome.IsUndefined() {
		return false
	}
	runtime := chrome.Get("runtime")
	if runtime.IsNull() || runtime.IsUndefined() {
		return false
	}
	id := runtime.Get("id")
	return id.Type() == js.TypeString && id.String() != ""
}
