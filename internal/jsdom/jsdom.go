//go:build js && wasm

// Package jsdom binds the dom and host abstractions to a real browser page
// through syscall/js. It is the content-script embodiment: the same engine
// that runs over parsed snapshots in tests runs over these bindings inside
// the extension.
package jsdom

import (
	"strings"
	"sync"
	"syscall/js"

	"github.com/mailwing/mailwing/internal/dom"
)

// Document wraps the page's live document object.
type Document struct {
	doc js.Value
}

// NewDocument binds to js.Global().document.
func NewDocument() *Document {
	return &Document{doc: js.Global().Get("document")}
}

func wrapNode(v js.Value) dom.Node {
	if v.IsNull() || v.IsUndefined() {
		return nil
	}
	return &node{v: v}
}

// call invokes a method and converts a thrown JS exception into an
// undefined result. Selector lists are redundant by contract; a selector the
// browser rejects must behave like one that matched nothing.
func call(v js.Value, method string, args ...any) (res js.Value) {
	defer func() {
		if recover() != nil {
			res = js.Undefined()
		}
	}()
	return v.Call(method, args...)
}

func (d *Document) Body() dom.Node {
	return wrapNode(d.doc.Get("body"))
}

func (d *Document) Query(selector string) (dom.Node, bool) {
	v := call(d.doc, "querySelector", selector)
	n := wrapNode(v)
	return n, n != nil
}

func (d *Document) QueryAll(selector string) []dom.Node {
	return collect(call(d.doc, "querySelectorAll", selector))
}

func (d *Document) CreateElement(tag string) dom.Node {
	return wrapNode(d.doc.Call("createElement", tag))
}

// Observe attaches a MutationObserver over the whole document subtree. Only
// element nodes are reported; text and attribute churn is not interesting to
// the engine.
func (d *Document) Observe(fn func(dom.Mutation)) func() {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		records := args[0]
		var m dom.Mutation
		for i := 0; i < records.Length(); i++ {
			rec := records.Index(i)
			m.Added = append(m.Added, elements(rec.Get("addedNodes"))...)
			m.Removed = append(m.Removed, elements(rec.Get("removedNodes"))...)
		}
		if len(m.Added) > 0 || len(m.Removed) > 0 {
			fn(m)
		}
		return nil
	})
	observer := js.Global().Get("MutationObserver").New(cb)
	target := d.doc.Get("documentElement")
	observer.Call("observe", target, map[string]any{
		"childList": true,
		"subtree":   true,
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			observer.Call("disconnect")
			cb.Release()
		})
	}
}

func collect(list js.Value) []dom.Node {
	if list.IsNull() || list.IsUndefined() {
		return nil
	}
	out := make([]dom.Node, 0, list.Length())
	for i := 0; i < list.Length(); i++ {
		if n := wrapNode(list.Index(i)); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// elements filters a NodeList down to element nodes.
func elements(list js.Value) []dom.Node {
	if list.IsNull() || list.IsUndefined() {
		return nil
	}
	var out []dom.Node
	for i := 0; i < list.Length(); i++ {
		v := list.Index(i)
		if v.Get("nodeType").Int() == 1 {
			out = append(out, wrapNode(v))
		}
	}
	return out
}

type node struct {
	v js.Value
}

func (n *node) Tag() string {
	tag := n.v.Get("tagName")
	if tag.Type() != js.TypeString {
		return ""
	}
	return strings.ToLower(tag.String())
}

func (n *node) Attr(name string) string {
	v := call(n.v, "getAttribute", name)
	if v.Type() != js.TypeString {
		return ""
	}
	return v.String()
}

func (n *node) SetAttr(name, value string) {
	call(n.v, "setAttribute", name, value)
}

func (n *node) Text() string {
	v := n.v.Get("textContent")
	if v.Type() != js.TypeString {
		return ""
	}
	return strings.TrimSpace(v.String())
}

func (n *node) SetText(text string) {
	n.v.Set("textContent", text)
}

func (n *node) Parent() dom.Node {
	return wrapNode(n.v.Get("parentElement"))
}

func (n *node) Children() []dom.Node {
	return collect(n.v.Get("children"))
}

func (n *node) Query(selector string) (dom.Node, bool) {
	v := call(n.v, "querySelector", selector)
	c := wrapNode(v)
	return c, c != nil
}

func (n *node) QueryAll(selector string) []dom.Node {
	return collect(call(n.v, "querySelectorAll", selector))
}

func (n *node) Matches(selector string) bool {
	v := call(n.v, "matches", selector)
	return v.Type() == js.TypeBoolean && v.Bool()
}

func (n *node) AppendChild(child dom.Node) {
	c, ok := child.(*node)
	if !ok {
		return
	}
	n.v.Call("appendChild", c.v)
}

func (n *node) InsertAfter(child dom.Node) {
	c, ok := child.(*node)
	if !ok {
		return
	}
	parent := n.v.Get("parentNode")
	if parent.IsNull() || parent.IsUndefined() {
		return
	}
	parent.Call("insertBefore", c.v, n.v.Get("nextSibling"))
}

func (n *node) Remove() {
	call(n.v, "remove")
}

func (n *node) IsConnected() bool {
	v := n.v.Get("isConnected")
	return v.Type() == js.TypeBoolean && v.Bool()
}
