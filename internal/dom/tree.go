package dom

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TreeDocument is an in-memory DOM over an x/net/html tree. It backs the
// snapshot CLI and the engine tests; mutations performed through it are
// reported to observers the way a MutationObserver batch would be.
type TreeDocument struct {
	mu     sync.Mutex
	root   *html.Node
	body   *html.Node
	subs   map[int]func(Mutation)
	nextID int
}

// ParseDocument builds a TreeDocument from raw HTML markup.
func ParseDocument(markup string) (*TreeDocument, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	body := findElement(root, "body")
	if body == nil {
		return nil, fmt.Errorf("document has no body")
	}
	return &TreeDocument{root: root, body: body, subs: map[int]func(Mutation){}}, nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func (d *TreeDocument) wrap(n *html.Node) Node {
	if n == nil {
		return nil
	}
	return &treeNode{doc: d, n: n}
}

func (d *TreeDocument) wrapAll(ns []*html.Node) []Node {
	out := make([]Node, 0, len(ns))
	for _, n := range ns {
		out = append(out, d.wrap(n))
	}
	return out
}

// Body returns the document body element.
func (d *TreeDocument) Body() Node { return d.wrap(d.body) }

// Query runs a document-scoped single-match CSS query.
func (d *TreeDocument) Query(selector string) (Node, bool) {
	sel := compileSelector(selector)
	if sel == nil {
		return nil, false
	}
	d.mu.Lock()
	n := sel.MatchFirst(d.root)
	d.mu.Unlock()
	if n == nil {
		return nil, false
	}
	return d.wrap(n), true
}

// QueryAll returns every element in the document matching the selector.
func (d *TreeDocument) QueryAll(selector string) []Node {
	sel := compileSelector(selector)
	if sel == nil {
		return nil
	}
	d.mu.Lock()
	ns := sel.MatchAll(d.root)
	d.mu.Unlock()
	return d.wrapAll(ns)
}

// CreateElement makes a detached element owned by this document.
func (d *TreeDocument) CreateElement(tag string) Node {
	tag = strings.ToLower(tag)
	return d.wrap(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
}

// Observe registers a mutation callback and returns its cancel function.
func (d *TreeDocument) Observe(fn func(Mutation)) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.subs[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}
}

func (d *TreeDocument) notify(m Mutation) {
	d.mu.Lock()
	fns := make([]func(Mutation), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

func (d *TreeDocument) connected(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

type treeNode struct {
	doc *TreeDocument
	n   *html.Node
}

func (t *treeNode) Tag() string { return t.n.Data }

func (t *treeNode) Attr(name string) string {
	for _, a := range t.n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func (t *treeNode) SetAttr(name, value string) {
	for i, a := range t.n.Attr {
		if a.Key == name {
			t.n.Attr[i].Val = value
			return
		}
	}
	t.n.Attr = append(t.n.Attr, html.Attribute{Key: name, Val: value})
}

func (t *treeNode) Text() string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(t.n)
	return strings.TrimSpace(sb.String())
}

func (t *treeNode) SetText(text string) {
	t.doc.mu.Lock()
	for c := t.n.FirstChild; c != nil; {
		next := c.NextSibling
		t.n.RemoveChild(c)
		c = next
	}
	t.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	t.doc.mu.Unlock()
}

func (t *treeNode) Parent() Node {
	for p := t.n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return t.doc.wrap(p)
		}
	}
	return nil
}

func (t *treeNode) Children() []Node {
	var out []Node
	for c := t.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, t.doc.wrap(c))
		}
	}
	return out
}

func (t *treeNode) Query(selector string) (Node, bool) {
	sel := compileSelector(selector)
	if sel == nil {
		return nil, false
	}
	t.doc.mu.Lock()
	n := sel.MatchFirst(t.n)
	t.doc.mu.Unlock()
	if n == nil {
		return nil, false
	}
	return t.doc.wrap(n), true
}

func (t *treeNode) QueryAll(selector string) []Node {
	sel := compileSelector(selector)
	if sel == nil {
		return nil
	}
	t.doc.mu.Lock()
	ns := sel.MatchAll(t.n)
	t.doc.mu.Unlock()
	return t.doc.wrapAll(ns)
}

func (t *treeNode) Matches(selector string) bool {
	sel := compileSelector(selector)
	if sel == nil {
		return false
	}
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	return sel.Match(t.n)
}

func (t *treeNode) AppendChild(child Node) {
	c, ok := child.(*treeNode)
	if !ok {
		return
	}
	t.doc.mu.Lock()
	if c.n.Parent != nil {
		c.n.Parent.RemoveChild(c.n)
	}
	t.n.AppendChild(c.n)
	t.doc.mu.Unlock()
	t.doc.notify(Mutation{Added: []Node{child}})
}

func (t *treeNode) InsertAfter(child Node) {
	c, ok := child.(*treeNode)
	if !ok || t.n.Parent == nil {
		return
	}
	t.doc.mu.Lock()
	if c.n.Parent != nil {
		c.n.Parent.RemoveChild(c.n)
	}
	t.n.Parent.InsertBefore(c.n, t.n.NextSibling)
	t.doc.mu.Unlock()
	t.doc.notify(Mutation{Added: []Node{child}})
}

func (t *treeNode) Remove() {
	t.doc.mu.Lock()
	if t.n.Parent == nil {
		t.doc.mu.Unlock()
		return
	}
	t.n.Parent.RemoveChild(t.n)
	t.doc.mu.Unlock()
	t.doc.notify(Mutation{Removed: []Node{t}})
}

func (t *treeNode) IsConnected() bool {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	return t.doc.connected(t.n)
}
