package dom

// Node is a single element of a live document tree. Implementations wrap
// either an x/net/html tree (TreeDocument) or the real browser DOM (jsdom).
type Node interface {
	// Tag returns the lower-case element name.
	Tag() string
	// Attr returns the value of the named attribute, or "" when absent.
	Attr(name string) string
	SetAttr(name, value string)
	// Text returns the concatenated text content of the subtree.
	Text() string
	// SetText replaces the element's children with a single text node.
	SetText(text string)
	Parent() Node
	Children() []Node
	// Query runs a subtree-scoped single-match CSS query.
	Query(selector string) (Node, bool)
	QueryAll(selector string) []Node
	// Matches reports whether this node itself satisfies the selector.
	Matches(selector string) bool
	AppendChild(child Node)
	// InsertAfter places child as the next sibling of this node.
	InsertAfter(child Node)
	// Remove detaches the node (and its subtree) from the document.
	Remove()
	// IsConnected reports whether the node is still reachable from the
	// document root. A node detached by the host page keeps its in-memory
	// structure but stops being connected.
	IsConnected() bool
}

// Document is the root handle of a live page DOM.
type Document interface {
	Body() Node
	Query(selector string) (Node, bool)
	QueryAll(selector string) []Node
	CreateElement(tag string) Node
	// Observe registers a mutation callback (MutationObserver analog) and
	// returns a function that unsubscribes it.
	Observe(fn func(Mutation)) (cancel func())
}

// Mutation describes one batch of subtree additions and removals.
type Mutation struct {
	Added   []Node
	Removed []Node
}

// Queryer is the common single-match query surface of Node and Document.
type Queryer interface {
	Query(selector string) (Node, bool)
}
