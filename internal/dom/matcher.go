package dom

import (
	"sync"

	"github.com/andybalholm/cascadia"
)

// Selector lists shipped with the engine are redundant on purpose: the host
// page's markup drifts over time and individual selectors go stale. MatchFirst
// therefore treats an unparsable selector as a skip, never as a failure.

var (
	selMu    sync.Mutex
	selCache = map[string]cascadia.Selector{}
)

// compileSelector parses and caches a CSS selector. Returns nil when the
// expression is not valid CSS.
func compileSelector(expr string) cascadia.Selector {
	selMu.Lock()
	defer selMu.Unlock()
	if sel, ok := selCache[expr]; ok {
		return sel
	}
	sel, err := cascadia.Compile(expr)
	if err != nil {
		selCache[expr] = nil
		return nil
	}
	selCache[expr] = sel
	return sel
}

// MatchFirst tries each selector in order against root and returns the first
// element matched. The query is subtree-scoped and single-match; no selector
// matching anything yields (nil, false).
func MatchFirst(root Queryer, selectors []string) (Node, bool) {
	if root == nil {
		return nil, false
	}
	for _, expr := range selectors {
		if n, ok := root.Query(expr); ok {
			return n, true
		}
	}
	return nil, false
}

// MatchAny reports whether any of the selectors matches under root.
func MatchAny(root Queryer, selectors []string) bool {
	_, ok := MatchFirst(root, selectors)
	return ok
}

// NodeMatchesAny reports whether the node itself, or anything in its subtree,
// satisfies one of the selectors. Used to judge whether a mutation batch
// touched markup the engine cares about. Ancestor combinators cannot match on
// a detached subtree; redundant selector lists cover that.
func NodeMatchesAny(n Node, selectors []string) bool {
	if n == nil {
		return false
	}
	for _, expr := range selectors {
		if n.Matches(expr) {
			return true
		}
		if _, ok := n.Query(expr); ok {
			return true
		}
	}
	return false
}
