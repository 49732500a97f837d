package tracker

import (
	"github.com/mailwing/mailwing/internal/detect"
	"github.com/mailwing/mailwing/internal/dom"
	"github.com/mailwing/mailwing/internal/surface"
)

// findAnchor runs the insertion-point cascade. Which strategy works depends
// on the view and on which layout variant the host page is serving, so every
// level falls through silently to the next; exhausting all of them returns a
// nil anchor and the caller stays detached.
func (t *Tracker) findAnchor(view detect.ViewState) (dom.Node, surface.InsertMode, string) {
	doc := t.page.Document()
	sels := t.detector.Selectors()

	type strategy struct {
		name string
		find func() (dom.Node, surface.InsertMode, bool)
	}

	strategies := []strategy{
		{"reply_toolbar", func() (dom.Node, surface.InsertMode, bool) {
			n, ok := dom.MatchFirst(doc, sels.ReplyToolbar)
			return n, surface.AsChild, ok
		}},
		{"action_row", func() (dom.Node, surface.InsertMode, bool) {
			// An ancestor of the reply button holding at least two
			// interactive children is almost always the action row, even
			// when the toolbar markup itself changed.
			btn, ok := dom.MatchFirst(doc, sels.ReplyButton)
			if !ok {
				return nil, surface.AsChild, false
			}
			for p := btn.Parent(); p != nil; p = p.Parent() {
				if countInteractive(p) >= 2 {
					return p, surface.AsChild, true
				}
			}
			return nil, surface.AsChild, false
		}},
		{"email_header", func() (dom.Node, surface.InsertMode, bool) {
			n, ok := dom.MatchFirst(doc, sels.EmailHeader)
			return n, surface.AsSibling, ok
		}},
		{"reply_button", func() (dom.Node, surface.InsertMode, bool) {
			n, ok := dom.MatchFirst(doc, sels.ReplyButton)
			return n, surface.AsSibling, ok
		}},
		{"message_node", func() (dom.Node, surface.InsertMode, bool) {
			n, ok := dom.MatchFirst(doc, sels.MessageNode)
			return n, surface.AsSibling, ok
		}},
		{"main_region", func() (dom.Node, surface.InsertMode, bool) {
			n, ok := dom.MatchFirst(doc, sels.MainRegion)
			return n, surface.AsChild, ok
		}},
		{"document_body", func() (dom.Node, surface.InsertMode, bool) {
			body := doc.Body()
			return body, surface.AsChild, body != nil
		}},
	}

	for _, s := range strategies {
		if n, mode, ok := s.find(); ok && n != nil {
			return n, mode, s.name
		}
	}
	return nil, surface.AsChild, ""
}

// countInteractive counts direct children that look clickable.
func countInteractive(n dom.Node) int {
	count := 0
	for _, c := range n.Children() {
		switch {
		case c.Tag() == "button" || c.Tag() == "a":
			count++
		case c.Attr("role") == "button" || c.Attr("role") == "link":
			count++
		}
	}
	return count
}
