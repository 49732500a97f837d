// Package surface builds and tears down the injected control surface: the
// single UI root carrying the per-thread toggle and the generate-reply
// control. Only the attachment tracker may create or destroy it.
package surface

import (
	"fmt"
	"log"

	"github.com/mailwing/mailwing/internal/dom"
)

// RootMarker is the attribute identifying the control surface root. Live
// attachment checks go through the document, not an in-memory flag: the host
// page can remove the surface during its own re-renders at any time.
const RootMarker = "data-mailwing-root"

// NoticeMarker is the attribute identifying the reload notice shown when a
// user action lands on a dead extension runtime.
const NoticeMarker = "data-mailwing-notice"

// InsertMode says how the surface root relates to the chosen anchor.
type InsertMode int

const (
	// AsChild appends the surface root inside the anchor.
	AsChild InsertMode = iota
	// AsSibling inserts the surface root right after the anchor.
	AsSibling
)

// Presenter is the contract the attachment tracker drives. Implementations
// own widget construction only; every attach/detach decision stays with the
// tracker.
type Presenter interface {
	// Attach builds the control surface and inserts it at anchor. Any
	// pre-existing surface root in the document is removed first, so at
	// most one exists afterwards.
	Attach(anchor dom.Node, mode InsertMode) error
	// Detach removes the surface from the document if present.
	Detach()
	// Live reports whether the surface root exists and is still connected
	// to the document.
	Live() bool
	// SetEnabled updates the toggle control's displayed state.
	SetEnabled(enabled bool)
	// NoticeReload shows a notice asking the user to reload the page
	// after a click hit a torn-down extension runtime. At most one
	// notice exists no matter how often it is called.
	NoticeReload()
}

// DOMPresenter renders the control surface as plain DOM nodes.
type DOMPresenter struct {
	doc    dom.Document
	root   dom.Node
	toggle dom.Node
	logger *log.Logger

	onToggle   func()
	onGenerate func()
}

// NewDOMPresenter builds a presenter over the given document.
func NewDOMPresenter(doc dom.Document, logger *log.Logger) *DOMPresenter {
	return &DOMPresenter{doc: doc, logger: logger}
}

// OnToggle registers the toggle-clicked handler.
func (p *DOMPresenter) OnToggle(fn func()) { p.onToggle = fn }

// OnGenerate registers the generate-clicked handler.
func (p *DOMPresenter) OnGenerate(fn func()) { p.onGenerate = fn }

// Attach implements Presenter.
func (p *DOMPresenter) Attach(anchor dom.Node, mode InsertMode) error {
	if anchor == nil {
		return fmt.Errorf("attach control surface: nil anchor")
	}
	// Sweep strays before inserting; the document may hold a root from a
	// previous page generation our state never saw.
	for _, stale := range p.doc.QueryAll("[" + RootMarker + "]") {
		stale.Remove()
	}

	root := p.doc.CreateElement("div")
	root.SetAttr(RootMarker, "1")
	root.SetAttr("class", "mailwing-surface")

	toggle := p.doc.CreateElement("span")
	toggle.SetAttr("data-mailwing-toggle", "1")
	toggle.SetAttr("role", "button")
	root.AppendChild(toggle)

	generate := p.doc.CreateElement("span")
	generate.SetAttr("data-mailwing-generate", "1")
	generate.SetAttr("role", "button")
	generate.SetText("Draft reply")
	root.AppendChild(generate)

	switch mode {
	case AsSibling:
		anchor.InsertAfter(root)
	default:
		anchor.AppendChild(root)
	}
	if !root.IsConnected() {
		return fmt.Errorf("attach control surface: insertion produced a detached root")
	}

	p.root = root
	p.toggle = toggle
	p.SetEnabled(false)
	return nil
}

// Detach implements Presenter.
func (p *DOMPresenter) Detach() {
	for _, n := range p.doc.QueryAll("[" + RootMarker + "]") {
		n.Remove()
	}
	p.root = nil
	p.toggle = nil
}

// Live implements Presenter.
func (p *DOMPresenter) Live() bool {
	if p.root == nil {
		return false
	}
	if p.root.IsConnected() {
		return true
	}
	// The host page re-rendered underneath us; a marker query catches a
	// surviving root our handle lost track of. Rebind the handles so
	// later updates reach the connected nodes, not the dead ones.
	root, ok := p.doc.Query("[" + RootMarker + "]")
	if !ok {
		return false
	}
	toggle, ok := root.Query("[data-mailwing-toggle]")
	if !ok {
		return false
	}
	p.root = root
	p.toggle = toggle
	return true
}

// SetEnabled implements Presenter.
func (p *DOMPresenter) SetEnabled(enabled bool) {
	if p.toggle == nil {
		return
	}
	if enabled {
		p.toggle.SetText("AI reply: on")
		p.toggle.SetAttr("data-enabled", "true")
	} else {
		p.toggle.SetText("AI reply: off")
		p.toggle.SetAttr("data-enabled", "false")
	}
}

// NoticeReload implements Presenter.
func (p *DOMPresenter) NoticeReload() {
	if _, ok := p.doc.Query("[" + NoticeMarker + "]"); ok {
		return
	}
	notice := p.doc.CreateElement("div")
	notice.SetAttr(NoticeMarker, "1")
	notice.SetAttr("class", "mailwing-notice")
	notice.SetAttr("role", "alert")
	notice.SetText("Mailwing was updated or disabled. Reload the page to keep using it.")
	if p.root != nil && p.root.IsConnected() {
		p.root.AppendChild(notice)
		return
	}
	if body, ok := p.doc.Query("body"); ok {
		body.AppendChild(notice)
		return
	}
	if p.logger != nil {
		p.logger.Printf("reload notice dropped: nowhere to insert it")
	}
}

// ClickToggle delivers a toggle click from the host binding.
func (p *DOMPresenter) ClickToggle() {
	if p.onToggle != nil {
		p.onToggle()
	}
}

// ClickGenerate delivers a generate click from the host binding.
func (p *DOMPresenter) ClickGenerate() {
	if p.onGenerate != nil {
		p.onGenerate()
	}
}
