package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailwing/mailwing/internal/dom"
)

func newDoc(t *testing.T) *dom.TreeDocument {
	t.Helper()
	doc, err := dom.ParseDocument(`<html><body>
<div role="main"><div class="amn" id="toolbar"></div></div>
</body></html>`)
	require.NoError(t, err)
	return doc
}

func TestAttachAndLive(t *testing.T) {
	doc := newDoc(t)
	p := NewDOMPresenter(doc, nil)
	assert.False(t, p.Live())

	anchor, ok := doc.Query("#toolbar")
	require.True(t, ok)
	require.NoError(t, p.Attach(anchor, AsSibling))
	assert.True(t, p.Live())

	root, ok := doc.Query("[" + RootMarker + "]")
	require.True(t, ok)
	assert.Equal(t, "div", root.Tag())

	_, ok = root.Query("[data-mailwing-toggle]")
	assert.True(t, ok)
	_, ok = root.Query("[data-mailwing-generate]")
	assert.True(t, ok)
}

func TestAttachSweepsStaleRoots(t *testing.T) {
	doc := newDoc(t)
	p := NewDOMPresenter(doc, nil)
	anchor, _ := doc.Query("#toolbar")

	require.NoError(t, p.Attach(anchor, AsChild))
	require.NoError(t, p.Attach(anchor, AsChild))

	assert.Len(t, doc.QueryAll("["+RootMarker+"]"), 1, "at most one control surface may exist")
}

func TestAttachNilAnchor(t *testing.T) {
	doc := newDoc(t)
	p := NewDOMPresenter(doc, nil)
	assert.Error(t, p.Attach(nil, AsChild))
	assert.False(t, p.Live())
}

func TestDetach(t *testing.T) {
	doc := newDoc(t)
	p := NewDOMPresenter(doc, nil)
	anchor, _ := doc.Query("#toolbar")
	require.NoError(t, p.Attach(anchor, AsChild))

	p.Detach()
	assert.False(t, p.Live())
	assert.Empty(t, doc.QueryAll("["+RootMarker+"]"))

	// Detach with nothing attached is a no-op.
	p.Detach()
}

func TestLiveDetectsHostRemoval(t *testing.T) {
	doc := newDoc(t)
	p := NewDOMPresenter(doc, nil)
	anchor, _ := doc.Query("#toolbar")
	require.NoError(t, p.Attach(anchor, AsChild))

	// The host page re-render removes the surface out from under us.
	root, ok := doc.Query("[" + RootMarker + "]")
	require.True(t, ok)
	root.Remove()

	assert.False(t, p.Live())
}

func TestLiveRebindsAfterHostRerender(t *testing.T) {
	doc := newDoc(t)
	p := NewDOMPresenter(doc, nil)
	anchor, _ := doc.Query("#toolbar")
	require.NoError(t, p.Attach(anchor, AsChild))

	// The host re-render replaces the subtree with a fresh copy; the
	// marker survives but the presenter's handles point at dead nodes.
	old, ok := doc.Query("[" + RootMarker + "]")
	require.True(t, ok)
	oldToggle, ok := old.Query("[data-mailwing-toggle]")
	require.True(t, ok)
	old.Remove()

	clone := doc.CreateElement("div")
	clone.SetAttr(RootMarker, "1")
	toggle := doc.CreateElement("span")
	toggle.SetAttr("data-mailwing-toggle", "1")
	clone.AppendChild(toggle)
	body, ok := doc.Query("body")
	require.True(t, ok)
	body.AppendChild(clone)

	assert.True(t, p.Live())

	// Updates after the rebind land on the connected toggle.
	p.SetEnabled(true)
	assert.Equal(t, "true", toggle.Attr("data-enabled"))
	assert.Equal(t, "false", oldToggle.Attr("data-enabled"))
}

func TestNoticeReloadShowsSingleNotice(t *testing.T) {
	doc := newDoc(t)
	p := NewDOMPresenter(doc, nil)

	p.NoticeReload()
	p.NoticeReload()

	notices := doc.QueryAll("[" + NoticeMarker + "]")
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Text(), "Reload the page")
}

func TestNoticeReloadPrefersLiveSurface(t *testing.T) {
	doc := newDoc(t)
	p := NewDOMPresenter(doc, nil)
	anchor, _ := doc.Query("#toolbar")
	require.NoError(t, p.Attach(anchor, AsChild))

	p.NoticeReload()

	root, ok := doc.Query("[" + RootMarker + "]")
	require.True(t, ok)
	_, ok = root.Query("[" + NoticeMarker + "]")
	assert.True(t, ok, "notice should render inside the attached surface")
}

func TestSetEnabledLabel(t *testing.T) {
	doc := newDoc(t)
	p := NewDOMPresenter(doc, nil)
	anchor, _ := doc.Query("#toolbar")
	require.NoError(t, p.Attach(anchor, AsChild))

	toggle, ok := doc.Query("[data-mailwing-toggle]")
	require.True(t, ok)
	assert.Equal(t, "false", toggle.Attr("data-enabled"))

	p.SetEnabled(true)
	assert.Equal(t, "true", toggle.Attr("data-enabled"))
	assert.Equal(t, "AI reply: on", toggle.Text())
}

func TestClickHandlers(t *testing.T) {
	doc := newDoc(t)
	p := NewDOMPresenter(doc, nil)

	var toggled, generated int
	p.OnToggle(func() { toggled++ })
	p.OnGenerate(func() { generated++ })

	p.ClickToggle()
	p.ClickGenerate()
	p.ClickGenerate()
	assert.Equal(t, 1, toggled)
	assert.Equal(t, 2, generated)
}
