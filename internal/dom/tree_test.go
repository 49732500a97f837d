package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMarkup = `<html><body>
<div role="main">
  <div class="toolbar">
    <div role="button" aria-label="Reply">Reply</div>
    <div role="button" aria-label="Forward">Forward</div>
  </div>
  <div data-message-id="m1"><div class="a3s">Hello there</div></div>
</div>
</body></html>`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument(sampleMarkup)
	require.NoError(t, err)
	require.NotNil(t, doc.Body())
	assert.Equal(t, "body", doc.Body().Tag())
}

func TestQueryAndAttrs(t *testing.T) {
	doc, err := ParseDocument(sampleMarkup)
	require.NoError(t, err)

	n, ok := doc.Query(`div[role="button"][aria-label="Reply"]`)
	require.True(t, ok)
	assert.Equal(t, "Reply", n.Attr("aria-label"))
	assert.Equal(t, "Reply", n.Text())

	_, ok = doc.Query(`div[role="dialog"]`)
	assert.False(t, ok)

	all := doc.QueryAll(`div[role="button"]`)
	assert.Len(t, all, 2)
}

func TestSubtreeScopedQuery(t *testing.T) {
	doc, err := ParseDocument(sampleMarkup)
	require.NoError(t, err)

	msg, ok := doc.Query(`div[data-message-id]`)
	require.True(t, ok)

	_, ok = msg.Query(`div[aria-label="Reply"]`)
	assert.False(t, ok, "query must not escape the subtree")

	body, ok := msg.Query(`div.a3s`)
	require.True(t, ok)
	assert.Equal(t, "Hello there", body.Text())
}

func TestMutationsAndConnectivity(t *testing.T) {
	doc, err := ParseDocument(sampleMarkup)
	require.NoError(t, err)

	var added, removed int
	cancel := doc.Observe(func(m Mutation) {
		added += len(m.Added)
		removed += len(m.Removed)
	})
	defer cancel()

	el := doc.CreateElement("div")
	el.SetAttr("data-probe", "1")
	assert.False(t, el.IsConnected())

	doc.Body().AppendChild(el)
	assert.True(t, el.IsConnected())
	assert.Equal(t, 1, added)

	got, ok := doc.Query(`div[data-probe]`)
	require.True(t, ok)
	assert.Equal(t, "1", got.Attr("data-probe"))

	el.Remove()
	assert.False(t, el.IsConnected())
	assert.Equal(t, 1, removed)
	_, ok = doc.Query(`div[data-probe]`)
	assert.False(t, ok)
}

func TestInsertAfter(t *testing.T) {
	doc, err := ParseDocument(sampleMarkup)
	require.NoError(t, err)

	toolbar, ok := doc.Query(`div.toolbar`)
	require.True(t, ok)

	el := doc.CreateElement("div")
	el.SetAttr("id", "after-toolbar")
	toolbar.InsertAfter(el)

	require.True(t, el.IsConnected())
	parent := el.Parent()
	require.NotNil(t, parent)
	assert.Equal(t, "main", parent.Attr("role"))
}

func TestSetTextReplacesChildren(t *testing.T) {
	doc, err := ParseDocument(sampleMarkup)
	require.NoError(t, err)

	n, ok := doc.Query(`div.a3s`)
	require.True(t, ok)
	n.SetText("replaced")
	assert.Equal(t, "replaced", n.Text())
}
