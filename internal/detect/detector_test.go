package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailwing/mailwing/internal/dom"
	"github.com/mailwing/mailwing/internal/host"
)

const baseURL = "https://mail.example.com/mail/u/0/"

func newPage(t *testing.T, url, markup string) *host.SimPage {
	t.Helper()
	doc, err := dom.ParseDocument(markup)
	require.NoError(t, err)
	return host.NewSimPage(url, doc)
}

const listMarkup = `<html><body>
<div role="main">
  <table role="grid"><tbody><tr role="row"><td>a message row</td></tr></tbody></table>
</div>
</body></html>`

const emailMarkup = `<html><body>
<div role="main">
  <div class="ha"><h2 data-thread-perm-id="t-123">Subject line</h2></div>
  <div data-message-id="m1"><div class="a3s">Body text of the open message.</div></div>
  <div class="amn">
    <div role="button" aria-label="Reply">Reply</div>
    <div role="button" aria-label="Forward">Forward</div>
  </div>
</div>
</body></html>`

const composeMarkup = `<html><body>
<div role="main"><table role="grid"></table></div>
<div role="dialog" aria-label="Compose">
  <div aria-label="Message Body" contenteditable="true"></div>
  <div role="button" aria-label="Send">Send</div>
</div>
</body></html>`

func TestClassifyURLShortCircuit(t *testing.T) {
	// 20-char opaque segment in the fragment wins even over an empty DOM.
	p := newPage(t, baseURL+"#inbox/FMfcgAbCdEfGhIjK123456789", `<html><body></body></html>`)
	d := NewDetector(p, nil)
	assert.Equal(t, EmailView, d.Classify())
	assert.Equal(t, "FMfcgAbCdEfGhIjK123456789", d.ThreadID())
}

func TestClassifyComposeOverList(t *testing.T) {
	p := newPage(t, baseURL+"#inbox", composeMarkup)
	d := NewDetector(p, nil)
	assert.Equal(t, ComposeView, d.Classify())
}

func TestClassifyEmailFromContent(t *testing.T) {
	p := newPage(t, baseURL+"#inbox", emailMarkup)
	d := NewDetector(p, nil)
	assert.Equal(t, EmailView, d.Classify())
}

func TestClassifyReplyAffordanceFallback(t *testing.T) {
	p := newPage(t, baseURL+"#inbox", `<html><body>
<div role="button" aria-label="Reply all">Reply all</div>
</body></html>`)
	d := NewDetector(p, nil)
	assert.Equal(t, EmailView, d.Classify())
}

func TestClassifyListView(t *testing.T) {
	p := newPage(t, baseURL+"#inbox", listMarkup)
	d := NewDetector(p, nil)
	assert.Equal(t, ListView, d.Classify())
	assert.True(t, d.DefinitelyListView())
}

func TestDefinitelyListViewGuards(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{"open_dialog", `<html><body><div role="dialog"></div></body></html>`},
		{"thread_permalink", `<html><body><h2 data-thread-perm-id="x">s</h2></body></html>`},
		{"message_node", `<html><body><div data-message-id="m"></div></body></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPage(t, baseURL+"#inbox", tt.markup)
			d := NewDetector(p, nil)
			assert.False(t, d.DefinitelyListView())
		})
	}
}

func TestThreadIDFallsBackToURL(t *testing.T) {
	url := baseURL + "#inbox"
	p := newPage(t, url, listMarkup)
	d := NewDetector(p, nil)
	assert.Equal(t, url, d.ThreadID())
	// Stable across repeated resolution.
	assert.Equal(t, d.ThreadID(), d.ThreadID())
}

func TestThreadIDSkipsShortSegments(t *testing.T) {
	p := newPage(t, baseURL+"#search/foo/FMfcgAbCdEfGhIjK123456789", listMarkup)
	d := NewDetector(p, nil)
	assert.Equal(t, "FMfcgAbCdEfGhIjK123456789", d.ThreadID())
}

func TestThreadIDFreshPerCall(t *testing.T) {
	p := newPage(t, baseURL+"#inbox/AAAAABBBBBCCCCC11111", listMarkup)
	d := NewDetector(p, nil)
	assert.Equal(t, "AAAAABBBBBCCCCC11111", d.ThreadID())
	p.SetURL(baseURL + "#inbox/ZZZZZYYYYYXXXXX22222")
	assert.Equal(t, "ZZZZZYYYYYXXXXX22222", d.ThreadID())
}

func TestLoadSelectorPackMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compose:\n  - 'div.custom-compose'\n"), 0o644))

	pack, err := LoadSelectorPack(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"div.custom-compose"}, pack.Compose)
	// Untouched lists keep their defaults.
	assert.Equal(t, DefaultSelectors().EmailContent, pack.EmailContent)
}

func TestLoadSelectorPackErrors(t *testing.T) {
	_, err := LoadSelectorPack(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("compose: {not a list"), 0o644))
	_, err = LoadSelectorPack(bad)
	assert.Error(t, err)
}

func TestSetSelectorsSwapsPack(t *testing.T) {
	p := newPage(t, baseURL+"#inbox", `<html><body><div class="my-compose"></div></body></html>`)
	d := NewDetector(p, nil)
	assert.Equal(t, ListView, d.Classify())

	pack := DefaultSelectors()
	pack.Compose = []string{`div.my-compose`}
	d.SetSelectors(pack)
	assert.Equal(t, ComposeView, d.Classify())
}
