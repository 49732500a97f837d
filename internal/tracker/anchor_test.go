package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailwing/mailwing/internal/detect"
	"github.com/mailwing/mailwing/internal/surface"
)

func TestFindAnchorCascade(t *testing.T) {
	cases := []struct {
		name     string
		markup   string
		strategy string
		mode     surface.InsertMode
	}{
		{
			name:     "reply toolbar wins when present",
			markup:   emailMarkup,
			strategy: "reply_toolbar",
			mode:     surface.AsChild,
		},
		{
			name: "action row inferred from reply button ancestry",
			markup: `<html><body><div role="main">
				<div id="actions">
					<div role="button" aria-label="Reply">Reply</div>
					<div role="button" aria-label="Archive">Archive</div>
				</div>
			</div></body></html>`,
			strategy: "action_row",
			mode:     surface.AsChild,
		},
		{
			name: "email header as sibling",
			markup: `<html><body><div role="main">
				<div class="ha"><h2>Subject</h2></div>
			</div></body></html>`,
			strategy: "email_header",
			mode:     surface.AsSibling,
		},
		{
			name: "lone reply button as sibling",
			markup: `<html><body>
				<div role="button" aria-label="Reply">Reply</div>
			</body></html>`,
			strategy: "reply_button",
			mode:     surface.AsSibling,
		},
		{
			name:     "message node as sibling",
			markup:   `<html><body><div data-message-id="m1">text</div></body></html>`,
			strategy: "message_node",
			mode:     surface.AsSibling,
		},
		{
			name:     "main region as child",
			markup:   `<html><body><div role="main"></div></body></html>`,
			strategy: "main_region",
			mode:     surface.AsChild,
		},
		{
			name:     "document body is the last resort",
			markup:   `<html><body></body></html>`,
			strategy: "document_body",
			mode:     surface.AsChild,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, threadAURL, tc.markup)
			anchor, mode, strategy := f.tr.findAnchor(detect.EmailView)
			require.NotNil(t, anchor)
			assert.Equal(t, tc.strategy, strategy)
			assert.Equal(t, tc.mode, mode)
		})
	}
}

func TestFindAnchorActionRowNeedsTwoInteractive(t *testing.T) {
	// A reply button whose ancestors never hold two interactive children
	// must fall past the action-row heuristic to the plain sibling level.
	markup := `<html><body><div>
		<div><div role="button" aria-label="Reply">Reply</div></div>
	</div></body></html>`
	f := newFixture(t, threadAURL, markup)
	_, _, strategy := f.tr.findAnchor(detect.EmailView)
	assert.Equal(t, "reply_button", strategy)
}

func TestAttachPlacesSurfaceInsideToolbar(t *testing.T) {
	f := newFixture(t, threadAURL, emailMarkup)
	f.tr.Reconcile(context.Background())

	root, ok := f.doc.Query("[" + surface.RootMarker + "]")
	require.True(t, ok)
	assert.Equal(t, "amn", root.Parent().Attr("class"))
}
