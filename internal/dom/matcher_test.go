package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchFirstOrder(t *testing.T) {
	doc, err := ParseDocument(`<html><body>
<div id="a" role="button"></div>
<div id="b" role="link"></div>
</body></html>`)
	require.NoError(t, err)

	n, ok := MatchFirst(doc, []string{`div[role="link"]`, `div[role="button"]`})
	require.True(t, ok)
	assert.Equal(t, "b", n.Attr("id"), "earlier selectors win even when later ones also match")
}

func TestMatchFirstSkipsBrokenSelectors(t *testing.T) {
	doc, err := ParseDocument(`<html><body><div id="a"></div></body></html>`)
	require.NoError(t, err)

	n, ok := MatchFirst(doc, []string{`div[[[`, `div#a`})
	require.True(t, ok, "a broken entry must not mask the rest of the list")
	assert.Equal(t, "a", n.Attr("id"))
}

func TestMatchFirstNoMatch(t *testing.T) {
	doc, err := ParseDocument(`<html><body><span></span></body></html>`)
	require.NoError(t, err)

	n, ok := MatchFirst(doc, []string{`div.x`, `div.y`})
	assert.False(t, ok)
	assert.Nil(t, n)
	assert.False(t, MatchAny(doc, []string{`div.x`}))

	n, ok = MatchFirst(nil, []string{`div`})
	assert.False(t, ok)
	assert.Nil(t, n)
}

func TestNodeMatchesAny(t *testing.T) {
	doc, err := ParseDocument(`<html><body>
	<div id="wrap"><div class="a3s">body</div></div>
	<span id="plain"></span>
	</body></html>`)
	require.NoError(t, err)

	wrap, ok := doc.Query(`#wrap`)
	require.True(t, ok)
	inner, ok := doc.Query(`.a3s`)
	require.True(t, ok)
	plain, ok := doc.Query(`#plain`)
	require.True(t, ok)

	sels := []string{`div.a3s`}
	assert.True(t, inner.Matches(`div.a3s`))
	assert.False(t, inner.Matches(`div[[[`), "broken selector matches nothing")
	assert.True(t, NodeMatchesAny(inner, sels), "self match")
	assert.True(t, NodeMatchesAny(wrap, sels), "subtree match")
	assert.False(t, NodeMatchesAny(plain, sels))
	assert.False(t, NodeMatchesAny(nil, sels))
}
