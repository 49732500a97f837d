// Package extract pulls the visible message text out of the host page so it
// can be fed to the reply prompt. It works on whatever the page shows, not on
// any mail API: redundant body selectors pick the message containers and the
// text is normalized for prompting.
package extract

import (
	"fmt"
	"strings"

	"github.com/mailwing/mailwing/internal/dom"
)

// MessageText returns the concatenated visible text of the open
// conversation's message bodies. The first selector with any hits wins, so a
// precise selector earlier in the list shadows the broad fallbacks behind it.
// maxChars > 0 caps the result (in runes) to keep prompts bounded.
func MessageText(doc dom.Document, bodySelectors []string, maxChars int) (string, error) {
	var parts []string
	for _, sel := range bodySelectors {
		nodes := doc.QueryAll(sel)
		if len(nodes) == 0 {
			continue
		}
		for _, n := range nodes {
			if txt := strings.TrimSpace(n.Text()); txt != "" {
				parts = append(parts, txt)
			}
		}
		if len(parts) > 0 {
			break
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no message text found")
	}

	body := normalize(strings.Join(parts, "\n\n"))
	if maxChars > 0 {
		if r := []rune(body); len(r) > maxChars {
			body = string(r[:maxChars])
		}
	}
	return body, nil
}

// normalize collapses runs of blank lines and trims trailing spaces so the
// prompt does not carry the page's layout whitespace.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blanks = 0
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
