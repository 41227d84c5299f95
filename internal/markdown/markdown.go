// Package markdown handles the bot's markdown replies: detection, repair, rendering and
// product extraction.
package markdown

import (
	"regexp"
	"strings"
)

// markdownHint matches bold markers, image syntax, link syntax or any currency symbol.
var markdownHint = regexp.MustCompile(`\*\*|!\[|\[[^\]]*\]\(|\p{Sc}`)

// IsMarkdown reports whether text looks like a formatted reply rather than plain prose.
func IsMarkdown(text string) bool {
	return markdownHint.MatchString(text)
}

// FixMarkdown closes an unterminated code block and unterminated inline code.
func FixMarkdown(text string) string {
	if strings.Count(text, codeFence)%2 != 0 {
		text += "\n" + codeFence
	}
	return closeCodeSpans(text)
}

const codeFence = "```"

// closeCodeSpans balances single backticks in the prose between fences. A dangling span
// is closed at the end of its segment, before any trailing whitespace, so the following
// fence stays intact.
func closeCodeSpans(text string) string {
	segments := strings.Split(text, codeFence)
	for i := 0; i < len(segments); i += 2 {
		prose := segments[i]
		if strings.Count(prose, "`")%2 == 0 {
			continue
		}
		body := strings.TrimRight(prose, " \t\n")
		segments[i] = body + "`" + prose[len(body):]
	}
	return strings.Join(segments, codeFence)
}
