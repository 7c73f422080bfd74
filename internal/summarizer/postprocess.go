package summarizer

import (
	"regexp"
	"strings"
)

const NoResponseText = "No response generated"

var (
	thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
	bulletLineRe = regexp.MustCompile(`(?m)^\* (.*?)$`)
)

// StripThinking removes reasoning blocks. It repeats until none are left, so
// tags reassembled by a removal are stripped as well and the result is stable.
func StripThinking(text string) string {
	for thinkBlockRe.MatchString(text) {
		text = thinkBlockRe.ReplaceAllString(text, "")
	}

	return text
}

// BulletsToListItems wraps every "* " line in <li> markup.
func BulletsToListItems(text string) string {
	return bulletLineRe.ReplaceAllString(text, "<li>${1}</li>")
}

// PostProcess turns raw model output into the summary text. Line endings are
// normalized to "\n" and surrounding whitespace is trimmed before the
// bullet rewrite.
func PostProcess(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = StripThinking(content)
	content = strings.TrimSpace(content)

	return BulletsToListItems(content)
}
