// Package markdown holds Telegram MarkdownV2 helpers.
package markdown

import (
	"strings"
	"unicode/utf8"
)

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `\_*[]()~` + "`" + `>#+-=|{}.!`

const ellipsis = "…"

var mdV2SpecialCharLookup = func() [256]bool { //nolint:gochecknoglobals // Read-only lookup table.
	var m [256]bool
	for _, c := range []byte(mdV2SpecialChars) {
		m[c] = true
	}
	return m
}()

func EscapeV2(input string) string {
	charsToEscape := 0

	for i := range len(input) {
		if mdV2SpecialCharLookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if mdV2SpecialCharLookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// Bold escapes text and wraps it in bold markup.
func Bold(text string) string {
	return "*" + EscapeV2(text) + "*"
}

// Truncate shortens escaped MarkdownV2 text to at most maxChars characters,
// appending an ellipsis. It never leaves a dangling escape backslash.
func Truncate(escaped string, maxChars int) string {
	if utf8.RuneCountInString(escaped) <= maxChars {
		return escaped
	}
	if maxChars <= 0 {
		return ""
	}

	runes := []rune(escaped)
	cut := runes[:maxChars-1]

	trailing := 0
	for i := len(cut) - 1; i >= 0 && cut[i] == '\\'; i-- {
		trailing++
	}
	if trailing%2 == 1 {
		cut = cut[:len(cut)-1]
	}

	return string(cut) + ellipsis
}
