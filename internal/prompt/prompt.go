// Package prompt turns extracted page text into a model instruction.
package prompt

import (
	"clipgenie/internal/domain"
)

const (
	// DefaultLongContentThreshold is the length above which content counts
	// as long and gets the more thorough instruction.
	DefaultLongContentThreshold = 10000
	// TweetInputLimit caps the input of the tweet format regardless of length.
	TweetInputLimit = 1000
)

type template struct {
	short string
	long  string
}

var templates = map[domain.Format]template{ //nolint:gochecknoglobals // Read-only.
	domain.FormatBullets: {
		short: "Summarize these key points in concise bullet points:",
		long:  "Analyze this comprehensive content and provide 7-10 key bullet points covering all main topics:",
	},
	domain.FormatParagraph: {
		short: "Write a concise summary (100-200 words):",
		long: "Write a detailed executive summary (400-600 words) capturing all essential information " +
			"from this comprehensive document. Include key findings, conclusions, and recommendations:",
	},
	domain.FormatTweet: {
		short: "Distill the core message into one insightful tweet (280 characters max). " +
			"Capture the essence while being engaging:",
		long: "Distill the core message into one insightful tweet (280 characters max). " +
			"Capture the essence while being engaging:",
	},
	domain.FormatLinkedIn: {
		short: "Summarize in 5-7 concise bullet points for a professional LinkedIn post:",
		long: "Create a professional LinkedIn post summary with 5-7 concise bullet points " +
			"highlighting key insights, designed to engage a professional audience:",
	},
}

type Builder struct {
	longContentThreshold int
}

func NewBuilder(longContentThreshold int) *Builder {
	if longContentThreshold <= 0 {
		longContentThreshold = DefaultLongContentThreshold
	}

	return &Builder{longContentThreshold: longContentThreshold}
}

// Build selects the instruction for format and appends text to it. Unknown
// formats use the bullet template.
func (b *Builder) Build(text string, format domain.Format) string {
	tmpl, ok := templates[format]
	if !ok {
		format = domain.FormatBullets
		tmpl = templates[format]
	}

	runes := []rune(text)

	if format == domain.FormatTweet {
		if len(runes) > TweetInputLimit {
			text = string(runes[:TweetInputLimit])
		}

		return tmpl.short + "\n" + text
	}

	if len(runes) > b.longContentThreshold {
		return tmpl.long + "\n" + text
	}

	return tmpl.short + "\n" + text
}

func (b *Builder) IsLong(text string) bool {
	return len([]rune(text)) > b.longContentThreshold
}

// Build uses the default threshold.
func Build(text string, format domain.Format) string {
	return NewBuilder(DefaultLongContentThreshold).Build(text, format)
}
