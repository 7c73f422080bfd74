package domain

import (
	"strings"
	"time"
)

type Format string

const (
	FormatBullets   Format = "bullets"
	FormatParagraph Format = "paragraph"
	FormatTweet     Format = "tweet"
	FormatLinkedIn  Format = "linkedin"

	DefaultFormat = FormatBullets
)

// Formats lists the supported output formats in display order.
var Formats = []Format{FormatBullets, FormatParagraph, FormatTweet, FormatLinkedIn} //nolint:gochecknoglobals // Read-only.

func (f Format) Valid() bool {
	switch f {
	case FormatBullets, FormatParagraph, FormatTweet, FormatLinkedIn:
		return true
	default:
		return false
	}
}

// ParseFormat never fails: unknown values fall back to DefaultFormat.
func ParseFormat(raw string) Format {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	if !f.Valid() {
		return DefaultFormat
	}

	return f
}

func (f Format) Title() string {
	switch f {
	case FormatBullets:
		return "Bullet points"
	case FormatParagraph:
		return "Paragraph"
	case FormatTweet:
		return "Tweet"
	case FormatLinkedIn:
		return "LinkedIn post"
	default:
		return string(f)
	}
}

type SummaryRequest struct {
	PromptText string
	Format     Format
	ModelID    string
	MaxTokens  int64
}

type SummaryResponse struct {
	SummaryText       string
	QuotaRemaining    *int
	QuotaResetSeconds *int
}

type Clip struct {
	ID        int64
	UserID    int64
	Text      string
	CreatedAt time.Time
}

type UserSettings struct {
	UserID int64
	APIKey string
	Format Format
}
