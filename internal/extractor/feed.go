package extractor

import (
	"bytes"
	"strings"

	"github.com/mmcdole/gofeed"
)

const feedItemSeparator = "\n\n"

var feedContentTypes = []string{ //nolint:gochecknoglobals // Read-only.
	"application/rss+xml",
	"application/atom+xml",
	"application/feed+json",
	"application/xml",
	"text/xml",
}

func isFeedContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	for _, t := range feedContentTypes {
		if strings.Contains(contentType, t) {
			return true
		}
	}

	return false
}

// extractFeed only applies to syndication feeds; anything gofeed cannot parse
// falls through to the HTML heuristics.
func (e *Extractor) extractFeed(dc DocumentContext) (string, bool) {
	if len(dc.Body) == 0 || !isFeedContentType(dc.ContentType) {
		return "", false
	}

	// gofeed.Parser sets its translators on first use, so it is not shared.
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(dc.Body))
	if err != nil || parsed == nil {
		return "", false
	}

	var parts []string
	if title := strings.TrimSpace(parsed.Title); title != "" {
		parts = append(parts, title)
	}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		var lines []string
		if title := strings.TrimSpace(item.Title); title != "" {
			lines = append(lines, title)
		}
		if description := CollapseWhitespace(stripTags(item.Description)); description != "" {
			lines = append(lines, description)
		}

		if len(lines) > 0 {
			parts = append(parts, strings.Join(lines, "\n"))
		}
	}

	return truncateRunes(strings.Join(parts, feedItemSeparator), e.maxContentLength), true
}
