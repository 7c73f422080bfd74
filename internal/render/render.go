// Package render turns summary text into the user-facing renderings: HTML for
// the extension and exports, plain text for clips, MarkdownV2 for Telegram.
package render

import (
	"fmt"
	"strings"

	"clipgenie/internal/domain"
	"clipgenie/internal/markdown"

	"github.com/PuerkitoBio/goquery"
)

const (
	TweetHashtags    = "#summary #insight #knowledge"
	LinkedInIntro    = "Excited to share key insights from my recent read! 📚 Here's a concise summary to spark discussion and inspire growth."
	LinkedInHashtags = "#ProfessionalDevelopment #CareerGrowth #IndustryInsights #Leadership"
	LinkedInOutro    = "💡 What are your thoughts on these insights? Let's discuss in the comments below! " + LinkedInHashtags

	// paragraphMark survives HTML parsing and marks a wanted blank line.
	paragraphMark = "\uE000"
)

// HTML wraps summary for format. Paragraphs and unknown formats are returned
// unchanged.
func HTML(summary string, format domain.Format) string {
	switch format {
	case domain.FormatBullets:
		return "<ul>" + summary + "</ul>"
	case domain.FormatTweet:
		return `<div class="tweet-style">` + summary + "<br><br>" + TweetHashtags + " 🚀</div>"
	case domain.FormatLinkedIn:
		return `<div class="linkedin-style">` +
			"<p>" + LinkedInIntro + "</p>" +
			"<ul>" + summary + "</ul>" +
			"<p>" + LinkedInOutro + "</p>" +
			"</div>"
	default:
		return summary
	}
}

// PlainText is the readable text of a rendering: list items become "• "
// lines, line breaks and paragraphs become blank lines.
func PlainText(rendered string) string {
	if !strings.Contains(rendered, "<") {
		return strings.TrimSpace(rendered)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return strings.TrimSpace(rendered)
	}

	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("\n" + paragraphMark + "\n")
	})
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n• ")
		s.AppendHtml("\n")
	})
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n" + paragraphMark + "\n")
		s.AppendHtml("\n" + paragraphMark + "\n")
	})

	return tidyLines(doc.Text())
}

// Telegram renders summary as MarkdownV2.
func Telegram(summary string, format domain.Format) string {
	return markdown.EscapeV2(PlainText(HTML(summary, format)))
}

// QuotaStatus describes the remaining quota, or "" when it is unknown.
func QuotaStatus(resp domain.SummaryResponse) string {
	if resp.QuotaRemaining == nil {
		return ""
	}

	reset := "?"
	if resp.QuotaResetSeconds != nil {
		reset = fmt.Sprintf("%d", *resp.QuotaResetSeconds)
	}

	return fmt.Sprintf("API Quota: %d remaining | Resets in %ss", *resp.QuotaRemaining, reset)
}

// tidyLines trims every line and drops empty ones; a paragraph mark turns
// into a single blank line between the surrounding text.
func tidyLines(text string) string {
	var out []string
	pendingBlank := false

	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, paragraphMark) {
			pendingBlank = true
			line = strings.ReplaceAll(line, paragraphMark, "")
		}

		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}

		if pendingBlank && len(out) > 0 {
			out = append(out, "")
		}
		pendingBlank = false

		out = append(out, line)
	}

	return strings.Join(out, "\n")
}
