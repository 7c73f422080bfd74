package extractor

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const DefaultMaxContentLength = 50000

var (
	newlineRunRe = regexp.MustCompile(`[^\S\r\n]*[\r\n]\s*`)
	spaceRunRe   = regexp.MustCompile(`[^\S\n]+`)
)

// DocumentContext is everything known about the page being summarized.
type DocumentContext struct {
	URL         *url.URL
	Document    *goquery.Document
	Selection   string
	ContentType string
	Body        []byte
}

func (dc DocumentContext) host() string {
	if dc.URL == nil {
		return ""
	}

	return strings.ToLower(dc.URL.Host)
}

func (dc DocumentContext) path() string {
	if dc.URL == nil {
		return ""
	}

	return dc.URL.Path
}

type Extractor struct {
	rules            Rules
	maxContentLength int
	log              *slog.Logger
}

func New(rules Rules, maxContentLength int, log *slog.Logger) *Extractor {
	if maxContentLength <= 0 {
		maxContentLength = DefaultMaxContentLength
	}

	return &Extractor{
		rules:            rules,
		maxContentLength: maxContentLength,
		log:              log,
	}
}

// Extract returns the text to summarize, or "" when nothing was found.
// The heuristics are best effort: a panic in any of them yields "".
func (e *Extractor) Extract(ctx context.Context, dc DocumentContext) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.ErrorContext(ctx, "Content extraction panicked",
				"panic", r,
				"host", dc.host(),
				"path", dc.path())

			text = ""
		}
	}()

	variant, text := e.extract(dc)

	e.log.DebugContext(ctx, "Content is extracted",
		"variant", variant,
		"host", dc.host(),
		"textLen", len([]rune(text)))

	return text
}

func (e *Extractor) extract(dc DocumentContext) (string, string) {
	if selection := strings.TrimSpace(dc.Selection); selection != "" {
		return "selection", selection
	}

	if text, ok := e.extractPDF(dc); ok {
		return "pdf", text
	}

	if text, ok := e.extractFeed(dc); ok {
		return "feed", text
	}

	if dc.Document == nil {
		return "none", ""
	}

	if text, ok := e.extractStructured(dc); ok {
		return "structured", text
	}

	if text, ok := e.extractSite(dc); ok {
		return "site", text
	}

	return "generic", e.extractGeneric(dc.Document)
}

func (e *Extractor) extractPDF(dc DocumentContext) (string, bool) {
	if isPDFContentType(dc.ContentType) {
		return e.rules.PDF.Advisory, true
	}

	if dc.Document == nil {
		return "", false
	}

	if e.rules.PDF.Viewer == "" || dc.Document.Find(e.rules.PDF.Viewer).Length() == 0 {
		return "", false
	}

	layers := dc.Document.Find(e.rules.PDF.TextLayer)
	if layers.Length() == 0 {
		return e.rules.PDF.Advisory, true
	}

	parts := make([]string, 0, layers.Length())
	layers.Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})

	return strings.Join(parts, " "), true
}

func (e *Extractor) extractStructured(dc DocumentContext) (string, bool) {
	host := dc.host()
	path := dc.path()

	for _, rule := range e.rules.Structured {
		if !strings.Contains(host, strings.ToLower(rule.Host)) {
			continue
		}

		for _, p := range rule.Paths {
			if !strings.Contains(path, p.Path) {
				continue
			}

			var lines []string
			dc.Document.Find(p.Selector).Each(func(_ int, s *goquery.Selection) {
				if line := strings.TrimSpace(s.Text()); line != "" {
					lines = append(lines, line)
				}
			})

			return strings.Join(lines, "\n"), true
		}
	}

	return "", false
}

func (e *Extractor) extractSite(dc DocumentContext) (string, bool) {
	host := dc.host()

	for _, rule := range e.rules.Sites {
		if !strings.Contains(host, strings.ToLower(rule.Host)) {
			continue
		}

		switch rule.Mode {
		case SiteModeFirst:
			if node := dc.Document.Find(rule.Selector).First(); node.Length() > 0 {
				return node.Text(), true
			}
			return dc.Document.Find("body").Text(), true
		default:
			var parts []string
			dc.Document.Find(rule.Selector).Each(func(_ int, s *goquery.Selection) {
				parts = append(parts, s.Text())
			})
			return strings.Join(parts, rule.Separator), true
		}
	}

	return "", false
}

func (e *Extractor) extractGeneric(doc *goquery.Document) string {
	container := e.genericContainer(doc)
	if container.Length() == 0 {
		return ""
	}

	// Work on a copy so the caller's document stays intact.
	content := container.Clone()
	if e.rules.Generic.Remove != "" {
		content.Find(e.rules.Generic.Remove).Remove()
	}

	return truncateRunes(CollapseWhitespace(content.Text()), e.maxContentLength)
}

func (e *Extractor) genericContainer(doc *goquery.Document) *goquery.Selection {
	for _, selector := range e.rules.Generic.Containers {
		if found := doc.Find(selector).First(); found.Length() > 0 {
			return found
		}
	}

	return doc.Find("body").First()
}

// CollapseWhitespace turns every whitespace run containing a line break into a
// single newline, every other whitespace run into a single space, and trims.
func CollapseWhitespace(text string) string {
	text = newlineRunRe.ReplaceAllString(text, "\n")
	text = spaceRunRe.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}

func isPDFContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/pdf")
}
