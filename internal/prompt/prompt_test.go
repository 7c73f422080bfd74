package prompt_test

import (
	"strings"
	"testing"

	"clipgenie/internal/domain"
	"clipgenie/internal/prompt"
)

func TestBuildShortTemplates(t *testing.T) {
	tests := []struct {
		format domain.Format
		prefix string
	}{
		{domain.FormatBullets, "Summarize these key points in concise bullet points:\n"},
		{domain.FormatParagraph, "Write a concise summary (100-200 words):\n"},
		{domain.FormatTweet, "Distill the core message into one insightful tweet (280 characters max)."},
		{domain.FormatLinkedIn, "Summarize in 5-7 concise bullet points for a professional LinkedIn post:\n"},
	}

	for _, test := range tests {
		t.Run(string(test.format), func(t *testing.T) {
			got := prompt.Build("short text", test.format)

			if !strings.HasPrefix(got, test.prefix) {
				t.Fatalf("expected prefix %q, got %q", test.prefix, got)
			}

			if !strings.HasSuffix(got, "\nshort text") {
				t.Fatalf("expected text to follow the instruction, got %q", got)
			}
		})
	}
}

func TestBuildLongTemplates(t *testing.T) {
	text := strings.Repeat("a", prompt.DefaultLongContentThreshold+1)

	tests := []struct {
		format domain.Format
		prefix string
	}{
		{domain.FormatBullets, "Analyze this comprehensive content and provide 7-10 key bullet points"},
		{domain.FormatParagraph, "Write a detailed executive summary (400-600 words)"},
		{domain.FormatLinkedIn, "Create a professional LinkedIn post summary with 5-7 concise bullet points"},
	}

	for _, test := range tests {
		t.Run(string(test.format), func(t *testing.T) {
			got := prompt.Build(text, test.format)

			if !strings.HasPrefix(got, test.prefix) {
				t.Fatalf("expected long template %q, got prefix %q", test.prefix, got[:80])
			}

			if !strings.HasSuffix(got, text) {
				t.Fatalf("expected full text in long prompt")
			}
		})
	}
}

func TestBuildThresholdIsExclusive(t *testing.T) {
	text := strings.Repeat("a", prompt.DefaultLongContentThreshold)

	if got := prompt.Build(text, domain.FormatBullets); !strings.HasPrefix(got, "Summarize these key points") {
		t.Fatalf("expected short template at exactly the threshold")
	}
}

func TestBuildTweetTruncatesInput(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"empty", 0, 0},
		{"under limit", 500, 500},
		{"at limit", prompt.TweetInputLimit, prompt.TweetInputLimit},
		{"over limit", 5000, prompt.TweetInputLimit},
		{"long content", prompt.DefaultLongContentThreshold * 3, prompt.TweetInputLimit},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			text := strings.Repeat("ж", test.length)
			got := prompt.Build(text, domain.FormatTweet)

			_, body, ok := strings.Cut(got, "\n")
			if !ok {
				t.Fatalf("expected instruction and text separated by newline, got %q", got)
			}

			if n := len([]rune(body)); n != test.want {
				t.Fatalf("expected %d characters of input, got %d", test.want, n)
			}

			if !strings.HasPrefix(got, "Distill the core message") {
				t.Fatalf("expected tweet template, got %q", got[:40])
			}
		})
	}
}

func TestBuildUnknownFormatFallsBackToBullets(t *testing.T) {
	want := prompt.Build("text", domain.FormatBullets)

	for range 3 {
		if got := prompt.Build("text", domain.Format("haiku")); got != want {
			t.Fatalf("expected bullet template, got %q", got)
		}
	}
}

func TestBuildEmptyInput(t *testing.T) {
	got := prompt.Build("", domain.FormatParagraph)
	if got != "Write a concise summary (100-200 words):\n" {
		t.Fatalf("unexpected prompt for empty input: %q", got)
	}
}

func TestBuilderCustomThreshold(t *testing.T) {
	b := prompt.NewBuilder(5)

	if !b.IsLong("123456") {
		t.Fatalf("expected text over custom threshold to be long")
	}

	if got := b.Build("123456", domain.FormatBullets); !strings.HasPrefix(got, "Analyze this comprehensive content") {
		t.Fatalf("expected long template with custom threshold, got %q", got)
	}
}
