package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"clipgenie/internal/domain"
	"clipgenie/internal/extractor"
	"clipgenie/internal/pipeline"
	"clipgenie/internal/prompt"
	"clipgenie/internal/summarizer"
)

const listItems = "<li>Point one</li>\n<li>Point two</li>"

type fakeSummarizer struct {
	mu      sync.Mutex
	calls   int
	lastReq domain.SummaryRequest
	resp    domain.SummaryResponse
	err     error
	// block, when set, holds Summarize until it is closed.
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeSummarizer) Summarize(
	_ context.Context,
	req domain.SummaryRequest,
	_ string,
) (domain.SummaryResponse, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.mu.Unlock()

	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}

	return f.resp, f.err
}

func (f *fakeSummarizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

func newPipeline(s summarizer.Summarizer) *pipeline.Pipeline {
	log := slog.Default()

	return pipeline.New(
		extractor.NewLoader(time.Second, log),
		extractor.New(extractor.DefaultRules(), 0, log),
		prompt.NewBuilder(0),
		s,
		pipeline.Options{ModelID: "test/model", MaxTokens: 100},
		log,
	)
}

func articleTarget() *pipeline.Target {
	return &pipeline.Target{
		URL:  "https://example.com/post",
		HTML: "<html><body><nav>Menu</nav><article><p>Article body text.</p></article></body></html>",
	}
}

func TestRunTweetEndToEnd(t *testing.T) {
	s := &fakeSummarizer{resp: domain.SummaryResponse{SummaryText: listItems}}
	session := newPipeline(s).NewSession()

	var stages []pipeline.Stage
	progress := func(_ context.Context, stage pipeline.Stage, _ int) {
		stages = append(stages, stage)
	}

	res, err := session.Run(context.Background(), pipeline.Request{
		Target:     articleTarget(),
		Format:     domain.FormatTweet,
		Credential: "secret",
	}, progress)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed status, got %v", res.Status)
	}

	for _, part := range []string{"<li>Point one</li>", "<li>Point two</li>", "#summary #insight #knowledge"} {
		if !strings.Contains(res.HTML, part) {
			t.Fatalf("expected %q in %q", part, res.HTML)
		}
	}

	if !strings.HasPrefix(s.lastReq.PromptText, "Distill the core message into one insightful tweet") {
		t.Fatalf("unexpected prompt: %q", s.lastReq.PromptText)
	}

	if !strings.HasSuffix(s.lastReq.PromptText, "\nArticle body text.") {
		t.Fatalf("expected extracted text in prompt, got %q", s.lastReq.PromptText)
	}

	if s.lastReq.ModelID != "test/model" || s.lastReq.MaxTokens != 100 {
		t.Fatalf("unexpected model settings: %+v", s.lastReq)
	}

	wantStages := []pipeline.Stage{
		pipeline.StageStarting,
		pipeline.StageExtracting,
		pipeline.StageProcessing,
		pipeline.StageSummarizing,
	}
	if len(stages) != len(wantStages) {
		t.Fatalf("unexpected stages: %v", stages)
	}
	for i := range wantStages {
		if stages[i] != wantStages[i] {
			t.Fatalf("unexpected stages: %v", stages)
		}
	}

	last, ok := session.Last()
	if !ok || last.HTML != res.HTML {
		t.Fatalf("expected last result to be stored")
	}
}

func TestRunSelectionOnly(t *testing.T) {
	s := &fakeSummarizer{resp: domain.SummaryResponse{SummaryText: "summary"}}
	session := newPipeline(s).NewSession()

	res, err := session.Run(context.Background(), pipeline.Request{
		Target:     &pipeline.Target{Selection: "  picked text  "},
		Format:     domain.FormatParagraph,
		Credential: "secret",
	}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.HTML != "summary" || res.ExtractedChars != len("picked text") {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunUnknownFormatUsesBullets(t *testing.T) {
	s := &fakeSummarizer{resp: domain.SummaryResponse{SummaryText: listItems}}
	session := newPipeline(s).NewSession()

	res, err := session.Run(context.Background(), pipeline.Request{
		Target:     &pipeline.Target{Selection: "text"},
		Format:     domain.Format("haiku"),
		Credential: "secret",
	}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Format != domain.FormatBullets || res.HTML != "<ul>"+listItems+"</ul>" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     pipeline.Request
		wantErr error
	}{
		{
			name:    "missing credential",
			req:     pipeline.Request{Target: articleTarget(), Credential: " "},
			wantErr: pipeline.ErrMissingCredential,
		},
		{
			name:    "no target",
			req:     pipeline.Request{Credential: "secret"},
			wantErr: pipeline.ErrNoActiveTarget,
		},
		{
			name:    "empty target",
			req:     pipeline.Request{Target: &pipeline.Target{}, Credential: "secret"},
			wantErr: pipeline.ErrNoActiveTarget,
		},
		{
			name: "no content",
			req: pipeline.Request{
				Target:     &pipeline.Target{HTML: "<html><body><script>x()</script></body></html>"},
				Credential: "secret",
			},
			wantErr: pipeline.ErrNoContentFound,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := &fakeSummarizer{}
			session := newPipeline(s).NewSession()

			_, err := session.Run(context.Background(), test.req, nil)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}

			if s.callCount() != 0 {
				t.Fatalf("expected no summary request, got %d", s.callCount())
			}

			if _, ok := session.Last(); ok {
				t.Fatalf("expected no stored result after failure")
			}
		})
	}
}

func TestRunPropagatesSummarizerError(t *testing.T) {
	s := &fakeSummarizer{err: &summarizer.RateLimitedError{RetryAfterSeconds: 12}}
	session := newPipeline(s).NewSession()

	_, err := session.Run(context.Background(), pipeline.Request{
		Target:     articleTarget(),
		Credential: "secret",
	}, nil)

	if got := pipeline.UserMessage(err); got != "Rate limited. Please wait 12 seconds." {
		t.Fatalf("unexpected user message: %q", got)
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	s := &fakeSummarizer{
		resp:    domain.SummaryResponse{SummaryText: "done"},
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	session := newPipeline(s).NewSession()

	req := pipeline.Request{
		Target:     &pipeline.Target{Selection: "text"},
		Format:     domain.FormatParagraph,
		Credential: "secret",
	}

	done := make(chan pipeline.Result, 1)
	go func() {
		res, err := session.Run(context.Background(), req, nil)
		if err != nil {
			t.Errorf("first run: %v", err)
		}
		done <- res
	}()

	<-s.entered

	if !session.Running() {
		t.Fatalf("expected session to be running")
	}

	res, err := session.Run(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Status != pipeline.StatusRejected {
		t.Fatalf("expected rejected status, got %v", res.Status)
	}

	close(s.block)

	if first := <-done; first.Status != pipeline.StatusCompleted {
		t.Fatalf("expected first run to complete, got %v", first.Status)
	}

	if s.callCount() != 1 {
		t.Fatalf("expected one summary request, got %d", s.callCount())
	}

	if session.Running() {
		t.Fatalf("expected session to be idle")
	}
}

func TestSessionsPerKey(t *testing.T) {
	sessions := pipeline.NewSessions(newPipeline(&fakeSummarizer{}))

	if sessions.Get("1") != sessions.Get("1") {
		t.Fatalf("expected the same session for the same key")
	}

	if sessions.Get("1") == sessions.Get("2") {
		t.Fatalf("expected distinct sessions for distinct keys")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"missing credential", pipeline.ErrMissingCredential, "Please enter your OpenRouter API key first"},
		{"invalid credential", summarizer.ErrInvalidCredential, "Invalid API key"},
		{"rate limited", &summarizer.RateLimitedError{RetryAfterSeconds: 30}, "Rate limited. Please wait 30 seconds."},
		{"service message", &summarizer.RequestFailedError{StatusCode: 400, Message: "Model not found"}, "Model not found"},
		{"request failed", &summarizer.RequestFailedError{}, "API request failed"},
		{"no content", pipeline.ErrNoContentFound, "No text found. Please try a different page."},
		{"no target", pipeline.ErrNoActiveTarget, "No active tab found"},
		{"other", errors.New("boom"), pipeline.MsgUnexpected},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := pipeline.UserMessage(test.err); got != test.want {
				t.Fatalf("got %q want %q", got, test.want)
			}
		})
	}
}

func TestProgressMessage(t *testing.T) {
	if got := pipeline.ProgressMessage(pipeline.StageProcessing, 12345); got != "Extracted 12,345 characters. Processing..." {
		t.Fatalf("unexpected progress message: %q", got)
	}
}
