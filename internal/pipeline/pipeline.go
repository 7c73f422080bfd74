package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"clipgenie/internal/domain"
	"clipgenie/internal/extractor"
	"clipgenie/internal/render"
	"clipgenie/internal/summarizer"
)

var (
	ErrMissingCredential = summarizer.ErrMissingCredential
	ErrNoActiveTarget    = errors.New("no active target")
	ErrNoContentFound    = errors.New("no content found")
)

type Status int

const (
	StatusCompleted Status = iota
	// StatusRejected means another run of the same session was in flight;
	// nothing was done.
	StatusRejected
)

// Target is the page to summarize. HTML, when present, is used as is;
// otherwise URL is fetched. A selection alone is a valid target.
type Target struct {
	URL       string
	HTML      string
	Selection string
}

func (t *Target) empty() bool {
	return t == nil ||
		strings.TrimSpace(t.URL) == "" &&
			strings.TrimSpace(t.HTML) == "" &&
			strings.TrimSpace(t.Selection) == ""
}

type Request struct {
	Target     *Target
	Format     domain.Format
	Credential string
}

type Result struct {
	Status         Status
	Format         domain.Format
	ExtractedChars int
	Summary        domain.SummaryResponse
	HTML           string
	PlainText      string
}

type PageLoader interface {
	Load(ctx context.Context, rawURL string, selection string) (extractor.DocumentContext, error)
	FromHTML(rawURL string, html string, selection string) (extractor.DocumentContext, error)
}

type ContentExtractor interface {
	Extract(ctx context.Context, dc extractor.DocumentContext) string
}

type PromptBuilder interface {
	Build(text string, format domain.Format) string
}

type Options struct {
	ModelID   string
	MaxTokens int64
}

// Pipeline runs extraction, prompt building, summarization and rendering in
// sequence. It holds no per-run state; Session does.
type Pipeline struct {
	loader     PageLoader
	extractor  ContentExtractor
	prompts    PromptBuilder
	summarizer summarizer.Summarizer
	opts       Options
	log        *slog.Logger
}

func New(
	loader PageLoader,
	ext ContentExtractor,
	prompts PromptBuilder,
	s summarizer.Summarizer,
	opts Options,
	log *slog.Logger,
) *Pipeline {
	return &Pipeline{
		loader:     loader,
		extractor:  ext,
		prompts:    prompts,
		summarizer: s,
		opts:       opts,
		log:        log,
	}
}

func (p *Pipeline) run(ctx context.Context, req Request, progress ProgressFunc) (Result, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return Result{}, ErrMissingCredential
	}

	if req.Target.empty() {
		return Result{}, ErrNoActiveTarget
	}

	format := req.Format
	if !format.Valid() {
		format = domain.DefaultFormat
	}

	progress.report(ctx, StageExtracting, 0)

	dc := p.documentContext(ctx, req.Target)

	text := p.extractor.Extract(ctx, dc)
	if text == "" {
		return Result{}, ErrNoContentFound
	}

	extractedChars := len([]rune(text))
	progress.report(ctx, StageProcessing, extractedChars)

	promptText := p.prompts.Build(text, format)

	progress.report(ctx, StageSummarizing, extractedChars)

	resp, err := p.summarizer.Summarize(ctx, domain.SummaryRequest{
		PromptText: promptText,
		Format:     format,
		ModelID:    p.opts.ModelID,
		MaxTokens:  p.opts.MaxTokens,
	}, req.Credential)
	if err != nil {
		return Result{}, err
	}

	rendered := render.HTML(resp.SummaryText, format)

	return Result{
		Status:         StatusCompleted,
		Format:         format,
		ExtractedChars: extractedChars,
		Summary:        resp,
		HTML:           rendered,
		PlainText:      render.PlainText(rendered),
	}, nil
}

// documentContext never fails: a page that cannot be loaded still carries the
// selection and otherwise extracts to nothing.
func (p *Pipeline) documentContext(ctx context.Context, target *Target) extractor.DocumentContext {
	fallback := extractor.DocumentContext{Selection: target.Selection}

	switch {
	case strings.TrimSpace(target.HTML) != "":
		dc, err := p.loader.FromHTML(target.URL, target.HTML, target.Selection)
		if err != nil {
			p.log.WarnContext(ctx, "Failed to parse page HTML",
				"error", err,
				"url", target.URL,
				"htmlLen", len(target.HTML))

			return fallback
		}
		return dc

	case strings.TrimSpace(target.URL) != "":
		dc, err := p.loader.Load(ctx, target.URL, target.Selection)
		if err != nil {
			p.log.WarnContext(ctx, "Failed to load page",
				"error", err,
				"url", target.URL)

			return fallback
		}
		return dc

	default:
		return fallback
	}
}

// Session serializes runs for one user: a run started while another is in
// flight is rejected. It also keeps the last rendered result.
type Session struct {
	pipeline *Pipeline
	running  atomic.Bool

	mu   sync.Mutex
	last *Result
}

func (p *Pipeline) NewSession() *Session {
	return &Session{pipeline: p}
}

func (s *Session) Run(ctx context.Context, req Request, progress ProgressFunc) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{Status: StatusRejected}, nil
	}
	defer s.running.Store(false)

	progress.report(ctx, StageStarting, 0)

	res, err := s.pipeline.run(ctx, req, progress)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()

	return res, nil
}

func (s *Session) Running() bool {
	return s.running.Load()
}

// Last returns the most recent completed result.
func (s *Session) Last() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return Result{}, false
	}

	return *s.last, true
}

// Sessions hands out one session per key.
type Sessions struct {
	pipeline *Pipeline

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessions(p *Pipeline) *Sessions {
	return &Sessions{
		pipeline: p,
		sessions: make(map[string]*Session),
	}
}

func (s *Sessions) Get(key string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[key]
	if !ok {
		session = s.pipeline.NewSession()
		s.sessions[key] = session
	}

	return session
}
