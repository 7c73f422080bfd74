package summarizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clipgenie/internal/domain"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL         = "https://openrouter.ai/api/v1"
	DefaultModel           = "mistralai/mistral-small-3.2-24b-instruct:free"
	DefaultMaxTokens int64 = 1000
	DefaultTitle           = "Web Summarizer Extension"

	quotaRemainingHeader = "x-ratelimit-remaining"
	quotaResetHeader     = "x-ratelimit-reset"

	maxErrorBodyBytes = 64 << 10
)

type Options struct {
	BaseURL   string
	Model     string
	MaxTokens int64
	// Referer and Title are OpenRouter attribution headers.
	Referer string
	Title   string
	// Timeout bounds the whole exchange; zero means no timeout.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenRouterSummarizer calls an OpenAI-compatible chat completion endpoint
// (OpenRouter by default). The SDK retries are disabled: one call, one request.
type OpenRouterSummarizer struct {
	client    openai.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	log       *slog.Logger
}

func NewOpenRouterSummarizer(opts Options, log *slog.Logger) *OpenRouterSummarizer {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = DefaultTitle
	}

	clientOpts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
		option.WithHeader("X-Title", title),
		option.WithMiddleware(traceMiddleware(log)),
	}
	if referer := strings.TrimSpace(opts.Referer); referer != "" {
		clientOpts = append(clientOpts, option.WithHeader("HTTP-Referer", referer))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &OpenRouterSummarizer{
		client:    openai.NewClient(clientOpts...),
		model:     model,
		maxTokens: maxTokens,
		timeout:   opts.Timeout,
		log:       log,
	}
}

// NewRequest fills the model defaults of the summarizer.
func (s *OpenRouterSummarizer) NewRequest(promptText string, format domain.Format) domain.SummaryRequest {
	return domain.SummaryRequest{
		PromptText: promptText,
		Format:     format,
		ModelID:    s.model,
		MaxTokens:  s.maxTokens,
	}
}

func (s *OpenRouterSummarizer) Summarize(
	ctx context.Context,
	req domain.SummaryRequest,
	credential string,
) (domain.SummaryResponse, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return domain.SummaryResponse{}, ErrMissingCredential
	}

	model := req.ModelID
	if model == "" {
		model = s.model
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.maxTokens
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var x exchange

	completion, err := s.client.Chat.Completions.New(ctx,
		openai.ChatCompletionNewParams{
			Model: openai.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(req.PromptText),
			},
			MaxTokens: openai.Int(maxTokens),
		},
		option.WithAPIKey(credential),
		option.WithMiddleware(x.capture),
	)
	if err != nil {
		classified := x.classify(err)

		s.log.WarnContext(ctx, "Summary request failed",
			"error", err,
			"status", x.status,
			"model", model,
			"format", req.Format,
			"promptLen", len([]rune(req.PromptText)))

		return domain.SummaryResponse{}, classified
	}

	content := ""
	if completion != nil && len(completion.Choices) > 0 {
		content = completion.Choices[0].Message.Content
	}
	if content == "" {
		content = NoResponseText
	}

	return domain.SummaryResponse{
		SummaryText:       PostProcess(content),
		QuotaRemaining:    optionalInt(x.header.Get(quotaRemainingHeader)),
		QuotaResetSeconds: optionalInt(x.header.Get(quotaResetHeader)),
	}, nil
}

// exchange records what came back over the wire for a single call.
type exchange struct {
	status    int
	header    http.Header
	errorBody []byte
}

func (x *exchange) capture(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	resp, err := next(req)
	if err != nil || resp == nil {
		return resp, err
	}

	x.status = resp.StatusCode
	x.header = resp.Header.Clone()

	if resp.StatusCode >= http.StatusBadRequest && resp.Body != nil {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		_ = resp.Body.Close()
		if readErr == nil {
			x.errorBody = body
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}

	return resp, nil
}

func (x *exchange) classify(err error) error {
	status := x.status

	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		status = apiErr.StatusCode
	}

	switch {
	case status == http.StatusUnauthorized:
		return ErrInvalidCredential
	case status == http.StatusTooManyRequests:
		return &RateLimitedError{RetryAfterSeconds: retryAfterSeconds(x.header.Get(quotaResetHeader))}
	case status != 0:
		return &RequestFailedError{
			StatusCode: status,
			Message:    serviceErrorMessage(x.errorBody, apiErr),
			Err:        err,
		}
	default:
		return &RequestFailedError{
			Message: fallbackErrorMessage,
			Err:     fmt.Errorf("do request: %w", err),
		}
	}
}

func serviceErrorMessage(body []byte, apiErr *openai.Error) string {
	if len(body) > 0 && gjson.ValidBytes(body) {
		if msg := strings.TrimSpace(gjson.GetBytes(body, "error.message").String()); msg != "" {
			return msg
		}
	}

	if apiErr != nil {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return msg
		}
	}

	return fallbackErrorMessage
}

func traceMiddleware(log *slog.Logger) option.Middleware {
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		start := time.Now()
		ctx := req.Context()

		requestID := strings.TrimSpace(req.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
			req.Header.Set("X-Request-Id", requestID)
		}

		resp, err := next(req)
		if err != nil {
			log.ErrorContext(ctx, "Summary HTTP request failed",
				"error", err,
				"requestID", requestID,
				"method", req.Method,
				"host", req.URL.Host,
				"path", req.URL.Path,
				"durationMs", time.Since(start).Milliseconds())

			return resp, err
		}

		log.DebugContext(ctx, "Summary HTTP request is done",
			"requestID", requestID,
			"method", req.Method,
			"host", req.URL.Host,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"durationMs", time.Since(start).Milliseconds())

		return resp, nil
	}
}
