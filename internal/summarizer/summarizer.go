package summarizer

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"clipgenie/internal/domain"
)

const (
	defaultRetryAfterSeconds = 30
	fallbackErrorMessage     = "API request failed"
)

var (
	// ErrMissingCredential is returned before any network activity.
	ErrMissingCredential = errors.New("missing API key")
	ErrInvalidCredential = errors.New("invalid API key")
)

// RateLimitedError reports a 429 from the service.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return "rate limited (retry after " + strconv.Itoa(e.RetryAfterSeconds) + "s)"
}

// RequestFailedError covers every other unsuccessful exchange. Message is the
// service-provided error message when there is one.
type RequestFailedError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestFailedError) Error() string {
	return e.Message
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

// Summarizer performs exactly one summarization exchange per call.
type Summarizer interface {
	Summarize(
		ctx context.Context,
		req domain.SummaryRequest,
		credential string,
	) (domain.SummaryResponse, error)
}

// parseLeadingInt reads the leading decimal integer of s, ignoring whatever
// follows it ("12.5s" is 12).
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}

	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	if end == digitsStart {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}

	return n, true
}

func optionalInt(s string) *int {
	n, ok := parseLeadingInt(s)
	if !ok {
		return nil
	}

	return &n
}

func retryAfterSeconds(reset string) int {
	n, ok := parseLeadingInt(reset)
	if !ok || n <= 0 {
		return defaultRetryAfterSeconds
	}

	return n
}
