package pipeline

import (
	"errors"
	"fmt"

	"clipgenie/internal/summarizer"
)

const (
	MsgMissingCredential = "Please enter your OpenRouter API key first"
	MsgInvalidCredential = "Invalid API key"
	MsgNoContentFound    = "No text found. Please try a different page."
	MsgNoActiveTarget    = "No active tab found"
	MsgRequestFailed     = "API request failed"
	MsgUnexpected        = "Something went wrong. Please try again."
)

// UserMessage is the text shown to the user for an error returned by Run.
func UserMessage(err error) string {
	var (
		rateErr   *summarizer.RateLimitedError
		failedErr *summarizer.RequestFailedError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return MsgMissingCredential
	case errors.Is(err, summarizer.ErrInvalidCredential):
		return MsgInvalidCredential
	case errors.As(err, &rateErr):
		return fmt.Sprintf("Rate limited. Please wait %d seconds.", rateErr.RetryAfterSeconds)
	case errors.As(err, &failedErr):
		if failedErr.Message == "" {
			return MsgRequestFailed
		}
		return failedErr.Message
	case errors.Is(err, ErrNoContentFound):
		return MsgNoContentFound
	case errors.Is(err, ErrNoActiveTarget):
		return MsgNoActiveTarget
	default:
		return MsgUnexpected
	}
}
