package pipeline

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Stage int

const (
	StageStarting Stage = iota
	StageExtracting
	StageProcessing
	StageSummarizing
)

// ProgressFunc receives stage changes of a run. A nil ProgressFunc is valid.
type ProgressFunc func(ctx context.Context, stage Stage, extractedChars int)

func (f ProgressFunc) report(ctx context.Context, stage Stage, extractedChars int) {
	if f != nil {
		f(ctx, stage, extractedChars)
	}
}

var printer = message.NewPrinter(language.English)

// ProgressMessage is the status line shown for stage.
func ProgressMessage(stage Stage, extractedChars int) string {
	switch stage {
	case StageStarting:
		return "Starting extraction..."
	case StageExtracting:
		return "Extracting content..."
	case StageProcessing:
		return printer.Sprintf("Extracted %d characters. Processing...", extractedChars)
	case StageSummarizing:
		return "Generating summary..."
	default:
		return ""
	}
}
