package cli

import (
	"context"
	"fmt"
	"log/slog"

	"clipgenie/internal/config"
	"clipgenie/internal/extractor"
	"clipgenie/internal/pipeline"
	"clipgenie/internal/prompt"
	"clipgenie/internal/summarizer"
)

// newPipeline wires the summarization pipeline from configuration.
func newPipeline(
	ctx context.Context,
	cfg config.Config,
	log *slog.Logger,
	loaderOpts ...extractor.LoaderOption,
) (*pipeline.Pipeline, error) {
	rules, rulesPath, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	if rulesPath == "" {
		rulesPath = "embedded"
	}
	log.InfoContext(ctx, "Extraction rules are loaded",
		"rulesPath", rulesPath,
		"sites", len(rules.Sites))

	s := summarizer.NewOpenRouterSummarizer(summarizer.Options{
		BaseURL:   cfg.OpenRouterBaseURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Referer:   cfg.AppReferer,
		Title:     cfg.AppTitle,
		Timeout:   cfg.RequestTimeout,
	}, log)

	return pipeline.New(
		extractor.NewLoader(cfg.FetchTimeout, log, loaderOpts...),
		extractor.New(rules, cfg.MaxContentLength, log),
		prompt.NewBuilder(cfg.LongContentChars),
		s,
		pipeline.Options{ModelID: cfg.Model, MaxTokens: cfg.MaxTokens},
		log,
	), nil
}
