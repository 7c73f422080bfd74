package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"clipgenie/internal/config"
	"clipgenie/internal/domain"
	"clipgenie/internal/export"
	"clipgenie/internal/extractor"
	"clipgenie/internal/pipeline"
	"clipgenie/internal/render"

	"github.com/spf13/cobra"
)

type summarizeFlags struct {
	format    string
	selection string
	htmlFile  string
	apiKey    string
	exportTo  string
	verbose   bool
}

func newSummarizeCmd() *cobra.Command {
	var flags summarizeFlags

	cmd := &cobra.Command{
		Use:   "summarize [url]",
		Short: "Summarize one web page",
		Long: "summarize fetches a page, extracts its main content and prints a summary.\n" +
			"Pass --html to read the page from a file instead, or only --selection to summarize a text snippet.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if flags.verbose {
				level = slog.LevelDebug
			}
			log := newLogger(cmd.ErrOrStderr(), level)

			var rawURL string
			if len(args) == 1 {
				rawURL = args[0]
			}

			return summarize(cmd.Context(), cfg, flags, rawURL, cmd.OutOrStdout(), cmd.ErrOrStderr(), log)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", string(domain.DefaultFormat),
		"summary format: bullets, paragraph, tweet or linkedin")
	cmd.Flags().StringVarP(&flags.selection, "selection", "s", "", "selected text to summarize")
	cmd.Flags().StringVar(&flags.htmlFile, "html", "", "read the page HTML from this file")
	cmd.Flags().StringVar(&flags.apiKey, "key", "", "OpenRouter API key (defaults to OPENROUTER_API_KEY)")
	cmd.Flags().StringVarP(&flags.exportTo, "export", "e", "", "also write the summary as a word or pdf file")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")

	return cmd
}

func summarize(
	ctx context.Context,
	cfg config.Config,
	flags summarizeFlags,
	rawURL string,
	stdout io.Writer,
	stderr io.Writer,
	log *slog.Logger,
) error {
	var kind export.Kind
	if flags.exportTo != "" {
		k, err := export.ParseKind(flags.exportTo)
		if err != nil {
			return err
		}
		kind = k
	}

	target := &pipeline.Target{URL: rawURL, Selection: flags.selection}
	if flags.htmlFile != "" {
		data, err := os.ReadFile(flags.htmlFile)
		if err != nil {
			return fmt.Errorf("read html: %w", err)
		}
		target.HTML = string(data)
	}

	credential := flags.apiKey
	if strings.TrimSpace(credential) == "" {
		credential = cfg.OpenRouterAPIKey
	}

	// Runs on the user's machine, so private hosts stay reachable.
	p, err := newPipeline(ctx, cfg, log, extractor.WithPrivateNetworks())
	if err != nil {
		return err
	}

	progress := func(_ context.Context, stage pipeline.Stage, extractedChars int) {
		fmt.Fprintln(stderr, dimStyle.Render(pipeline.ProgressMessage(stage, extractedChars)))
	}

	res, err := p.NewSession().Run(ctx, pipeline.Request{
		Target:     target,
		Format:     domain.Format(flags.format),
		Credential: credential,
	}, progress)
	if err != nil {
		log.DebugContext(ctx, "Failed to summarize",
			"error", err,
			"url", rawURL)

		return errors.New(pipeline.UserMessage(err))
	}

	fmt.Fprintln(stdout, titleStyle.Render("Summary ("+string(res.Format)+")"))
	fmt.Fprintln(stdout, summaryStyle.Render(res.PlainText))

	if quota := render.QuotaStatus(res.Summary); quota != "" {
		fmt.Fprintln(stdout, dimStyle.Render(quota))
	}

	if kind == "" {
		return nil
	}

	file, err := export.Export(kind, res.PlainText)
	if err != nil {
		return err
	}
	if err := os.WriteFile(file.Name, file.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", file.Name, err)
	}
	fmt.Fprintln(stdout, dimStyle.Render("Saved "+file.Name))

	return nil
}
