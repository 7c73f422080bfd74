package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clipgenie/internal/api"
	"clipgenie/internal/bot"
	"clipgenie/internal/config"
	"clipgenie/internal/database"
	"clipgenie/internal/pipeline"
	"clipgenie/internal/scheduler"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the Telegram bot and the clip pruner",
		Long: "serve runs the HTTP API used by the browser extension. When TOKEN is set it also " +
			"runs the Telegram bot. Saved clips older than CLIP_RETENTION are pruned daily.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}

			log := newLogger(os.Stdout, slog.LevelInfo)
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")

	return cmd
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	start := time.Now()

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		return fmt.Errorf("initialize db: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	if cfg.OpenRouterAPIKey == "" {
		log.WarnContext(ctx, "OPENROUTER_API_KEY is missing so every user needs their own key",
			"envVar", "OPENROUTER_API_KEY")
	}

	p, err := newPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	sessions := pipeline.NewSessions(p)

	sched := scheduler.New(ctx, db, cfg.ClipRetention, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", scheduler.DailyPruneSpec,
		"retention", cfg.ClipRetention.String())

	if cfg.Token != "" {
		botInst, err := bot.New(bot.Options{
			Token:         cfg.Token,
			AllowedUsers:  cfg.AllowedUsers,
			DefaultAPIKey: cfg.OpenRouterAPIKey,
		}, db, sessions, log)
		if err != nil {
			return fmt.Errorf("initialize bot: %w", err)
		}
		defer botInst.Stop()

		go botInst.Start(ctx)
		log.InfoContext(ctx, "Bot is started",
			"allowedUsersCount", len(cfg.AllowedUsers))
	} else {
		log.InfoContext(ctx, "TOKEN is empty so the bot is disabled",
			"envVar", "TOKEN")
	}

	if cfg.APIToken == "" {
		log.WarnContext(ctx, "API_TOKEN is empty so the HTTP API serves neither clips nor the configured key",
			"envVar", "API_TOKEN")
	}

	server := api.New(sessions, db, api.Options{
		DefaultAPIKey:  cfg.OpenRouterAPIKey,
		APIToken:       cfg.APIToken,
		AllowedOrigins: cfg.AllowedOrigins,
	}, log)
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		return err
	}

	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())

	return nil
}
