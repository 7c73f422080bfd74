package bot

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"clipgenie/internal/domain"
	"clipgenie/internal/pipeline"
	"clipgenie/internal/ratelimiter"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	updateProcessingTimeout = 3 * time.Minute
	// maxMessageChars stays under the Bot API limit of 4096 characters.
	maxMessageChars = 4000
)

// Store is the persistence the bot needs.
type Store interface {
	SetAPIKey(ctx context.Context, userID int64, apiKey string) error
	SetFormat(ctx context.Context, userID int64, format domain.Format) error
	GetUserSettings(ctx context.Context, userID int64) (domain.UserSettings, error)
	AddClip(ctx context.Context, userID int64, text string) (domain.Clip, error)
	GetClips(ctx context.Context, userID int64) ([]domain.Clip, error)
	RemoveClip(ctx context.Context, userID int64, clipID int64) error
}

type Options struct {
	Token        string
	AllowedUsers []int64
	// DefaultAPIKey is used for users that have not set their own key.
	DefaultAPIKey string
	// ServerURL overrides the Bot API endpoint.
	ServerURL string
}

type Bot struct {
	api           *bot.Bot
	rateLimiter   *ratelimiter.RateLimiter
	store         Store
	sessions      *pipeline.Sessions
	allowedUsers  []int64
	defaultAPIKey string
	log           *slog.Logger
}

func New(
	opts Options,
	store Store,
	sessions *pipeline.Sessions,
	log *slog.Logger,
) (*Bot, error) {
	b := &Bot{
		store:         store,
		sessions:      sessions,
		allowedUsers:  opts.AllowedUsers,
		defaultAPIKey: strings.TrimSpace(opts.DefaultAPIKey),
		log:           log,
	}

	botOpts := []bot.Option{
		bot.WithDefaultHandler(b.handleUpdate),
		bot.WithErrorsHandler(func(err error) {
			log.Error("Bot API error", "error", err)
		}),
	}
	if opts.ServerURL != "" {
		botOpts = append(botOpts, bot.WithServerURL(opts.ServerURL), bot.WithSkipGetMe())
	}

	api, err := bot.New(strings.TrimSpace(opts.Token), botOpts...)
	if err != nil {
		return nil, err
	}

	b.api = api
	b.rateLimiter = ratelimiter.New(api, log)

	return b, nil
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.api.Start(ctx)

	b.log.InfoContext(ctx, "Bot context is done",
		"error", ctx.Err())
}

func (b *Bot) Stop() {
	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		message := update.Message
		if message.From == nil {
			return
		}

		if !b.userAllowed(message.From.ID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", message.From.ID,
				"chatID", message.Chat.ID,
				"username", message.From.Username,
				"chatType", message.Chat.Type)

			return
		}

		if err := b.handleMessage(updateCtx, message); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle message",
				"error", err,
				"chatID", message.Chat.ID,
				"userID", message.From.ID,
				"chatType", message.Chat.Type,
				"messageID", message.ID)
		}

	case update.CallbackQuery != nil:
		callback := update.CallbackQuery

		if !b.userAllowed(callback.From.ID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", callback.From.ID,
				"chatID", callbackChatID(callback),
				"username", callback.From.Username,
				"data", callback.Data)

			return
		}

		if err := b.handleCallbackQuery(updateCtx, callback); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle callback query",
				"error", err,
				"chatID", callbackChatID(callback),
				"userID", callback.From.ID,
				"data", callback.Data,
				"messageID", callbackMessageID(callback))
		}
	}
}

func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}

func (b *Bot) session(userID int64) *pipeline.Session {
	return b.sessions.Get(strconv.FormatInt(userID, 10))
}

// callbackChatID falls back to the user's private chat when the message is
// inaccessible.
func callbackChatID(cb *models.CallbackQuery) int64 {
	if cb == nil {
		return 0
	}

	if cb.Message.Message != nil {
		return cb.Message.Message.Chat.ID
	}

	return cb.From.ID
}

func callbackMessageID(cb *models.CallbackQuery) int {
	if cb != nil && cb.Message.Message != nil {
		return cb.Message.Message.ID
	}

	return 0
}
