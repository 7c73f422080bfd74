// Package ratelimiter spaces out outgoing Telegram calls per chat so the bot
// stays within the Bot API flood limits.
package ratelimiter

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	privateChatRate = time.Second
	groupChatRate   = 3 * time.Second
	queueSize       = 1000
)

type request struct {
	ctx    context.Context
	chatID int64
	call   func(ctx context.Context) error
	done   chan error
}

type RateLimiter struct {
	api      *bot.Bot
	queue    chan request
	lastSent map[int64]time.Time
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	log      *slog.Logger
}

func New(api *bot.Bot, log *slog.Logger) *RateLimiter {
	ctx, cancel := context.WithCancel(context.Background())

	rl := &RateLimiter{
		api:      api,
		queue:    make(chan request, queueSize),
		lastSent: make(map[int64]time.Time),
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}

	go rl.processQueue()

	return rl
}

// Do queues call and waits for it to run. Calls for the same chat run no
// closer together than the chat rate.
func (rl *RateLimiter) Do(ctx context.Context, chatID int64, call func(ctx context.Context) error) error {
	req := request{
		ctx:    ctx,
		chatID: chatID,
		call:   call,
		done:   make(chan error, 1),
	}

	select {
	case rl.queue <- req:
	case <-rl.ctx.Done():
		return rl.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-rl.ctx.Done():
		return rl.ctx.Err()
	}
}

func (rl *RateLimiter) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	var msg *models.Message

	err := rl.Do(ctx, chatIDOf(params.ChatID), func(ctx context.Context) error {
		var err error
		msg, err = rl.api.SendMessage(ctx, params)
		return err
	})

	return msg, err
}

func (rl *RateLimiter) EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	var msg *models.Message

	err := rl.Do(ctx, chatIDOf(params.ChatID), func(ctx context.Context) error {
		var err error
		msg, err = rl.api.EditMessageText(ctx, params)
		return err
	})

	return msg, err
}

func (rl *RateLimiter) SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error) {
	var msg *models.Message

	err := rl.Do(ctx, chatIDOf(params.ChatID), func(ctx context.Context) error {
		var err error
		msg, err = rl.api.SendDocument(ctx, params)
		return err
	})

	return msg, err
}

func (rl *RateLimiter) Stop() {
	rl.cancel()
}

func (rl *RateLimiter) processQueue() {
	for {
		select {
		case req := <-rl.queue:
			rl.handleRequest(req)
		case <-rl.ctx.Done():
			for {
				select {
				case req := <-rl.queue:
					req.done <- rl.ctx.Err()
				default:
					return
				}
			}
		}
	}
}

func (rl *RateLimiter) handleRequest(req request) {
	rl.mu.Lock()
	lastSent, exists := rl.lastSent[req.chatID]
	rl.mu.Unlock()

	if exists {
		delay := getDelay(req.chatID, lastSent)

		if delay > 0 {
			rl.log.DebugContext(req.ctx, "Rate limiting message",
				"chatID", req.chatID,
				"delay", delay,
				"queueLen", len(rl.queue))

			select {
			case <-time.After(delay):
			case <-rl.ctx.Done():
				req.done <- rl.ctx.Err()
				return
			case <-req.ctx.Done():
				req.done <- req.ctx.Err()
				return
			}
		}
	}

	err := req.call(req.ctx)

	rl.mu.Lock()
	rl.lastSent[req.chatID] = time.Now()
	rl.mu.Unlock()

	req.done <- err
}

// chatIDOf reads the numeric chat id of a Bot API call. Channel usernames
// share the zero bucket.
func chatIDOf(chatID any) int64 {
	switch id := chatID.(type) {
	case int64:
		return id
	case int:
		return int64(id)
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func getDelay(
	chatID int64,
	lastSent time.Time,
) time.Duration {
	elapsed := time.Since(lastSent)
	rate := getRate(chatID)

	return max(rate-elapsed, 0)
}

func getRate(chatID int64) time.Duration {
	if chatID < 0 {
		return groupChatRate
	}
	return privateChatRate
}
