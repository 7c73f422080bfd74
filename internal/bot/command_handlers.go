package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"clipgenie/internal/markdown"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const welcomeText = `🧞 *Welcome to ClipGenie\!*

Send me a link and I will summarize the page for you\.

– Add some text after the link to summarize just that part
– Reply to a message to summarize its text
– Set your OpenRouter API key with /key \<key\>
– Choose the summary format with /format
– Browse and delete saved clips with /clips

Every summary can be saved to clips or downloaded as PDF or Word\.`

const keyUsageText = `🔑 Send your OpenRouter API key like this:

/key sk\-or\-\.\.\.

The message with the key is deleted right after it is saved\.`

func (b *Bot) handleStartCommand(ctx context.Context, chatID int64) error {
	_, err := b.sendMessageWithKeyboard(ctx, chatID, welcomeText, nil)
	return err
}

func (b *Bot) handleKeyCommand(
	ctx context.Context,
	text string,
	message *models.Message,
) error {
	chatID, userID := message.Chat.ID, message.From.ID

	apiKey := strings.TrimSpace(strings.TrimPrefix(commandArgs(text), "="))
	if apiKey == "" {
		settings, err := b.store.GetUserSettings(ctx, userID)
		if err != nil {
			return b.sendFailure(ctx, chatID, fmt.Errorf("get user settings: %w", err))
		}

		status := "✖️ No API key is saved yet\\."
		if settings.APIKey != "" {
			status = "✅ An API key is saved\\."
		}

		_, err = b.sendMessageWithKeyboard(ctx, chatID, status+"\n\n"+keyUsageText, nil)
		return err
	}

	var errs []error

	if err := b.store.SetAPIKey(ctx, userID, apiKey); err != nil {
		return b.sendFailure(ctx, chatID, fmt.Errorf("set API key: %w", err))
	}

	if _, err := b.api.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: message.ID,
	}); err != nil {
		errs = append(errs, fmt.Errorf("delete message: %w", err))
	}

	if _, err := b.sendMessageWithKeyboard(ctx, chatID, "✅ API key is saved\\.", nil); err != nil {
		errs = append(errs, fmt.Errorf("send message with keyboard: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) handleFormatCommand(ctx context.Context, chatID int64, userID int64) error {
	settings, err := b.store.GetUserSettings(ctx, userID)
	if err != nil {
		return b.sendFailure(ctx, chatID, fmt.Errorf("get user settings: %w", err))
	}

	text := fmt.Sprintf("*🎨 Summary format*\n\nCurrent format is %s\\.\n\nYou can choose a different one below:",
		markdown.Bold(settings.Format.Title()))

	if _, err = b.sendMessageWithKeyboard(ctx, chatID, text, getFormatKeyboard(settings.Format)); err != nil {
		return fmt.Errorf("send message with keyboard: %w", err)
	}

	return nil
}

func (b *Bot) handleClipsCommand(ctx context.Context, chatID int64, userID int64) error {
	clips, err := b.store.GetClips(ctx, userID)
	if err != nil {
		return b.sendFailure(ctx, chatID, fmt.Errorf("get clips: %w", err))
	}

	if len(clips) == 0 {
		_, err = b.sendMessageWithKeyboard(ctx, chatID, "✖️ No saved clips yet\\.", nil)
		return err
	}

	text, keyboard := getClipsMessage(clips)

	if _, err = b.sendMessageWithKeyboard(ctx, chatID, text, keyboard); err != nil {
		return fmt.Errorf("send message with keyboard: %w", err)
	}

	return nil
}

// sendFailure reports a generic failure to the chat and returns cause joined
// with any send error.
func (b *Bot) sendFailure(ctx context.Context, chatID int64, cause error) error {
	if _, err := b.sendMessageWithKeyboard(ctx, chatID, "❌ Failed\\.", nil); err != nil {
		return errors.Join(cause, fmt.Errorf("send message with keyboard: %w", err))
	}

	return cause
}

// commandArgs is everything after the command word.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)

	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}

	return strings.TrimSpace(text[i:])
}
