package bot

import (
	"context"
	"fmt"
	"strings"

	"clipgenie/internal/domain"
	"clipgenie/internal/markdown"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	formatCallbackPrefix     = "format_"
	clipDeleteCallbackPrefix = "clip_delete_"
	resultSaveCallback       = "result_save"
	resultPDFCallback        = "result_pdf"
	resultWordCallback       = "result_word"

	clipPreviewChars = 300
	maxListedClips   = 10
)

func (b *Bot) sendMessageWithKeyboard(
	ctx context.Context,
	chatID int64,
	text string,
	keyboard [][]models.InlineKeyboardButton,
) (*models.Message, error) {
	normalizedText := strings.ToValidUTF8(text, "?")
	if normalizedText != text {
		b.log.WarnContext(ctx, "Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalizedText))
	}

	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   normalizedText,
		// See https://core.telegram.org/bots/api#markdownv2-style.
		ParseMode:          models.ParseModeMarkdown,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	}
	if len(keyboard) > 0 {
		params.ReplyMarkup = &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
	}

	return b.rateLimiter.SendMessage(ctx, params)
}

func (b *Bot) editMessageWithKeyboard(
	ctx context.Context,
	chatID int64,
	messageID int,
	text string,
	keyboard [][]models.InlineKeyboardButton,
) error {
	params := &bot.EditMessageTextParams{
		ChatID:             chatID,
		MessageID:          messageID,
		Text:               strings.ToValidUTF8(text, "?"),
		ParseMode:          models.ParseModeMarkdown,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	}
	if len(keyboard) > 0 {
		params.ReplyMarkup = &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
	}

	_, err := b.rateLimiter.EditMessageText(ctx, params)

	return err
}

func getFormatKeyboard(current domain.Format) [][]models.InlineKeyboardButton {
	var keyboard [][]models.InlineKeyboardButton

	for _, f := range domain.Formats {
		title := f.Title()
		if f == current {
			title = "✓ " + title
		}

		keyboard = append(keyboard, []models.InlineKeyboardButton{
			{Text: title, CallbackData: formatCallbackPrefix + string(f)},
		})
	}

	return keyboard
}

func getResultKeyboard() [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		{
			{Text: "💾 Save", CallbackData: resultSaveCallback},
			{Text: "📄 PDF", CallbackData: resultPDFCallback},
			{Text: "📝 Word", CallbackData: resultWordCallback},
		},
	}
}

// getClipsMessage lists the most recent clips with one delete button per clip.
func getClipsMessage(clips []domain.Clip) (string, [][]models.InlineKeyboardButton) {
	var (
		message  strings.Builder
		keyboard [][]models.InlineKeyboardButton
	)

	message.WriteString(fmt.Sprintf("📎 *Found %d clips:*\n\n", len(clips)))

	start := max(len(clips)-maxListedClips, 0)
	if start > 0 {
		message.WriteString(fmt.Sprintf("_Showing the latest %d\\._\n\n", maxListedClips))
	}

	for i := start; i < len(clips); i++ {
		c := clips[i]
		preview := markdown.Truncate(markdown.EscapeV2(c.Text), clipPreviewChars)

		message.WriteString(fmt.Sprintf("*%d\\.* _%s_\n%s\n\n",
			i+1,
			markdown.EscapeV2(c.CreatedAt.Format("2006-01-02 15:04")),
			preview,
		))

		keyboard = append(keyboard, []models.InlineKeyboardButton{
			{Text: fmt.Sprintf("🗑 Delete %d", i+1), CallbackData: fmt.Sprintf("%s%d", clipDeleteCallbackPrefix, c.ID)},
		})
	}

	return strings.TrimSpace(message.String()), keyboard
}
