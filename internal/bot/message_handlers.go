package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"clipgenie/internal/markdown"
	"clipgenie/internal/pipeline"
	"clipgenie/internal/render"

	"github.com/go-telegram/bot/models"
	"mvdan.cc/xurls/v2"
)

const noTargetText = "✖️ Send me a link to summarize, or reply to a message with text\\."

//nolint:gochecknoglobals // Compiled once, read-only.
var pageURLRe = func() *regexp.Regexp {
	re, err := xurls.StrictMatchingScheme(`https?://`)
	if err != nil {
		panic(fmt.Sprintf("create regexp: %v", err))
	}
	return re
}()

func (b *Bot) handleMessage(ctx context.Context, message *models.Message) error {
	return b.withSpinner(ctx, message.Chat.ID, func() error {
		text := strings.TrimSpace(messageText(message))

		switch {
		case isCommand(text, "/start"), isCommand(text, "/help"):
			return b.handleStartCommand(ctx, message.Chat.ID)
		case isCommand(text, "/key"):
			return b.handleKeyCommand(ctx, text, message)
		case isCommand(text, "/format"):
			return b.handleFormatCommand(ctx, message.Chat.ID, message.From.ID)
		case isCommand(text, "/clips"):
			return b.handleClipsCommand(ctx, message.Chat.ID, message.From.ID)
		default:
			return b.handleSummarize(ctx, text, message)
		}
	})
}

func (b *Bot) handleSummarize(
	ctx context.Context,
	text string,
	message *models.Message,
) error {
	chatID, userID := message.Chat.ID, message.From.ID

	target := parseTarget(text, message.ReplyToMessage)
	if target == nil {
		_, err := b.sendMessageWithKeyboard(ctx, chatID, noTargetText, nil)
		return err
	}

	settings, err := b.store.GetUserSettings(ctx, userID)
	if err != nil {
		return b.sendFailure(ctx, chatID, fmt.Errorf("get user settings: %w", err))
	}

	credential := settings.APIKey
	if credential == "" {
		credential = b.defaultAPIKey
	}

	status, err := b.sendMessageWithKeyboard(ctx, chatID,
		"⏳ "+markdown.EscapeV2(pipeline.ProgressMessage(pipeline.StageExtracting, 0)), nil)
	if err != nil {
		return fmt.Errorf("send message with keyboard: %w", err)
	}

	progress := func(ctx context.Context, stage pipeline.Stage, extractedChars int) {
		if stage != pipeline.StageProcessing {
			return
		}

		text := "⏳ " + markdown.EscapeV2(pipeline.ProgressMessage(stage, extractedChars))
		if err := b.editMessageWithKeyboard(ctx, chatID, status.ID, text, nil); err != nil {
			b.log.WarnContext(ctx, "Failed to update progress message",
				"error", err,
				"chatID", chatID,
				"stage", stage)
		}
	}

	res, err := b.session(userID).Run(ctx, pipeline.Request{
		Target:     target,
		Format:     settings.Format,
		Credential: credential,
	}, progress)
	if err != nil {
		b.log.WarnContext(ctx, "Summary failed",
			"error", err,
			"chatID", chatID,
			"userID", userID,
			"url", target.URL,
			"format", settings.Format)

		text := "❌ " + markdown.EscapeV2(pipeline.UserMessage(err))
		if editErr := b.editMessageWithKeyboard(ctx, chatID, status.ID, text, nil); editErr != nil {
			return errors.Join(err, fmt.Errorf("edit message with keyboard: %w", editErr))
		}

		return nil
	}

	if res.Status == pipeline.StatusRejected {
		return b.editMessageWithKeyboard(ctx, chatID, status.ID,
			"⏳ A summary is already in progress\\. Please wait for it to finish\\.", nil)
	}

	return b.editMessageWithKeyboard(ctx, chatID, status.ID, resultText(res), getResultKeyboard())
}

// resultText is the MarkdownV2 message for a completed summary.
func resultText(res pipeline.Result) string {
	text := markdown.Truncate(render.Telegram(res.Summary.SummaryText, res.Format), maxMessageChars)

	if quota := render.QuotaStatus(res.Summary); quota != "" {
		text += "\n\n_" + markdown.EscapeV2(quota) + "_"
	}

	return text
}

// parseTarget finds what to summarize in a message. The first http(s) URL is
// the page and the rest of the text is the selection. Without a URL the
// replied-to message supplies either the page or, failing that, the
// selection.
func parseTarget(text string, reply *models.Message) *pipeline.Target {
	replyText := ""
	if reply != nil {
		replyText = strings.TrimSpace(messageText(reply))
	}

	if pageURL := pageURLRe.FindString(text); pageURL != "" {
		selection := strings.TrimSpace(strings.Replace(text, pageURL, "", 1))
		if selection == "" {
			selection = replyText
		}

		return &pipeline.Target{URL: pageURL, Selection: selection}
	}

	if replyText == "" {
		return nil
	}

	if pageURL := pageURLRe.FindString(replyText); pageURL != "" {
		return &pipeline.Target{URL: pageURL}
	}

	return &pipeline.Target{Selection: replyText}
}

func messageText(message *models.Message) string {
	if message.Text != "" {
		return message.Text
	}

	return message.Caption
}

// isCommand matches "/cmd", "/cmd args" and "/cmd@botname".
func isCommand(text string, command string) bool {
	rest, ok := strings.CutPrefix(text, command)
	if !ok {
		return false
	}

	return rest == "" || rest[0] == ' ' || rest[0] == '\n' || rest[0] == '@'
}
