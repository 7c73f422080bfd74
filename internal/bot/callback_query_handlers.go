package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"clipgenie/internal/domain"
	"clipgenie/internal/export"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const savedToClipsText = "✅ Saved to clips!"

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *models.CallbackQuery) error {
	chatID := callbackChatID(callback)

	return b.withSpinner(ctx, chatID, func() error {
		data := strings.TrimSpace(callback.Data)

		switch data {
		case resultSaveCallback:
			return b.handleSaveQuery(ctx, callback)
		case resultPDFCallback:
			return b.handleExportQuery(ctx, callback, export.KindPDF)
		case resultWordCallback:
			return b.handleExportQuery(ctx, callback, export.KindWord)
		}

		if format, ok := strings.CutPrefix(data, formatCallbackPrefix); ok {
			return b.handleFormatQuery(ctx, format, callback)
		}

		if clipIDStr, ok := strings.CutPrefix(data, clipDeleteCallbackPrefix); ok {
			return b.handleClipDeleteQuery(ctx, clipIDStr, callback)
		}

		return b.answerCallback(ctx, callback, "")
	})
}

func (b *Bot) handleFormatQuery(
	ctx context.Context,
	rawFormat string,
	callback *models.CallbackQuery,
) error {
	format := domain.Format(strings.TrimSpace(rawFormat))
	if !format.Valid() {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("unknown format: %q", rawFormat))
	}

	if err := b.store.SetFormat(ctx, callback.From.ID, format); err != nil {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("set format: %w", err))
	}

	if err := b.answerCallback(ctx, callback, "✅ Format is updated."); err != nil {
		return err
	}

	return b.handleFormatCommand(ctx, callbackChatID(callback), callback.From.ID)
}

func (b *Bot) handleClipDeleteQuery(
	ctx context.Context,
	clipIDStr string,
	callback *models.CallbackQuery,
) error {
	clipID, err := strconv.ParseInt(strings.TrimSpace(clipIDStr), 10, 64)
	if err != nil {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("parse clipID: %w", err))
	}

	if err = b.store.RemoveClip(ctx, callback.From.ID, clipID); err != nil {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("remove clip: %w", err))
	}

	if err = b.answerCallback(ctx, callback, "✅ Clip is removed."); err != nil {
		return err
	}

	return b.handleClipsCommand(ctx, callbackChatID(callback), callback.From.ID)
}

func (b *Bot) handleSaveQuery(ctx context.Context, callback *models.CallbackQuery) error {
	last, ok := b.session(callback.From.ID).Last()
	if !ok {
		return b.answerCallback(ctx, callback, "✖️ Nothing to save.")
	}

	if _, err := b.store.AddClip(ctx, callback.From.ID, last.PlainText); err != nil {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("add clip: %w", err))
	}

	return b.answerCallback(ctx, callback, savedToClipsText)
}

func (b *Bot) handleExportQuery(
	ctx context.Context,
	callback *models.CallbackQuery,
	kind export.Kind,
) error {
	last, ok := b.session(callback.From.ID).Last()
	if !ok {
		return b.answerCallback(ctx, callback, "✖️ Nothing to export.")
	}

	file, err := export.Export(kind, last.PlainText)
	if errors.Is(err, export.ErrNothingToExport) {
		return b.answerCallback(ctx, callback, "✖️ Nothing to export.")
	}
	if err != nil {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("export %s: %w", kind, err))
	}

	if err = b.answerCallback(ctx, callback, ""); err != nil {
		return err
	}

	if _, err = b.rateLimiter.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: callbackChatID(callback),
		Document: &models.InputFileUpload{
			Filename: file.Name,
			Data:     bytes.NewReader(file.Data),
		},
	}); err != nil {
		return fmt.Errorf("send document: %w", err)
	}

	return nil
}

func (b *Bot) answerCallback(ctx context.Context, callback *models.CallbackQuery, text string) error {
	if _, err := b.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
		Text:            text,
	}); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	return nil
}

func (b *Bot) errorCallbackAnswer(
	ctx context.Context,
	callback *models.CallbackQuery,
	err error,
) error {
	if sendErr := b.answerCallback(ctx, callback, "❌ Failed."); sendErr != nil {
		return errors.Join(err, sendErr)
	}

	return err
}
