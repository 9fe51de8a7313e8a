package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orlevy/shortly-bot/internal/infrastructure/logger"
	"github.com/orlevy/shortly-bot/internal/shortener"
	"go.uber.org/zap"
)

// HandleUpdate dispatches one Telegram update. Unexpected faults are caught
// here so a single bad update can never take the bot down.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while handling update",
				zap.Any("panic", r),
				zap.Int("update_id", update.UpdateID),
			)
		}
	}()

	switch {
	case update.Message != nil:
		botUpdatesTotal.WithLabelValues("message").Inc()
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		botUpdatesTotal.WithLabelValues("callback").Inc()
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	from := msg.From

	if err := b.svc.TouchUser(ctx, from.ID, from.UserName, from.FirstName, from.LastName); err != nil {
		logger.Warn("failed to upsert user", zap.Error(err), zap.Int64("user_id", from.ID))
	}

	if msg.IsCommand() {
		command := msg.Command()
		botCommandsTotal.WithLabelValues(command).Inc()
		b.report(ctx, from, "command:"+command)

		switch command {
		case "start":
			b.setAwaiting(chatID, false)
			b.reply(chatID, msgWelcome, mainMenuKeyboard())
		case "help":
			b.reply(chatID, msgHelp, backToMenuKeyboard())
		case "shorten":
			b.promptShorten(chatID, from.ID)
		case "mylinks":
			b.sendMyLinks(ctx, chatID, from.ID, 1)
		case "stats":
			b.sendUserStats(ctx, chatID, from.ID)
		default:
			b.reply(chatID, msgHelp, backToMenuKeyboard())
		}
		return
	}

	if b.isAwaiting(chatID) {
		b.setAwaiting(chatID, false)
		b.report(ctx, from, "shorten")
		b.shortenFlow(ctx, chatID, from.ID, msg.Text)
		return
	}

	b.report(ctx, from, "message")
	b.reply(chatID, msgWelcome, mainMenuKeyboard())
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	userID := cq.From.ID
	data := cq.Data

	if _, err := b.send.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		logger.Warn("failed to answer callback", zap.Error(err))
	}
	b.report(ctx, cq.From, "callback:"+data)

	switch {
	case data == cbMainMenu:
		b.setAwaiting(chatID, false)
		b.edit(chatID, messageID, msgWelcome, mainMenuKeyboard())

	case data == cbShortenNew:
		allowed, wait := b.limiter.CheckLimit(userID)
		if !allowed {
			b.edit(chatID, messageID, rateLimitMessage(wait), backToMenuKeyboard())
			return
		}
		b.setAwaiting(chatID, true)
		b.edit(chatID, messageID, msgSendURL, backToMenuKeyboard())

	case data == cbMyLinks:
		b.editMyLinks(ctx, chatID, messageID, userID, 1)

	case data == cbUserStats:
		stats, err := b.svc.Stats(ctx, userID)
		if err != nil {
			logger.Error("failed to load user stats", zap.Error(err), zap.Int64("user_id", userID))
			b.edit(chatID, messageID, msgGenericError, backToMenuKeyboard())
			return
		}
		b.edit(chatID, messageID, userStatsMessage(stats, b.cfg.Shortener.BaseURL), backToMenuKeyboard())

	case data == cbHelp:
		b.edit(chatID, messageID, msgHelp, backToMenuKeyboard())

	case strings.HasPrefix(data, cbDeleteYesPrefix):
		code := strings.TrimPrefix(data, cbDeleteYesPrefix)
		if err := b.svc.Delete(ctx, code, userID); err != nil {
			if !errors.Is(err, shortener.ErrNotFound) {
				logger.Error("failed to delete link", zap.Error(err), zap.String("short_code", code))
			}
			b.edit(chatID, messageID, msgDeleteFailed, backToMenuKeyboard())
			return
		}
		b.edit(chatID, messageID, msgDeleted, mainMenuKeyboard())

	case strings.HasPrefix(data, cbDeleteAskPrefix):
		code := strings.TrimPrefix(data, cbDeleteAskPrefix)
		b.edit(chatID, messageID, deleteConfirmMessage(b.shortURL(code)), deleteConfirmKeyboard(code))

	case strings.HasPrefix(data, cbStatsPrefix):
		code := strings.TrimPrefix(data, cbStatsPrefix)
		link, ok := b.ownedLink(ctx, chatID, messageID, userID, code)
		if !ok {
			return
		}
		b.edit(chatID, messageID, linkStatsMessage(link, b.shortURL(code)), linkDetailKeyboard(code))

	case strings.HasPrefix(data, cbQRPrefix):
		code := strings.TrimPrefix(data, cbQRPrefix)
		link, ok := b.ownedLink(ctx, chatID, messageID, userID, code)
		if !ok {
			return
		}
		b.sendQR(chatID, link.ShortCode)

	case strings.HasPrefix(data, cbViewPrefix):
		code := strings.TrimPrefix(data, cbViewPrefix)
		link, ok := b.ownedLink(ctx, chatID, messageID, userID, code)
		if !ok {
			return
		}
		b.edit(chatID, messageID, linkDetailMessage(link, b.shortURL(code)), linkDetailKeyboard(code))

	case strings.HasPrefix(data, cbPagePrefix):
		page, err := strconv.ParseInt(strings.TrimPrefix(data, cbPagePrefix), 10, 64)
		if err != nil || page < 1 {
			page = 1
		}
		b.editMyLinks(ctx, chatID, messageID, userID, page)
	}
}

// shortenFlow runs the full shortening pipeline for a URL typed by the user.
func (b *Bot) shortenFlow(ctx context.Context, chatID, userID int64, text string) {
	allowed, wait := b.limiter.CheckLimit(userID)
	if !allowed {
		b.reply(chatID, rateLimitMessage(wait), backToMenuKeyboard())
		return
	}

	link, created, err := b.svc.Shorten(ctx, userID, text)
	if err != nil {
		var vErr *shortener.ValidationError
		if errors.As(err, &vErr) {
			b.reply(chatID, validationMessage(vErr.Reason), backToMenuKeyboard())
			return
		}
		logger.Error("failed to shorten url", zap.Error(err), zap.Int64("user_id", userID))
		b.reply(chatID, msgGenericError, backToMenuKeyboard())
		return
	}

	b.limiter.AddRequest(userID)

	b.reply(chatID, shortenedMessage(link, b.shortURL(link.ShortCode), created), shortenedKeyboard(link.ShortCode))
}

func (b *Bot) promptShorten(chatID, userID int64) {
	allowed, wait := b.limiter.CheckLimit(userID)
	if !allowed {
		b.reply(chatID, rateLimitMessage(wait), backToMenuKeyboard())
		return
	}
	b.setAwaiting(chatID, true)
	b.reply(chatID, msgSendURL, backToMenuKeyboard())
}

func (b *Bot) sendMyLinks(ctx context.Context, chatID, userID, page int64) {
	links, total, err := b.svc.ListByOwner(ctx, userID, page, linksPerPage)
	if err != nil {
		logger.Error("failed to list links", zap.Error(err), zap.Int64("user_id", userID))
		b.reply(chatID, msgGenericError, backToMenuKeyboard())
		return
	}

	totalPages := pageCount(total)
	if total == 0 {
		b.reply(chatID, msgNoLinks, mainMenuKeyboard())
		return
	}
	b.reply(chatID, myLinksMessage(total, page, totalPages), myLinksKeyboard(links, page, totalPages))
}

func (b *Bot) editMyLinks(ctx context.Context, chatID int64, messageID int, userID, page int64) {
	links, total, err := b.svc.ListByOwner(ctx, userID, page, linksPerPage)
	if err != nil {
		logger.Error("failed to list links", zap.Error(err), zap.Int64("user_id", userID))
		b.edit(chatID, messageID, msgGenericError, backToMenuKeyboard())
		return
	}

	totalPages := pageCount(total)
	if total == 0 {
		b.edit(chatID, messageID, msgNoLinks, mainMenuKeyboard())
		return
	}
	b.edit(chatID, messageID, myLinksMessage(total, page, totalPages), myLinksKeyboard(links, page, totalPages))
}

func (b *Bot) sendUserStats(ctx context.Context, chatID, userID int64) {
	stats, err := b.svc.Stats(ctx, userID)
	if err != nil {
		logger.Error("failed to load user stats", zap.Error(err), zap.Int64("user_id", userID))
		b.reply(chatID, msgGenericError, backToMenuKeyboard())
		return
	}
	b.reply(chatID, userStatsMessage(stats, b.cfg.Shortener.BaseURL), backToMenuKeyboard())
}

func (b *Bot) sendQR(chatID int64, code string) {
	png, err := b.qrGen.Render(b.shortURL(code))
	if err != nil {
		logger.Error("failed to render qr code", zap.Error(err), zap.String("short_code", code))
		b.reply(chatID, msgGenericError, backToMenuKeyboard())
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  code + ".png",
		Bytes: png,
	})
	photo.Caption = b.shortURL(code)
	if _, err := b.send.Send(photo); err != nil {
		logger.Warn("failed to send qr photo", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

// ownedLink loads a link and verifies it belongs to the requesting user.
// On failure it edits the message to the not-found text and returns false.
func (b *Bot) ownedLink(ctx context.Context, chatID int64, messageID int, userID int64, code string) (*shortener.ShortLink, bool) {
	link, err := b.svc.GetLink(ctx, code)
	if err != nil {
		if !errors.Is(err, shortener.ErrNotFound) {
			logger.Error("failed to load link", zap.Error(err), zap.String("short_code", code))
		}
		b.edit(chatID, messageID, msgLinkGone, backToMenuKeyboard())
		return nil, false
	}
	if link.OwnerID != userID {
		b.edit(chatID, messageID, msgLinkGone, backToMenuKeyboard())
		return nil, false
	}
	return link, true
}

func (b *Bot) shortURL(code string) string {
	return b.cfg.Shortener.BaseURL + "/" + code
}

func (b *Bot) report(ctx context.Context, from *tgbotapi.User, action string) {
	if b.activity == nil {
		return
	}
	b.activity.RecordInteraction(ctx, from.ID, from.UserName, action)
}

func (b *Bot) reply(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = kb
	if _, err := b.send.Send(msg); err != nil {
		logger.Warn("failed to send message", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, kb)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := b.send.Send(msg); err != nil {
		logger.Warn("failed to edit message", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func pageCount(total int64) int64 {
	pages := (total + linksPerPage - 1) / linksPerPage
	if pages < 1 {
		pages = 1
	}
	return pages
}
