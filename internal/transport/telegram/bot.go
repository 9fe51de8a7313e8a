package telegram

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orlevy/shortly-bot/internal/config"
	"github.com/orlevy/shortly-bot/internal/infrastructure/logger"
	"github.com/orlevy/shortly-bot/internal/qr"
	"github.com/orlevy/shortly-bot/internal/ratelimit"
	"github.com/orlevy/shortly-bot/internal/shortener"
	"go.uber.org/zap"
)

// sender is the slice of the Telegram API the handlers need. Satisfied by
// *tgbotapi.BotAPI, faked in tests.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ActivityReporter receives interaction breadcrumbs. Implementations must
// never block the update path.
type ActivityReporter interface {
	RecordInteraction(ctx context.Context, userID int64, username, action string)
}

// Bot owns the Telegram side of the service: connection lifecycle, update
// dispatch and per-chat conversation state.
type Bot struct {
	cfg      *config.Config
	svc      *shortener.Service
	limiter  *ratelimit.Limiter
	qrGen    *qr.Generator
	activity ActivityReporter

	api  *tgbotapi.BotAPI
	send sender

	ready atomic.Bool

	mu       sync.Mutex
	awaiting map[int64]bool
}

func NewBot(cfg *config.Config, svc *shortener.Service, limiter *ratelimit.Limiter, qrGen *qr.Generator, activity ActivityReporter) *Bot {
	return &Bot{
		cfg:      cfg,
		svc:      svc,
		limiter:  limiter,
		qrGen:    qrGen,
		activity: activity,
		awaiting: make(map[int64]bool),
	}
}

// Ready reports whether the bot is connected and accepting updates. The
// webhook endpoint answers 503 until this flips.
func (b *Bot) Ready() bool {
	return b.ready.Load()
}

// Start connects to the Telegram API with capped-backoff retries, then
// registers the webhook (production) or runs a polling loop (debug). It is
// meant to run in its own goroutine and returns when ctx is cancelled or
// startup completes in webhook mode.
func (b *Bot) Start(ctx context.Context) {
	api := b.connect(ctx)
	if api == nil {
		return
	}
	b.api = api
	b.send = api

	logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))

	if b.cfg.App.Debug {
		b.runPolling(ctx)
		return
	}

	if err := b.registerWebhook(); err != nil {
		logger.Error("failed to register webhook", zap.Error(err))
		return
	}

	b.ready.Store(true)
	logger.Info("telegram webhook registered", zap.String("url", b.cfg.Bot.WebhookURL))
}

func (b *Bot) connect(ctx context.Context) *tgbotapi.BotAPI {
	const maxDelay = 30 * time.Second
	delay := 2 * time.Second

	for {
		api, err := tgbotapi.NewBotAPI(b.cfg.Bot.Token)
		if err == nil {
			return api
		}

		logger.Warn("telegram connect failed, retrying",
			zap.Error(err),
			zap.Duration("retry_in", delay),
		)

		select {
		case <-ctx.Done():
			logger.Info("telegram startup cancelled")
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// registerWebhook goes through MakeRequest so the secret token can be set;
// the library's WebhookConfig does not carry it.
func (b *Bot) registerWebhook() error {
	params := tgbotapi.Params{
		"url":                  b.cfg.Bot.WebhookURL,
		"drop_pending_updates": "true",
	}
	if b.cfg.Bot.WebhookSecret != "" {
		params["secret_token"] = b.cfg.Bot.WebhookSecret
	}

	_, err := b.api.MakeRequest("setWebhook", params)
	return err
}

func (b *Bot) runPolling(ctx context.Context) {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		logger.Warn("failed to delete webhook before polling", zap.Error(err))
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	b.ready.Store(true)
	logger.Info("telegram bot polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			logger.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) setAwaiting(chatID int64, awaiting bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if awaiting {
		b.awaiting[chatID] = true
	} else {
		delete(b.awaiting, chatID)
	}
}

func (b *Bot) isAwaiting(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.awaiting[chatID]
}
