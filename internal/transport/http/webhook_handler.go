package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orlevy/shortly-bot/internal/infrastructure/logger"
	"github.com/orlevy/shortly-bot/pkg/httputils"
	"go.uber.org/zap"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateDispatcher is the bot-side contract the webhook delivers into.
type UpdateDispatcher interface {
	Ready() bool
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// WebhookHandler receives Telegram webhook calls and hands updates to the
// bot dispatcher.
type WebhookHandler struct {
	dispatcher    UpdateDispatcher
	secretToken   string
	handleTimeout time.Duration
}

func NewWebhookHandler(dispatcher UpdateDispatcher, secretToken string) *WebhookHandler {
	return &WebhookHandler{
		dispatcher:    dispatcher,
		secretToken:   secretToken,
		handleTimeout: 30 * time.Second,
	}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if !h.dispatcher.Ready() {
		httputils.RespondJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}

	if h.secretToken != "" && r.Header.Get(secretTokenHeader) != h.secretToken {
		httputils.RespondJSON(w, r, http.StatusForbidden, map[string]string{"status": "forbidden"})
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logger.Warn("invalid webhook payload", zap.Error(err))
		httputils.RespondJSON(w, r, http.StatusBadRequest, map[string]string{"status": "bad request"})
		return
	}

	// Telegram expects a fast acknowledgement; the update is processed
	// off the request goroutine.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.handleTimeout)
		defer cancel()
		h.dispatcher.HandleUpdate(ctx, update)
	}()

	httputils.RespondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
