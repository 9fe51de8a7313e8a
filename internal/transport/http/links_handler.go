package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/orlevy/shortly-bot/internal/config"
	"github.com/orlevy/shortly-bot/internal/constants"
	"github.com/orlevy/shortly-bot/internal/events"
	"github.com/orlevy/shortly-bot/internal/infrastructure/logger"
	appvalidation "github.com/orlevy/shortly-bot/internal/infrastructure/validation"
	"github.com/orlevy/shortly-bot/internal/qr"
	"github.com/orlevy/shortly-bot/internal/shortener"
	"github.com/orlevy/shortly-bot/pkg/httputils"
	"go.uber.org/zap"
)

const timestampLayout = "02/01/2006 15:04"

type LinksHandler struct {
	cfg       *config.Config
	svc       *shortener.Service
	qrGen     *qr.Generator
	publisher *events.ClickPublisher
}

func NewLinksHandler(cfg *config.Config, svc *shortener.Service, qrGen *qr.Generator, publisher *events.ClickPublisher) *LinksHandler {
	return &LinksHandler{
		cfg:       cfg,
		svc:       svc,
		qrGen:     qrGen,
		publisher: publisher,
	}
}

func (h *LinksHandler) shortURL(code string) string {
	return h.cfg.Shortener.BaseURL + "/" + code
}

func (h *LinksHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	link, err := h.svc.GetLink(r.Context(), code)
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			httputils.RespondJSON(w, r, http.StatusNotFound, map[string]string{
				"error":      constants.MsgURLNotFound,
				"short_code": code,
			})
			return
		}
		logger.Error("failed to resolve short code", zap.Error(err), zap.String("short_code", code))
		httputils.RespondError(w, r, http.StatusInternalServerError, constants.MsgInternalError)
		return
	}

	if err := h.svc.RecordClick(r.Context(), code); err != nil {
		logger.Warn("failed to record click", zap.Error(err), zap.String("short_code", code))
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.publisher.PublishClick(ctx, code, time.Now())
	}()

	http.Redirect(w, r, link.OriginalURL, http.StatusMovedPermanently)
}

func (h *LinksHandler) QR(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	if _, err := h.svc.GetLink(r.Context(), code); err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			httputils.RespondJSON(w, r, http.StatusNotFound, map[string]string{
				"error":      constants.MsgURLNotFound,
				"short_code": code,
			})
			return
		}
		logger.Error("failed to resolve short code", zap.Error(err), zap.String("short_code", code))
		httputils.RespondError(w, r, http.StatusInternalServerError, constants.MsgInternalError)
		return
	}

	png, err := h.qrGen.Render(h.shortURL(code))
	if err != nil {
		logger.Error("failed to render qr code", zap.Error(err), zap.String("short_code", code))
		httputils.RespondError(w, r, http.StatusInternalServerError, constants.MsgInternalError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

type statsResponse struct {
	ShortCode   string  `json:"short_code"`
	OriginalURL string  `json:"original_url"`
	ShortURL    string  `json:"short_url"`
	Clicks      int64   `json:"clicks"`
	CreatedAt   string  `json:"created_at"`
	LastClicked *string `json:"last_clicked"`
}

func (h *LinksHandler) Stats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	link, err := h.svc.GetLink(r.Context(), code)
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			httputils.RespondJSON(w, r, http.StatusNotFound, map[string]string{
				"error":      constants.MsgURLNotFound,
				"short_code": code,
			})
			return
		}
		logger.Error("failed to fetch stats", zap.Error(err), zap.String("short_code", code))
		httputils.RespondError(w, r, http.StatusInternalServerError, constants.MsgInternalError)
		return
	}

	resp := statsResponse{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		ShortURL:    h.shortURL(link.ShortCode),
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt.Format(timestampLayout),
	}
	if link.LastClicked != nil {
		formatted := link.LastClicked.Format(timestampLayout)
		resp.LastClicked = &formatted
	}

	httputils.RespondJSON(w, r, http.StatusOK, resp)
}

type shortenRequest struct {
	URL    string `json:"url" validate:"required,notblank"`
	UserID int64  `json:"user_id"`
}

type shortenResponse struct {
	ShortURL    string `json:"short_url"`
	ShortCode   string `json:"short_code"`
	OriginalURL string `json:"original_url"`
}

func (h *LinksHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.RespondError(w, r, http.StatusBadRequest, constants.MsgInvalidBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		httputils.RespondError(w, r, http.StatusBadRequest, constants.MsgMissingURL)
		return
	}

	link, _, err := h.svc.Shorten(r.Context(), req.UserID, req.URL)
	if err != nil {
		var vErr *shortener.ValidationError
		if errors.As(err, &vErr) {
			message := constants.ReasonMessages[vErr.Reason]
			if message == "" {
				message = constants.MsgShorteningError
			}
			httputils.RespondError(w, r, http.StatusBadRequest, message)
			return
		}
		logger.Error("failed to shorten url", zap.Error(err))
		httputils.RespondError(w, r, http.StatusInternalServerError, constants.MsgInternalError)
		return
	}

	httputils.RespondJSON(w, r, http.StatusOK, shortenResponse{
		ShortURL:    h.shortURL(link.ShortCode),
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
	})
}
