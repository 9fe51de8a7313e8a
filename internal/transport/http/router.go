package http

import (
	"net/http"
	"strings"

	"github.com/orlevy/shortly-bot/internal/config"
	"github.com/orlevy/shortly-bot/internal/infrastructure/telemetry"
	"github.com/orlevy/shortly-bot/internal/transport/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var spanNames = map[string]string{
	"GET /{$}":               "index",
	"GET /health":            "health",
	"GET /metrics":           "metrics",
	"POST /api/shorten":      "links.shorten",
	"GET /api/stats/{code}":  "links.stats",
	"GET /qr/{code}":         "links.qr",
	"GET /{code}":            "links.redirect",
	"POST /telegram/webhook": "telegram.webhook",
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
	}
}

func NewRouter(cfg *config.Config, linksHandler *LinksHandler, webhookHandler *WebhookHandler) http.Handler {
	return NewRouterWithOptions(cfg, linksHandler, webhookHandler, DefaultRouterOptions())
}

func NewRouterWithOptions(cfg *config.Config, linksHandler *LinksHandler, webhookHandler *WebhookHandler, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler(cfg.App.Version)

	mux.HandleFunc("GET /{$}", healthHandler.Index)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	mux.HandleFunc("POST /api/shorten", linksHandler.Shorten)
	mux.HandleFunc("GET /api/stats/{code}", linksHandler.Stats)
	mux.HandleFunc("GET /qr/{code}", linksHandler.QR)
	mux.HandleFunc("POST /telegram/webhook", webhookHandler.Receive)
	mux.HandleFunc("GET /{code}", linksHandler.Redirect)

	var innerHandler http.Handler = mux
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			key := r.Method + " " + r.Pattern
			if name, ok := spanNames[key]; ok {
				return name
			}
			if r.Pattern != "" {
				return r.Pattern
			}
			path := strings.TrimSpace(r.URL.Path)
			if path == "" {
				path = "/"
			}
			return path
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}
