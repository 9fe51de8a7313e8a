package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orlevy/shortly-bot/internal/config"
	"github.com/orlevy/shortly-bot/internal/qr"
	"github.com/orlevy/shortly-bot/internal/shortener"
)

type fakeLinkRepo struct {
	mu    sync.Mutex
	links map[string]*shortener.ShortLink
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: map[string]*shortener.ShortLink{}}
}

func (f *fakeLinkRepo) Create(ctx context.Context, link *shortener.ShortLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.links[link.ShortCode]; ok {
		return shortener.ErrCodeTaken
	}
	cp := *link
	f.links[link.ShortCode] = &cp
	return nil
}

func (f *fakeLinkRepo) GetByCode(ctx context.Context, code string) (*shortener.ShortLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}
	cp := *link
	return &cp, nil
}

func (f *fakeLinkRepo) FindExisting(ctx context.Context, ownerID int64, originalURL string) (*shortener.ShortLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.links {
		if link.OwnerID == ownerID && link.OriginalURL == originalURL {
			cp := *link
			return &cp, nil
		}
	}
	return nil, shortener.ErrNotFound
}

func (f *fakeLinkRepo) FindByOwner(ctx context.Context, ownerID int64, skip, limit int64) ([]*shortener.ShortLink, error) {
	return nil, nil
}

func (f *fakeLinkRepo) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	return 0, nil
}

func (f *fakeLinkRepo) IncrementClicks(ctx context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[code]
	if !ok {
		return false, nil
	}
	link.Clicks++
	now := time.Now().UTC()
	link.LastClicked = &now
	return true, nil
}

func (f *fakeLinkRepo) Delete(ctx context.Context, code string, ownerID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[code]
	if !ok || link.OwnerID != ownerID {
		return false, nil
	}
	delete(f.links, code)
	return true, nil
}

func (f *fakeLinkRepo) TopByOwner(ctx context.Context, ownerID int64, limit int64) ([]*shortener.ShortLink, error) {
	return nil, nil
}

func (f *fakeLinkRepo) TotalClicksByOwner(ctx context.Context, ownerID int64) (int64, error) {
	return 0, nil
}

type fakeUserRepo struct{}

func (fakeUserRepo) Upsert(ctx context.Context, profile *shortener.UserProfile) (*shortener.UserProfile, error) {
	return profile, nil
}

func (fakeUserRepo) Get(ctx context.Context, ownerID int64) (*shortener.UserProfile, error) {
	return nil, shortener.ErrNotFound
}

type fixedGenerator struct{ codes []string }

func (g *fixedGenerator) Generate(length int) (string, error) {
	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return code, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:    "shortly-bot",
			Version: "1.0.0",
		},
		Shortener: config.ShortenerConfig{
			BaseURL:      "http://short.test",
			CodeLength:   6,
			MaxURLLength: 2048,
		},
	}
}

func newTestRouter(t *testing.T, repo *fakeLinkRepo, dispatcher UpdateDispatcher, secret string) http.Handler {
	t.Helper()

	cfg := testConfig()
	svc := shortener.NewService(
		repo,
		fakeUserRepo{},
		&fixedGenerator{codes: []string{"abc123"}},
		shortener.SafetyPolicy{MaxURLLength: 2048, BlockedDomains: []string{"evil.example"}},
		6,
	)

	linksHandler := NewLinksHandler(cfg, svc, qr.NewGenerator(10, 4), nil)
	webhookHandler := NewWebhookHandler(dispatcher, secret)

	return NewRouterWithOptions(cfg, linksHandler, webhookHandler, RouterOptions{})
}

type fakeDispatcher struct {
	ready   bool
	mu      sync.Mutex
	handled int
}

func (d *fakeDispatcher) Ready() bool { return d.ready }

func (d *fakeDispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handled++
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestIndex(t *testing.T) {
	router := newTestRouter(t, newFakeLinkRepo(), &fakeDispatcher{ready: true}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["service"] != "URL Shortener Bot" {
		t.Errorf("service = %v, want URL Shortener Bot", body["service"])
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, newFakeLinkRepo(), &fakeDispatcher{ready: true}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "healthy" || body["service"] != "url-shortener-bot" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestRedirectNotFound(t *testing.T) {
	router := newTestRouter(t, newFakeLinkRepo(), &fakeDispatcher{ready: true}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nosuch", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "URL not found" {
		t.Errorf("error = %v, want URL not found", body["error"])
	}
	if body["short_code"] != "nosuch" {
		t.Errorf("short_code = %v, want nosuch", body["short_code"])
	}
}

func TestRedirectHitIncrementsClicks(t *testing.T) {
	repo := newFakeLinkRepo()
	repo.links["abc123"] = &shortener.ShortLink{
		OwnerID:     7,
		OriginalURL: "https://example.com/page",
		ShortCode:   "abc123",
		CreatedAt:   time.Now().UTC(),
	}
	router := newTestRouter(t, repo, &fakeDispatcher{ready: true}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/abc123", nil))

	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://example.com/page" {
		t.Errorf("Location = %q, want https://example.com/page", loc)
	}
	if repo.links["abc123"].Clicks != 1 {
		t.Errorf("clicks = %d, want 1", repo.links["abc123"].Clicks)
	}
}

func TestStatsShape(t *testing.T) {
	repo := newFakeLinkRepo()
	created := time.Date(2025, 3, 9, 14, 30, 0, 0, time.UTC)
	repo.links["abc123"] = &shortener.ShortLink{
		OwnerID:     7,
		OriginalURL: "https://example.com/page",
		ShortCode:   "abc123",
		CreatedAt:   created,
		Clicks:      3,
	}
	router := newTestRouter(t, repo, &fakeDispatcher{ready: true}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/abc123", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["short_code"] != "abc123" {
		t.Errorf("short_code = %v", body["short_code"])
	}
	if body["short_url"] != "http://short.test/abc123" {
		t.Errorf("short_url = %v", body["short_url"])
	}
	if body["created_at"] != "09/03/2025 14:30" {
		t.Errorf("created_at = %v, want 09/03/2025 14:30", body["created_at"])
	}
	if body["last_clicked"] != nil {
		t.Errorf("last_clicked = %v, want null", body["last_clicked"])
	}
	if body["clicks"] != float64(3) {
		t.Errorf("clicks = %v, want 3", body["clicks"])
	}
}

func TestShorten(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		router := newTestRouter(t, newFakeLinkRepo(), &fakeDispatcher{ready: true}, "")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(`{}`))
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["error"] != "Missing URL parameter" {
			t.Errorf("error = %v, want Missing URL parameter", body["error"])
		}
	})

	t.Run("blocked domain", func(t *testing.T) {
		router := newTestRouter(t, newFakeLinkRepo(), &fakeDispatcher{ready: true}, "")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(`{"url":"https://evil.example/x"}`))
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["error"] != "This domain is not allowed" {
			t.Errorf("error = %v, want This domain is not allowed", body["error"])
		}
	})

	t.Run("success", func(t *testing.T) {
		router := newTestRouter(t, newFakeLinkRepo(), &fakeDispatcher{ready: true}, "")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(`{"url":"example.com/page","user_id":7}`))
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["short_code"] != "abc123" {
			t.Errorf("short_code = %v, want abc123", body["short_code"])
		}
		if body["short_url"] != "http://short.test/abc123" {
			t.Errorf("short_url = %v", body["short_url"])
		}
		if body["original_url"] != "https://example.com/page" {
			t.Errorf("original_url = %v, want normalized https URL", body["original_url"])
		}
	})
}

func TestQRNotFound(t *testing.T) {
	router := newTestRouter(t, newFakeLinkRepo(), &fakeDispatcher{ready: true}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/qr/nosuch", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestQRRendersPNG(t *testing.T) {
	repo := newFakeLinkRepo()
	repo.links["abc123"] = &shortener.ShortLink{
		OriginalURL: "https://example.com",
		ShortCode:   "abc123",
		CreatedAt:   time.Now().UTC(),
	}
	router := newTestRouter(t, repo, &fakeDispatcher{ready: true}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/qr/abc123", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
}

func TestWebhook(t *testing.T) {
	t.Run("not ready", func(t *testing.T) {
		router := newTestRouter(t, newFakeLinkRepo(), &fakeDispatcher{ready: false}, "s3cret")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(`{"update_id":1}`))
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["status"] != "starting" {
			t.Errorf("status = %v, want starting", body["status"])
		}
	})

	t.Run("bad secret", func(t *testing.T) {
		router := newTestRouter(t, newFakeLinkRepo(), &fakeDispatcher{ready: true}, "s3cret")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(`{"update_id":1}`))
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["status"] != "forbidden" {
			t.Errorf("status = %v, want forbidden", body["status"])
		}
	})

	t.Run("accepted", func(t *testing.T) {
		router := newTestRouter(t, newFakeLinkRepo(), &fakeDispatcher{ready: true}, "s3cret")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(`{"update_id":1}`))
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cret")
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["status"] != "ok" {
			t.Errorf("status = %v, want ok", body["status"])
		}
	})
}
