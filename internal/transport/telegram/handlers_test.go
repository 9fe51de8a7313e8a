package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orlevy/shortly-bot/internal/config"
	"github.com/orlevy/shortly-bot/internal/qr"
	"github.com/orlevy/shortly-bot/internal/ratelimit"
	"github.com/orlevy/shortly-bot/internal/shortener"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSender) edits() []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

type memLinkRepo struct {
	mu    sync.Mutex
	links map[string]*shortener.ShortLink
}

func newMemLinkRepo() *memLinkRepo {
	return &memLinkRepo{links: map[string]*shortener.ShortLink{}}
}

func (m *memLinkRepo) Create(ctx context.Context, link *shortener.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[link.ShortCode]; ok {
		return shortener.ErrCodeTaken
	}
	cp := *link
	m.links[link.ShortCode] = &cp
	return nil
}

func (m *memLinkRepo) GetByCode(ctx context.Context, code string) (*shortener.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}
	cp := *link
	return &cp, nil
}

func (m *memLinkRepo) FindExisting(ctx context.Context, ownerID int64, originalURL string) (*shortener.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, link := range m.links {
		if link.OwnerID == ownerID && link.OriginalURL == originalURL {
			cp := *link
			return &cp, nil
		}
	}
	return nil, shortener.ErrNotFound
}

func (m *memLinkRepo) FindByOwner(ctx context.Context, ownerID int64, skip, limit int64) ([]*shortener.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*shortener.ShortLink
	for _, link := range m.links {
		if link.OwnerID == ownerID {
			cp := *link
			all = append(all, &cp)
		}
	}
	if skip >= int64(len(all)) {
		return nil, nil
	}
	all = all[skip:]
	if limit < int64(len(all)) {
		all = all[:limit]
	}
	return all, nil
}

func (m *memLinkRepo) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, link := range m.links {
		if link.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *memLinkRepo) IncrementClicks(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[code]
	if !ok {
		return false, nil
	}
	link.Clicks++
	now := time.Now().UTC()
	link.LastClicked = &now
	return true, nil
}

func (m *memLinkRepo) Delete(ctx context.Context, code string, ownerID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[code]
	if !ok || link.OwnerID != ownerID {
		return false, nil
	}
	delete(m.links, code)
	return true, nil
}

func (m *memLinkRepo) TopByOwner(ctx context.Context, ownerID int64, limit int64) ([]*shortener.ShortLink, error) {
	return m.FindByOwner(ctx, ownerID, 0, limit)
}

func (m *memLinkRepo) TotalClicksByOwner(ctx context.Context, ownerID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, link := range m.links {
		if link.OwnerID == ownerID {
			n += link.Clicks
		}
	}
	return n, nil
}

type memUserRepo struct{}

func (memUserRepo) Upsert(ctx context.Context, profile *shortener.UserProfile) (*shortener.UserProfile, error) {
	return profile, nil
}

func (memUserRepo) Get(ctx context.Context, ownerID int64) (*shortener.UserProfile, error) {
	return &shortener.UserProfile{OwnerID: ownerID, CreatedAt: time.Now().UTC()}, nil
}

type seqGenerator struct {
	mu    sync.Mutex
	codes []string
}

func (g *seqGenerator) Generate(length int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return code, nil
}

func newTestBot(t *testing.T, repo *memLinkRepo, maxPerHour int) (*Bot, *fakeSender) {
	t.Helper()

	cfg := &config.Config{
		Shortener: config.ShortenerConfig{
			BaseURL:      "http://short.test",
			CodeLength:   6,
			MaxURLLength: 2048,
		},
	}
	svc := shortener.NewService(
		repo,
		memUserRepo{},
		&seqGenerator{codes: []string{"abc123", "def456", "ghi789"}},
		shortener.SafetyPolicy{MaxURLLength: 2048},
		6,
	)

	bot := NewBot(cfg, svc, ratelimit.NewLimiter(maxPerHour), qr.NewGenerator(10, 4), nil)
	sender := &fakeSender{}
	bot.send = sender
	bot.ready.Store(true)

	return bot, sender
}

func messageUpdate(userID, chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, UserName: "tester"},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		end := len(text)
		if i := strings.Index(text, " "); i > 0 {
			end = i
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func callbackUpdate(userID, chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb1",
			From: &tgbotapi.User{ID: userID, UserName: "tester"},
			Message: &tgbotapi.Message{
				MessageID: 10,
				Chat:      &tgbotapi.Chat{ID: chatID},
			},
			Data: data,
		},
	}
}

func TestStartCommandSendsMenu(t *testing.T) {
	bot, sender := newTestBot(t, newMemLinkRepo(), 10)

	bot.HandleUpdate(context.Background(), messageUpdate(7, 7, "/start"))

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "Welcome") {
		t.Errorf("text = %q, want welcome message", msgs[0].Text)
	}
	kb, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("reply markup is %T, want InlineKeyboardMarkup", msgs[0].ReplyMarkup)
	}
	if data := *kb.InlineKeyboard[0][0].CallbackData; data != "shorten_new" {
		t.Errorf("first button callback = %q, want shorten_new", data)
	}
}

func TestShorteningFlow(t *testing.T) {
	repo := newMemLinkRepo()
	bot, sender := newTestBot(t, repo, 10)
	ctx := context.Background()

	// shorten_new arms the waiting state
	bot.HandleUpdate(ctx, callbackUpdate(7, 7, "shorten_new"))
	if !bot.isAwaiting(7) {
		t.Fatal("chat not in awaiting state after shorten_new")
	}

	// the next text message runs the pipeline
	bot.HandleUpdate(ctx, messageUpdate(7, 7, "example.com/page"))

	if bot.isAwaiting(7) {
		t.Error("awaiting state not cleared after shortening")
	}
	link, ok := repo.links["abc123"]
	if !ok {
		t.Fatal("link not persisted")
	}
	if link.OriginalURL != "https://example.com/page" {
		t.Errorf("original url = %q, want normalized https URL", link.OriginalURL)
	}

	msgs := sender.messages()
	if len(msgs) == 0 {
		t.Fatal("no confirmation message sent")
	}
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Text, "http://short.test/abc123") {
		t.Errorf("confirmation text = %q, want short url", last.Text)
	}
}

func TestRateLimitGate(t *testing.T) {
	bot, sender := newTestBot(t, newMemLinkRepo(), 1)
	ctx := context.Background()

	// first shortening consumes the whole quota
	bot.setAwaiting(7, true)
	bot.HandleUpdate(ctx, messageUpdate(7, 7, "https://example.com/one"))

	// second attempt is denied at the prompt
	bot.HandleUpdate(ctx, messageUpdate(7, 7, "/shorten"))

	msgs := sender.messages()
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Text, "hourly limit") {
		t.Errorf("text = %q, want rate limit message", last.Text)
	}
	if bot.isAwaiting(7) {
		t.Error("awaiting state must not be set when rate limited")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	bot, sender := newTestBot(t, newMemLinkRepo(), 10)
	ctx := context.Background()

	bot.setAwaiting(7, true)
	bot.HandleUpdate(ctx, messageUpdate(7, 7, "ftp://example.com"))

	msgs := sender.messages()
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Text, "valid URL") {
		t.Errorf("text = %q, want invalid url message", last.Text)
	}
}

func TestDeleteConfirmedRemovesOwnedLink(t *testing.T) {
	repo := newMemLinkRepo()
	repo.links["abc123"] = &shortener.ShortLink{
		OwnerID:     7,
		OriginalURL: "https://example.com",
		ShortCode:   "abc123",
		CreatedAt:   time.Now().UTC(),
	}
	bot, sender := newTestBot(t, repo, 10)

	bot.HandleUpdate(context.Background(), callbackUpdate(7, 7, "delete_confirmed_abc123"))

	if _, ok := repo.links["abc123"]; ok {
		t.Error("link still present after confirmed delete")
	}
	edits := sender.edits()
	if len(edits) == 0 {
		t.Fatal("no edit sent")
	}
	if !strings.Contains(edits[len(edits)-1].Text, "deleted") {
		t.Errorf("edit text = %q, want deleted confirmation", edits[len(edits)-1].Text)
	}
}

func TestDeleteConfirmedRejectsForeignLink(t *testing.T) {
	repo := newMemLinkRepo()
	repo.links["abc123"] = &shortener.ShortLink{
		OwnerID:     99,
		OriginalURL: "https://example.com",
		ShortCode:   "abc123",
		CreatedAt:   time.Now().UTC(),
	}
	bot, _ := newTestBot(t, repo, 10)

	bot.HandleUpdate(context.Background(), callbackUpdate(7, 7, "delete_confirmed_abc123"))

	if _, ok := repo.links["abc123"]; !ok {
		t.Error("foreign link was deleted")
	}
}

func TestViewForeignLinkHidden(t *testing.T) {
	repo := newMemLinkRepo()
	repo.links["abc123"] = &shortener.ShortLink{
		OwnerID:     99,
		OriginalURL: "https://example.com",
		ShortCode:   "abc123",
		CreatedAt:   time.Now().UTC(),
	}
	bot, sender := newTestBot(t, repo, 10)

	bot.HandleUpdate(context.Background(), callbackUpdate(7, 7, "view_abc123"))

	edits := sender.edits()
	if len(edits) == 0 {
		t.Fatal("no edit sent")
	}
	if !strings.Contains(edits[len(edits)-1].Text, "doesn't exist") {
		t.Errorf("edit text = %q, want not-found message", edits[len(edits)-1].Text)
	}
}

func TestPanicBoundary(t *testing.T) {
	bot, _ := newTestBot(t, newMemLinkRepo(), 10)

	// a message without Chat would panic inside the handler chain;
	// HandleUpdate must swallow it
	update := tgbotapi.Update{
		UpdateID: 3,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 7},
			Text: "/start",
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: 6},
			},
		},
	}

	bot.HandleUpdate(context.Background(), update)
}
