package telegram

import (
	"fmt"
	"testing"
	"time"

	"github.com/orlevy/shortly-bot/internal/shortener"
)

func makeLinks(n int) []*shortener.ShortLink {
	links := make([]*shortener.ShortLink, n)
	for i := range links {
		links[i] = &shortener.ShortLink{
			ShortCode:   fmt.Sprintf("code%d", i),
			OriginalURL: fmt.Sprintf("https://example.com/page/%d", i),
			CreatedAt:   time.Now().UTC(),
		}
	}
	return links
}

func TestMyLinksKeyboardRows(t *testing.T) {
	kb := myLinksKeyboard(makeLinks(5), 1, 3)

	// 5 link rows + navigation + main menu
	if len(kb.InlineKeyboard) != 7 {
		t.Fatalf("rows = %d, want 7", len(kb.InlineKeyboard))
	}

	for i := 0; i < 5; i++ {
		data := *kb.InlineKeyboard[i][0].CallbackData
		want := fmt.Sprintf("view_code%d", i)
		if data != want {
			t.Errorf("row %d callback = %q, want %q", i, data, want)
		}
	}
}

func TestMyLinksKeyboardPagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int64
		totalPages int64
		wantNav    []string
	}{
		{"first page has only next", 1, 3, []string{"page_2"}},
		{"middle page has both", 2, 3, []string{"page_1", "page_3"}},
		{"last page has only prev", 3, 3, []string{"page_2"}},
		{"single page has no nav", 1, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := myLinksKeyboard(makeLinks(2), tt.page, tt.totalPages)

			var nav []string
			for _, row := range kb.InlineKeyboard {
				for _, btn := range row {
					data := *btn.CallbackData
					if len(data) > 5 && data[:5] == "page_" {
						nav = append(nav, data)
					}
				}
			}

			if len(nav) != len(tt.wantNav) {
				t.Fatalf("nav buttons = %v, want %v", nav, tt.wantNav)
			}
			for i := range nav {
				if nav[i] != tt.wantNav[i] {
					t.Errorf("nav[%d] = %q, want %q", i, nav[i], tt.wantNav[i])
				}
			}
		})
	}
}

func TestDeleteConfirmKeyboard(t *testing.T) {
	kb := deleteConfirmKeyboard("abc123")

	if len(kb.InlineKeyboard) != 1 || len(kb.InlineKeyboard[0]) != 2 {
		t.Fatalf("unexpected keyboard layout")
	}
	if data := *kb.InlineKeyboard[0][0].CallbackData; data != "delete_confirmed_abc123" {
		t.Errorf("confirm callback = %q", data)
	}
	if data := *kb.InlineKeyboard[0][1].CallbackData; data != "view_abc123" {
		t.Errorf("cancel callback = %q", data)
	}
}
