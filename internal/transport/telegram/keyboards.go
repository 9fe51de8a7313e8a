package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orlevy/shortly-bot/internal/shortener"
)

// Callback data prefixes and values recognized by the dispatcher.
const (
	cbMainMenu        = "main_menu"
	cbShortenNew      = "shorten_new"
	cbMyLinks         = "my_links"
	cbUserStats       = "user_stats"
	cbHelp            = "help"
	cbViewPrefix      = "view_"
	cbStatsPrefix     = "stats_"
	cbQRPrefix        = "qr_"
	cbDeleteAskPrefix = "delete_confirm_"
	cbDeleteYesPrefix = "delete_confirmed_"
	cbPagePrefix      = "page_"
)

const linksPerPage = 5

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔗 Shorten URL", cbShortenNew),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 My Links", cbMyLinks),
			tgbotapi.NewInlineKeyboardButtonData("📊 My Stats", cbUserStats),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❓ Help", cbHelp),
		),
	)
}

func backToMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", cbMainMenu),
		),
	)
}

func shortenedKeyboard(code string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Stats", cbStatsPrefix+code),
			tgbotapi.NewInlineKeyboardButtonData("📱 QR Code", cbQRPrefix+code),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔗 Shorten Another", cbShortenNew),
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", cbMainMenu),
		),
	)
}

func linkDetailKeyboard(code string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Stats", cbStatsPrefix+code),
			tgbotapi.NewInlineKeyboardButtonData("📱 QR Code", cbQRPrefix+code),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", cbDeleteAskPrefix+code),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 My Links", cbMyLinks),
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", cbMainMenu),
		),
	)
}

func deleteConfirmKeyboard(code string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes, delete", cbDeleteYesPrefix+code),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbViewPrefix+code),
		),
	)
}

// myLinksKeyboard builds one row per link plus pagination controls.
func myLinksKeyboard(links []*shortener.ShortLink, page, totalPages int64) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(links)+2)

	for _, link := range links {
		label := fmt.Sprintf("%s (%d 👆)", Truncate(link.OriginalURL, 30), link.Clicks)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbViewPrefix+link.ShortCode),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Prev", fmt.Sprintf("%s%d", cbPagePrefix, page-1)))
	}
	if page < totalPages {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", fmt.Sprintf("%s%d", cbPagePrefix, page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", cbMainMenu),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
