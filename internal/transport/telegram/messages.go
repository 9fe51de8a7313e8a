package telegram

import (
	"fmt"
	"strings"

	"github.com/orlevy/shortly-bot/internal/shortener"
)

const (
	msgWelcome = "👋 *Welcome to URL Shortener Bot!*\n\n" +
		"I turn long links into short ones and keep click statistics for you.\n\n" +
		"Use the menu below or just send me a link."

	msgHelp = "*How to use this bot*\n\n" +
		"🔗 /shorten — shorten a new URL\n" +
		"📋 /mylinks — list your links\n" +
		"📊 /stats — your overall statistics\n" +
		"❓ /help — this message\n\n" +
		"You can also just paste a link after pressing *Shorten URL*."

	msgSendURL = "🔗 Send me the URL you want to shorten.\n\n" +
		"I will add https:// automatically if you leave it out."

	msgGenericError = "😕 Something went wrong. Please try again."

	msgNoLinks = "📭 You have no links yet.\n\nPress *Shorten URL* to create your first one."

	msgDeleted = "🗑 Link deleted."

	msgDeleteFailed = "😕 Could not delete that link. It may already be gone."

	msgLinkGone = "😕 That link doesn't exist or isn't yours."
)

var validationMessages = map[string]string{
	shortener.ReasonInvalidURL:    "❌ That doesn't look like a valid URL (http or https only).",
	shortener.ReasonURLTooLong:    "❌ That URL is too long.",
	shortener.ReasonBlockedDomain: "❌ Sorry, that domain is not allowed.",
	shortener.ReasonParseError:    "❌ I couldn't parse that URL. Please check it and try again.",
}

func validationMessage(reason string) string {
	if msg, ok := validationMessages[reason]; ok {
		return msg
	}
	return msgGenericError
}

func rateLimitMessage(waitMinutes int) string {
	return fmt.Sprintf(
		"⏳ You've reached the hourly limit. Please wait about %d minute(s) and try again.",
		waitMinutes,
	)
}

func shortenedMessage(link *shortener.ShortLink, shortURL string, created bool) string {
	var b strings.Builder
	if created {
		b.WriteString("✅ *Your short link is ready!*\n\n")
	} else {
		b.WriteString("ℹ️ *You already shortened this URL:*\n\n")
	}
	fmt.Fprintf(&b, "🔗 `%s`\n", shortURL)
	fmt.Fprintf(&b, "📄 %s", Truncate(link.OriginalURL, 60))
	return b.String()
}

func linkDetailMessage(link *shortener.ShortLink, shortURL string) string {
	var b strings.Builder
	b.WriteString("🔗 *Link details*\n\n")
	fmt.Fprintf(&b, "Short: `%s`\n", shortURL)
	fmt.Fprintf(&b, "Original: %s\n", Truncate(link.OriginalURL, 60))
	fmt.Fprintf(&b, "Created: %s\n", FormatDateTime(link.CreatedAt))
	fmt.Fprintf(&b, "Clicks: %d", link.Clicks)
	return b.String()
}

func linkStatsMessage(link *shortener.ShortLink, shortURL string) string {
	var b strings.Builder
	b.WriteString("📊 *Link statistics*\n\n")
	fmt.Fprintf(&b, "🔗 `%s`\n", shortURL)
	fmt.Fprintf(&b, "👆 Clicks: %d\n", link.Clicks)
	fmt.Fprintf(&b, "📅 Created: %s\n", FormatDateTime(link.CreatedAt))
	if link.LastClicked != nil {
		fmt.Fprintf(&b, "🕐 Last clicked: %s", FormatDateTime(*link.LastClicked))
	} else {
		b.WriteString("🕐 Last clicked: never")
	}
	return b.String()
}

func userStatsMessage(stats *shortener.UserStats, baseURL string) string {
	var b strings.Builder
	b.WriteString("📊 *Your statistics*\n\n")
	fmt.Fprintf(&b, "🔗 Links: %d\n", stats.TotalLinks)
	fmt.Fprintf(&b, "👆 Total clicks: %d\n", stats.TotalClicks)
	fmt.Fprintf(&b, "📅 Member since: %s", FormatDateTime(stats.MemberSince))
	if stats.TopLink != nil {
		fmt.Fprintf(&b, "\n\n🏆 Top link: `%s/%s` (%d clicks)",
			baseURL, stats.TopLink.ShortCode, stats.TopLink.Clicks)
	}
	return b.String()
}

func deleteConfirmMessage(shortURL string) string {
	return fmt.Sprintf("⚠️ Delete `%s`?\n\nThis cannot be undone.", shortURL)
}

func myLinksMessage(total int64, page, totalPages int64) string {
	if total == 0 {
		return msgNoLinks
	}
	return fmt.Sprintf("📋 *Your links* (%d total, page %d/%d)\n\nTap a link to see details.",
		total, page, totalPages)
}
