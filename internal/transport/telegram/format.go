package telegram

import (
	"fmt"
	"time"
)

const timestampLayout = "02/01/2006 15:04"

// FormatDateTime renders timestamps the way they appear in bot messages,
// dd/mm/yyyy hh:mm.
func FormatDateTime(t time.Time) string {
	return t.Format(timestampLayout)
}

// TimeAgo renders a rough human-readable distance between now and t.
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// Truncate shortens s to max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
