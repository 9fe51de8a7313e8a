package shortener

import (
	"net/url"
	"strings"
)

// Rejection reasons reported by CheckSafe.
const (
	ReasonInvalidURL    = "invalid_url"
	ReasonURLTooLong    = "url_too_long"
	ReasonBlockedDomain = "blocked_domain"
	ReasonParseError    = "parse_error"
)

// Normalize trims whitespace and prepends https:// when the string has no
// http(s) prefix.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	return raw
}

// SafetyPolicy holds the validation limits applied to submitted URLs.
type SafetyPolicy struct {
	MaxURLLength   int
	BlockedDomains []string
}

// CheckSafe validates a normalized URL. On rejection the second return
// value is one of the Reason* constants.
func (p SafetyPolicy) CheckSafe(raw string) (bool, string) {
	u, err := url.Parse(raw)
	if err != nil {
		return false, ReasonParseError
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false, ReasonInvalidURL
	}
	if strings.TrimSpace(u.Host) == "" {
		return false, ReasonInvalidURL
	}

	if p.MaxURLLength > 0 && len(raw) > p.MaxURLLength {
		return false, ReasonURLTooLong
	}

	host := strings.ToLower(u.Host)
	for _, blocked := range p.BlockedDomains {
		blocked = strings.ToLower(strings.TrimSpace(blocked))
		if blocked != "" && strings.Contains(host, blocked) {
			return false, ReasonBlockedDomain
		}
	}

	return true, ""
}
