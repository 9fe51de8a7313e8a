package constants

// ServiceName identifies the service in health responses and monitor
// documents.
const ServiceName = "url-shortener-bot"

// Error messages used in API responses.
// These are the human-readable messages returned in the "error" field.
const (
	MsgURLNotFound     = "URL not found"
	MsgInternalError   = "Internal server error"
	MsgMissingURL      = "Missing URL parameter"
	MsgInvalidBody     = "Invalid request body"
	MsgShorteningError = "Failed to shorten URL"
)

// Validation reasons mapped to user-facing messages for the shorten API.
var ReasonMessages = map[string]string{
	"invalid_url":    "Invalid URL (must be http or https)",
	"url_too_long":   "URL is too long",
	"blocked_domain": "This domain is not allowed",
	"parse_error":    "Could not parse the URL",
}
