package shortener

import "time"

// ShortLink is a persisted short-code → original-URL mapping owned by a
// Telegram user. OwnerID 0 marks anonymous API creations.
type ShortLink struct {
	OwnerID     int64
	OriginalURL string
	ShortCode   string
	CreatedAt   time.Time
	Clicks      int64
	LastClicked *time.Time
}

// UserProfile mirrors the Telegram identity of a bot user. It is upserted
// on every interaction and never deleted.
type UserProfile struct {
	OwnerID   int64
	Username  string
	FirstName string
	LastName  string
	CreatedAt time.Time
	LastSeen  time.Time
}

// UserStats aggregates a user's shortening activity for the /stats view.
type UserStats struct {
	OwnerID     int64
	MemberSince time.Time
	TotalLinks  int64
	TotalClicks int64
	TopLink     *ShortLink
}
