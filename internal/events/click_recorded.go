package events

// ClickRecorded is emitted when a redirect is served for a short code.
type ClickRecorded struct {
	EventID    string `json:"eventId"`
	ShortCode  string `json:"shortCode"`
	OccurredAt string `json:"occurredAt"`
}
