package domain

import (
	"encoding/json"
	"time"
)

// Message is one raw chat message captured by the ingestion path.
// Data is the opaque JSON payload exactly as it was stored.
type Message struct {
	ID        int64           `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// Summary is a persisted digest for one calendar day (UTC).
type Summary struct {
	ID        int64     `json:"id"`
	Summary   string    `json:"summary"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// DateLayout is the canonical calendar-date format used in SQL and logs.
const DateLayout = "2006-01-02"

// Day truncates t to midnight of its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Yesterday returns the UTC calendar day strictly before the day of now.
func Yesterday(now time.Time) time.Time {
	return Day(now).AddDate(0, 0, -1)
}
