package domain

import (
	"context"
	"encoding/json"
	"time"
)

// MessageStore is the narrow data interface the report pipeline depends on.
type MessageStore interface {
	// FetchMessagesForDate returns ErrNoRows when the day has no messages.
	FetchMessagesForDate(ctx context.Context, date time.Time) ([]Message, error)
	InsertSummary(ctx context.Context, summary string, date time.Time) (int64, error)
}

// MessageSink appends raw messages. Used by ingestion, never by the pipeline.
type MessageSink interface {
	AppendMessage(ctx context.Context, data json.RawMessage, createdAt time.Time) (int64, error)
}

// SummaryReader lists stored digests, newest first.
type SummaryReader interface {
	ListSummaries(ctx context.Context, limit int) ([]Summary, error)
}
