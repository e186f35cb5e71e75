package notify

import (
	"context"
	"log/slog"
)

// Log writes digests to the logger instead of a chat platform.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Deliver(ctx context.Context, destination, text string) error {
	l.logger.Info("digest", "destination", destination, "text", text)
	return nil
}
