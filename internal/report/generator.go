// Package report produces one day's digest: fetch yesterday's messages,
// summarize them, and persist the summary.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"digestbot/internal/domain"
	"digestbot/internal/metrics"
)

// Summarizer is the slice of the summarizer the generator depends on.
type Summarizer interface {
	Summarize(ctx context.Context, messages string) (string, error)
}

// Report is the outcome of a generation run.
type Report struct {
	Date         time.Time
	Digest       string
	MessageCount int
	SummaryID    int64
}

type Options struct {
	// Now returns the trigger instant. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Generator runs the fetch -> summarize -> persist sequence.
type Generator struct {
	store      domain.MessageStore
	summarizer Summarizer
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Generator.
func New(store domain.MessageStore, summarizer Summarizer, opts Options) *Generator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Generator{
		store:      store,
		summarizer: summarizer,
		now:        opts.Now,
		logger:     opts.Logger,
	}
}

// TargetDate is the UTC day before the trigger instant.
func (g *Generator) TargetDate() time.Time {
	return domain.Yesterday(g.now())
}

// Generate summarizes yesterday's messages and stores the summary.
//
// A day with no messages returns domain.ErrNoMessages and touches neither the
// summarizer nor the summaries table. When the insert fails the returned
// Report still carries the digest alongside a domain.ErrPersistenceFailed error.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	date := g.TargetDate()
	day := date.Format(domain.DateLayout)

	msgs, err := g.store.FetchMessagesForDate(ctx, date)
	if err != nil {
		if errors.Is(err, domain.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoMessages, day)
		}
		return nil, err
	}

	batch, err := FormatMessages(msgs)
	if err != nil {
		return nil, fmt.Errorf("%w: encode messages for %s: %w", domain.ErrSummarizationFailed, day, err)
	}

	g.logger.Info("summarizing messages", "date", day, "count", len(msgs))
	metrics.MessagesSummarized.Add(int64(len(msgs)))

	digest, err := g.summarizer.Summarize(ctx, batch)
	if err != nil {
		if !errors.Is(err, domain.ErrSummarizationFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrSummarizationFailed, err)
		}
		return nil, err
	}

	rep := &Report{Date: date, Digest: digest, MessageCount: len(msgs)}

	id, err := g.store.InsertSummary(ctx, digest, date)
	if err != nil {
		return rep, fmt.Errorf("%w: %s: %w", domain.ErrPersistenceFailed, day, err)
	}
	rep.SummaryID = id

	g.logger.Info("summary stored", "date", day, "summary_id", id)
	return rep, nil
}

// FormatMessages renders the payloads as an indented JSON array in fetch order.
func FormatMessages(msgs []domain.Message) (string, error) {
	payloads := make([]json.RawMessage, len(msgs))
	for i, m := range msgs {
		payloads[i] = m.Data
	}
	raw, err := json.Marshal(payloads)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}
