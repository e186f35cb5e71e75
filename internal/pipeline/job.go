// Package pipeline wraps report generation and delivery into a single
// scheduled run that never fails its caller.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"digestbot/internal/domain"
	"digestbot/internal/metrics"
	"digestbot/internal/report"
)

// Generator is the report stage.
type Generator interface {
	Generate(ctx context.Context) (*report.Report, error)
}

// Result describes one run.
type Result struct {
	RunID     string
	Outcome   report.Outcome
	Date      time.Time
	Delivered bool
	// Err is the stage error, or the delivery error when only delivery failed.
	Err error
}

type Config struct {
	Generator   Generator
	Notifier    domain.Notifier
	Destination string
	Logger      *slog.Logger
}

// Job runs the pipeline. At most one run is in flight at a time.
type Job struct {
	generator   Generator
	notifier    domain.Notifier
	destination string
	logger      *slog.Logger
	running     atomic.Bool
}

func New(cfg Config) *Job {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Job{
		generator:   cfg.Generator,
		notifier:    cfg.Notifier,
		destination: cfg.Destination,
		logger:      cfg.Logger,
	}
}

// Run executes generate then deliver. Every failure is logged and reported
// in the Result; Run itself never panics out.
func (j *Job) Run(ctx context.Context) (res Result) {
	res.RunID = uuid.NewString()
	log := j.logger.With("run_id", res.RunID)

	if !j.running.CompareAndSwap(false, true) {
		res.Outcome = report.OutcomeSkippedOverlap
		log.Warn("digest run skipped, previous run still in progress", "outcome", res.Outcome)
		metrics.RunsTotal(string(res.Outcome)).Inc()
		return res
	}
	defer j.running.Store(false)

	metrics.RunInProgress.Set(1)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = report.OutcomeUnknown
			res.Err = fmt.Errorf("digest run panicked: %v", r)
			log.Error("digest run panicked", "panic", r)
		}
		metrics.RunInProgress.Set(0)
		metrics.LastRunTimestamp.Set(time.Now().Unix())
		metrics.RunsTotal(string(res.Outcome)).Inc()
	}()

	log.Info("digest run started")

	rep, err := j.generator.Generate(ctx)
	res.Outcome = report.Classify(err)
	if rep != nil {
		res.Date = rep.Date
	}
	if err != nil {
		res.Err = err
		j.logFailure(log, res.Outcome, rep, err)
		return res
	}

	date := rep.Date.Format(domain.DateLayout)
	if j.notifier == nil {
		log.Info("digest run finished without delivery", "outcome", res.Outcome, "date", date, "summary_id", rep.SummaryID)
		return res
	}

	if err := j.notifier.Deliver(ctx, j.destination, rep.Digest); err != nil {
		res.Err = err
		log.Error("digest delivery failed; summary remains stored",
			"date", date,
			"summary_id", rep.SummaryID,
			"err", err,
		)
		return res
	}
	res.Delivered = true

	log.Info("digest run finished",
		"outcome", res.Outcome,
		"date", date,
		"messages", rep.MessageCount,
		"summary_id", rep.SummaryID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (j *Job) logFailure(log *slog.Logger, outcome report.Outcome, rep *report.Report, err error) {
	switch outcome {
	case report.OutcomeNoMessages:
		log.Info("no messages to summarize", "outcome", outcome, "err", err)
	case report.OutcomePersistFailed:
		attrs := []any{"outcome", outcome, "err", err}
		if rep != nil {
			attrs = append(attrs, "date", rep.Date.Format(domain.DateLayout), "unsaved_digest", rep.Digest)
		}
		log.Error("summary could not be stored", attrs...)
	default:
		log.Error("digest run failed", "outcome", outcome, "err", err)
	}
}

// Task adapts Run to the scheduler's task shape, discarding the result.
func (j *Job) Task() func(context.Context) {
	return func(ctx context.Context) {
		_ = j.Run(ctx)
	}
}

// Running reports whether a run is in flight.
func (j *Job) Running() bool { return j.running.Load() }
