// Package notify delivers finished digests to a chat destination.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"digestbot/internal/domain"
	"digestbot/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Config selects and configures a platform.
type Config struct {
	Platform  string // discord | telegram | slack | log
	Token     string
	ParseMode string // telegram only
	// APIURL overrides the telegram or slack API base.
	APIURL  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Checker is implemented by notifiers that can verify their credentials.
type Checker interface {
	Check(ctx context.Context) error
}

// Dispatcher bounds every delivery by a timeout, records metrics and
// wraps failures as domain.ErrDelivery.
type Dispatcher struct {
	notifier domain.Notifier
	timeout  time.Duration
	logger   *slog.Logger
}

// New builds the notifier for cfg.Platform wrapped in a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var n domain.Notifier
	switch cfg.Platform {
	case "discord":
		d, err := NewDiscord(DiscordConfig{Token: cfg.Token, Logger: cfg.Logger})
		if err != nil {
			return nil, err
		}
		n = d
	case "telegram":
		n = NewTelegram(TelegramConfig{
			Token:       cfg.Token,
			ParseMode:   cfg.ParseMode,
			APIEndpoint: cfg.APIURL,
			Timeout:     cfg.Timeout,
			Logger:      cfg.Logger,
		})
	case "slack":
		n = NewSlack(SlackConfig{Token: cfg.Token, APIURL: cfg.APIURL, Logger: cfg.Logger})
	case "log", "":
		n = NewLog(cfg.Logger)
	default:
		return nil, fmt.Errorf("unknown notifier platform %q", cfg.Platform)
	}

	return NewDispatcher(n, cfg.Timeout, cfg.Logger), nil
}

// NewDispatcher wraps an existing notifier.
func NewDispatcher(n domain.Notifier, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{notifier: n, timeout: timeout, logger: logger}
}

func (d *Dispatcher) Name() string { return d.notifier.Name() }

// Deliver sends text to destination. A failure partway through a chunked
// message leaves the earlier chunks posted.
func (d *Dispatcher) Deliver(ctx context.Context, destination, text string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.notifier.Deliver(ctx, destination, text)
	if err != nil {
		metrics.DeliveriesTotal(d.notifier.Name(), "error").Inc()
		if errors.Is(err, domain.ErrDelivery) {
			return err
		}
		return fmt.Errorf("%w: %s to %s: %w", domain.ErrDelivery, d.notifier.Name(), destination, err)
	}

	metrics.DeliveriesTotal(d.notifier.Name(), "ok").Inc()
	d.logger.Info("digest delivered", "platform", d.notifier.Name(), "destination", destination, "chars", len(text))
	return nil
}

// Check verifies credentials when the platform supports it.
func (d *Dispatcher) Check(ctx context.Context) error {
	c, ok := d.notifier.(Checker)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return c.Check(ctx)
}
