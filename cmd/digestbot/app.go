package main

import (
	"context"
	"fmt"
	"time"

	"digestbot/internal/config"
	"digestbot/internal/domain"
	"digestbot/internal/notify"
	"digestbot/internal/pipeline"
	"digestbot/internal/report"
	"digestbot/internal/store"
	"digestbot/internal/summarizer"
)

type appOptions struct {
	// Now overrides the trigger clock for the report stage.
	Now       func() time.Time
	NoDeliver bool
}

// app holds the wired pipeline components. Close releases the store.
type app struct {
	store      *store.Store
	summarizer *summarizer.Summarizer
	notifier   *notify.Dispatcher
	job        *pipeline.Job
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		DSN:            cfg.Store.DSN,
		MaxConnections: cfg.Store.MaxConnections,
		ConnectTimeout: cfg.Store.ConnectTimeout(),
		QueryTimeout:   cfg.Store.QueryTimeout(),
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func newSummarizer(cfg *config.Config) (*summarizer.Summarizer, error) {
	backend, err := summarizer.NewBackend(summarizer.BackendConfig{
		Provider: cfg.LLM.Provider,
		APIBase:  cfg.LLM.APIBase,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("llm backend: %w", err)
	}
	return summarizer.New(summarizer.Config{
		Backend:      backend,
		Model:        cfg.LLM.Model,
		SystemPrompt: cfg.LLM.SystemPrompt,
		MaxTokens:    cfg.LLM.MaxTokens,
		Temperature:  cfg.LLM.Temperature,
		Timeout:      cfg.LLM.Timeout(),
		Logger:       logger,
	}), nil
}

func newNotifier(cfg *config.Config) (*notify.Dispatcher, error) {
	d, err := notify.New(notify.Config{
		Platform:  cfg.Notifier.Platform,
		Token:     cfg.Notifier.Token,
		ParseMode: cfg.Notifier.ParseMode,
		APIURL:    cfg.Notifier.APIURL,
		Timeout:   cfg.Notifier.Timeout(),
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}
	return d, nil
}

// buildApp opens the store and wires summarizer, report generator,
// notifier and job.
func buildApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	sum, err := newSummarizer(cfg)
	if err != nil {
		return nil, err
	}

	var disp *notify.Dispatcher
	if !opts.NoDeliver {
		if disp, err = newNotifier(cfg); err != nil {
			return nil, err
		}
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gen := report.New(st, sum, report.Options{Now: opts.Now, Logger: logger})

	var n domain.Notifier
	if disp != nil {
		n = disp
	}
	job := pipeline.New(pipeline.Config{
		Generator:   gen,
		Notifier:    n,
		Destination: cfg.Notifier.ChannelID,
		Logger:      logger,
	})

	return &app{store: st, summarizer: sum, notifier: disp, job: job}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
