package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"digestbot/internal/collector"
	"digestbot/internal/config"
	"digestbot/internal/metrics"
	"digestbot/internal/schedule"

	"github.com/spf13/cobra"
)

const (
	digestTaskName  = "daily-digest"
	shutdownTimeout = 10 * time.Second
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the scheduler and post a digest on every cron firing",
		Long:  "Runs until interrupted. Press Ctrl+C to stop; an in-flight run gets up to 10s to finish.",
		RunE:  runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, closer, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer closer.Close()

	if missing := config.CheckCredentials(cfg); len(missing) > 0 {
		return fmt.Errorf("missing settings:\n  - %s", strings.Join(missing, "\n  - "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Runs get their own context so a signal lets an in-flight run finish
	// within shutdownTimeout instead of aborting it immediately.
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	a, err := buildApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.summarizer.Backend().Healthy(ctx); err != nil {
		logger.Warn("llm backend unhealthy at startup", "provider", a.summarizer.Backend().Name(), "err", err)
	} else {
		logger.Info("llm backend healthy", "provider", a.summarizer.Backend().Name())
	}

	sched := schedule.New(schedule.Config{Logger: logger})
	if err := sched.RegisterPeriodic(digestTaskName, cfg.Schedule.Cron, a.job.Task()); err != nil {
		return fmt.Errorf("register digest task: %w", err)
	}
	for _, t := range sched.ListTasks() {
		logger.Info("digest scheduled", "task", t.Name, "cron", t.Expr, "next_run", t.NextRun.Format(time.RFC3339))
	}

	if cfg.Collector.Enabled {
		col := collector.NewDiscord(collector.DiscordConfig{
			Token:      cfg.CollectorToken(),
			ChannelIDs: cfg.Collector.ChannelIDs,
			Sink:       a.store,
			Logger:     logger,
		})
		go func() {
			if err := col.Start(ctx); err != nil {
				logger.Error("discord collector error", "err", err)
			}
		}()
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Endpoint, metrics.Collector.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Endpoint)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "err", err)
			}
		}()
	}

	if cfg.Schedule.RunOnStart {
		if err := sched.RunNow(runCtx, digestTaskName); err != nil {
			logger.Error("run on start", "err", err)
		}
	}

	go sched.Start(runCtx)

	logger.Info("digestbot started. Press Ctrl+C to stop.", "version", version)

	// Block until shutdown signal
	<-ctx.Done()
	logger.Info("shutting down digestbot...")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", "err", err)
		}
	}
	if err := sched.Wait(shutdownCtx); err != nil {
		logger.Warn("shutdown timed out, abandoning in-flight run")
		shutdownErr = fmt.Errorf("shutdown timed out")
	}
	cancelRuns()

	if shutdownErr == nil {
		logger.Info("shutdown complete")
	}
	return shutdownErr
}
