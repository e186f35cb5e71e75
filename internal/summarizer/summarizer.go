// Package summarizer turns a day's worth of chat messages into a markdown
// digest by asking a configured LLM backend.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"digestbot/internal/domain"
	"digestbot/internal/metrics"
)

// NothingDiscussed is the reply the model is instructed to give for an empty batch.
const NothingDiscussed = "Nothing was discussed."

// DefaultSystemPrompt is the fixed instruction sent with every batch.
const DefaultSystemPrompt = "Your job is to summarize a list of chat messages from a single day in JSON format. " +
	"The output should be in Markdown and is intended to provide a summary of important events " +
	"and conversation topics from the day given. If there are no messages, simply respond '" + NothingDiscussed + "'"

const defaultTimeout = 300 * time.Second

// Config configures a Summarizer.
type Config struct {
	Backend      domain.LLMBackend
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
	Logger       *slog.Logger
}

// Summarizer is stateless; each Summarize call is a single completion request.
type Summarizer struct {
	backend      domain.LLMBackend
	model        string
	systemPrompt string
	maxTokens    int
	temperature  float64
	timeout      time.Duration
	logger       *slog.Logger
}

// New creates a Summarizer around cfg.Backend.
func New(cfg Config) *Summarizer {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Summarizer{
		backend:      cfg.Backend,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		timeout:      cfg.Timeout,
		logger:       cfg.Logger,
	}
}

// Backend returns the underlying LLM backend.
func (s *Summarizer) Backend() domain.LLMBackend { return s.backend }

// Summarize sends messages (the day's batch rendered as JSON text) to the
// backend and returns the digest. Every failure wraps domain.ErrSummarizationFailed.
func (s *Summarizer) Summarize(ctx context.Context, messages string) (string, error) {
	if s.backend == nil {
		return "", fmt.Errorf("%w: no LLM backend configured", domain.ErrSummarizationFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	metrics.LLMRequestsTotal.Inc()

	out, err := s.backend.Complete(ctx, domain.CompletionRequest{
		System:      s.systemPrompt,
		Prompt:      messages,
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	elapsed := time.Since(start)
	metrics.SummarizeLatency.ObserveDuration(elapsed)

	if err != nil {
		metrics.LLMErrorsTotal.Inc()
		return "", fmt.Errorf("%w: %s: %w", domain.ErrSummarizationFailed, s.backend.Name(), err)
	}

	digest := StripThinking(out)
	if digest == "" {
		metrics.LLMErrorsTotal.Inc()
		return "", fmt.Errorf("%w: %s returned an empty completion", domain.ErrSummarizationFailed, s.backend.Name())
	}

	s.logger.Info("summary generated",
		"backend", s.backend.Name(),
		"input_chars", len(messages),
		"output_chars", len(digest),
		"latency_ms", elapsed.Milliseconds(),
	)
	return digest, nil
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinking removes <think>...</think> reasoning blocks. When only a
// closing tag is present, everything before it is treated as reasoning.
func StripThinking(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	if i := strings.Index(s, "</think>"); i >= 0 {
		s = s[i+len("</think>"):]
	}
	return strings.TrimSpace(s)
}
