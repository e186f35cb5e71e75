package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"digestbot/internal/domain"
)

const (
	claudeAPIBase      = "https://api.anthropic.com"
	claudeAPIVersion   = "2023-06-01"
	claudeDefaultModel = "claude-sonnet-4-5"
	defaultMaxTokens   = 4096
)

// Claude implements domain.LLMBackend for the Anthropic Messages API.
type Claude struct {
	apiKey string
	model  string
	client *resty.Client
	logger *slog.Logger
}

type ClaudeConfig struct {
	APIKey  string
	APIBase string
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewClaude creates a Claude backend.
func NewClaude(cfg ClaudeConfig) *Claude {
	if cfg.APIBase == "" {
		cfg.APIBase = claudeAPIBase
	}
	if cfg.Model == "" {
		cfg.Model = claudeDefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBase, "/")).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", claudeAPIVersion).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Claude{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		client: client,
		logger: cfg.Logger,
	}
}

func (c *Claude) Name() string { return "claude" }

func (c *Claude) Healthy(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("claude: no API key configured")
	}
	resp, err := c.client.R().SetContext(ctx).Get("/v1/models")
	if err != nil {
		return fmt.Errorf("claude not reachable: %w", err)
	}
	if resp.StatusCode() == 401 {
		return fmt.Errorf("claude: invalid API key")
	}
	if resp.IsError() {
		return fmt.Errorf("claude returned %d", resp.StatusCode())
	}
	return nil
}

type claudeRequest struct {
	Model       string      `json:"model"`
	MaxTokens   int         `json:"max_tokens"`
	System      string      `json:"system,omitempty"`
	Messages    []claudeMsg `json:"messages"`
	Temperature *float64    `json:"temperature,omitempty"`
}

type claudeMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type claudeResponse struct {
	Content    []claudeContent `json:"content"`
	StopReason string          `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type claudeError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Claude) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := claudeRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []claudeMsg{{Role: "user", Content: req.Prompt}},
	}
	if req.Temperature > 0 {
		t := req.Temperature
		body.Temperature = &t
	}

	var (
		out    claudeResponse
		apiErr claudeError
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("claude request: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return "", fmt.Errorf("claude %d: %s: %s", resp.StatusCode(), apiErr.Error.Type, apiErr.Error.Message)
		}
		return "", fmt.Errorf("claude %d: %s", resp.StatusCode(), resp.String())
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	if out.StopReason == "max_tokens" {
		c.logger.Warn("completion truncated at token limit", "backend", "claude", "model", model)
	}
	c.logger.Debug("completion received",
		"backend", "claude",
		"model", model,
		"input_tokens", out.Usage.InputTokens,
		"output_tokens", out.Usage.OutputTokens,
	)
	return sb.String(), nil
}
