package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"digestbot/internal/domain"
)

const (
	hyperbolicAPIBase      = "https://api.hyperbolic.xyz/v1"
	hyperbolicDefaultModel = "deepseek-ai/DeepSeek-R1"
	openAIDefaultModel     = "gpt-4o-mini"
)

// OpenAI implements domain.LLMBackend for any OpenAI-compatible chat
// completions API (Hyperbolic, OpenAI, Groq, vLLM...).
type OpenAI struct {
	name   string
	model  string
	client *openai.Client
	logger *slog.Logger
}

type OpenAIConfig struct {
	Name       string // reported by Name(); defaults to "openai"
	APIKey     string
	APIBase    string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewOpenAI creates an OpenAI-compatible backend.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		oc.BaseURL = strings.TrimRight(cfg.APIBase, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	return &OpenAI{
		name:   cfg.Name,
		model:  cfg.Model,
		client: openai.NewClientWithConfig(oc),
		logger: cfg.Logger,
	}
}

// NewHyperbolic creates a backend for Hyperbolic's hosted models.
func NewHyperbolic(cfg OpenAIConfig) *OpenAI {
	cfg.Name = "hyperbolic"
	if cfg.APIBase == "" {
		cfg.APIBase = hyperbolicAPIBase
	}
	if cfg.Model == "" {
		cfg.Model = hyperbolicDefaultModel
	}
	return NewOpenAI(cfg)
}

func (o *OpenAI) Name() string { return o.name }

func (o *OpenAI) Healthy(ctx context.Context) error {
	if _, err := o.client.ListModels(ctx); err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%s: invalid API key", o.name)
		}
		return fmt.Errorf("%s not reachable: %w", o.name, err)
	}
	return nil
}

func (o *OpenAI) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	body := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		body.Temperature = float32(req.Temperature)
	}

	resp, err := o.client.CreateChatCompletion(ctx, body)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%s %d: %s", o.name, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("%s request: %w", o.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in response", o.name)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		o.logger.Warn("completion truncated at token limit", "backend", o.name, "model", model)
	}
	o.logger.Debug("completion received",
		"backend", o.name,
		"model", model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return choice.Message.Content, nil
}
