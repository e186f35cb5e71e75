package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"digestbot/internal/domain"
)

const (
	ollamaDefaultBase  = "http://localhost:11434"
	ollamaDefaultModel = "llama3.1"
)

// Ollama implements domain.LLMBackend against a local or remote Ollama server.
type Ollama struct {
	model   string
	baseURL string
	client  *api.Client
	logger  *slog.Logger
}

type OllamaConfig struct {
	APIBase    string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewOllama creates an Ollama backend.
func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	if cfg.APIBase == "" {
		cfg.APIBase = ollamaDefaultBase
	}
	if cfg.Model == "" {
		cfg.Model = ollamaDefaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	u, err := url.Parse(strings.TrimRight(cfg.APIBase, "/"))
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid api base %q: %w", cfg.APIBase, err)
	}

	return &Ollama{
		model:   cfg.Model,
		baseURL: u.String(),
		client:  api.NewClient(u, cfg.HTTPClient),
		logger:  cfg.Logger,
	}, nil
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Healthy(ctx context.Context) error {
	if err := o.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", o.baseURL, err)
	}
	return nil
}

func (o *Ollama) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	stream := false
	gen := &api.GenerateRequest{
		Model:   model,
		Prompt:  req.Prompt,
		System:  req.System,
		Stream:  &stream,
		Options: map[string]any{},
	}
	if req.Temperature > 0 {
		gen.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		gen.Options["num_predict"] = req.MaxTokens
	}

	var (
		content string
		final   api.GenerateResponse
	)
	err := o.client.Generate(ctx, gen, func(gr api.GenerateResponse) error {
		content += gr.Response
		if gr.Done {
			final = gr
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate failed for model %s: %w", model, err)
	}

	if !final.Done {
		return "", fmt.Errorf("no completion received from ollama for model %s", model)
	}

	switch final.DoneReason {
	case "error":
		return "", fmt.Errorf("ollama generation error for model %s: %s", model, content)
	case "length":
		return "", fmt.Errorf("token limit reached for model %s", model)
	case "stop", "":
	default:
		return "", fmt.Errorf("unexpected completion reason %q for model %s", final.DoneReason, model)
	}

	o.logger.Debug("completion received", "backend", "ollama", "model", model, "eval_count", final.EvalCount)
	return content, nil
}
