package summarizer

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"digestbot/internal/domain"
)

// BackendConfig is the subset of LLM settings a backend needs.
type BackendConfig struct {
	Provider string
	APIBase  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// BackendConstructor builds a backend from its settings.
type BackendConstructor func(bc BackendConfig, logger *slog.Logger) (domain.LLMBackend, error)

var constructors = map[string]BackendConstructor{
	"hyperbolic": func(bc BackendConfig, logger *slog.Logger) (domain.LLMBackend, error) {
		return NewHyperbolic(OpenAIConfig{
			APIKey:     bc.APIKey,
			APIBase:    bc.APIBase,
			Model:      bc.Model,
			HTTPClient: sharedHTTPClient(bc.Timeout),
			Logger:     logger,
		}), nil
	},
	"openai": func(bc BackendConfig, logger *slog.Logger) (domain.LLMBackend, error) {
		return NewOpenAI(OpenAIConfig{
			APIKey:     bc.APIKey,
			APIBase:    bc.APIBase,
			Model:      bc.Model,
			HTTPClient: sharedHTTPClient(bc.Timeout),
			Logger:     logger,
		}), nil
	},
	"ollama": func(bc BackendConfig, logger *slog.Logger) (domain.LLMBackend, error) {
		return NewOllama(OllamaConfig{
			APIBase:    bc.APIBase,
			Model:      bc.Model,
			HTTPClient: sharedHTTPClient(bc.Timeout),
			Logger:     logger,
		})
	},
	"claude": func(bc BackendConfig, logger *slog.Logger) (domain.LLMBackend, error) {
		return NewClaude(ClaudeConfig{
			APIKey:  bc.APIKey,
			APIBase: bc.APIBase,
			Model:   bc.Model,
			Timeout: bc.Timeout,
			Logger:  logger,
		}), nil
	},
}

// Providers lists the registered backend names.
func Providers() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBackend builds the backend named by bc.Provider. Unknown providers
// with an API base are treated as OpenAI-compatible.
func NewBackend(bc BackendConfig, logger *slog.Logger) (domain.LLMBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if ctor, ok := constructors[bc.Provider]; ok {
		return ctor(bc, logger)
	}
	if bc.APIBase != "" {
		return NewOpenAI(OpenAIConfig{
			Name:       bc.Provider,
			APIKey:     bc.APIKey,
			APIBase:    bc.APIBase,
			Model:      bc.Model,
			HTTPClient: sharedHTTPClient(bc.Timeout),
			Logger:     logger,
		}), nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q (known: %v)", bc.Provider, Providers())
}

// sharedHTTPClient returns a pooled HTTP client bounded by timeout.
func sharedHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
