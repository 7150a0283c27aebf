// Package provider builds and resolves the configured LLM backends.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tripsmith/tripsmith/internal/config"
	"github.com/tripsmith/tripsmith/internal/domain"
	"github.com/tripsmith/tripsmith/internal/provider/chat"
	"github.com/tripsmith/tripsmith/internal/provider/ollama"
)

// Registry holds the initialized providers. It is read-only after
// construction and safe to share across concurrent requests.
type Registry struct {
	providers   map[string]domain.Provider
	defaultName string
	logger      *slog.Logger
}

// NewRegistry initializes providers from configuration. A hosted
// backend whose API key is absent is skipped, not an error: the
// deployment simply doesn't have that backend.
func NewRegistry(configs []config.ProviderConfig, defaultName string, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		providers:   make(map[string]domain.Provider),
		defaultName: defaultName,
		logger:      logger,
	}

	for _, cfg := range configs {
		switch cfg.Type {
		case "ollama":
			r.providers[cfg.Name] = ollama.New(cfg)
		case "chat":
			if cfg.APIKey == "" {
				logger.Info("skipping provider without API key", slog.String("provider", cfg.Name))
				continue
			}
			r.providers[cfg.Name] = chat.New(cfg)
		default:
			return nil, fmt.Errorf("unknown provider type %q for %s", cfg.Type, cfg.Name)
		}
	}

	logger.Info("providers initialized", slog.Any("providers", r.Names()))
	return r, nil
}

// Names returns the initialized provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the provider for name, or the configured default
// when name is empty.
func (r *Registry) Resolve(name string) (domain.Provider, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, &domain.ProviderUnavailableError{Requested: name, Available: r.Names()}
	}
	return p, nil
}

// List returns introspection info for every initialized provider.
func (r *Registry) List() map[string]domain.ProviderInfo {
	out := make(map[string]domain.ProviderInfo, len(r.providers))
	for name, p := range r.providers {
		out[name] = domain.ProviderInfo{
			Name:      name,
			Model:     p.Model(),
			BaseURL:   p.BaseURL(),
			Available: true,
		}
	}
	return out
}

// TestResult is the outcome of a provider diagnostic call.
type TestResult struct {
	Provider     string  `json:"provider"`
	Status       string  `json:"status"`
	ResponseTime float64 `json:"response_time,omitempty"`
	Response     string  `json:"response,omitempty"`
	Error        string  `json:"error,omitempty"`
}

const testPrompt = "你好，请回复'测试成功'"

// Test issues one small completion against the named provider and
// reports the outcome without propagating the underlying error. This
// is a diagnostic, not a health gate.
func (r *Registry) Test(ctx context.Context, name string) TestResult {
	p, err := r.Resolve(name)
	if err != nil {
		return TestResult{Provider: name, Status: "error", Error: err.Error()}
	}

	start := time.Now()
	resp, err := p.Complete(ctx, testPrompt, domain.CompletionOptions{Temperature: 0.7, MaxTokens: 50})
	if err != nil {
		r.logger.Warn("provider test failed",
			slog.String("provider", p.Name()), slog.String("error", err.Error()))
		return TestResult{Provider: p.Name(), Status: "error", Error: err.Error()}
	}

	sample := resp
	if runes := []rune(sample); len(runes) > 100 {
		sample = string(runes[:100])
	}
	return TestResult{
		Provider:     p.Name(),
		Status:       "success",
		ResponseTime: time.Since(start).Seconds(),
		Response:     sample,
	}
}
