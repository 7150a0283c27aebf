// Package chat adapts OpenAI-compatible chat-completion backends to
// the domain Provider interface.
package chat

import (
	"context"
	"errors"
	"net/http"

	chatapi "github.com/tripsmith/tripsmith/internal/api/chat"
	"github.com/tripsmith/tripsmith/internal/config"
	"github.com/tripsmith/tripsmith/internal/domain"
)

// Provider implements domain.Provider against a hosted chat backend
// (DeepSeek, Bailian, or any other /chat/completions endpoint).
type Provider struct {
	name    string
	model   string
	baseURL string
	apiKey  string
	client  *chatapi.Client
}

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithHTTPClient sets a custom HTTP client on the underlying API
// client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.client = chatapi.NewClient(p.baseURL, p.apiKey, chatapi.WithHTTPClient(httpClient))
	}
}

// New creates a chat provider from configuration.
func New(cfg config.ProviderConfig, opts ...ProviderOption) *Provider {
	var clientOpts []chatapi.ClientOption
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, chatapi.WithTimeout(cfg.Timeout))
	}
	p := &Provider{
		name:    cfg.Name,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  chatapi.NewClient(cfg.BaseURL, cfg.APIKey, clientOpts...),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string    { return p.name }
func (p *Provider) Model() string   { return p.model }
func (p *Provider) BaseURL() string { return p.baseURL }

func (p *Provider) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	if p.apiKey == "" {
		return "", &domain.ConfigurationError{Provider: p.name, Missing: "API key"}
	}

	resp, err := p.client.CreateCompletion(ctx, p.request(prompt, opts))
	if err != nil {
		return "", p.wrapErr(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &domain.MalformedResponseError{Provider: p.name, Detail: "missing first choice message content"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) Stream(ctx context.Context, prompt string, opts domain.CompletionOptions) (<-chan domain.StreamChunk, error) {
	if p.apiKey == "" {
		return nil, &domain.ConfigurationError{Provider: p.name, Missing: "API key"}
	}

	stream, err := p.client.StreamCompletion(ctx, p.request(prompt, opts))
	if err != nil {
		return nil, p.wrapErr(err)
	}

	out := make(chan domain.StreamChunk)
	go func() {
		defer close(out)
		for result := range stream {
			if result.Err != nil {
				select {
				case out <- domain.StreamChunk{Err: p.wrapErr(result.Err)}:
				case <-ctx.Done():
				}
				return
			}
			if len(result.Chunk.Choices) == 0 {
				continue
			}
			delta := result.Chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case out <- domain.StreamChunk{Content: delta}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (p *Provider) request(prompt string, opts domain.CompletionOptions) *chatapi.CompletionRequest {
	return &chatapi.CompletionRequest{
		Model: p.model,
		Messages: []chatapi.Message{
			{Role: "user", Content: prompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
}

func (p *Provider) wrapErr(err error) error {
	var parseErr *chatapi.ParseError
	if errors.As(err, &parseErr) {
		return &domain.MalformedResponseError{Provider: p.name, Detail: parseErr.Detail}
	}
	return &domain.UpstreamError{Provider: p.name, Cause: err}
}
