// Package ollama adapts the Ollama generate API to the domain
// Provider interface.
package ollama

import (
	"context"
	"errors"
	"net/http"

	ollamaapi "github.com/tripsmith/tripsmith/internal/api/ollama"
	"github.com/tripsmith/tripsmith/internal/config"
	"github.com/tripsmith/tripsmith/internal/domain"
)

// Provider implements domain.Provider against a local Ollama server.
type Provider struct {
	name    string
	model   string
	baseURL string
	client  *ollamaapi.Client
}

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithHTTPClient sets a custom HTTP client on the underlying API
// client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.client = ollamaapi.NewClient(p.baseURL, ollamaapi.WithHTTPClient(httpClient))
	}
}

// New creates an Ollama provider from configuration.
func New(cfg config.ProviderConfig, opts ...ProviderOption) *Provider {
	var clientOpts []ollamaapi.ClientOption
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, ollamaapi.WithTimeout(cfg.Timeout))
	}
	p := &Provider{
		name:    cfg.Name,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		client:  ollamaapi.NewClient(cfg.BaseURL, clientOpts...),
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
	resp, err := p.client.Generate(ctx, &ollamaapi.GenerateRequest{
		Model:  p.model,
		Prompt: prompt,
		Options: ollamaapi.GenerateOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	})
	if err != nil {
		return "", p.wrapErr(err)
	}
	return resp.Response, nil
}

func (p *Provider) Stream(ctx context.Context, prompt string, opts domain.CompletionOptions) (<-chan domain.StreamChunk, error) {
	stream, err := p.client.StreamGenerate(ctx, &ollamaapi.GenerateRequest{
		Model:  p.model,
		Prompt: prompt,
		Options: ollamaapi.GenerateOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	})
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
			if result.Response.Response == "" {
				continue
			}
			select {
			case out <- domain.StreamChunk{Content: result.Response.Response}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Ollama has no auth, so client failures split two ways: an
// unparseable 2xx body is a malformed response, everything else
// (status, transport, timeout) is an upstream error.
func (p *Provider) wrapErr(err error) error {
	var parseErr *ollamaapi.ParseError
	if errors.As(err, &parseErr) {
		return &domain.MalformedResponseError{Provider: p.name, Detail: parseErr.Detail}
	}
	return &domain.UpstreamError{Provider: p.name, Cause: err}
}
