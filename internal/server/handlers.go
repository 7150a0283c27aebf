package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tripsmith/tripsmith/internal/domain"
	"github.com/tripsmith/tripsmith/internal/itinerary"
	"github.com/tripsmith/tripsmith/internal/provider"
)

// Handlers binds the HTTP surface to the generation pipeline.
type Handlers struct {
	generator *itinerary.Generator
	registry  *provider.Registry
	logger    *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(generator *itinerary.Generator, registry *provider.Registry, logger *slog.Logger) *Handlers {
	return &Handlers{generator: generator, registry: registry, logger: logger}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy to a status code and a stable
// error category; the raw message rides along for humans.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, domain.HTTPStatus(err), errorBody{
		Error:   string(domain.Category(err)),
		Message: err.Error(),
	})
}

// Health answers liveness probes.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateItineraryResponse struct {
	Success   bool                       `json:"success"`
	Itinerary *domain.GenerationArtifact `json:"itinerary,omitempty"`
	Message   string                     `json:"message"`
}

// GenerateItinerary runs the full generation pipeline for one
// request.
func (h *Handlers) GenerateItinerary(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON: "+err.Error()))
		return
	}

	artifact, err := h.generator.Generate(r.Context(), &req)
	if err != nil {
		if artifact != nil {
			// Overview-stage failure: the FAILED artifact carries the
			// error detail alongside the taxonomy category.
			writeJSON(w, domain.HTTPStatus(err), generateItineraryResponse{
				Success:   false,
				Itinerary: artifact,
				Message:   "攻略生成失败",
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, generateItineraryResponse{
		Success:   true,
		Itinerary: artifact,
		Message:   "攻略生成完成",
	})
}

// ValidateRequest checks request parameters without generating.
func (h *Handlers) ValidateRequest(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil {
		writeError(w, domain.NewValidationError("days", "must be an integer"))
		return
	}
	req := domain.GenerationRequest{
		Destination: r.URL.Query().Get("destination"),
		Days:        days,
		Provider:    r.URL.Query().Get("provider"),
	}

	if err := h.generator.ValidateRequest(&req); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"valid":  false,
			"errors": []string{err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "errors": []string{}})
}

// ListProviders reports the initialized providers.
func (h *Handlers) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers := h.registry.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"providers": providers,
		"total":     len(providers),
	})
}

type testProviderRequest struct {
	Provider string `json:"provider"`
}

// TestProvider runs a small diagnostic completion against one
// provider.
func (h *Handlers) TestProvider(w http.ResponseWriter, r *http.Request) {
	var req testProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON: "+err.Error()))
		return
	}

	result := h.registry.Test(r.Context(), req.Provider)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": result.Status == "success",
		"result":  result,
	})
}

type generateTextRequest struct {
	Prompt      string  `json:"prompt"`
	Provider    string  `json:"provider,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Stream      bool    `json:"stream,omitempty"`
}

// GenerateText is the raw completion endpoint. With stream:true the
// response is SSE: one data line per chunk, closed by data: [DONE].
func (h *Handlers) GenerateText(w http.ResponseWriter, r *http.Request) {
	var req generateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON: "+err.Error()))
		return
	}
	if req.Prompt == "" {
		writeError(w, domain.NewValidationError("prompt", "must not be empty"))
		return
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		writeError(w, domain.NewValidationError("temperature", "must be between 0 and 2"))
		return
	}
	if req.MaxTokens < 0 || req.MaxTokens > 8000 {
		writeError(w, domain.NewValidationError("max_tokens", "must be between 1 and 8000"))
		return
	}

	opts := domain.CompletionOptions{Temperature: req.Temperature, MaxTokens: req.MaxTokens}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 4000
	}

	p, err := h.registry.Resolve(req.Provider)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Stream {
		h.streamText(w, r, p, req.Prompt, opts)
		return
	}

	text, err := p.Complete(r.Context(), req.Prompt, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"response": text,
		"provider": p.Name(),
	})
}

func (h *Handlers) streamText(w http.ResponseWriter, r *http.Request, p domain.Provider, promptText string, opts domain.CompletionOptions) {
	chunks, err := p.Stream(r.Context(), promptText, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for chunk := range chunks {
		if chunk.Err != nil {
			h.logger.Warn("stream aborted",
				slog.String("provider", p.Name()), slog.String("error", chunk.Err.Error()))
			break
		}
		data, _ := json.Marshal(map[string]string{"content": chunk.Content})
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
