// Package itinerary drives the generation pipeline: one overview
// completion plus N dependent per-day completions, cache-checked,
// with progress and status tracking.
package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripsmith/tripsmith/internal/cache"
	"github.com/tripsmith/tripsmith/internal/domain"
	"github.com/tripsmith/tripsmith/internal/prompt"
	"github.com/tripsmith/tripsmith/internal/provider"
)

// Generation parameters for the two pipeline stages, matching the
// upstream defaults the prompts were tuned against.
const (
	overviewTemperature = 0.8
	overviewMaxTokens   = 8000
	dailyTemperature    = 0.7
	dailyMaxTokens      = 4000
)

// Config bounds the pipeline.
type Config struct {
	MaxDays           int
	MaxConcurrentDays int
	ResponseTTL       time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxDays <= 0 {
		c.MaxDays = 30
	}
	if c.MaxConcurrentDays <= 0 {
		c.MaxConcurrentDays = 3
	}
	if c.ResponseTTL <= 0 {
		c.ResponseTTL = 24 * time.Hour
	}
	return c
}

// Generator orchestrates itinerary generation. It is stateless across
// requests; every Generate call owns its artifact exclusively.
type Generator struct {
	registry *provider.Registry
	cache    *cache.Service
	location domain.LocationContext
	prompts  *prompt.Builder
	cfg      Config
	logger   *slog.Logger
}

// NewGenerator wires the pipeline's collaborators. location may be
// nil when no map backend is configured; prompts then carry pending
// placeholders.
func NewGenerator(registry *provider.Registry, cacheService *cache.Service, loc domain.LocationContext, prompts *prompt.Builder, cfg Config, logger *slog.Logger) *Generator {
	return &Generator{
		registry: registry,
		cache:    cacheService,
		location: loc,
		prompts:  prompts,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// ValidateRequest checks req against the configured limits. It
// normalizes the default group size in place.
func (g *Generator) ValidateRequest(req *domain.GenerationRequest) error {
	dest := len([]rune(req.Destination))
	if dest < 2 {
		return domain.NewValidationError("destination", "must contain at least 2 characters")
	}
	if dest > 100 {
		return domain.NewValidationError("destination", "must not exceed 100 characters")
	}
	if req.Days < 1 || req.Days > g.cfg.MaxDays {
		return domain.NewValidationError("days", fmt.Sprintf("must be between 1 and %d", g.cfg.MaxDays))
	}
	if req.GroupSize == 0 {
		req.GroupSize = 2
	}
	if req.GroupSize < 1 || req.GroupSize > 20 {
		return domain.NewValidationError("group_size", "must be between 1 and 20")
	}
	if req.BudgetMin != nil && req.BudgetMax != nil && *req.BudgetMin > *req.BudgetMax {
		return domain.NewValidationError("budget_min", "must not exceed budget_max")
	}
	if len([]rune(req.SpecialRequirements)) > 1000 {
		return domain.NewValidationError("special_requirements", "must not exceed 1000 characters")
	}
	if _, err := g.registry.Resolve(req.Provider); err != nil {
		return err
	}
	return nil
}

// Generate runs the full pipeline. Validation and provider-resolution
// failures return before any network activity with a nil artifact.
// After that the artifact is always returned: FAILED with the error
// attached when the overview stage fails, COMPLETED otherwise, with
// any per-day failures surfaced in DayErrors rather than failing the
// whole request.
func (g *Generator) Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationArtifact, error) {
	if err := g.ValidateRequest(req); err != nil {
		return nil, err
	}
	p, err := g.registry.Resolve(req.Provider)
	if err != nil {
		return nil, err
	}

	artifact := &domain.GenerationArtifact{
		ID:          uuid.New(),
		Title:       fmt.Sprintf("%s%d日游攻略", req.Destination, req.Days),
		Destination: req.Destination,
		Days:        req.Days,
		Provider:    p.Name(),
		Status:      domain.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	logger := g.logger.With(
		slog.String("artifact_id", artifact.ID.String()),
		slog.String("destination", req.Destination),
		slog.Int("days", req.Days),
		slog.String("provider", p.Name()),
	)
	logger.Info("itinerary generation started")

	// Stage 2: build the prompt. Location failures are tolerated.
	loc, weather := g.resolveLocation(ctx, req.Destination, logger)
	artifact.Prompt = g.prompts.Itinerary(req, loc, weather)
	artifact.Advance(20)

	// Stage 3: overview. A provider failure here is fatal.
	artifact.Status = domain.StatusGenerating
	overview, err := g.completeCached(ctx, p, artifact.Prompt, domain.CompletionOptions{
		Temperature: overviewTemperature,
		MaxTokens:   overviewMaxTokens,
	}, nil)
	if err != nil {
		logger.Error("overview generation failed", slog.String("error", err.Error()))
		artifact.Status = domain.StatusFailed
		artifact.Error = err.Error()
		return artifact, err
	}
	artifact.Overview = overview
	artifact.Advance(60)

	// Stage 4: enhancement is best-effort.
	g.enhance(ctx, artifact, logger)
	artifact.Advance(80)

	// Stage 5: per-day fan-out.
	results, dayErrs := g.generateDays(ctx, p, req, overview, logger)
	artifact.DayResults = results
	artifact.DayErrors = dayErrs
	artifact.Advance(90)

	// Stage 6: assemble.
	artifact.Status = domain.StatusCompleted
	artifact.Advance(100)
	now := time.Now().UTC()
	artifact.CompletedAt = &now

	logger.Info("itinerary generation completed",
		slog.Int("day_results", len(results)),
		slog.Int("day_errors", len(dayErrs)))
	return artifact, nil
}

func (g *Generator) resolveLocation(ctx context.Context, destination string, logger *slog.Logger) (*domain.LocationInfo, *domain.WeatherReport) {
	if g.location == nil {
		return nil, nil
	}
	loc, err := g.location.Geocode(ctx, destination)
	if err != nil {
		logger.Warn("geocode failed, continuing without location", slog.String("error", err.Error()))
		return nil, nil
	}
	weather, err := g.location.Weather(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		logger.Warn("weather lookup failed, continuing without forecast", slog.String("error", err.Error()))
		return loc, nil
	}
	return loc, weather
}

// enhance attaches the destination's center coordinates. Failures are
// logged and swallowed.
func (g *Generator) enhance(ctx context.Context, artifact *domain.GenerationArtifact, logger *slog.Logger) {
	if g.location == nil {
		return
	}
	loc, err := g.location.Geocode(ctx, artifact.Destination)
	if err != nil {
		logger.Warn("enhancement geocode failed", slog.String("error", err.Error()))
		return
	}
	artifact.CenterLat = &loc.Latitude
	artifact.CenterLng = &loc.Longitude
}

// completeCached checks the response cache before calling the
// provider, and stores non-empty results afterwards. extra merges
// additional key material (the day number for daily calls).
func (g *Generator) completeCached(ctx context.Context, p domain.Provider, promptText string, opts domain.CompletionOptions, extra map[string]any) (string, error) {
	params := map[string]any{
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
	}
	for k, v := range extra {
		params[k] = v
	}
	key := cache.DeriveKey(promptText, p.Name(), params)

	var cached string
	if g.cache.Get(ctx, key, &cached) && cached != "" {
		g.logger.Debug("cache hit", slog.String("key", key))
		return cached, nil
	}

	text, err := p.Complete(ctx, promptText, opts)
	if err != nil {
		return "", err
	}
	if text != "" {
		g.cache.Set(ctx, key, text, g.cfg.ResponseTTL)
	}
	return text, nil
}

// generateDays produces one result per day with a bounded number of
// concurrent provider calls. Results are reassembled in ascending day
// order regardless of completion order; a failed day becomes a
// DayError instead of failing the batch.
func (g *Generator) generateDays(ctx context.Context, p domain.Provider, req *domain.GenerationRequest, overview string, logger *slog.Logger) ([]domain.DayResult, []domain.DayError) {
	type daySlot struct {
		result *domain.DayResult
		err    *domain.DayError
	}
	slots := make([]daySlot, req.Days)

	var wg sync.WaitGroup
	sem := make(chan struct{}, g.cfg.MaxConcurrentDays)

	for day := 1; day <= req.Days; day++ {
		wg.Add(1)
		go func(day int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			content, err := g.completeCached(ctx, p, g.prompts.Daily(day, overview), domain.CompletionOptions{
				Temperature: dailyTemperature,
				MaxTokens:   dailyMaxTokens,
			}, map[string]any{"day": day})
			if err != nil {
				logger.Warn("day generation failed",
					slog.Int("day", day), slog.String("error", err.Error()))
				slots[day-1].err = &domain.DayError{
					DayNumber: day,
					Category:  string(domain.Category(err)),
					Message:   err.Error(),
				}
				return
			}

			result := &domain.DayResult{
				DayNumber: day,
				Title:     fmt.Sprintf("第%d天", day),
				Content:   content,
			}
			if req.StartDate != nil {
				date := req.StartDate.AddDate(0, 0, day-1)
				result.Date = &date
			}
			slots[day-1].result = result
		}(day)
	}
	wg.Wait()

	results := make([]domain.DayResult, 0, req.Days)
	var dayErrs []domain.DayError
	for _, slot := range slots {
		if slot.result != nil {
			results = append(results, *slot.result)
		}
		if slot.err != nil {
			dayErrs = append(dayErrs, *slot.err)
		}
	}
	return results, dayErrs
}
