package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a generation artifact.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// GenerationRequest describes one itinerary generation call.
// Validated before use; immutable afterwards.
type GenerationRequest struct {
	Destination         string     `json:"destination"`
	Days                int        `json:"days"`
	TravelStyle         string     `json:"travel_style,omitempty"`
	BudgetMin           *float64   `json:"budget_min,omitempty"`
	BudgetMax           *float64   `json:"budget_max,omitempty"`
	GroupSize           int        `json:"group_size,omitempty"`
	StartDate           *time.Time `json:"start_date,omitempty"`
	Provider            string     `json:"provider,omitempty"`
	SpecialRequirements string     `json:"special_requirements,omitempty"`
}

// CompletionOptions are the generation parameters passed to a provider.
type CompletionOptions struct {
	// Temperature must be within [0, 2].
	Temperature float64 `json:"temperature"`
	// MaxTokens must be within [1, 8000].
	MaxTokens int `json:"max_tokens"`
}

// StreamChunk is one element of a streaming completion. The channel
// carrying chunks is closed by the provider when the stream ends; a
// chunk with Err set is the last one delivered.
type StreamChunk struct {
	Content string
	Err     error
}

// DayResult is the generated plan for a single day of the trip.
type DayResult struct {
	DayNumber int        `json:"day_number"`
	Date      *time.Time `json:"date,omitempty"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
}

// DayError records a per-day generation failure. The affected day is
// absent from DayResults; the artifact itself still completes.
type DayError struct {
	DayNumber int    `json:"day_number"`
	Category  string `json:"category"`
	Message   string `json:"message"`
}

// GenerationArtifact is the full output of one pipeline run. It is
// owned by the generate call that created it and mutated in place as
// stages complete.
type GenerationArtifact struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Destination string      `json:"destination"`
	Days        int         `json:"days"`
	Provider    string      `json:"provider"`
	Status      Status      `json:"status"`
	Progress    int         `json:"progress"`
	Prompt      string      `json:"generation_prompt,omitempty"`
	Overview    string      `json:"overview,omitempty"`
	CenterLat   *float64    `json:"center_latitude,omitempty"`
	CenterLng   *float64    `json:"center_longitude,omitempty"`
	DayResults  []DayResult `json:"day_results"`
	DayErrors   []DayError  `json:"day_errors,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Advance raises progress to p. Progress is monotonic within one run;
// a lower value is ignored.
func (a *GenerationArtifact) Advance(p int) {
	if p > a.Progress {
		a.Progress = p
	}
}

// LocationInfo is the geocoded position of a destination.
type LocationInfo struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
	Level            string  `json:"level,omitempty"`
	Confidence       int     `json:"confidence,omitempty"`
}

// WeatherDay is a single forecast entry.
type WeatherDay struct {
	Date string `json:"date"`
	Text string `json:"text"`
	High int    `json:"high"`
	Low  int    `json:"low"`
}

// WeatherReport is current conditions plus a short forecast.
type WeatherReport struct {
	Text        string       `json:"text"`
	Temperature int          `json:"temperature"`
	Forecast    []WeatherDay `json:"forecast,omitempty"`
}

// ProviderInfo describes a configured provider for introspection.
type ProviderInfo struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	BaseURL   string `json:"base_url"`
	Available bool   `json:"available"`
}
