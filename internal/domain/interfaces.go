package domain

import (
	"context"
)

// Provider is a backend capable of turning a prompt into generated
// text, either synchronously or as a stream of chunks.
type Provider interface {
	Name() string
	Model() string
	BaseURL() string

	// Complete handles unary requests (non-streaming).
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)

	// Stream returns a channel of text chunks. The channel MUST be
	// closed by the provider when the stream ends, and cancelling ctx
	// MUST release the underlying connection.
	Stream(ctx context.Context, prompt string, opts CompletionOptions) (<-chan StreamChunk, error)
}

// LocationContext resolves destination geography. Callers tolerate
// failures: a nil result with an error means "location pending", not
// a fatal condition.
type LocationContext interface {
	Geocode(ctx context.Context, address string) (*LocationInfo, error)
	Weather(ctx context.Context, lat, lng float64) (*WeatherReport, error)
}
