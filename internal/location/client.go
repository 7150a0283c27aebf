// Package location resolves destination geography through a
// Baidu-style map API: geocoding and weather, consumed by the
// generation pipeline as best-effort context.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tripsmith/tripsmith/internal/domain"
)

const defaultTimeout = 30 * time.Second

// ClientOption configures the client.
type ClientOption func(*Client)

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client talks to the map API. It implements domain.LocationContext.
type Client struct {
	ak         string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a map API client. ak is the API access key.
func NewClient(baseURL, ak string, opts ...ClientOption) *Client {
	c := &Client{
		ak:         ak,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiEnvelope is the wrapper every map API response carries. A
// non-zero status is an API-level failure even on HTTP 200.
type apiEnvelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) request(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	params.Set("ak", c.ak)
	params.Set("output", "json")

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("map API status %d: %s", resp.StatusCode, string(body))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if envelope.Status != 0 {
		return nil, fmt.Errorf("map API error %d: %s", envelope.Status, envelope.Message)
	}
	return envelope.Result, nil
}

// Geocode resolves an address to coordinates.
func (c *Client) Geocode(ctx context.Context, address string) (*domain.LocationInfo, error) {
	params := url.Values{}
	params.Set("address", address)

	raw, err := c.request(ctx, "geocoding/v3", params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		FormattedAddress string `json:"formatted_address"`
		Level            string `json:"level"`
		Confidence       int    `json:"confidence"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geocode result: %w", err)
	}

	info := &domain.LocationInfo{
		Latitude:         result.Location.Lat,
		Longitude:        result.Location.Lng,
		FormattedAddress: result.FormattedAddress,
		Level:            result.Level,
		Confidence:       result.Confidence,
	}
	if info.FormattedAddress == "" {
		info.FormattedAddress = address
	}
	return info, nil
}

// Weather fetches current conditions and a short forecast for a
// coordinate pair.
func (c *Client) Weather(ctx context.Context, lat, lng float64) (*domain.WeatherReport, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%.4f,%.4f", lat, lng))
	params.Set("data_type", "all")

	raw, err := c.request(ctx, "weather/v1", params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Now struct {
			Text string `json:"text"`
			Temp int    `json:"temp"`
		} `json:"now"`
		Forecasts []struct {
			Date    string `json:"date"`
			TextDay string `json:"text_day"`
			High    int    `json:"high"`
			Low     int    `json:"low"`
		} `json:"forecasts"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weather result: %w", err)
	}

	report := &domain.WeatherReport{
		Text:        result.Now.Text,
		Temperature: result.Now.Temp,
	}
	for _, f := range result.Forecasts {
		report.Forecast = append(report.Forecast, domain.WeatherDay{
			Date: f.Date,
			Text: f.TextDay,
			High: f.High,
			Low:  f.Low,
		})
	}
	return report, nil
}
