package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tripsmith/tripsmith/internal/cache"
	"github.com/tripsmith/tripsmith/internal/config"
	"github.com/tripsmith/tripsmith/internal/domain"
	"github.com/tripsmith/tripsmith/internal/prompt"
	"github.com/tripsmith/tripsmith/internal/provider"
)

var dayPromptRe = regexp.MustCompile(`生成第(\d+)天`)

// modelServer mimics the Ollama generate endpoint: overview prompts
// get a fixed overview, daily prompts echo their day number. failDay
// and failAll switch on error responses; calls counts provider hits.
type modelServer struct {
	calls   atomic.Int64
	inUse   atomic.Int64
	maxUse  atomic.Int64
	failAll atomic.Bool
	failDay atomic.Int64
}

func (m *modelServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.calls.Add(1)
		n := m.inUse.Add(1)
		defer m.inUse.Add(-1)
		for {
			prev := m.maxUse.Load()
			if n <= prev || m.maxUse.CompareAndSwap(prev, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)

		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if m.failAll.Load() {
			http.Error(w, "model overloaded", http.StatusServiceUnavailable)
			return
		}

		response := "概览内容"
		if match := dayPromptRe.FindStringSubmatch(req.Prompt); match != nil {
			day, _ := strconv.Atoi(match[1])
			if int64(day) == m.failDay.Load() {
				http.Error(w, "model overloaded", http.StatusServiceUnavailable)
				return
			}
			response = fmt.Sprintf("第%d天内容", day)
		}
		fmt.Fprintf(w, `{"model":"m","response":%q,"done":true}`, response)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGenerator(t *testing.T, baseURL string) *Generator {
	t.Helper()
	registry, err := provider.NewRegistry([]config.ProviderConfig{
		{Name: "ollama", Type: "ollama", BaseURL: baseURL, Model: "m"},
	}, "ollama", testLogger())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	store, err := cache.NewMemoryStore(128)
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	svc := cache.NewService(store, time.Hour, testLogger())
	t.Cleanup(func() { svc.Close() })

	prompts := prompt.NewBuilder("", testLogger())
	return NewGenerator(registry, svc, nil, prompts, Config{}, testLogger())
}

func TestValidateRequest(t *testing.T) {
	g := newTestGenerator(t, "http://unused.invalid")
	budget := func(v float64) *float64 { return &v }

	tests := []struct {
		name      string
		req       domain.GenerationRequest
		wantField string
	}{
		{"valid minimal", domain.GenerationRequest{Destination: "伊犁", Days: 1}, ""},
		{"valid max days", domain.GenerationRequest{Destination: "新疆伊犁", Days: 30}, ""},
		{"destination too short", domain.GenerationRequest{Destination: "犁", Days: 3}, "destination"},
		{"zero days", domain.GenerationRequest{Destination: "伊犁", Days: 0}, "days"},
		{"too many days", domain.GenerationRequest{Destination: "伊犁", Days: 31}, "days"},
		{"group too large", domain.GenerationRequest{Destination: "伊犁", Days: 3, GroupSize: 21}, "group_size"},
		{"inverted budget", domain.GenerationRequest{Destination: "伊犁", Days: 3, BudgetMin: budget(5000), BudgetMax: budget(3000)}, "budget_min"},
		{"valid budget", domain.GenerationRequest{Destination: "伊犁", Days: 3, BudgetMin: budget(3000), BudgetMax: budget(5000)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.ValidateRequest(&tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("ValidateRequest() error = %v, want nil", err)
				}
				return
			}
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("ValidateRequest() error = %T (%v), want *domain.ValidationError", err, err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.wantField)
			}
		})
	}
}

func TestValidateRequestDefaultsGroupSize(t *testing.T) {
	g := newTestGenerator(t, "http://unused.invalid")
	req := domain.GenerationRequest{Destination: "伊犁", Days: 3}
	if err := g.ValidateRequest(&req); err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	if req.GroupSize != 2 {
		t.Errorf("GroupSize = %d, want 2", req.GroupSize)
	}
}

func TestValidateRequestUnknownProvider(t *testing.T) {
	g := newTestGenerator(t, "http://unused.invalid")
	req := domain.GenerationRequest{Destination: "伊犁", Days: 3, Provider: "missing"}
	err := g.ValidateRequest(&req)
	var unavailable *domain.ProviderUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("ValidateRequest() error = %T, want *domain.ProviderUnavailableError", err)
	}
}

func TestGenerateFullPipeline(t *testing.T) {
	model := &modelServer{}
	server := httptest.NewServer(model.handler())
	defer server.Close()

	g := newTestGenerator(t, server.URL)
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	req := &domain.GenerationRequest{
		Destination: "新疆伊犁",
		Days:        2,
		StartDate:   &start,
	}

	artifact, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if artifact.Status != domain.StatusCompleted {
		t.Errorf("Status = %q, want %q", artifact.Status, domain.StatusCompleted)
	}
	if artifact.Progress != 100 {
		t.Errorf("Progress = %d, want 100", artifact.Progress)
	}
	if artifact.Title != "新疆伊犁2日游攻略" {
		t.Errorf("Title = %q", artifact.Title)
	}
	if artifact.Overview != "概览内容" {
		t.Errorf("Overview = %q", artifact.Overview)
	}
	if artifact.CompletedAt == nil {
		t.Error("CompletedAt = nil, want set")
	}
	if len(artifact.DayErrors) != 0 {
		t.Errorf("DayErrors = %v, want none", artifact.DayErrors)
	}

	if len(artifact.DayResults) != 2 {
		t.Fatalf("DayResults = %d entries, want 2", len(artifact.DayResults))
	}
	for i, day := range artifact.DayResults {
		if day.DayNumber != i+1 {
			t.Errorf("DayResults[%d].DayNumber = %d, want %d", i, day.DayNumber, i+1)
		}
		if want := fmt.Sprintf("第%d天内容", i+1); day.Content != want {
			t.Errorf("DayResults[%d].Content = %q, want %q", i, day.Content, want)
		}
		if day.Date == nil {
			t.Errorf("DayResults[%d].Date = nil, want set", i)
		} else if want := start.AddDate(0, 0, i); !day.Date.Equal(want) {
			t.Errorf("DayResults[%d].Date = %v, want %v", i, day.Date, want)
		}
	}
}

func TestGenerateDayResultsInOrder(t *testing.T) {
	model := &modelServer{}
	server := httptest.NewServer(model.handler())
	defer server.Close()

	g := newTestGenerator(t, server.URL)
	req := &domain.GenerationRequest{Destination: "新疆伊犁", Days: 7}

	artifact, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(artifact.DayResults) != 7 {
		t.Fatalf("DayResults = %d entries, want 7", len(artifact.DayResults))
	}
	for i, day := range artifact.DayResults {
		if day.DayNumber != i+1 {
			t.Errorf("DayResults[%d].DayNumber = %d, want ascending order", i, day.DayNumber)
		}
	}
	// Overview plus seven days, none of them from cache.
	if got := model.calls.Load(); got != 8 {
		t.Errorf("provider calls = %d, want 8", got)
	}
}

func TestGenerateBoundedConcurrency(t *testing.T) {
	model := &modelServer{}
	server := httptest.NewServer(model.handler())
	defer server.Close()

	g := newTestGenerator(t, server.URL)
	req := &domain.GenerationRequest{Destination: "新疆伊犁", Days: 10}

	if _, err := g.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got := model.maxUse.Load(); got > 3 {
		t.Errorf("max concurrent provider calls = %d, want <= 3", got)
	}
}

func TestGenerateUsesCachedResponses(t *testing.T) {
	model := &modelServer{}
	server := httptest.NewServer(model.handler())
	defer server.Close()

	g := newTestGenerator(t, server.URL)
	req := &domain.GenerationRequest{Destination: "新疆伊犁", Days: 2}

	if _, err := g.Generate(context.Background(), req); err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	first := model.calls.Load()

	artifact, err := g.Generate(context.Background(), &domain.GenerationRequest{Destination: "新疆伊犁", Days: 2})
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	if got := model.calls.Load(); got != first {
		t.Errorf("provider calls after cached run = %d, want %d", got, first)
	}
	if artifact.Status != domain.StatusCompleted || len(artifact.DayResults) != 2 {
		t.Errorf("cached run artifact = status %q, %d day results", artifact.Status, len(artifact.DayResults))
	}
}

func TestGenerateOverviewFailureIsFatal(t *testing.T) {
	model := &modelServer{}
	model.failAll.Store(true)
	server := httptest.NewServer(model.handler())
	defer server.Close()

	g := newTestGenerator(t, server.URL)
	req := &domain.GenerationRequest{Destination: "新疆伊犁", Days: 2}

	artifact, err := g.Generate(context.Background(), req)
	if err == nil {
		t.Fatal("Generate() error = nil, want upstream error")
	}
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		t.Errorf("Generate() error = %T, want *domain.UpstreamError", err)
	}
	if artifact == nil {
		t.Fatal("Generate() artifact = nil, want failed artifact")
	}
	if artifact.Status != domain.StatusFailed {
		t.Errorf("Status = %q, want %q", artifact.Status, domain.StatusFailed)
	}
	if artifact.Error == "" {
		t.Error("Error detail is empty")
	}
	if len(artifact.DayResults) != 0 {
		t.Errorf("DayResults = %d entries, want none", len(artifact.DayResults))
	}
}

func TestGenerateSingleDayFailureIsNotFatal(t *testing.T) {
	model := &modelServer{}
	model.failDay.Store(2)
	server := httptest.NewServer(model.handler())
	defer server.Close()

	g := newTestGenerator(t, server.URL)
	req := &domain.GenerationRequest{Destination: "新疆伊犁", Days: 3}

	artifact, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if artifact.Status != domain.StatusCompleted {
		t.Errorf("Status = %q, want %q", artifact.Status, domain.StatusCompleted)
	}
	if len(artifact.DayResults) != 2 {
		t.Fatalf("DayResults = %d entries, want 2", len(artifact.DayResults))
	}
	if artifact.DayResults[0].DayNumber != 1 || artifact.DayResults[1].DayNumber != 3 {
		t.Errorf("DayResults days = %d, %d, want 1, 3",
			artifact.DayResults[0].DayNumber, artifact.DayResults[1].DayNumber)
	}
	if len(artifact.DayErrors) != 1 {
		t.Fatalf("DayErrors = %d entries, want 1", len(artifact.DayErrors))
	}
	dayErr := artifact.DayErrors[0]
	if dayErr.DayNumber != 2 {
		t.Errorf("DayErrors[0].DayNumber = %d, want 2", dayErr.DayNumber)
	}
	if dayErr.Category != string(domain.CategoryUpstream) {
		t.Errorf("DayErrors[0].Category = %q, want %q", dayErr.Category, domain.CategoryUpstream)
	}
}

func TestGenerateValidationFailsBeforeNetwork(t *testing.T) {
	model := &modelServer{}
	server := httptest.NewServer(model.handler())
	defer server.Close()

	g := newTestGenerator(t, server.URL)
	req := &domain.GenerationRequest{Destination: "犁", Days: 2}

	artifact, err := g.Generate(context.Background(), req)
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Generate() error = %T, want *domain.ValidationError", err)
	}
	if artifact != nil {
		t.Errorf("Generate() artifact = %+v, want nil", artifact)
	}
	if got := model.calls.Load(); got != 0 {
		t.Errorf("provider calls = %d, want 0", got)
	}
}
