package prompt

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tripsmith/tripsmith/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestItineraryWithoutLocationContext(t *testing.T) {
	b := NewBuilder("", testLogger())
	req := &domain.GenerationRequest{Destination: "新疆伊犁", Days: 3, GroupSize: 2}

	got := b.Itinerary(req, nil, nil)
	for _, want := range []string{
		"目的地：新疆伊犁",
		"旅游天数：3天",
		"出行人数：2人",
		"旅行风格：休闲",
		"预算范围：中等",
		"出发日期：待定",
		"位置信息待查",
		"天气信息待查",
		"无特殊要求",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestItineraryWithLocationAndWeather(t *testing.T) {
	b := NewBuilder("", testLogger())
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	budget := func(v float64) *float64 { return &v }
	req := &domain.GenerationRequest{
		Destination:         "新疆伊犁",
		Days:                3,
		GroupSize:           4,
		TravelStyle:         "深度游",
		BudgetMin:           budget(3000),
		BudgetMax:           budget(5000),
		StartDate:           &start,
		SpecialRequirements: "带老人出行",
	}
	loc := &domain.LocationInfo{Latitude: 43.9219, Longitude: 81.3179, FormattedAddress: "新疆维吾尔自治区伊犁哈萨克自治州"}
	weather := &domain.WeatherReport{
		Text:        "晴",
		Temperature: 22,
		Forecast: []domain.WeatherDay{
			{Date: "2026-10-01", Text: "晴", Low: 12, High: 24},
		},
	}

	got := b.Itinerary(req, loc, weather)
	for _, want := range []string{
		"旅行风格：深度游",
		"预算范围：3000-5000元",
		"出发日期：2026年10月01日",
		"经纬度：43.9219, 81.3179",
		"详细地址：新疆维吾尔自治区伊犁哈萨克自治州",
		"当前天气：晴，温度：22°C",
		"- 2026-10-01: 晴，12°C - 24°C",
		"带老人出行",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(got, "位置信息待查") || strings.Contains(got, "天气信息待查") {
		t.Error("prompt carries pending placeholders despite location context")
	}
}

func TestDailyEmbedsOverview(t *testing.T) {
	b := NewBuilder("", testLogger())
	overview := "## 行程总览\n第一天：那拉提草原"

	got := b.Daily(2, overview)
	if !strings.Contains(got, "生成第2天的详细行程安排") {
		t.Error("prompt missing day number")
	}
	if !strings.Contains(got, overview) {
		t.Error("prompt missing overview text")
	}
}

func TestLoadTemplateFallback(t *testing.T) {
	b := NewBuilder("", testLogger())
	if got := b.LoadTemplate("overview"); got != templateDefaults["overview"] {
		t.Error("LoadTemplate(overview) did not return the built-in body")
	}

	// A directory without the template files falls back too.
	b = NewBuilder(t.TempDir(), testLogger())
	if got := b.LoadTemplate("daily"); got != templateDefaults["daily"] {
		t.Error("LoadTemplate(daily) did not fall back on missing file")
	}
}

func TestLoadTemplateFromDisk(t *testing.T) {
	dir := t.TempDir()
	body := "# 自定义概览模板\n"
	if err := os.WriteFile(filepath.Join(dir, templateFiles["overview"]), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	b := NewBuilder(dir, testLogger())
	if got := b.LoadTemplate("overview"); got != body {
		t.Errorf("LoadTemplate(overview) = %q, want file body", got)
	}
}

func TestBudgetRange(t *testing.T) {
	budget := func(v float64) *float64 { return &v }
	tests := []struct {
		name     string
		min, max *float64
		want     string
	}{
		{"both bounds", budget(3000), budget(5000), "3000-5000元"},
		{"min only", budget(3000), nil, "3000元以上"},
		{"max only", nil, budget(5000), "5000元以内"},
		{"no bounds", nil, nil, "中等"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := budgetRange(tt.min, tt.max); got != tt.want {
				t.Errorf("budgetRange() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	b := NewBuilder("", testLogger())
	if got := b.EstimateTokens("hello world, this is a prompt"); got <= 0 {
		t.Errorf("EstimateTokens() = %d, want > 0", got)
	}
}
