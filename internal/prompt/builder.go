// Package prompt assembles the generation prompts for itinerary
// overviews and per-day plans.
package prompt

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tiktoken-go/tokenizer"

	"github.com/tripsmith/tripsmith/internal/domain"
)

// Prompts past this many tokens risk truncation against common
// context windows; the builder logs a warning but does not refuse.
const tokenWarnThreshold = 6000

// Builder composes prompts from request fields, location context and
// template content.
type Builder struct {
	templatesDir string
	codec        tokenizer.Codec
	logger       *slog.Logger
}

// NewBuilder creates a Builder. templatesDir may be empty, in which
// case built-in template bodies are used.
func NewBuilder(templatesDir string, logger *slog.Logger) *Builder {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		// Token counts degrade to a byte-length estimate.
		logger.Warn("tokenizer unavailable", slog.String("error", err.Error()))
		codec = nil
	}
	return &Builder{templatesDir: templatesDir, codec: codec, logger: logger}
}

// LoadTemplate returns the template body for kind ("overview" or
// "daily"). Missing or unreadable files fall back to the built-in
// body rather than failing the pipeline.
func (b *Builder) LoadTemplate(kind string) string {
	fallback, ok := templateDefaults[kind]
	if !ok {
		return fmt.Sprintf("# %s模板\n模板内容待定", kind)
	}
	if b.templatesDir == "" {
		return fallback
	}

	content, err := os.ReadFile(filepath.Join(b.templatesDir, templateFiles[kind]))
	if err != nil {
		b.logger.Warn("template file unavailable, using built-in",
			slog.String("template", kind), slog.String("error", err.Error()))
		return fallback
	}
	return string(content)
}

// Itinerary builds the overview generation prompt. loc and weather
// may be nil; the prompt then carries pending placeholders instead of
// location detail.
func (b *Builder) Itinerary(req *domain.GenerationRequest, loc *domain.LocationInfo, weather *domain.WeatherReport) string {
	var sb strings.Builder

	sb.WriteString("你是一位专业的旅游规划师，请根据以下要求生成详细的旅游攻略：\n\n")

	sb.WriteString("## 基本信息\n")
	fmt.Fprintf(&sb, "- 目的地：%s\n", req.Destination)
	fmt.Fprintf(&sb, "- 旅游天数：%d天\n", req.Days)
	fmt.Fprintf(&sb, "- 出行人数：%d人\n", req.GroupSize)
	fmt.Fprintf(&sb, "- 旅行风格：%s\n", orDefault(req.TravelStyle, "休闲"))
	fmt.Fprintf(&sb, "- 预算范围：%s\n", budgetRange(req.BudgetMin, req.BudgetMax))
	if req.StartDate != nil {
		fmt.Fprintf(&sb, "- 出发日期：%s\n", req.StartDate.Format("2006年01月02日"))
	} else {
		sb.WriteString("- 出发日期：待定\n")
	}

	sb.WriteString("\n## 地理位置信息\n")
	if loc != nil {
		fmt.Fprintf(&sb, "经纬度：%.4f, %.4f\n", loc.Latitude, loc.Longitude)
		if loc.FormattedAddress != "" {
			fmt.Fprintf(&sb, "详细地址：%s\n", loc.FormattedAddress)
		}
	} else {
		sb.WriteString("位置信息待查\n")
	}

	sb.WriteString("\n## 天气信息\n")
	if weather != nil {
		sb.WriteString(FormatWeather(weather))
		sb.WriteString("\n")
	} else {
		sb.WriteString("天气信息待查\n")
	}

	sb.WriteString("\n## 特殊要求\n")
	sb.WriteString(orDefault(req.SpecialRequirements, "无特殊要求"))
	sb.WriteString("\n")

	sb.WriteString("\n## 生成要求\n\n请按照以下模板结构生成完整的旅游攻略：\n\n")
	fmt.Fprintf(&sb, "### 1. 旅游概览（%s旅游概览.md）\n\n%s\n\n", req.Destination, b.LoadTemplate("overview"))
	sb.WriteString("### 2. 每日行程（按日期命名）\n\n")
	sb.WriteString(b.LoadTemplate("daily"))
	sb.WriteString("\n\n## 重要说明\n\n")
	sb.WriteString("1. **实用信息**：提供准确的门票价格、开放时间、联系方式\n")
	sb.WriteString("2. **距离和交通**：计算景点间的实际距离和交通时间\n")
	sb.WriteString("3. **个性化建议**：根据旅行风格和预算提供针对性建议\n")
	sb.WriteString("4. **安全提示**：包含必要的安全注意事项和应急信息\n\n")
	sb.WriteString("请生成结构完整、信息详实的旅游攻略，确保实用性和可操作性。")

	prompt := sb.String()
	if n := b.EstimateTokens(prompt); n > tokenWarnThreshold {
		b.logger.Warn("overview prompt is large",
			slog.Int("tokens", n), slog.String("destination", req.Destination))
	}
	return prompt
}

// Daily builds the prompt for one day of the trip, embedding the
// generated overview.
func (b *Builder) Daily(dayNumber int, overview string) string {
	return fmt.Sprintf(`基于以下攻略概览，生成第%d天的详细行程安排：

%s

请生成第%d天的详细内容，包括：
1. 详细时间安排（每小时）
2. 景点介绍和游览建议
3. 交通路线和时间
4. 餐饮推荐
5. 住宿安排
6. 费用预算
7. 注意事项

格式要求：请使用Markdown格式，结构清晰，信息详实。`, dayNumber, overview, dayNumber)
}

// FormatWeather renders a weather report as prompt text.
func FormatWeather(weather *domain.WeatherReport) string {
	var lines []string
	if weather.Text != "" {
		lines = append(lines, fmt.Sprintf("当前天气：%s，温度：%d°C", weather.Text, weather.Temperature))
	}
	if len(weather.Forecast) > 0 {
		lines = append(lines, "未来几天天气预报：")
		forecast := weather.Forecast
		if len(forecast) > 5 {
			forecast = forecast[:5]
		}
		for _, day := range forecast {
			lines = append(lines, fmt.Sprintf("- %s: %s，%d°C - %d°C", day.Date, day.Text, day.Low, day.High))
		}
	}
	if len(lines) == 0 {
		return "天气信息待查"
	}
	return strings.Join(lines, "\n")
}

// EstimateTokens counts prompt tokens, falling back to a rough
// byte-based estimate when the tokenizer is unavailable.
func (b *Builder) EstimateTokens(text string) int {
	if b.codec != nil {
		if ids, _, err := b.codec.Encode(text); err == nil {
			return len(ids)
		}
	}
	return len(text) / 4
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func budgetRange(min, max *float64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("%.0f-%.0f元", *min, *max)
	case min != nil:
		return fmt.Sprintf("%.0f元以上", *min)
	case max != nil:
		return fmt.Sprintf("%.0f元以内", *max)
	default:
		return "中等"
	}
}
