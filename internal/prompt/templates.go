package prompt

// Built-in template bodies, used when no template directory is
// configured or a template file is missing.
const (
	defaultOverviewTemplate = `# {目的地}旅游概览

## 行程亮点
- 概述本次行程的三到五个亮点

## 行程总览
| 天数 | 主题 | 主要景点 | 住宿区域 |
|------|------|----------|----------|

## 预算估算
- 交通 / 住宿 / 餐饮 / 门票 分项估算

## 出行准备
- 证件、装备、预订事项

## 注意事项
- 安全、天气、风俗提示`

	defaultDailyTemplate = `# 第N天行程

## 时间安排
- 按小时给出当天安排

## 景点详情
- 每个景点的介绍、门票、开放时间、建议游玩时长

## 交通
- 景点之间的交通方式与耗时

## 餐饮推荐
- 早/午/晚餐的具体推荐

## 住宿
- 当晚住宿区域与推荐

## 费用预算
- 当天人均费用估算`
)

var templateFiles = map[string]string{
	"overview": "旅游概览模板.md",
	"daily":    "每日行程模板.md",
}

var templateDefaults = map[string]string{
	"overview": defaultOverviewTemplate,
	"daily":    defaultDailyTemplate,
}
