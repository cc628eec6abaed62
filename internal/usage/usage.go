// Package usage 把每 Key 的用量计数投影到配置的配额上。
// 纯派生、无状态：控制台不拥有计数，也不做任何扣减。
package usage

import (
	"math"
	"sort"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
)

// 用量档位
const (
	TierOK   = "ok"
	TierWarn = "warn" // >= 70%
	TierHigh = "high" // >= 90%
)

// Percent 计算用量百分比，clamp 到 [0,100]
// limit 缺省或为 0 表示不限制，显示 0%，永远不会除零。
func Percent(used, limit int64) int {
	if limit <= 0 {
		return 0
	}
	p := int(math.Round(float64(used) / float64(limit) * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// TierOf 返回百分比对应的档位
func TierOf(percent int) string {
	switch {
	case percent >= 90:
		return TierHigh
	case percent >= 70:
		return TierWarn
	default:
		return TierOK
	}
}

// Dimension 单个配额维度的投影
type Dimension struct {
	Used    int64 `json:"used"`
	Limit   int64 `json:"limit"` // 0 = unlimited
	Percent int   `json:"percent"`
}

// Row 单 Key 的用量行
type Row struct {
	Key           string    `json:"key"`
	RequestsToday Dimension `json:"requests_today"`
	RequestsMonth Dimension `json:"requests_month"`
	TokensToday   Dimension `json:"tokens_today"`
	TokensMonth   Dimension `json:"tokens_month"`
	Tier          string    `json:"tier"`
}

// Project 把配置的配额和实时计数合成用量行。
// 只出现在 usage 里的 Key（由执行引擎隐式创建）也要展示，
// 此时各维度按不限制处理。
func Project(configs []model.APIKeyConfig, snapshots map[string]model.APIKeyUsage) []Row {
	limits := make(map[string]*model.APIKeyLimits, len(configs))
	for _, cfg := range configs {
		limits[cfg.Key] = cfg.Limits
	}

	rows := make([]Row, 0, len(snapshots))
	for key, u := range snapshots {
		l := limits[key]
		row := Row{
			Key:           key,
			RequestsToday: dimension(u.RequestsToday, limitValue(l, func(l *model.APIKeyLimits) *int64 { return l.RequestsPerDay })),
			RequestsMonth: dimension(u.RequestsMonth, limitValue(l, func(l *model.APIKeyLimits) *int64 { return l.RequestsPerMonth })),
			TokensToday:   dimension(u.TokensToday, limitValue(l, func(l *model.APIKeyLimits) *int64 { return l.TokensPerDay })),
			TokensMonth:   dimension(u.TokensMonth, limitValue(l, func(l *model.APIKeyLimits) *int64 { return l.TokensPerMonth })),
		}
		row.Tier = TierOf(maxPercent(row))
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

func dimension(used, limit int64) Dimension {
	return Dimension{Used: used, Limit: limit, Percent: Percent(used, limit)}
}

func limitValue(l *model.APIKeyLimits, pick func(*model.APIKeyLimits) *int64) int64 {
	if l == nil {
		return 0
	}
	v := pick(l)
	if v == nil {
		return 0
	}
	return *v
}

func maxPercent(r Row) int {
	m := r.RequestsToday.Percent
	for _, p := range []int{r.RequestsMonth.Percent, r.TokensToday.Percent, r.TokensMonth.Percent} {
		if p > m {
			m = p
		}
	}
	return m
}
