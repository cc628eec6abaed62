package model

// 路由策略
const (
	StrategyRoundRobin = "round-robin"
	StrategyFillFirst  = "fill-first"
)

// RoutingConfig 上游路由策略（远端权威配置的本地镜像）
type RoutingConfig struct {
	Strategy string         `json:"strategy"`
	Priority []PriorityRule `json:"priority"`
	Bindings []AuthBinding  `json:"bindings,omitempty"`
}

// PriorityRule 优先级规则
// Priority 列表的顺序即匹配顺序，首个命中的规则生效。
// Models 为空表示默认（catch-all）规则。
type PriorityRule struct {
	Models   []string       `json:"models"`
	Order    []PatternEntry `json:"order"`
	Fallback bool           `json:"fallback"`
}

// PatternEntry 凭据匹配模式，Order 内的顺序即尝试顺序
type PatternEntry struct {
	Pattern string `json:"pattern"`
}

// IsDefault reports whether the rule matches all models.
func (r *PriorityRule) IsDefault() bool {
	return len(r.Models) == 0
}

// AuthBinding API Key 与上游凭据的绑定
// APIKey 创建后不可改名，只能原地编辑其余字段。
type AuthBinding struct {
	APIKey   string   `json:"api-key"`
	AuthIDs  []string `json:"auth-ids"`
	Fallback bool     `json:"fallback"`
}

// MutationResult 远端变更操作的统一响应
type MutationResult struct {
	OK      bool     `json:"ok"`
	Changed []string `json:"changed,omitempty"`
	Index   *int     `json:"index,omitempty"`
}
