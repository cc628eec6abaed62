package model

// DefaultExceededStatusCode 超配额时返回给调用方的默认状态码
const DefaultExceededStatusCode = 429

// APIKeyConfig 单个 API Key 的配额配置，Key 即资源标识，创建后不可变
type APIKeyConfig struct {
	Key              string        `json:"key"`
	Limits           *APIKeyLimits `json:"limits,omitempty"`
	AllowedProviders []string      `json:"allowed-providers,omitempty"`
	AuthIDs          []string      `json:"auth-ids,omitempty"`
}

// APIKeyLimits 四个独立的配额维度
// 字段缺省（nil）或为 0 都表示该维度不限制；表单提交时空白字段
// 必须整体省略而不是发 0，以便远端区分"未设置"。
type APIKeyLimits struct {
	RequestsPerDay   *int64 `json:"requests-per-day,omitempty"`
	RequestsPerMonth *int64 `json:"requests-per-month,omitempty"`
	TokensPerDay     *int64 `json:"tokens-per-day,omitempty"`
	TokensPerMonth   *int64 `json:"tokens-per-month,omitempty"`
}

// Empty reports whether no limit dimension is set.
func (l *APIKeyLimits) Empty() bool {
	return l == nil ||
		(l.RequestsPerDay == nil && l.RequestsPerMonth == nil &&
			l.TokensPerDay == nil && l.TokensPerMonth == nil)
}

// RateLimitingConfig 全局限流配置（单例）
type RateLimitingConfig struct {
	Enabled            bool   `json:"enabled"`
	ExceededStatusCode int    `json:"exceeded-status-code,omitempty"`
	PersistencePath    string `json:"persistence-path,omitempty"`
}

// APIKeyUsage 单 Key 的只读用量快照，由外部执行引擎维护
type APIKeyUsage struct {
	RequestsToday int64 `json:"requests_today"`
	RequestsMonth int64 `json:"requests_month"`
	TokensToday   int64 `json:"tokens_today"`
	TokensMonth   int64 `json:"tokens_month"`
}
