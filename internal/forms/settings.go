package forms

import (
	"strconv"
	"strings"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
)

// SettingsForm 全局限流设置表单
// 只覆盖批量保存的两个字段；enabled 开关是独立的即时提交动作，
// 由会话层直接处理，不经过这张表单。
type SettingsForm struct {
	ExceededStatusCode string
	PersistencePath    string
}

// NewSettingsForm 创建空白表单
func NewSettingsForm() *SettingsForm {
	return &SettingsForm{}
}

// NewSettingsFormEdit 用当前配置预填充表单
func NewSettingsFormEdit(cfg model.RateLimitingConfig) *SettingsForm {
	f := &SettingsForm{PersistencePath: cfg.PersistencePath}
	if cfg.ExceededStatusCode != 0 {
		f.ExceededStatusCode = strconv.Itoa(cfg.ExceededStatusCode)
	}
	return f
}

// Build 归一化表单字段：状态码解析失败或空白时回落到 429，
// 路径 trim 后为空则整体省略。
func (f *SettingsForm) Build(enabled bool) model.RateLimitingConfig {
	code := model.DefaultExceededStatusCode
	if s := strings.TrimSpace(f.ExceededStatusCode); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			code = v
		}
	}
	return model.RateLimitingConfig{
		Enabled:            enabled,
		ExceededStatusCode: code,
		PersistencePath:    strings.TrimSpace(f.PersistencePath),
	}
}
