package forms

import (
	"strconv"
	"strings"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/taglist"
)

// KeyConfigForm API Key 配额配置表单
// 四个数值字段以原始字符串保存：空白表示"不发送该字段"，
// 让远端把缺省和 0 区分开。编辑态下 key 字段锁定，与绑定表单同款。
type KeyConfigForm struct {
	key       string
	keyLocked bool

	RequestsPerDay   string
	RequestsPerMonth string
	TokensPerDay     string
	TokensPerMonth   string

	AllowedProviders *taglist.TagList
	AuthIDs          *taglist.TagList
}

// NewKeyConfigForm 创建空白表单（新增）
func NewKeyConfigForm() *KeyConfigForm {
	return &KeyConfigForm{
		AllowedProviders: taglist.New(),
		AuthIDs:          taglist.New(),
	}
}

// NewKeyConfigFormEdit 用已有配置预填充表单（编辑），key 锁定
func NewKeyConfigFormEdit(cfg model.APIKeyConfig) *KeyConfigForm {
	f := &KeyConfigForm{
		key:              cfg.Key,
		keyLocked:        true,
		AllowedProviders: taglist.NewFrom(cfg.AllowedProviders),
		AuthIDs:          taglist.NewFrom(cfg.AuthIDs),
	}
	if cfg.Limits != nil {
		f.RequestsPerDay = formatLimit(cfg.Limits.RequestsPerDay)
		f.RequestsPerMonth = formatLimit(cfg.Limits.RequestsPerMonth)
		f.TokensPerDay = formatLimit(cfg.Limits.TokensPerDay)
		f.TokensPerMonth = formatLimit(cfg.Limits.TokensPerMonth)
	}
	return f
}

func formatLimit(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// SetKey 设置 key，锁定状态下忽略
func (f *KeyConfigForm) SetKey(key string) {
	if f.keyLocked {
		return
	}
	f.key = key
}

// Key 返回当前 key
func (f *KeyConfigForm) Key() string {
	return f.key
}

// KeyLocked 返回 key 字段是否锁定
func (f *KeyConfigForm) KeyLocked() bool {
	return f.keyLocked
}

// Build 校验并组装配置。所有数值字段都空白时 Limits 整体省略。
func (f *KeyConfigForm) Build() (model.APIKeyConfig, error) {
	f.AllowedProviders.Flush()
	f.AuthIDs.Flush()

	key := strings.TrimSpace(f.key)
	if key == "" {
		return model.APIKeyConfig{}, invalid("key", "api key is required")
	}

	limits := &model.APIKeyLimits{}
	var err error
	if limits.RequestsPerDay, err = parseLimit("requests-per-day", f.RequestsPerDay); err != nil {
		return model.APIKeyConfig{}, err
	}
	if limits.RequestsPerMonth, err = parseLimit("requests-per-month", f.RequestsPerMonth); err != nil {
		return model.APIKeyConfig{}, err
	}
	if limits.TokensPerDay, err = parseLimit("tokens-per-day", f.TokensPerDay); err != nil {
		return model.APIKeyConfig{}, err
	}
	if limits.TokensPerMonth, err = parseLimit("tokens-per-month", f.TokensPerMonth); err != nil {
		return model.APIKeyConfig{}, err
	}
	if limits.Empty() {
		limits = nil
	}

	return model.APIKeyConfig{
		Key:              key,
		Limits:           limits,
		AllowedProviders: f.AllowedProviders.Values(),
		AuthIDs:          f.AuthIDs.Values(),
	}, nil
}

// parseLimit 解析单个配额输入：空白 ⇒ nil（整体省略该字段）
func parseLimit(field, raw string) (*int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, invalid(field, "must be an integer")
	}
	if v < 0 {
		return nil, invalid(field, "must not be negative")
	}
	return &v, nil
}
