package forms

import (
	"strings"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/taglist"
)

// BindingForm 凭据绑定表单
// 编辑态下 api-key 字段锁定：绑定一旦创建，标识不可改名。
type BindingForm struct {
	apiKey    string
	keyLocked bool

	AuthIDs  *taglist.TagList
	Fallback bool
}

// NewBindingForm 创建空白表单（新增）
func NewBindingForm() *BindingForm {
	return &BindingForm{
		AuthIDs:  taglist.New(),
		Fallback: true,
	}
}

// NewBindingFormEdit 用已有绑定预填充表单（编辑），key 锁定
func NewBindingFormEdit(b model.AuthBinding) *BindingForm {
	return &BindingForm{
		apiKey:    b.APIKey,
		keyLocked: true,
		AuthIDs:   taglist.NewFrom(b.AuthIDs),
		Fallback:  b.Fallback,
	}
}

// SetAPIKey 设置 api-key，锁定状态下忽略
func (f *BindingForm) SetAPIKey(key string) {
	if f.keyLocked {
		return
	}
	f.apiKey = key
}

// APIKey 返回当前 key
func (f *BindingForm) APIKey() string {
	return f.apiKey
}

// KeyLocked 返回 key 字段是否锁定
func (f *BindingForm) KeyLocked() bool {
	return f.keyLocked
}

// Build 校验并组装绑定
func (f *BindingForm) Build() (model.AuthBinding, error) {
	f.AuthIDs.Flush()

	key := strings.TrimSpace(f.apiKey)
	if key == "" {
		return model.AuthBinding{}, invalid("api-key", "api key is required")
	}
	ids := f.AuthIDs.Values()
	if len(ids) == 0 {
		return model.AuthBinding{}, invalid("auth-ids", "at least one auth id is required")
	}

	return model.AuthBinding{
		APIKey:   key,
		AuthIDs:  ids,
		Fallback: f.Fallback,
	}, nil
}
