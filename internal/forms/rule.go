package forms

import (
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/taglist"
)

// RuleForm 优先级规则表单
// Models 为空是合法的（默认规则）；Order 必须非空才能提交。
type RuleForm struct {
	Models   *taglist.TagList
	Order    *taglist.TagList
	Fallback bool
}

// NewRuleForm 创建空白表单（新增），fallback 默认开启
func NewRuleForm() *RuleForm {
	return &RuleForm{
		Models:   taglist.New(),
		Order:    taglist.New(),
		Fallback: true,
	}
}

// NewRuleFormEdit 用已有规则预填充表单（编辑）
func NewRuleFormEdit(rule model.PriorityRule) *RuleForm {
	patterns := make([]string, 0, len(rule.Order))
	for _, o := range rule.Order {
		patterns = append(patterns, o.Pattern)
	}
	return &RuleForm{
		Models:   taglist.NewFrom(rule.Models),
		Order:    taglist.NewFrom(patterns),
		Fallback: rule.Fallback,
	}
}

// Build 校验并组装规则。残留在缓冲区的输入先被 flush 进列表。
func (f *RuleForm) Build() (model.PriorityRule, error) {
	f.Models.Flush()
	f.Order.Flush()

	patterns := f.Order.Values()
	if len(patterns) == 0 {
		return model.PriorityRule{}, invalid("order", "at least one pattern is required")
	}

	order := make([]model.PatternEntry, 0, len(patterns))
	for _, p := range patterns {
		order = append(order, model.PatternEntry{Pattern: p})
	}

	return model.PriorityRule{
		Models:   f.Models.Values(),
		Order:    order,
		Fallback: f.Fallback,
	}, nil
}
