// Package forms 实现各实体的表单控制器：把结构化的领域对象摊平成
// 可编辑的原始字段，在提交前做归一化和校验，再组装回领域对象。
// 校验失败的表单永远不会发起远端调用。
package forms

import "fmt"

// ValidationError 本地校验失败，不应触达网络
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
