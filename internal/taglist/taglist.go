// Package taglist 实现标签列表编辑器：有序、去重、去空白的字符串列表
// 加一个待提交的输入缓冲区。规则的 order、模型列表、auth-id 列表等
// 所有可增删的字符串序列都复用它。
package taglist

import "strings"

// TagList 标签列表编辑状态
// 列表保证不含空白项和重复项；插入顺序保留。对 order（模式优先级）
// 而言顺序有语义，对 models / auth-ids 等集合字段顺序无关紧要。
type TagList struct {
	values []string
	buffer string
}

// New 创建空列表
func New() *TagList {
	return &TagList{}
}

// NewFrom 用已有值创建列表（编辑态预填充），逐项走 Add 以保证不变量
func NewFrom(values []string) *TagList {
	tl := &TagList{}
	for _, v := range values {
		tl.Add(v)
	}
	return tl
}

// Add 追加一个标签。先 trim；结果为空或已存在（大小写敏感精确匹配）
// 则什么都不做，否则追加到末尾并清空缓冲区。
func (t *TagList) Add(raw string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	for _, existing := range t.values {
		if existing == v {
			return
		}
	}
	t.values = append(t.values, v)
	t.buffer = ""
}

// Remove 删除下标 i 处的标签，越界时静默忽略
func (t *TagList) Remove(i int) {
	if i < 0 || i >= len(t.values) {
		return
	}
	t.values = append(t.values[:i], t.values[i+1:]...)
}

// SetBuffer 更新待提交的输入缓冲区
func (t *TagList) SetBuffer(s string) {
	t.buffer = s
}

// Buffer 返回当前缓冲区内容
func (t *TagList) Buffer() string {
	return t.buffer
}

// Commit 提交缓冲区（对应回车 / 逗号触发）
func (t *TagList) Commit() {
	t.Add(t.buffer)
}

// Flush 提交残留的未确认输入。宿主表单在提交或失焦时显式调用，
// 而不是把它藏在别的事件里。
func (t *TagList) Flush() {
	t.Add(t.buffer)
	t.buffer = ""
}

// Input 处理一段原始输入：逗号之前的片段逐个提交，最后一段留在缓冲区
func (t *TagList) Input(s string) {
	if !strings.Contains(s, ",") {
		t.buffer = s
		return
	}
	parts := strings.Split(s, ",")
	for _, p := range parts[:len(parts)-1] {
		t.Add(p)
	}
	t.buffer = parts[len(parts)-1]
}

// Values 返回当前标签的副本
func (t *TagList) Values() []string {
	out := make([]string, len(t.values))
	copy(out, t.values)
	return out
}

// Len 返回标签数量
func (t *TagList) Len() int {
	return len(t.values)
}
