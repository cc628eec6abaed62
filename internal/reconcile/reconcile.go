// Package reconcile 维护本地列表与远端按索引寻址的列表之间的一致性。
// 所有变更都是"先远端确认、后本地应用"：远端失败时本地保持
// 最后一次确认的状态，不做任何投机更新，也就不需要回滚。
package reconcile

// List 按位置寻址的有序列表（优先级规则、绑定）
// 本地索引和远端索引必须严格对应，这里不做任何版本校验；
// 远端若被其他会话并发改动，索引操作可能落在错误的元素上。
type List[T any] struct {
	items []T
}

// NewList 用初始元素创建列表（加载远端权威状态后调用）
func NewList[T any](items []T) *List[T] {
	l := &List[T]{items: make([]T, len(items))}
	copy(l.items, items)
	return l
}

// Append 应用一次确认成功的创建：远端是 append-only，
// 新元素放在末尾，与远端位置保持一致。
func (l *List[T]) Append(item T) {
	l.items = append(l.items, item)
}

// ReplaceAt 应用一次确认成功的按索引更新，越界时静默忽略
func (l *List[T]) ReplaceAt(i int, item T) {
	if i < 0 || i >= len(l.items) {
		return
	}
	l.items[i] = item
}

// RemoveAt 应用一次确认成功的按索引删除，越界时静默忽略
func (l *List[T]) RemoveAt(i int) {
	if i < 0 || i >= len(l.items) {
		return
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
}

// Get 返回下标 i 处的元素
func (l *List[T]) Get(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(l.items) {
		return zero, false
	}
	return l.items[i], true
}

// Items 返回元素的副本
func (l *List[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Len 返回元素数量
func (l *List[T]) Len() int {
	return len(l.items)
}

// Reset 用新的权威状态整体替换（重新加载后调用）
func (l *List[T]) Reset(items []T) {
	l.items = make([]T, len(items))
	copy(l.items, items)
}
