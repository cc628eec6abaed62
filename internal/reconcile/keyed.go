package reconcile

// KeyedList 按字符串 key 寻址的集合（API Key 配置）
// 与 List 不同，这里的对应关系靠 key 相等而不是位置，
// 插入顺序保留以便稳定展示。
type KeyedList[T any] struct {
	items []T
	keyOf func(T) string
}

// NewKeyedList 创建集合，keyOf 提取元素的资源标识
func NewKeyedList[T any](items []T, keyOf func(T) string) *KeyedList[T] {
	kl := &KeyedList[T]{keyOf: keyOf}
	kl.Reset(items)
	return kl
}

// Upsert 应用一次确认成功的创建或更新：已有同 key 元素则原地替换，
// 否则追加到末尾。
func (kl *KeyedList[T]) Upsert(item T) {
	key := kl.keyOf(item)
	for i, existing := range kl.items {
		if kl.keyOf(existing) == key {
			kl.items[i] = item
			return
		}
	}
	kl.items = append(kl.items, item)
}

// Remove 应用一次确认成功的删除，key 不存在时静默忽略
func (kl *KeyedList[T]) Remove(key string) {
	for i, existing := range kl.items {
		if kl.keyOf(existing) == key {
			kl.items = append(kl.items[:i], kl.items[i+1:]...)
			return
		}
	}
}

// Get 按 key 查找元素
func (kl *KeyedList[T]) Get(key string) (T, bool) {
	var zero T
	for _, existing := range kl.items {
		if kl.keyOf(existing) == key {
			return existing, true
		}
	}
	return zero, false
}

// Items 返回元素的副本
func (kl *KeyedList[T]) Items() []T {
	out := make([]T, len(kl.items))
	copy(out, kl.items)
	return out
}

// Len 返回元素数量
func (kl *KeyedList[T]) Len() int {
	return len(kl.items)
}

// Reset 用新的权威状态整体替换
func (kl *KeyedList[T]) Reset(items []T) {
	kl.items = make([]T, len(items))
	copy(kl.items, items)
}
