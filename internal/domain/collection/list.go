// Package collection содержит иммутабельные коллекции для состояния live feed.
// Каждая операция возвращает новую коллекцию и не трогает исходную.
package collection

import "encoding/json"

// Keyed элемент со стабильным идентификатором
type Keyed interface {
	Key() string
}

// List упорядоченный список с upsert по ключу и ограничением емкости.
// Новые элементы добавляются в начало, при переполнении отбрасывается хвост.
// capacity == 0 означает отсутствие ограничения.
type List[T Keyed] struct {
	items    []T
	capacity int
}

// NewList создает список с емкостью capacity и начальными элементами
func NewList[T Keyed](capacity int, items ...T) List[T] {
	if capacity < 0 {
		capacity = 0
	}
	return List[T]{capacity: capacity}.ReplaceAll(items)
}

// Len возвращает количество элементов
func (l List[T]) Len() int {
	return len(l.items)
}

// Capacity возвращает максимальный размер (0 без ограничения)
func (l List[T]) Capacity() int {
	return l.capacity
}

// Items возвращает копию элементов в порядке отображения
func (l List[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// IndexOf возвращает позицию элемента с ключом id или -1
func (l List[T]) IndexOf(id string) int {
	for i, item := range l.items {
		if item.Key() == id {
			return i
		}
	}
	return -1
}

// Get возвращает элемент по ключу
func (l List[T]) Get(id string) (T, bool) {
	if i := l.IndexOf(id); i >= 0 {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

// Upsert заменяет элемент с тем же ключом на его месте, иначе добавляет в начало.
// После вставки список обрезается до емкости.
func (l List[T]) Upsert(item T) List[T] {
	if i := l.IndexOf(item.Key()); i >= 0 {
		items := make([]T, len(l.items))
		copy(items, l.items)
		items[i] = item
		return List[T]{items: items, capacity: l.capacity}
	}

	size := len(l.items) + 1
	if l.capacity > 0 && size > l.capacity {
		size = l.capacity
	}

	items := make([]T, size)
	items[0] = item
	copy(items[1:], l.items)
	return List[T]{items: items, capacity: l.capacity}
}

// Update применяет fn к элементу с ключом id на его месте.
// Возвращает false, если элемента нет.
func (l List[T]) Update(id string, fn func(T) T) (List[T], bool) {
	i := l.IndexOf(id)
	if i < 0 {
		return l, false
	}

	items := make([]T, len(l.items))
	copy(items, l.items)
	items[i] = fn(items[i])
	return List[T]{items: items, capacity: l.capacity}, true
}

// RemoveByID удаляет элемент с ключом id; если его нет, список не меняется
func (l List[T]) RemoveByID(id string) List[T] {
	i := l.IndexOf(id)
	if i < 0 {
		return l
	}

	items := make([]T, 0, len(l.items)-1)
	items = append(items, l.items[:i]...)
	items = append(items, l.items[i+1:]...)
	return List[T]{items: items, capacity: l.capacity}
}

// TrimToCapacity оставляет min(n, Len()) первых элементов, хвост отбрасывается
func (l List[T]) TrimToCapacity(n int) List[T] {
	if n < 0 {
		n = 0
	}
	if len(l.items) <= n {
		return l
	}

	items := make([]T, n)
	copy(items, l.items[:n])
	return List[T]{items: items, capacity: l.capacity}
}

// ReplaceAll полностью заменяет содержимое.
// Повторные ключи отбрасываются (остается первое вхождение), емкость соблюдается.
func (l List[T]) ReplaceAll(items []T) List[T] {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.Key()]; dup {
			continue
		}
		seen[item.Key()] = struct{}{}
		out = append(out, item)
	}

	trimmed := List[T]{items: out, capacity: l.capacity}
	if l.capacity > 0 {
		return trimmed.TrimToCapacity(l.capacity)
	}
	return trimmed
}

// MarshalJSON сериализует список как массив (пустой список как [])
func (l List[T]) MarshalJSON() ([]byte, error) {
	if l.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.items)
}
