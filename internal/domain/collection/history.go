package collection

import "encoding/json"

// DefaultHistoryCapacity размер окна графиков по умолчанию
const DefaultHistoryCapacity = 50

// History скользящее окно фиксированной емкости (FIFO).
// Порядок вставки совпадает с порядком времени: точка добавляется в момент получения.
type History[T any] struct {
	items    []T
	capacity int
}

// NewHistory создает пустое окно; capacity <= 0 заменяется на DefaultHistoryCapacity
func NewHistory[T any](capacity int) History[T] {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return History[T]{capacity: capacity}
}

// Append добавляет точку в конец и вытесняет самые старые при переполнении
func (h History[T]) Append(item T) History[T] {
	capacity := h.capacity
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}

	start := 0
	if len(h.items)+1 > capacity {
		start = len(h.items) + 1 - capacity
	}

	items := make([]T, 0, len(h.items)-start+1)
	items = append(items, h.items[start:]...)
	items = append(items, item)
	return History[T]{items: items, capacity: capacity}
}

// Len возвращает количество точек
func (h History[T]) Len() int {
	return len(h.items)
}

// Capacity возвращает размер окна
func (h History[T]) Capacity() int {
	return h.capacity
}

// Items возвращает копию точек от старой к новой
func (h History[T]) Items() []T {
	out := make([]T, len(h.items))
	copy(out, h.items)
	return out
}

// Last возвращает самую свежую точку
func (h History[T]) Last() (T, bool) {
	if len(h.items) == 0 {
		var zero T
		return zero, false
	}
	return h.items[len(h.items)-1], true
}

func (h History[T]) MarshalJSON() ([]byte, error) {
	if h.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.items)
}
