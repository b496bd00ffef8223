package feed

import (
	"fmt"
	"sort"
	"time"
)

// Reducer вычисляет новое состояние по сообщению.
// now передается явно, reducer не должен читать часы сам.
type Reducer[S any] func(state S, msg Message, now time.Time) (S, []Effect, error)

// Router сопоставляет тип сообщения и reducer
type Router[S any] struct {
	reducers map[string]Reducer[S]
}

// NewRouter создает пустой Router
func NewRouter[S any]() *Router[S] {
	return &Router[S]{reducers: make(map[string]Reducer[S])}
}

// Handle регистрирует reducer для одного или нескольких типов
func (r *Router[S]) Handle(reducer Reducer[S], types ...string) *Router[S] {
	for _, t := range types {
		r.reducers[t] = reducer
	}
	return r
}

// Knows сообщает, зарегистрирован ли тип
func (r *Router[S]) Knows(msgType string) bool {
	_, ok := r.reducers[msgType]
	return ok
}

// Types возвращает зарегистрированные типы по алфавиту
func (r *Router[S]) Types() []string {
	types := make([]string, 0, len(r.reducers))
	for t := range r.reducers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Route применяет reducer, соответствующий msg.Type.
// При любой ошибке возвращается исходное состояние без эффектов.
func (r *Router[S]) Route(state S, msg Message, now time.Time) (S, []Effect, error) {
	reducer, ok := r.reducers[msg.Type]
	if !ok {
		return state, nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}

	next, effects, err := reducer(state, msg, now)
	if err != nil {
		return state, nil, err
	}
	return next, effects, nil
}
