// Package feed описывает конверт сообщений live feed и чистый маршрутизатор по типу.
package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedMessage кадр не является JSON конвертом {type, data}
	ErrMalformedMessage = errors.New("malformed feed message")

	// ErrUnknownType для типа сообщения не зарегистрирован reducer
	ErrUnknownType = errors.New("unknown feed message type")

	// ErrInvalidPayload reducer не смог разобрать или принять data
	ErrInvalidPayload = errors.New("invalid feed message payload")
)

// Message входящий конверт live feed
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode разбирает кадр транспорта в Message
func Decode(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return msg, nil
}

// NewMessage упаковывает payload в конверт
func NewMessage(msgType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return Message{Type: msgType, Data: data}, nil
}

// MustMessage как NewMessage, но паникует на ошибке сериализации.
// Используется для payload, которые сериализуются всегда (структуры без каналов и функций).
func MustMessage(msgType string, payload any) Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// DecodeData разбирает data в v; пустой или null data считается ошибкой
func (m Message) DecodeData(v any) error {
	trimmed := bytes.TrimSpace(m.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: %s has no data", ErrInvalidPayload, m.Type)
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, m.Type, err)
	}
	return nil
}

// Effect отложенное сообщение: контроллер вернет Message в роутер через After.
// Так таймеры остаются данными, а reducer остается чистой функцией.
type Effect struct {
	After   time.Duration
	Message Message
}
