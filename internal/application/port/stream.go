package port

import "context"

// StreamConn открытое push-соединение с upstream
type StreamConn interface {
	// ReadMessage блокируется до следующего кадра; ошибка означает конец соединения
	ReadMessage() ([]byte, error)

	// WriteJSON отправляет один JSON кадр
	WriteJSON(v interface{}) error

	// Close закрывает соединение; повторный вызов безопасен
	Close() error
}

// StreamDialer открывает push-соединение (Port).
// Реализация в Infrastructure слое (gorilla/websocket)
type StreamDialer interface {
	Dial(ctx context.Context, url string) (StreamConn, error)
}
