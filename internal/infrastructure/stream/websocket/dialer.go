package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/devex-dashboard/internal/application/port"
)

const (
	// Время ожидания для write операций
	writeWait = 10 * time.Second

	// Максимальный размер входящего кадра
	maxFrameSize = 1 << 20
)

// Dialer открывает upstream live stream через gorilla/websocket
// Реализует интерфейс port.StreamDialer
type Dialer struct {
	dialer *websocket.Dialer
	header http.Header
}

// NewDialer создает Dialer; token, если задан, уходит в Authorization: Bearer
func NewDialer(token string) *Dialer {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	return &Dialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   4096,
			WriteBufferSize:  1024,
		},
		header: header,
	}
}

// Dial выполняет handshake; отмена ctx прерывает попытку
func (d *Dialer) Dial(ctx context.Context, url string) (port.StreamConn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s (%s): %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	conn.SetReadLimit(maxFrameSize)
	return &Conn{conn: conn}, nil
}

// Conn открытое соединение с upstream
type Conn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// ReadMessage возвращает следующий текстовый или бинарный кадр.
// Ping/pong обрабатывает gorilla внутри ReadMessage.
func (c *Conn) ReadMessage() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// WriteJSON отправляет JSON кадр; gorilla допускает только одного writer
func (c *Conn) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close отправляет close frame (best effort) и закрывает сокет
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()

		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
