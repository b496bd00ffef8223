package websocket

import (
	"context"
	"sync"

	"github.com/dreschagin/devex-dashboard/internal/application/dto"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// Hub управляет WebSocket клиентами и рассылает состояние дашборда
// Реализует интерфейс port.NotificationService
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Последнее состояние, новый клиент получает его сразу
	last *dto.StateDTO

	broadcast  chan *dto.StateDTO
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Mutex для защиты clients map
	mu sync.RWMutex

	logger *logger.Logger
}

// NewHub создает новый WebSocket hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *dto.StateDTO, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run обслуживает hub до отмены ctx, затем закрывает каналы всех клиентов
func (h *Hub) Run(ctx context.Context) error {
	h.logger.Info("WebSocket hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub stopped")
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.last != nil {
				client.send <- Message{Type: MessageTypeState, Data: h.last}
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client registered", "client_id", client.id, "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "client_id", client.id, "total_clients", total)

		case state := <-h.broadcast:
			h.mu.Lock()
			h.last = state
			for client := range h.clients {
				select {
				case client.send <- Message{Type: MessageTypeState, Data: state}:
				default:
					// Канал клиента заполнен, закрываем соединение
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("Client channel full, disconnected", "client_id", client.id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register регистрирует нового клиента; после остановки hub ничего не делает
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister удаляет клиента
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast отправляет состояние всем клиентам (реализация port.NotificationService)
func (h *Hub) Broadcast(state *dto.StateDTO) {
	select {
	case h.broadcast <- state:
	default:
		h.logger.Warn("Broadcast channel full, dropping state", "version", state.Version)
	}
}

// ClientCount возвращает количество подключенных клиентов (реализация port.NotificationService)
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MessageTypeState тип сообщения с полным состоянием дашборда
const MessageTypeState = "state"

// Message представляет сообщение для отправки клиенту
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
