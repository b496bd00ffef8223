package port

import "github.com/dreschagin/devex-dashboard/internal/application/dto"

// NotificationService рассылает состояние подключенным клиентам (Port)
// Реализация в Infrastructure слое (WebSocket Hub)
type NotificationService interface {
	// Broadcast отправляет состояние всем подключенным клиентам
	Broadcast(state *dto.StateDTO)

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
