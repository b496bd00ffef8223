package valueobject

// ConnectionStatus состояние live feed соединения (Value Object)
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusReconnecting ConnectionStatus = "reconnecting"
	StatusFallback     ConnectionStatus = "fallback"
)

// String возвращает строковое представление статуса
func (s ConnectionStatus) String() string {
	return string(s)
}

// Live сообщает, получает ли feed данные через push-соединение
func (s ConnectionStatus) Live() bool {
	return s == StatusConnected
}

// Degraded сообщает, что данные приходят не из live stream (или не приходят совсем)
func (s ConnectionStatus) Degraded() bool {
	return s != StatusConnected
}

// AllConnectionStatuses возвращает все статусы в порядке жизненного цикла
func AllConnectionStatuses() []ConnectionStatus {
	return []ConnectionStatus{
		StatusConnecting,
		StatusConnected,
		StatusDisconnected,
		StatusReconnecting,
		StatusFallback,
	}
}
