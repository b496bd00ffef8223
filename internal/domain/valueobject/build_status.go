package valueobject

// BuildStatus статус сборки или деплоя (Value Object)
type BuildStatus string

const (
	BuildPending   BuildStatus = "pending"
	BuildRunning   BuildStatus = "running"
	BuildSuccess   BuildStatus = "success"
	BuildFailed    BuildStatus = "failed"
	BuildCancelled BuildStatus = "cancelled"
)

// String возвращает строковое представление статуса
func (s BuildStatus) String() string {
	return string(s)
}

// Terminal сообщает, завершена ли сборка.
// Неизвестные статусы upstream считаются незавершенными.
func (s BuildStatus) Terminal() bool {
	switch s {
	case BuildSuccess, BuildFailed, BuildCancelled:
		return true
	default:
		return false
	}
}
