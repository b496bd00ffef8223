package valueobject

import "errors"

// Severity уровень важности alert (Value Object)
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Validate проверяет валидность уровня
func (s Severity) Validate() error {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return nil
	default:
		return errors.New("invalid alert severity")
	}
}

// String возвращает строковое представление уровня
func (s Severity) String() string {
	return string(s)
}

// Rank возвращает порядок важности: чем больше, тем важнее
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}
