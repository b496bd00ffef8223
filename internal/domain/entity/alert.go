package entity

import (
	"errors"
	"time"

	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
)

// Alert уведомление в ленте. Разрешенный alert остается в списке с Resolved=true.
type Alert struct {
	ID        string               `json:"id"`
	Severity  valueobject.Severity `json:"severity"`
	Message   string               `json:"message"`
	Source    string               `json:"source,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
	Resolved  bool                 `json:"resolved"`
}

// Key возвращает стабильный идентификатор alert
func (a Alert) Key() string {
	return a.ID
}

// Validate проверяет обязательные поля и уровень важности
func (a Alert) Validate() error {
	if a.ID == "" {
		return errors.New("alert id is required")
	}
	return a.Severity.Validate()
}

// Resolve возвращает копию alert с отметкой о разрешении
func (a Alert) Resolve() Alert {
	a.Resolved = true
	return a
}
