package entity

import (
	"errors"
	"time"

	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
)

// Build представляет CI сборку в ленте активных сборок
type Build struct {
	ID          string                  `json:"id"`
	Repository  string                  `json:"repository,omitempty"`
	Branch      string                  `json:"branch,omitempty"`
	Commit      string                  `json:"commit,omitempty"`
	Author      string                  `json:"author,omitempty"`
	Status      valueobject.BuildStatus `json:"status"`
	Stage       string                  `json:"stage,omitempty"`
	Progress    float64                 `json:"progress,omitempty"`
	PRNumber    int                     `json:"prNumber,omitempty"`
	StartedAt   *time.Time              `json:"startedAt,omitempty"`
	CompletedAt *time.Time              `json:"completedAt,omitempty"`
}

// Key возвращает стабильный идентификатор сборки
func (b Build) Key() string {
	return b.ID
}

// Validate проверяет обязательные поля
func (b Build) Validate() error {
	if b.ID == "" {
		return errors.New("build id is required")
	}
	if b.Progress < 0 || b.Progress > 100 {
		return errors.New("build progress must be within 0..100")
	}
	return nil
}

// Duration возвращает длительность завершенной сборки
func (b Build) Duration() (time.Duration, bool) {
	if b.StartedAt == nil || b.CompletedAt == nil {
		return 0, false
	}
	return b.CompletedAt.Sub(*b.StartedAt), true
}
