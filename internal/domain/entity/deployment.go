package entity

import (
	"errors"
	"time"

	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
)

// Deployment представляет деплой на одной из платформ (vercel, railway, heroku...)
type Deployment struct {
	ID          string                  `json:"id"`
	Provider    string                  `json:"provider,omitempty"`
	Environment string                  `json:"environment,omitempty"`
	Status      valueobject.BuildStatus `json:"status"`
	URL         string                  `json:"url,omitempty"`
	Branch      string                  `json:"branch,omitempty"`
	Commit      string                  `json:"commit,omitempty"`
	CreatedAt   *time.Time              `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time              `json:"updatedAt,omitempty"`
}

// Key возвращает стабильный идентификатор деплоя
func (d Deployment) Key() string {
	return d.ID
}

// Validate проверяет обязательные поля
func (d Deployment) Validate() error {
	if d.ID == "" {
		return errors.New("deployment id is required")
	}
	return nil
}
