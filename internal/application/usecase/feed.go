package usecase

import (
	"errors"

	"github.com/dreschagin/devex-dashboard/internal/domain/dashboard"
	"github.com/dreschagin/devex-dashboard/internal/domain/feed"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
)

var (
	// ErrInvalidID пустой идентификатор сущности
	ErrInvalidID = errors.New("invalid id")

	// ErrAlertNotFound alert с таким id нет в ленте
	ErrAlertNotFound = errors.New("alert not found")
)

// FeedState текущее состояние live feed.
// Реализуется livefeed.Controller[dashboard.State].
type FeedState interface {
	Name() string
	State() dashboard.State
	Status() valueobject.ConnectionStatus
}

// FeedDispatcher отправляет локальное сообщение в роутер feed
type FeedDispatcher interface {
	Dispatch(msg feed.Message)
}

// FeedSubscriber подписка на изменения состояния и статуса
type FeedSubscriber interface {
	FeedState
	OnUpdate(fn func(dashboard.State))
	OnStatus(fn func(valueobject.ConnectionStatus))
}
