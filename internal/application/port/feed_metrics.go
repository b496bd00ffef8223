package port

import "github.com/dreschagin/devex-dashboard/internal/domain/valueobject"

// FeedMetrics счетчики live feed (Port)
type FeedMetrics interface {
	MessageApplied(feedName, msgType string)
	MessageDropped(feedName, reason string)
	StatusChanged(feedName string, status valueobject.ConnectionStatus)
	PollCompleted(feedName string, err error)
	ReconnectScheduled(feedName string)
}

// NoopFeedMetrics реализация без побочных эффектов
type NoopFeedMetrics struct{}

func (NoopFeedMetrics) MessageApplied(string, string) {}
func (NoopFeedMetrics) MessageDropped(string, string) {}
func (NoopFeedMetrics) StatusChanged(string, valueobject.ConnectionStatus) {}
func (NoopFeedMetrics) PollCompleted(string, error) {}
func (NoopFeedMetrics) ReconnectScheduled(string) {}
