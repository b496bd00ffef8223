package port

import "context"

// UpstreamActions команды пользователя, которые выполняет upstream API (Port)
type UpstreamActions interface {
	RetryBuild(ctx context.Context, id string) error
	ResolveAlert(ctx context.Context, id string) error
}
