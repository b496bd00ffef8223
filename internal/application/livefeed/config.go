// Package livefeed управляет жизненным циклом live feed одного дашборда:
// push-соединение, деградация в polling, reconnect с backoff, teardown.
package livefeed

import (
	"fmt"
	"time"
)

// Strategy поведение после потери соединения
type Strategy string

const (
	// StrategyFallback сразу переходит в polling
	StrategyFallback Strategy = "fallback"
	// StrategyReconnect переподключается с экспоненциальной задержкой, затем polling
	StrategyReconnect Strategy = "reconnect"
)

// ParseStrategy разбирает стратегию из конфигурации
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFallback, StrategyReconnect:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown feed strategy: %q", s)
	}
}

// BackoffConfig параметры переподключения: min(Base*2^n, Max), не более MaxAttempts попыток
type BackoffConfig struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

// SubscribeMessage отправляется один раз после открытия соединения
type SubscribeMessage struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

// Config настройки одного Controller
type Config struct {
	Name           string
	URL            string
	Strategy       Strategy
	ConnectTimeout time.Duration
	PollInterval   time.Duration
	Backoff        BackoffConfig
	Subscribe      SubscribeMessage
}

// DefaultConfig значения, наблюдаемые у дашбордов
func DefaultConfig(url string) Config {
	return Config{
		Name:           "dashboard",
		URL:            url,
		Strategy:       StrategyFallback,
		ConnectTimeout: 3 * time.Second,
		PollInterval:   2 * time.Second,
		Backoff: BackoffConfig{
			Base:        time.Second,
			Max:         30 * time.Second,
			MaxAttempts: 10,
		},
		Subscribe: SubscribeMessage{Type: "subscribe", Channels: []string{"all"}},
	}
}
