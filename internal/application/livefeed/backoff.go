package livefeed

import (
	"github.com/cenkalti/backoff/v4"
)

// newBackOff строит детерминированный экспоненциальный backoff без jitter.
// После MaxAttempts задержек NextBackOff возвращает backoff.Stop.
func newBackOff(cfg BackoffConfig) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.Base
	exp.Multiplier = 2
	exp.MaxInterval = cfg.Max
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()

	attempts := cfg.MaxAttempts
	if attempts < 0 {
		attempts = 0
	}
	return backoff.WithMaxRetries(exp, uint64(attempts))
}
