package jobs

import (
	"math/rand"
	"time"
)

// BackoffConfig bounds the delay between retries of a failed attempt
type BackoffConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultBackoff starts at 30 seconds and never waits longer than an hour
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		BaseDelay: 30 * time.Second,
		MaxDelay:  1 * time.Hour,
	}
}

// NextRetryAt computes the next retry time using exponential backoff with full jitter.
// attempt is 1-based (1 => up to BaseDelay).
func NextRetryAt(now time.Time, attempt int, cfg BackoffConfig, rng *rand.Rand) time.Time {
	if attempt < 1 {
		attempt = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 30 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = time.Hour
	}

	delay := cfg.MaxDelay
	if attempt < 32 {
		if d := cfg.BaseDelay << (attempt - 1); d > 0 && d < cfg.MaxDelay {
			delay = d
		}
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	jitter := time.Duration(rng.Int63n(int64(delay) + 1))

	return now.Add(jitter).UTC()
}
