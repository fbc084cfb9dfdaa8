package webhook

import (
	"math"
	"time"

	"github.com/dandantas/turnstile/internal/model"
)

// RetryStrategy decides whether a failed alert delivery is worth retrying
// and how long to back off before the next attempt.
type RetryStrategy struct {
	config model.RetryConfig
}

// NewRetryStrategy creates a retry strategy from a rule's retry config
func NewRetryStrategy(config model.RetryConfig) *RetryStrategy {
	config.SetDefaults()
	return &RetryStrategy{config: config}
}

// Delay returns the exponential backoff before the given attempt, capped at
// the configured maximum
func (rs *RetryStrategy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delayMs := float64(rs.config.InitialDelayMs) * math.Pow(rs.config.Multiplier, float64(attempt-1))
	delayMs = math.Min(delayMs, float64(rs.config.MaxDelayMs))
	return time.Duration(delayMs) * time.Millisecond
}

// ShouldRetry reports whether another delivery attempt should be made.
// Network errors, 5xx responses and 429 are retryable; other 4xx responses
// mean the payload or endpoint is wrong and retrying will not help.
func (rs *RetryStrategy) ShouldRetry(attempt int, statusCode int, err error) bool {
	if attempt >= rs.config.MaxAttempts {
		return false
	}
	if err != nil {
		return true
	}

	switch {
	case statusCode >= 500:
		return true
	case statusCode == 429:
		return true
	case statusCode >= 400:
		return false
	case statusCode >= 300:
		return true
	}
	return false
}

// MaxAttempts returns the configured attempt ceiling
func (rs *RetryStrategy) MaxAttempts() int {
	return rs.config.MaxAttempts
}
