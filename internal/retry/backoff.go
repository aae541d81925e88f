package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig configures retry behavior with exponential backoff
type RetryConfig struct {
	MaxRetries int           `json:"max_retries" koanf:"max_retries"` // Maximum number of retry attempts (default: 3)
	BaseDelay  time.Duration `json:"base_delay" koanf:"base_delay"`   // Delay before the first retry (default: 500ms)
	MaxDelay   time.Duration `json:"max_delay" koanf:"max_delay"`     // Maximum delay between retries (default: 4s)
	Multiplier float64       `json:"multiplier" koanf:"multiplier"`   // Exponential backoff multiplier (default: 2.0)
	Jitter     bool          `json:"jitter" koanf:"jitter"`           // Add ±10% random jitter (default: true)
	LogRetries bool          `json:"log_retries" koanf:"log_retries"` // Whether to log retry attempts (default: true)

	// Retryable decides whether a failed attempt may be retried. Nil retries
	// every error.
	Retryable func(error) bool `json:"-" koanf:"-"`
}

// RetryResult contains information about the retry operation
type RetryResult struct {
	Attempts      int           `json:"attempts"`       // Total number of attempts made
	TotalDuration time.Duration `json:"total_duration"` // Total time spent on all attempts
	LastError     error         `json:"-"`              // Last error encountered
	Success       bool          `json:"success"`        // Whether the operation eventually succeeded
	RetryReasons  []string      `json:"retry_reasons"`  // Reasons for each failed attempt
}

// DefaultRetryConfig returns the backoff used for model calls: three retries
// starting at 500ms and doubling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   4 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
		LogRetries: true,
	}
}

// RetryWithBackoffAndReason executes an operation with exponential backoff retry logic and custom reason tracking.
// Retry events are logged through the logger attached to ctx.
func RetryWithBackoffAndReason(ctx context.Context, config RetryConfig, operation func(ctx context.Context) (error, string)) RetryResult {
	startTime := time.Now()
	logger := zerolog.Ctx(ctx)

	result := RetryResult{
		RetryReasons: make([]string, 0),
	}

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		err, reason := operation(ctx)
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries && attempt > 0 {
				logger.Info().
					Int("retries", attempt).
					Dur("total_duration", result.TotalDuration).
					Msg("Operation succeeded after retries")
			}
			return result
		}

		result.LastError = err
		result.RetryReasons = append(result.RetryReasons, reason)

		if config.Retryable != nil && !config.Retryable(err) {
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries {
				logger.Debug().Err(err).Int("attempt", result.Attempts).Msg("Operation failed with non-retryable error")
			}
			return result
		}

		if attempt >= config.MaxRetries {
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries {
				logger.Warn().
					Err(err).
					Int("attempts", result.Attempts).
					Dur("total_duration", result.TotalDuration).
					Msg("Operation failed after all attempts")
			}
			return result
		}

		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries {
				logger.Debug().Err(ctx.Err()).Int("attempt", result.Attempts).Msg("Operation cancelled before retry")
			}
			return result
		}

		delay := calculateDelay(config, attempt)
		if config.LogRetries {
			logger.Info().
				Err(err).
				Int("attempt", attempt+1).
				Int("max_attempts", config.MaxRetries+1).
				Dur("delay", delay).
				Str("reason", reason).
				Msg("Operation failed, retrying")
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries {
				logger.Debug().Err(ctx.Err()).Msg("Operation cancelled during backoff delay")
			}
			return result
		case <-timer.C:
		}
	}

	// This should never be reached due to the loop logic above
	result.TotalDuration = time.Since(startTime)
	return result
}

// calculateDelay calculates the delay for the next retry attempt using exponential backoff
func calculateDelay(config RetryConfig, attempt int) time.Duration {
	// baseDelay * multiplier^attempt
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt))

	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	if config.Jitter {
		jitterRange := delay * 0.1
		jitter := (rand.Float64() - 0.5) * 2 * jitterRange // between -jitterRange and +jitterRange
		delay += jitter

		if delay < 0 {
			delay = float64(config.BaseDelay)
		}
	}

	return time.Duration(delay)
}
