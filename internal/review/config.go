package review

import "time"

// Config holds the review service configuration
type Config struct {
	// AttemptTimeout bounds a single model call. The client's overall
	// deadline bounds the call including retries.
	AttemptTimeout time.Duration

	// FallbackEnabled serves a templated review when the model gives up.
	FallbackEnabled bool
}

// DefaultReviewConfig returns a sensible default configuration for reviews
func DefaultReviewConfig() Config {
	return Config{
		AttemptTimeout:  4 * time.Second,
		FallbackEnabled: true,
	}
}
