/*
Package jobqueue configuration - tunable parameters for the River job queue
that generates improvement suggestions for private feedback.

## Quick Configuration Reference:

### Performance Tuning:
- Increase MaxWorkers for higher suggestion throughput
- Keep MaxWorkers below the model provider's rate limit per minute

### Reliability Tuning:
- MaxAttempts bounds how often River retries a failed suggestion job.
  The model client already retries transient failures inside one attempt,
  so a small value is enough.
- RetryPolicy controls the delay between River attempts.

## Database Requirements:
- PostgreSQL with River schema migrations applied (Migrate does this)
- The feedback_records table (feedback.PostgresStore.Migrate)
*/
package jobqueue

import (
	"math"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// QueueSuggestions is the River queue suggestion jobs run on.
const QueueSuggestions = "feedback_suggestions"

// QueueConfig holds all configurable parameters for the job queue
type QueueConfig struct {
	// Worker Configuration
	MaxWorkers int // Number of concurrent workers processing jobs (default: 4)

	// Retry Configuration
	MaxAttempts int           // Attempts per job including the first (default: 3)
	RetryPolicy RetryPolicy   // Retry timing and backoff configuration
	JobTimeout  time.Duration // Maximum time a single job can run (default: 30 seconds)
}

// RetryPolicy defines how failed jobs are retried
type RetryPolicy struct {
	// InitialInterval is the time to wait before the first retry
	InitialInterval time.Duration // default: 5 seconds

	// MaxInterval is the maximum time to wait between retries
	MaxInterval time.Duration // default: 5 minutes

	// Multiplier is the factor by which the interval increases after each retry
	Multiplier float64 // default: 2.0 (exponential backoff)
}

// DefaultQueueConfig returns the default configuration
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers:  4,
		MaxAttempts: 3,
		RetryPolicy: RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaxInterval:     5 * time.Minute,
			Multiplier:      2.0,
		},
		JobTimeout: 30 * time.Second,
	}
}

// RiverQueueConfig converts our config to River's queue configuration format
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		QueueSuggestions: {
			MaxWorkers: c.MaxWorkers,
		},
	}
}

// NextRetry implements river.ClientRetryPolicy with capped exponential backoff.
func (p RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	return time.Now().Add(p.delay(job.Attempt))
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attempt-1))
	if p.MaxInterval > 0 && d > float64(p.MaxInterval) {
		d = float64(p.MaxInterval)
	}
	return time.Duration(d)
}
