/*
Package jobqueue provides a River-based job queue for generating improvement
suggestions on private feedback outside the request that captured it.

For configuration options, retry policies, and tuning parameters, see queue_config.go.
*/
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/zerolog"

	"github.com/smartreview/internal/feedback"
	"github.com/smartreview/internal/llm"
	"github.com/smartreview/pkg/models"
)

// SuggestionJobArgs represents the arguments for an improvement-suggestion job
type SuggestionJobArgs struct {
	FeedbackID string `json:"feedback_id"`
}

// Kind returns the job kind for River
func (SuggestionJobArgs) Kind() string {
	return "feedback_suggestion"
}

// Suggester generates and attaches the suggestion for a feedback record.
type Suggester interface {
	Suggest(ctx context.Context, feedbackID string) error
}

// SuggestionWorker handles improvement-suggestion jobs
type SuggestionWorker struct {
	river.WorkerDefaults[SuggestionJobArgs]
	suggester Suggester
	config    *QueueConfig
	logger    zerolog.Logger
}

// NewSuggestionWorker creates a worker around suggester.
func NewSuggestionWorker(suggester Suggester, config *QueueConfig, logger zerolog.Logger) *SuggestionWorker {
	return &SuggestionWorker{suggester: suggester, config: config, logger: logger}
}

// Timeout bounds a single job run.
func (w *SuggestionWorker) Timeout(*river.Job[SuggestionJobArgs]) time.Duration {
	return w.config.JobTimeout
}

// Work generates the suggestion. Failures the model will not recover from
// cancel the job instead of retrying it; the record simply stays without a
// suggestion.
func (w *SuggestionWorker) Work(ctx context.Context, job *river.Job[SuggestionJobArgs]) error {
	logger := w.logger.With().
		Str("feedback_id", job.Args.FeedbackID).
		Int64("job_id", job.ID).
		Int("attempt", job.Attempt).
		Logger()
	ctx = logger.WithContext(ctx)

	err := w.suggester.Suggest(ctx, job.Args.FeedbackID)
	if err == nil {
		logger.Debug().Msg("Improvement suggestion attached")
		return nil
	}
	if permanent(err) {
		logger.Warn().Err(err).Msg("Improvement suggestion failed permanently")
		return river.JobCancel(err)
	}
	logger.Warn().Err(err).Msg("Improvement suggestion failed, River will retry")
	return err
}

// permanent reports errors another attempt cannot fix.
func permanent(err error) bool {
	switch {
	case errors.Is(err, llm.ErrProviderRejected):
		return true
	case errors.Is(err, llm.ErrGenerationFailed), llm.Transient(err):
		return false
	default:
		return errors.Is(err, feedback.ErrNoSuggestions) ||
			errors.Is(err, models.ErrFeedbackNotFound) ||
			errors.Is(err, models.ErrValidation)
	}
}

// JobQueue manages the River job queue
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	config *QueueConfig
}

// NewJobQueue creates a new job queue instance on an existing pool
func NewJobQueue(pool *pgxpool.Pool, suggester Suggester, config *QueueConfig, logger zerolog.Logger) (*JobQueue, error) {
	if config == nil {
		config = DefaultQueueConfig()
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewSuggestionWorker(suggester, config, logger))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:      config.RiverQueueConfig(),
		Workers:     workers,
		MaxAttempts: config.MaxAttempts,
		RetryPolicy: config.RetryPolicy,
		JobTimeout:  config.JobTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{
		client: client,
		pool:   pool,
		config: config,
	}, nil
}

// Migrate applies River's schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("failed to migrate River schema: %w", err)
	}
	return nil
}

// Start starts the job queue workers
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop stops the job queue workers
func (jq *JobQueue) Stop(ctx context.Context) error {
	return jq.client.Stop(ctx)
}

// Dispatch queues a suggestion job for a saved feedback record. It satisfies
// feedback.Dispatcher.
func (jq *JobQueue) Dispatch(ctx context.Context, feedbackID string) error {
	_, err := jq.client.Insert(ctx, SuggestionJobArgs{FeedbackID: feedbackID}, &river.InsertOpts{
		Queue:       QueueSuggestions,
		MaxAttempts: jq.config.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("failed to queue suggestion job: %w", err)
	}
	return nil
}
