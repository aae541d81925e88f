package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/smartreview/internal/aiconnectors"
	"github.com/smartreview/internal/cache"
	"github.com/smartreview/internal/catalog"
	"github.com/smartreview/internal/config"
	"github.com/smartreview/internal/engine"
	"github.com/smartreview/internal/feedback"
	"github.com/smartreview/internal/jobqueue"
	"github.com/smartreview/internal/llm"
	"github.com/smartreview/internal/logging"
	"github.com/smartreview/internal/prompts"
	"github.com/smartreview/internal/retry"
	"github.com/smartreview/internal/review"
	"github.com/smartreview/internal/routing"
	"github.com/smartreview/internal/telemetry"
	"github.com/smartreview/pkg/models"
)

// App is the fully wired engine plus everything that must be closed.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Engine    *engine.Engine
	Reviews   *review.Service
	Feedback  *feedback.Collector
	Stores    *catalog.Static
	Connector *aiconnectors.Connector

	closers []func(context.Context) error
	// drain waits for suggestion work already dispatched.
	drain func(context.Context) error
}

// loadApp reads the --config file and builds the App.
func loadApp(c *cli.Context) (*App, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return Build(c.Context, cfg, c.App.Version)
}

// Build wires every component from cfg. Close must be called on success.
func Build(ctx context.Context, cfg *config.Config, version string) (app *App, err error) {
	logger := logging.New(logging.Options{
		Level:  cfg.General.LogLevel,
		Format: cfg.General.LogFormat,
		Output: os.Stderr,
	})
	app = &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
			app = nil
		}
	}()

	shutdownTracing, err := telemetry.Init(ctx, logger, telemetry.Config{
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.General.Environment,
		Version:     version,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	app.closers = append(app.closers, shutdownTracing)

	router, err := routing.NewRouter(cfg.Routing.PositiveThreshold)
	if err != nil {
		return nil, err
	}
	stores, err := catalog.NewStatic(cfg.Stores)
	if err != nil {
		return nil, fmt.Errorf("failed to load stores: %w", err)
	}
	app.Stores = stores

	client, err := app.buildClient(ctx)
	if err != nil {
		return nil, err
	}
	builder := prompts.NewBuilder(cfg.Prompt.MaxSEOKeywords)

	reviewStore, err := app.buildReviewStore(ctx)
	if err != nil {
		return nil, err
	}
	app.Reviews = review.NewService(router, builder, client, review.NewReviewCache(reviewStore), review.Config{
		AttemptTimeout:  cfg.AI.AttemptTimeout,
		FallbackEnabled: cfg.AI.FallbackEnabled,
	})

	records, pool, err := app.buildFeedbackStore(ctx)
	if err != nil {
		return nil, err
	}
	suggester := feedback.NewSuggester(records, stores, builder, client, cfg.AI.AttemptTimeout)
	dispatcher, err := app.buildDispatcher(ctx, pool, suggester)
	if err != nil {
		return nil, err
	}
	app.Feedback = feedback.NewCollector(router, records, dispatcher, cfg.Feedback.MinLength)

	app.Engine = engine.New(router, stores, app.Reviews, app.Feedback)

	logger.Debug().
		Str("provider", string(app.Connector.GetProvider())).
		Str("model", client.ModelName()).
		Int("positive_threshold", router.Threshold()).
		Str("cache", cfg.Cache.Backend).
		Str("feedback_store", cfg.Feedback.Store).
		Str("suggestions", cfg.Feedback.Suggestions+"/"+cfg.Feedback.Queue).
		Int("stores", len(stores.IDs())).
		Msg("Engine ready")
	return app, nil
}

func (a *App) buildClient(ctx context.Context) (*llm.ResilientClient, error) {
	ai := a.Config.AI
	provider, err := aiconnectors.ParseProvider(ai.Provider)
	if err != nil {
		return nil, err
	}
	connector, err := aiconnectors.NewConnector(ctx, aiconnectors.ConnectorOptions{
		Provider: provider,
		APIKey:   ai.APIKey,
		BaseURL:  ai.BaseURL,
		Model:    ai.Model,
	})
	if err != nil {
		return nil, err
	}
	a.Connector = connector

	var transcripts *logging.TranscriptWriter
	if ai.TranscriptDir != "" {
		if transcripts, err = logging.NewTranscriptWriter(ai.TranscriptDir); err != nil {
			return nil, fmt.Errorf("failed to open transcript dir: %w", err)
		}
	}

	return llm.NewResilientClient(connector, llm.Options{
		Retry: retry.RetryConfig{
			MaxRetries: ai.MaxRetries,
			BaseDelay:  ai.BaseDelay,
			MaxDelay:   ai.MaxDelay,
			Multiplier: ai.Multiplier,
			Jitter:     ai.Jitter,
			LogRetries: true,
		},
		OverallDeadline: ai.OverallDeadline,
		RatePerMinute:   ai.RateLimitPerMinute,
		Transcripts:     transcripts,
	}), nil
}

func (a *App) buildReviewStore(ctx context.Context) (cache.Store[*models.GeneratedReview], error) {
	c := a.Config.Cache
	if c.Backend != "redis" {
		return cache.NewMemoryStore[*models.GeneratedReview](c.Capacity, c.TTL), nil
	}
	rdb, err := cache.ConnectRedis(ctx, c.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	return cache.NewRedisStore[*models.GeneratedReview](rdb, c.KeyPrefix, c.TTL), nil
}

// buildFeedbackStore returns the record store and, when one was opened, the
// Postgres pool so River can share it.
func (a *App) buildFeedbackStore(ctx context.Context) (feedback.Store, *pgxpool.Pool, error) {
	fc := a.Config.Feedback
	needsPool := fc.Store == "postgres" || (fc.Suggestions == "async" && fc.Queue == "river")
	if !needsPool {
		return feedback.NewMemoryStore(), nil, nil
	}

	pool, err := feedback.Connect(ctx, fc.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })

	if fc.Store != "postgres" {
		return feedback.NewMemoryStore(), pool, nil
	}
	store := feedback.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		return nil, nil, err
	}
	return store, pool, nil
}

func (a *App) buildDispatcher(ctx context.Context, pool *pgxpool.Pool, suggester *feedback.Suggester) (feedback.Dispatcher, error) {
	fc := a.Config.Feedback
	if fc.Suggestions == "off" {
		return nil, nil
	}
	if fc.Queue != "river" {
		d := feedback.NewInlineDispatcher(suggester, fc.MaxConcurrent, a.Config.AI.OverallDeadline)
		a.closers = append(a.closers, d.Close)
		a.drain = d.Close
		return d, nil
	}

	if err := jobqueue.Migrate(ctx, pool); err != nil {
		return nil, err
	}
	qc := jobqueue.DefaultQueueConfig()
	if fc.MaxConcurrent > 0 {
		qc.MaxWorkers = fc.MaxConcurrent
	}
	jq, err := jobqueue.NewJobQueue(pool, suggester, qc, a.Logger)
	if err != nil {
		return nil, err
	}
	if err := jq.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start job queue: %w", err)
	}
	a.closers = append(a.closers, jq.Stop)
	a.drain = jq.Stop
	return jq, nil
}

// WaitForSuggestions blocks until dispatched suggestion work has finished.
// No further suggestions are accepted afterwards.
func (a *App) WaitForSuggestions(ctx context.Context) error {
	if a.drain == nil {
		return nil
	}
	return a.drain(ctx)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
