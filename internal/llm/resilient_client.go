package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/smartreview/internal/logging"
	"github.com/smartreview/internal/prompts"
	"github.com/smartreview/internal/retry"
)

// DefaultOverallDeadline bounds a Complete call including all retries.
const DefaultOverallDeadline = 10 * time.Second

var tracer = otel.Tracer("github.com/smartreview/internal/llm")

// Request is a single model invocation.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Model is the provider transport the client drives.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// RawCompletion is the unparsed model output with call statistics.
type RawCompletion struct {
	Text         string
	Model        string
	Attempts     int
	Duration     time.Duration
	RetryReasons []string
}

// Options configures a ResilientClient.
type Options struct {
	Retry           retry.RetryConfig
	OverallDeadline time.Duration
	// RatePerMinute throttles outgoing calls; zero disables throttling.
	RatePerMinute int
	Transcripts   *logging.TranscriptWriter
}

// DefaultOptions returns three retries from 500ms, a 10s overall deadline
// and no throttling.
func DefaultOptions() Options {
	return Options{
		Retry:           retry.DefaultRetryConfig(),
		OverallDeadline: DefaultOverallDeadline,
	}
}

// ResilientClient wraps a Model with retry, deadlines, throttling and
// failure classification. It is safe for concurrent use.
type ResilientClient struct {
	model       Model
	retryConfig retry.RetryConfig
	deadline    time.Duration
	limiter     *rate.Limiter
	transcripts *logging.TranscriptWriter
}

// NewResilientClient creates a new resilient client around model.
func NewResilientClient(model Model, opts Options) *ResilientClient {
	if opts.OverallDeadline <= 0 {
		opts.OverallDeadline = DefaultOverallDeadline
	}
	rc := &ResilientClient{
		model:       model,
		retryConfig: opts.Retry,
		deadline:    opts.OverallDeadline,
		transcripts: opts.Transcripts,
	}
	rc.retryConfig.Retryable = Transient
	if opts.RatePerMinute > 0 {
		rc.limiter = rate.NewLimiter(rate.Limit(float64(opts.RatePerMinute)/60.0), opts.RatePerMinute)
	}
	return rc
}

// ModelName returns the underlying model's name.
func (rc *ResilientClient) ModelName() string {
	return rc.model.Name()
}

// Complete sends the prompt to the model. Each attempt is bounded by
// timeout and the whole call by the overall deadline. Transient failures
// are retried with backoff. When the client gives up the error is a
// *GenerationFailedError wrapping the classified *ProviderError. If the
// caller's context ends first its error is returned as is.
func (rc *ResilientClient) Complete(ctx context.Context, p prompts.Prompt, timeout time.Duration) (RawCompletion, error) {
	ctx, span := tracer.Start(ctx, "llm.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", rc.model.Name()),
		attribute.String("llm.prompt_key", p.Key),
		attribute.Int("llm.max_tokens", p.MaxTokens),
	)

	if err := ctx.Err(); err != nil {
		return RawCompletion{}, err
	}

	start := time.Now()
	overallCtx, cancel := context.WithTimeout(ctx, rc.deadline)
	defer cancel()

	req := Request{
		System:      p.System,
		User:        p.User,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	}

	var (
		text    string
		lastErr *ProviderError
	)
	result := retry.RetryWithBackoffAndReason(overallCtx, rc.retryConfig, func(attemptCtx context.Context) (error, string) {
		out, err := rc.attempt(attemptCtx, req, timeout)
		if err != nil {
			lastErr = Classify(err)
			return lastErr, string(lastErr.Kind)
		}
		text = out
		return nil, ""
	})

	completion := RawCompletion{
		Text:         text,
		Model:        rc.model.Name(),
		Attempts:     result.Attempts,
		Duration:     time.Since(start),
		RetryReasons: result.RetryReasons,
	}
	span.SetAttributes(attribute.Int("llm.attempts", result.Attempts))

	if result.Success {
		rc.record(ctx, p, completion, nil)
		return completion, nil
	}

	if ctx.Err() != nil {
		span.SetStatus(codes.Error, "caller cancelled")
		return RawCompletion{}, ctx.Err()
	}

	cause := lastErr
	if overallCtx.Err() != nil {
		cause = &ProviderError{Kind: KindTimeout, Err: fmt.Errorf("overall deadline %v exceeded: %w", rc.deadline, overallCtx.Err())}
	}
	if cause == nil {
		cause = Classify(result.LastError)
	}
	failed := &GenerationFailedError{Attempts: result.Attempts, Err: cause}

	zerolog.Ctx(ctx).Warn().
		Err(cause).
		Str("model", rc.model.Name()).
		Int("attempts", result.Attempts).
		Dur("duration", completion.Duration).
		Msg("Model completion failed")
	span.RecordError(failed)
	span.SetStatus(codes.Error, string(cause.Kind))
	rc.record(ctx, p, completion, failed)
	return completion, failed
}

func (rc *ResilientClient) attempt(ctx context.Context, req Request, timeout time.Duration) (string, error) {
	if rc.limiter != nil {
		if err := rc.limiter.Wait(ctx); err != nil {
			return "", &ProviderError{Kind: KindRateLimited, Err: fmt.Errorf("client throttle: %w", err)}
		}
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := rc.model.Generate(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", &ProviderError{Kind: KindTimeout, Err: err}
		}
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", &ProviderError{Kind: KindRejected, Err: errors.New("empty completion")}
	}
	return out, nil
}

func (rc *ResilientClient) record(ctx context.Context, p prompts.Prompt, c RawCompletion, err error) {
	if rc.transcripts == nil {
		return
	}
	entry := logging.TranscriptEntry{
		PromptKey: p.Key,
		Model:     c.Model,
		System:    p.System,
		User:      p.User,
		Response:  c.Text,
		Err:       err,
		Attempts:  c.Attempts,
		Duration:  c.Duration,
	}
	if werr := rc.transcripts.Record(logging.RequestID(ctx), entry); werr != nil {
		zerolog.Ctx(ctx).Debug().Err(werr).Msg("Failed to write model transcript")
	}
}
