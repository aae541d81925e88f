package feedback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrDispatcherBusy is returned when the inline dispatcher has no free slot.
var ErrDispatcherBusy = errors.New("suggestion dispatcher is at capacity")

// ErrDispatcherClosed is returned after Close.
var ErrDispatcherClosed = errors.New("suggestion dispatcher is closed")

// Dispatcher schedules suggestion generation for a saved record. Dispatch
// must not wait for the suggestion itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, recordID string) error
}

// InlineDispatcher runs suggestions in goroutines of this process, at most
// maxConcurrent at a time.
type InlineDispatcher struct {
	suggester *Suggester
	timeout   time.Duration
	sem       chan struct{}

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewInlineDispatcher bounds each suggestion by timeout.
func NewInlineDispatcher(s *Suggester, maxConcurrent int, timeout time.Duration) *InlineDispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &InlineDispatcher{
		suggester: s,
		timeout:   timeout,
		sem:       make(chan struct{}, maxConcurrent),
	}
}

// Dispatch starts the suggestion in the background. The work outlives ctx
// but keeps its logger.
func (d *InlineDispatcher) Dispatch(ctx context.Context, recordID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.sem <- struct{}{}:
	default:
		return ErrDispatcherBusy
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.sem }()

		workCtx := context.WithoutCancel(ctx)
		if d.timeout > 0 {
			var cancel context.CancelFunc
			workCtx, cancel = context.WithTimeout(workCtx, d.timeout)
			defer cancel()
		}
		logger := zerolog.Ctx(ctx)
		if err := d.suggester.Suggest(workCtx, recordID); err != nil {
			logger.Warn().Err(err).Str("feedback_id", recordID).Msg("Improvement suggestion failed, record kept without it")
			return
		}
		logger.Debug().Str("feedback_id", recordID).Msg("Improvement suggestion attached")
	}()
	return nil
}

// Close stops accepting work and waits for running suggestions, or until
// ctx ends.
func (d *InlineDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
