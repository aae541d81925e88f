package llm

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartreview/internal/logging"
	"github.com/smartreview/internal/prompts"
	"github.com/smartreview/internal/retry"
)

type step struct {
	out   string
	err   error
	delay time.Duration
}

// scriptedModel replays steps in order and repeats the last one.
type scriptedModel struct {
	mu    sync.Mutex
	steps []step
	calls int
	last  Request
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	s := m.steps[min(m.calls, len(m.steps)-1)]
	m.calls++
	m.last = req
	m.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.out, s.err
}

func (m *scriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testOptions() Options {
	return Options{
		Retry: retry.RetryConfig{
			MaxRetries: 3,
			BaseDelay:  5 * time.Millisecond,
			MaxDelay:   20 * time.Millisecond,
			Multiplier: 2,
		},
		OverallDeadline: 2 * time.Second,
	}
}

func testPrompt() prompts.Prompt {
	return prompts.Prompt{Key: prompts.KeyReview, System: "sys", User: "write", MaxTokens: 300, Temperature: 0.7}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 3, opts.Retry.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, opts.Retry.BaseDelay)
	assert.Equal(t, DefaultOverallDeadline, opts.OverallDeadline)
	assert.Zero(t, opts.RatePerMinute)
}

func TestComplete_Success(t *testing.T) {
	m := &scriptedModel{steps: []step{{out: `{"title":"t","review":"r"}`}}}
	c := NewResilientClient(m, testOptions())

	got, err := c.Complete(context.Background(), testPrompt(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"t","review":"r"}`, got.Text)
	assert.Equal(t, "scripted", got.Model)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, Request{System: "sys", User: "write", MaxTokens: 300, Temperature: 0.7}, m.last)
}

func TestComplete_RetriesTransientThenSucceeds(t *testing.T) {
	m := &scriptedModel{steps: []step{
		{err: errors.New("API returned unexpected status code: 429: Rate limit reached")},
		{err: &ProviderError{Kind: KindTimeout, Err: errors.New("slow")}},
		{out: "fine"},
	}}
	c := NewResilientClient(m, testOptions())

	got, err := c.Complete(context.Background(), testPrompt(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "fine", got.Text)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, []string{string(KindRateLimited), string(KindTimeout)}, got.RetryReasons)
}

func TestComplete_GivesUpAfterThreeRetries(t *testing.T) {
	m := &scriptedModel{steps: []step{{err: errors.New("503 service unavailable: request timeout")}}}
	c := NewResilientClient(m, testOptions())

	_, err := c.Complete(context.Background(), testPrompt(), time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, ErrProviderTimeout)
	assert.Equal(t, 4, m.Calls())

	var failed *GenerationFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, 4, failed.Attempts)
}

func TestComplete_NonTransientIsNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rejected", errors.New("400 Bad Request: invalid max_tokens"), ErrProviderRejected},
		{"unavailable", errors.New("dial tcp: connection refused"), ErrProviderUnavailable},
		{"refused on a port with status-like digits", errors.New("dial tcp 10.0.0.7:4290: connect: connection refused"), ErrProviderUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &scriptedModel{steps: []step{{err: tt.err}}}
			c := NewResilientClient(m, testOptions())

			_, err := c.Complete(context.Background(), testPrompt(), time.Second)
			assert.ErrorIs(t, err, ErrGenerationFailed)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, m.Calls())
		})
	}
}

func TestComplete_EmptyCompletionIsRejected(t *testing.T) {
	m := &scriptedModel{steps: []step{{out: "   "}}}
	c := NewResilientClient(m, testOptions())

	_, err := c.Complete(context.Background(), testPrompt(), time.Second)
	assert.ErrorIs(t, err, ErrProviderRejected)
	assert.Equal(t, 1, m.Calls())
}

func TestComplete_PerAttemptTimeout(t *testing.T) {
	m := &scriptedModel{steps: []step{{delay: time.Second, out: "late"}, {out: "on time"}}}
	c := NewResilientClient(m, testOptions())

	got, err := c.Complete(context.Background(), testPrompt(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "on time", got.Text)
	assert.Equal(t, []string{string(KindTimeout)}, got.RetryReasons)
}

func TestComplete_OverallDeadline(t *testing.T) {
	m := &scriptedModel{steps: []step{{delay: time.Second, out: "late"}}}
	opts := testOptions()
	opts.OverallDeadline = 60 * time.Millisecond
	c := NewResilientClient(m, opts)

	start := time.Now()
	_, err := c.Complete(context.Background(), testPrompt(), 0)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, ErrProviderTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestComplete_CallerCancellation(t *testing.T) {
	m := &scriptedModel{steps: []step{{delay: time.Second, out: "late"}}}
	c := NewResilientClient(m, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Complete(ctx, testPrompt(), 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrGenerationFailed)

	_, err = c.Complete(ctx, testPrompt(), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComplete_RateLimiterAllowsBurst(t *testing.T) {
	m := &scriptedModel{steps: []step{{out: "ok"}}}
	opts := testOptions()
	opts.RatePerMinute = 5
	c := NewResilientClient(m, opts)

	for i := 0; i < 5; i++ {
		_, err := c.Complete(context.Background(), testPrompt(), time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, m.Calls())
}

func TestComplete_WritesTranscript(t *testing.T) {
	dir := t.TempDir()
	w, err := logging.NewTranscriptWriter(dir)
	require.NoError(t, err)

	m := &scriptedModel{steps: []step{{out: "transcribed"}}}
	opts := testOptions()
	opts.Transcripts = w
	c := NewResilientClient(m, opts)

	_, err = c.Complete(context.Background(), testPrompt(), time.Second)
	require.NoError(t, err)

	data, err := os.ReadFile(w.Path(""))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "transcribed"))
}
