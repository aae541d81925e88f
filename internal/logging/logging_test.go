package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRespectsLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", Format: "json", Output: &buf})

	l.Info().Msg("hidden")
	l.Warn().Str("k", "v").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"k":"v"`)
	assert.Contains(t, out, `"message":"shown"`)
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	l := New(Options{Level: "chatty", Output: &bytes.Buffer{}})
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}

func TestWithRequest(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Level: "debug", Output: &buf})

	ctx := WithRequest(context.Background(), base, "generate", "fp-123")
	assert.Equal(t, "fp-123", RequestID(ctx))
	assert.Equal(t, "", RequestID(context.Background()))

	zerolog.Ctx(ctx).Info().Msg("hello")
	assert.Contains(t, buf.String(), `"request_id":"fp-123"`)
	assert.Contains(t, buf.String(), `"request_kind":"generate"`)
}

func TestTranscriptWriter(t *testing.T) {
	w, err := NewTranscriptWriter(t.TempDir())
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, w.Record("req/1", TranscriptEntry{
		PromptKey: "review", Model: "gpt-test", System: "sys", User: "user prompt", Response: `{"review":"ok"}`, Attempts: 2,
	}))
	require.NoError(t, w.Record("req/1", TranscriptEntry{PromptKey: "review", Err: errors.New("boom")}))

	data, err := os.ReadFile(w.Path("req/1"))
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, "[2026-01-02 03:04:05.000]")
	assert.Contains(t, body, "Model: gpt-test")
	assert.Contains(t, body, "--- PROMPT ---\nuser prompt")
	assert.Contains(t, body, `{"review":"ok"}`)
	assert.Contains(t, body, "--- ERROR ---\nboom")
	assert.Contains(t, w.Path("req/1"), "transcript_req_1.log")
}

func TestNilTranscriptWriterIsNoop(t *testing.T) {
	var w *TranscriptWriter
	assert.NoError(t, w.Record("x", TranscriptEntry{}))
}
