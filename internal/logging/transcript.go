package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TranscriptEntry is one model exchange written to a transcript file.
type TranscriptEntry struct {
	PromptKey string
	Model     string
	System    string
	User      string
	Response  string
	Err       error
	Attempts  int
	Duration  time.Duration
}

// TranscriptWriter appends prompt and response exchanges to one file per
// request id under a directory. A nil writer discards everything.
type TranscriptWriter struct {
	dir   string
	mutex sync.Mutex
	now   func() time.Time
}

// NewTranscriptWriter creates dir if needed.
func NewTranscriptWriter(dir string) (*TranscriptWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}
	return &TranscriptWriter{dir: dir, now: time.Now}, nil
}

// Path returns the transcript file used for a request id.
func (w *TranscriptWriter) Path(requestID string) string {
	if requestID == "" {
		requestID = "anonymous"
	}
	return filepath.Join(w.dir, "transcript_"+sanitizeFileName(requestID)+".log")
}

// Record appends an entry to the request's transcript.
func (w *TranscriptWriter) Record(requestID string, e TranscriptEntry) error {
	if w == nil {
		return nil
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()

	f, err := os.OpenFile(w.Path(requestID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", w.now().Format("2006-01-02 15:04:05.000"), repeat("=", 60))
	fmt.Fprintf(&b, "Prompt: %s\nModel: %s\nAttempts: %d\nDuration: %v\n", e.PromptKey, e.Model, e.Attempts, e.Duration.Round(time.Millisecond))
	b.WriteString("--- SYSTEM ---\n" + e.System + "\n")
	b.WriteString("--- PROMPT ---\n" + e.User + "\n")
	if e.Err != nil {
		b.WriteString("--- ERROR ---\n" + e.Err.Error() + "\n")
	} else {
		b.WriteString("--- RESPONSE ---\n" + e.Response + "\n")
	}

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

func repeat(s string, n int) string {
	return strings.Repeat(s, n)
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
