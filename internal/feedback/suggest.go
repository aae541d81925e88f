package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartreview/internal/llm"
	"github.com/smartreview/internal/prompts"
	"github.com/smartreview/pkg/models"
)

// MaxSuggestions caps how many improvement points are kept.
const MaxSuggestions = 5

// ErrNoSuggestions is returned when a completion holds no usable bullet points.
var ErrNoSuggestions = errors.New("completion contained no suggestions")

// Completer is the model client used for suggestions.
type Completer interface {
	Complete(ctx context.Context, p prompts.Prompt, timeout time.Duration) (llm.RawCompletion, error)
}

// StoreLookup resolves store metadata for suggestion prompts.
type StoreLookup interface {
	GetStore(ctx context.Context, id string) (*models.Store, error)
}

// Suggester asks the model for improvement suggestions on a saved record
// and attaches them to it.
type Suggester struct {
	records Store
	stores  StoreLookup
	builder *prompts.Builder
	client  Completer
	timeout time.Duration
}

// NewSuggester creates a suggester. stores may be nil, in which case only
// the store id is known to the prompt.
func NewSuggester(records Store, stores StoreLookup, builder *prompts.Builder, client Completer, attemptTimeout time.Duration) *Suggester {
	return &Suggester{
		records: records,
		stores:  stores,
		builder: builder,
		client:  client,
		timeout: attemptTimeout,
	}
}

// Suggest generates and attaches the suggestion for record id. On any error
// the record is left without a suggestion.
func (s *Suggester) Suggest(ctx context.Context, id string) error {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load feedback record: %w", err)
	}

	store := &models.Store{ID: rec.StoreID}
	if s.stores != nil {
		if found, err := s.stores.GetStore(ctx, rec.StoreID); err == nil {
			store = found
		} else {
			zerolog.Ctx(ctx).Debug().Err(err).Str("store_id", rec.StoreID).Msg("Store lookup failed, suggesting without metadata")
		}
	}

	p, err := s.builder.BuildSuggestion(*store, *rec)
	if err != nil {
		return err
	}
	raw, err := s.client.Complete(ctx, p, s.timeout)
	if err != nil {
		return err
	}
	items := ParseSuggestions(raw.Text)
	if len(items) == 0 {
		return ErrNoSuggestions
	}
	return s.records.AttachSuggestion(ctx, id, strings.Join(items, "\n"))
}

// ParseSuggestions extracts bullet or numbered lines from a completion,
// stripped of their markers, keeping at most MaxSuggestions.
func ParseSuggestions(text string) []string {
	out := make([]string, 0, MaxSuggestions)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		item, ok := stripMarker(line)
		if !ok || item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

func stripMarker(line string) (string, bool) {
	for _, m := range []string{"- ", "* ", "• ", "・"} {
		if strings.HasPrefix(line, m) {
			return strings.TrimSpace(line[len(m):]), true
		}
	}
	// "1. " or "1) "
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:]), true
	}
	return "", false
}
