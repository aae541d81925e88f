package prompts

import (
	"fmt"
	"strings"

	"github.com/smartreview/internal/routing"
	"github.com/smartreview/pkg/models"
)

// FallbackReview writes a templated review without calling a model. The
// result depends only on the rating, tone, locale, aspects and store name.
func (b *Builder) FallbackReview(req models.GenerationRequest) (title, text string, err error) {
	sub := req.Submission
	loc, err := ResolveLocale(sub.Locale)
	if err != nil {
		return "", "", err
	}
	tone, err := ResolveTone(sub.DesiredTone)
	if err != nil {
		return "", "", err
	}

	p := loc.fallback
	idx := 2
	if b.router.Classify(sub.Rating) == models.ReviewPositive {
		idx = 1
		if sub.Rating == routing.MaxRating {
			idx = 0
		}
	}

	name := strings.TrimSpace(req.Store.Name)
	if name == "" {
		name = p.genericName
	}

	sentences := []string{fmt.Sprintf(p.openings[idx], name)}
	if aspects := sub.NormalizedAspects(); len(aspects) > 0 {
		sentences = append(sentences, fmt.Sprintf(p.aspects, loc.JoinList(aspects)))
	}
	sentences = append(sentences, p.closings[tone])

	return p.titles[idx], strings.Join(sentences, p.sentenceSep), nil
}
