package review

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smartreview/internal/prompts"
	"github.com/smartreview/pkg/models"
)

// fingerprintFields is the canonical form hashed into a fingerprint. Field
// order is fixed by the struct, so the encoding is stable.
type fingerprintFields struct {
	StoreID  string   `json:"store_id"`
	Rating   int      `json:"rating"`
	Aspects  []string `json:"aspects"`
	FreeText string   `json:"free_text"`
	Locale   string   `json:"locale"`
	Tone     string   `json:"tone"`
	Length   string   `json:"length"`
}

// Fingerprint identifies a semantically distinct generation request. Aspect
// order and duplicates, surrounding whitespace and locale region suffixes do
// not affect it; every other field does. Invalid tone, locale or length
// values are rejected.
func Fingerprint(req models.GenerationRequest) (string, error) {
	sub := req.Submission
	loc, err := prompts.ResolveLocale(sub.Locale)
	if err != nil {
		return "", err
	}
	tone, err := prompts.ResolveTone(sub.DesiredTone)
	if err != nil {
		return "", err
	}
	length, err := prompts.ResolveLength(sub.DesiredLength)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(fingerprintFields{
		StoreID:  strings.TrimSpace(sub.StoreID),
		Rating:   sub.Rating,
		Aspects:  sub.NormalizedAspects(),
		FreeText: strings.TrimSpace(sub.FreeText),
		Locale:   loc.Code,
		Tone:     string(tone),
		Length:   string(length),
	})
	if err != nil {
		return "", fmt.Errorf("encode fingerprint: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
