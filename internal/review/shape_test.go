package review

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartreview/pkg/models"
)

func TestTruncate_UnderLimitUnchanged(t *testing.T) {
	out, cut := Truncate("Short and sweet.", 100)
	assert.Equal(t, "Short and sweet.", out)
	assert.False(t, cut)
}

func TestTruncate_NeverMidWordAndWithinLimit(t *testing.T) {
	text := "Friendly staff and quick service made the evening. " +
		"The tonkotsu broth was deep and rich, the noodles had real bite and the gyoza were crisp. " +
		"Would come again without hesitation because everything about it was lovely"
	for limit := 10; limit < utf8.RuneCountInString(text); limit += 7 {
		out, cut := Truncate(text, limit)
		require.True(t, cut)
		assert.LessOrEqual(t, utf8.RuneCountInString(out), limit)
		assert.True(t, strings.HasPrefix(text, out), "limit %d: %q is not a prefix", limit, out)

		next, _ := utf8.DecodeRuneInString(text[len(out):])
		last, _ := utf8.DecodeLastRuneInString(out)
		endsSentence := strings.ContainsRune(".!?", last)
		assert.True(t, unicode.IsSpace(next) || endsSentence || !unicode.IsLetter(next),
			"limit %d: cut mid-word at %q|%q", limit, out, text[len(out):])
	}
}

func TestTruncate_PrefersSentenceBoundary(t *testing.T) {
	text := "First sentence here. Second sentence is quite a bit longer than the first."
	out, cut := Truncate(text, 40)
	assert.True(t, cut)
	assert.Equal(t, "First sentence here.", out)
}

func TestTruncate_WordBoundaryWithoutSentence(t *testing.T) {
	out, cut := Truncate("alpha beta, gamma delta epsilon", 17)
	assert.True(t, cut)
	assert.Equal(t, "alpha beta, gamma", out)

	out, _ = Truncate("alpha beta, gamma delta epsilon", 12)
	assert.Equal(t, "alpha beta", out)
}

func TestTruncate_SpacelessScript(t *testing.T) {
	text := "ラーメンがとても美味しかったです。店員さんも親切でした。また行きたいと思います。"
	out, cut := Truncate(text, 25)
	assert.True(t, cut)
	assert.Equal(t, "ラーメンがとても美味しかったです。", out)

	out, cut = Truncate("とても美味しいラーメン屋さん", 5)
	assert.True(t, cut)
	assert.Equal(t, 5, utf8.RuneCountInString(out))
}

func TestNormalizeText(t *testing.T) {
	in := "  Great   place.\r\n\r\n\r\nWould  return \n soon.  "
	assert.Equal(t, "Great place.\n\nWould return soon.", NormalizeText(in))
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 4, CountWords("one two  three\nfour", false))
	assert.Equal(t, 4, CountWords("美味しい。", true))
}

func TestKeywordsUsed(t *testing.T) {
	used := KeywordsUsed("Best RAMEN in shibuya, hands down.", []string{"Shibuya", "tonkotsu", "ramen"})
	assert.Equal(t, []string{"Shibuya", "ramen"}, used)
	assert.Empty(t, KeywordsUsed("nothing", nil))
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := scenarioA()
	b := scenarioA()
	b.Submission.SelectedAspects = []string{"Service Speed", " Food Quality", "Service Speed"}
	b.Submission.Locale = "en-US"
	b.Store.Name = "renamed"

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
}

func TestFingerprint_EveryFieldMatters(t *testing.T) {
	base, err := Fingerprint(scenarioA())
	require.NoError(t, err)

	mutations := map[string]func(*models.Submission){
		"store":   func(s *models.Submission) { s.StoreID = "store-2" },
		"rating":  func(s *models.Submission) { s.Rating = 4 },
		"aspects": func(s *models.Submission) { s.SelectedAspects = []string{"Food Quality"} },
		"text":    func(s *models.Submission) { s.FreeText = "the gyoza" },
		"locale":  func(s *models.Submission) { s.Locale = "ja" },
		"tone":    func(s *models.Submission) { s.DesiredTone = models.ToneCasual },
		"length":  func(s *models.Submission) { s.DesiredLength = models.LengthLong },
	}
	for name, mutate := range mutations {
		req := scenarioA()
		mutate(&req.Submission)
		fp, err := Fingerprint(req)
		require.NoError(t, err, name)
		assert.NotEqual(t, base, fp, name)
	}
}

func TestFingerprint_RejectsUnknownTone(t *testing.T) {
	req := scenarioA()
	req.Submission.DesiredTone = "grumpy"
	_, err := Fingerprint(req)
	assert.ErrorIs(t, err, models.ErrValidation)
}
