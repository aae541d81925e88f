package prompts

import (
	"strings"

	"github.com/smartreview/pkg/models"
)

// Locale holds the language-specific pieces used to build prompts and
// fallback reviews.
type Locale struct {
	Code     string
	Language string

	// listSep joins all but the last two items, lastSep joins the final pair.
	listSep string
	lastSep string

	// CharsPerWord approximates how many characters one counted word spans,
	// including separators. For scripts written without spaces a word is
	// counted per character.
	CharsPerWord  float64
	TokensPerWord float64
	Spaceless     bool

	toneNotes map[models.Tone]string
	fallback  fallbackPhrases
}

type fallbackPhrases struct {
	sentenceSep string
	genericName string
	titles      [3]string // rating 5, rating 4, below 4
	openings    [3]string // %s is the store name
	aspects     string    // %s is the aspect list
	closings    map[models.Tone]string
}

var locales = map[string]*Locale{
	"en": {
		Code: "en", Language: "English",
		listSep: ", ", lastSep: " and ",
		CharsPerWord: 6, TokensPerWord: 1.4,
		fallback: fallbackPhrases{
			sentenceSep: " ",
			genericName: "this place",
			titles:      [3]string{"An excellent visit", "A great visit", "A solid visit"},
			openings: [3]string{
				"I had a wonderful experience at %s.",
				"I had a really good experience at %s.",
				"My visit to %s was a decent experience.",
			},
			aspects: "The %s stood out in particular.",
			closings: map[models.Tone]string{
				models.ToneFriendly:     "I'd happily recommend it to friends.",
				models.ToneProfessional: "I recommend this business without reservation.",
				models.ToneCasual:       "Definitely worth a visit.",
				models.ToneEnthusiastic: "I can't wait to come back!",
			},
		},
	},
	"ja": {
		Code: "ja", Language: "Japanese",
		listSep: "、", lastSep: "、",
		CharsPerWord: 1, TokensPerWord: 1.5, Spaceless: true,
		toneNotes: map[models.Tone]string{
			models.ToneProfessional: "Use polite desu/masu form throughout.",
			models.ToneFriendly:     "Use polite but warm desu/masu form.",
			models.ToneCasual:       "Plain form is fine, keep it natural.",
		},
		fallback: fallbackPhrases{
			sentenceSep: "",
			genericName: "このお店",
			titles:      [3]string{"最高の体験でした", "とても良いお店です", "利用しました"},
			openings: [3]string{
				"%sで素晴らしい体験をしました。",
				"%sでとても良い時間を過ごせました。",
				"%sを利用しました。",
			},
			aspects: "特に%sが印象的でした。",
			closings: map[models.Tone]string{
				models.ToneFriendly:     "友人にもぜひおすすめしたいです。",
				models.ToneProfessional: "自信を持っておすすめできるお店です。",
				models.ToneCasual:       "また気軽に行きたいです。",
				models.ToneEnthusiastic: "また絶対に行きます！",
			},
		},
	},
	"es": {
		Code: "es", Language: "Spanish",
		listSep: ", ", lastSep: " y ",
		CharsPerWord: 6, TokensPerWord: 1.8,
		toneNotes: map[models.Tone]string{
			models.ToneProfessional: "Use a formal register.",
		},
		fallback: fallbackPhrases{
			sentenceSep: " ",
			genericName: "este lugar",
			titles:      [3]string{"Una visita excelente", "Una muy buena visita", "Una visita correcta"},
			openings: [3]string{
				"Tuve una experiencia maravillosa en %s.",
				"Tuve una muy buena experiencia en %s.",
				"Mi visita a %s fue correcta.",
			},
			aspects: "Destacaría especialmente: %s.",
			closings: map[models.Tone]string{
				models.ToneFriendly:     "Se lo recomendaría a mis amigos.",
				models.ToneProfessional: "Lo recomiendo sin reservas.",
				models.ToneCasual:       "Vale la pena pasarse.",
				models.ToneEnthusiastic: "¡Estoy deseando volver!",
			},
		},
	},
	"fr": {
		Code: "fr", Language: "French",
		listSep: ", ", lastSep: " et ",
		CharsPerWord: 6.5, TokensPerWord: 1.8,
		toneNotes: map[models.Tone]string{
			models.ToneProfessional: "Use the formal vous register.",
		},
		fallback: fallbackPhrases{
			sentenceSep: " ",
			genericName: "cet établissement",
			titles:      [3]string{"Une visite excellente", "Une très bonne visite", "Une visite correcte"},
			openings: [3]string{
				"J'ai passé un moment merveilleux chez %s.",
				"J'ai passé un très bon moment chez %s.",
				"Ma visite chez %s était correcte.",
			},
			aspects: "J'ai particulièrement apprécié : %s.",
			closings: map[models.Tone]string{
				models.ToneFriendly:     "Je le recommanderais volontiers à mes amis.",
				models.ToneProfessional: "Je le recommande sans réserve.",
				models.ToneCasual:       "Ça vaut le détour.",
				models.ToneEnthusiastic: "J'ai hâte d'y retourner !",
			},
		},
	},
	"de": {
		Code: "de", Language: "German",
		listSep: ", ", lastSep: " und ",
		CharsPerWord: 7, TokensPerWord: 2,
		toneNotes: map[models.Tone]string{
			models.ToneProfessional: "Use the formal Sie register.",
		},
		fallback: fallbackPhrases{
			sentenceSep: " ",
			genericName: "diesem Geschäft",
			titles:      [3]string{"Ein hervorragender Besuch", "Ein sehr guter Besuch", "Ein ordentlicher Besuch"},
			openings: [3]string{
				"Ich hatte ein wunderbares Erlebnis bei %s.",
				"Ich hatte ein sehr gutes Erlebnis bei %s.",
				"Mein Besuch bei %s war in Ordnung.",
			},
			aspects: "Besonders gefallen hat mir: %s.",
			closings: map[models.Tone]string{
				models.ToneFriendly:     "Ich würde es Freunden gerne weiterempfehlen.",
				models.ToneProfessional: "Ich kann es uneingeschränkt empfehlen.",
				models.ToneCasual:       "Einen Besuch auf jeden Fall wert.",
				models.ToneEnthusiastic: "Ich komme auf jeden Fall wieder!",
			},
		},
	},
}

// DefaultLocale is used when a submission carries no locale at all.
const DefaultLocale = "en"

// ResolveLocale maps a locale tag such as "en-US" or "ja_JP" to a supported
// locale. An empty tag resolves to DefaultLocale; an unknown one fails.
func ResolveLocale(tag string) (*Locale, error) {
	code := strings.ToLower(strings.TrimSpace(tag))
	if code == "" {
		code = DefaultLocale
	}
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	l, ok := locales[code]
	if !ok {
		return nil, &models.UnsupportedLocaleError{Locale: tag}
	}
	return l, nil
}

// SupportedLocales lists the locale codes that have templates.
func SupportedLocales() []string {
	return []string{"de", "en", "es", "fr", "ja"}
}

// JoinList renders items as a natural-language list, e.g. "a, b and c".
func (l *Locale) JoinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], l.listSep) + l.lastSep + items[len(items)-1]
}

func (l *Locale) toneNote(t models.Tone) string {
	return l.toneNotes[t]
}
