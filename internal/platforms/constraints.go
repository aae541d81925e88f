package platforms

import (
	"sort"
	"strings"

	"github.com/smartreview/pkg/models"
)

// DefaultMaxChars bounds review text when a store has no known platform.
const DefaultMaxChars = 4096

var limits = []models.PlatformLimit{
	{PlatformName: "google", MaxChars: 4096, ToneNorm: "conversational, first person, specific details"},
	{PlatformName: "yelp", MaxChars: 5000, ToneNorm: "descriptive, personal experience, balanced"},
	{PlatformName: "tripadvisor", MaxChars: 20000, ToneNorm: "travel-oriented, detailed, practical tips"},
	{PlatformName: "facebook", MaxChars: 5000, ToneNorm: "casual, friendly recommendation"},
	{PlatformName: "booking", MaxChars: 2000, ToneNorm: "concise, stay-focused"},
	{PlatformName: "hotpepper", MaxChars: 1000, ToneNorm: "polite, concise, service-focused"},
	{PlatformName: "tabelog", MaxChars: 2000, ToneNorm: "food-focused, detailed, polite"},
}

var byName = func() map[string]models.PlatformLimit {
	m := make(map[string]models.PlatformLimit, len(limits))
	for _, l := range limits {
		m[l.PlatformName] = l
	}
	return m
}()

// Lookup returns the limit for a platform name, case-insensitively.
func Lookup(name string) (models.PlatformLimit, bool) {
	l, ok := byName[normalize(name)]
	return l, ok
}

// All returns a copy of the table sorted by platform name.
func All() []models.PlatformLimit {
	out := make([]models.PlatformLimit, len(limits))
	copy(out, limits)
	sort.Slice(out, func(i, j int) bool { return out[i].PlatformName < out[j].PlatformName })
	return out
}

// Tightest returns the most restrictive limit among the named platforms.
// Unknown names are ignored. When none are known the result carries
// DefaultMaxChars and an empty platform name.
func Tightest(names []string) models.PlatformLimit {
	best := models.PlatformLimit{MaxChars: DefaultMaxChars}
	found := false
	for _, n := range names {
		l, ok := Lookup(n)
		if !ok {
			continue
		}
		if !found || l.MaxChars < best.MaxChars {
			best = l
			found = true
		}
	}
	return best
}

// ForStore returns the tightest limit across a store's active platforms.
func ForStore(store *models.Store) models.PlatformLimit {
	active := store.ActivePlatforms()
	names := make([]string, 0, len(active))
	for _, p := range active {
		names = append(names, p.Name)
	}
	return Tightest(names)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
