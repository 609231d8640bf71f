// Package fuzzy provides approximate string comparison for linking property
// records that refer to the same parcel, owner, or address despite textual
// differences.
package fuzzy

import (
	"sort"
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

const (
	// DefaultMatchThreshold is the instance threshold used by IsMatch.
	DefaultMatchThreshold = 0.8
	// DefaultSearchThreshold is used by FindBestMatch and FindAllMatches
	// when the caller passes a non-positive threshold.
	DefaultSearchThreshold = 0.7
)

// ScoreFunc scores two preprocessed strings in [0,1].
type ScoreFunc func(a, b string) float64

// Match is one scored candidate.
type Match struct {
	Value string  `json:"value"`
	Score float64 `json:"score"`
	Index int     `json:"index"`
}

// Matcher compares strings after configurable preprocessing.
type Matcher struct {
	threshold          float64
	caseSensitive      bool
	ignoreSpecialChars bool
	normalizeAddresses bool
	scorer             ScoreFunc
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold sets the threshold IsMatch uses.
func WithThreshold(t float64) Option {
	return func(m *Matcher) {
		if t > 0 {
			m.threshold = t
		}
	}
}

// WithCaseSensitive disables case and accent folding.
func WithCaseSensitive(on bool) Option {
	return func(m *Matcher) { m.caseSensitive = on }
}

// WithIgnoreSpecialChars toggles stripping characters that are neither word
// characters nor whitespace.
func WithIgnoreSpecialChars(on bool) Option {
	return func(m *Matcher) { m.ignoreSpecialChars = on }
}

// WithNormalizeAddresses toggles street-suffix and directional abbreviation.
func WithNormalizeAddresses(on bool) Option {
	return func(m *Matcher) { m.normalizeAddresses = on }
}

// WithScorer replaces the default Levenshtein similarity.
func WithScorer(fn ScoreFunc) Option {
	return func(m *Matcher) {
		if fn != nil {
			m.scorer = fn
		}
	}
}

// New creates a Matcher. Defaults: threshold 0.8, case-insensitive, special
// characters stripped, addresses normalized, Levenshtein similarity.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		threshold:          DefaultMatchThreshold,
		ignoreSpecialChars: true,
		normalizeAddresses: true,
		scorer:             Similarity,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the instance threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Compare returns the similarity of s1 and s2 in [0,1]. Identical non-empty
// inputs always score 1; an input that is empty after preprocessing scores 0.
func (m *Matcher) Compare(s1, s2 string) float64 {
	if s1 != "" && s1 == s2 {
		return 1
	}
	a, b := m.Preprocess(s1), m.Preprocess(s2)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return clamp(m.scorer(a, b))
}

// IsMatch reports whether s1 and s2 score at or above the instance threshold.
func (m *Matcher) IsMatch(s1, s2 string) bool {
	return m.Compare(s1, s2) >= m.threshold
}

// FindBestMatch scans haystack and returns the highest-scoring candidate at
// or above threshold, preferring the first on ties. A non-positive threshold
// means DefaultSearchThreshold. Returns nil when nothing qualifies.
func (m *Matcher) FindBestMatch(needle string, haystack []string, threshold float64) *Match {
	if needle == "" || len(haystack) == 0 {
		return nil
	}
	threshold = searchThreshold(threshold)

	var best *Match
	for i, candidate := range haystack {
		score := m.Compare(needle, candidate)
		if score < threshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &Match{Value: candidate, Score: score, Index: i}
		}
	}
	return best
}

// FindAllMatches returns every candidate at or above threshold, sorted by
// descending score. Equal scores keep input order.
func (m *Matcher) FindAllMatches(query string, choices []string, threshold float64) []Match {
	if query == "" || len(choices) == 0 {
		return nil
	}
	threshold = searchThreshold(threshold)

	var out []Match
	for i, c := range choices {
		if score := m.Compare(query, c); score >= threshold {
			out = append(out, Match{Value: c, Score: score, Index: i})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Levenshtein returns the edit distance between a and b in runes.
func Levenshtein(a, b string) int {
	return levenshtein.Distance(a, b, nil)
}

// Similarity is 1 - distance/max(len(a), len(b)), measured in runes.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(longest)
}

func searchThreshold(t float64) float64 {
	if t <= 0 {
		return DefaultSearchThreshold
	}
	return t
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
