package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// addressTokens maps lower-case street words to the abbreviation used for
// comparison. Matching is per whitespace token, so it only ever sees
// preprocessed text. The pipeline keeps its own display-oriented table.
var addressTokens = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"av":        "ave",
	"road":      "rd",
	"drive":     "dr",
	"lane":      "ln",
	"court":     "ct",
	"circle":    "cir",
	"boulevard": "blvd",
	"place":     "pl",
	"terrace":   "ter",
	"parkway":   "pkwy",
	"highway":   "hwy",
	"square":    "sq",
	"trail":     "trl",
	"way":       "wy",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
	"northeast": "ne",
	"northwest": "nw",
	"southeast": "se",
	"southwest": "sw",
	"apartment": "apt",
	"suite":     "ste",
	"building":  "bldg",
	"floor":     "fl",
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// Preprocess applies the matcher's configured normalization to s.
func (m *Matcher) Preprocess(s string) string {
	if !m.caseSensitive {
		s = strings.ToLower(foldAccents(s))
	}
	if m.ignoreSpecialChars {
		s = nonWord.ReplaceAllString(s, "")
	}
	fields := strings.Fields(s)
	if m.normalizeAddresses {
		// Case-sensitive matchers only rewrite tokens already in table case.
		for i, f := range fields {
			if abbr, ok := addressTokens[f]; ok {
				fields[i] = abbr
			}
		}
	}
	return strings.Join(fields, " ")
}

// foldAccents strips combining marks so "Peña" and "Pena" compare equal.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
