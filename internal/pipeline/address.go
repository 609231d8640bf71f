package pipeline

import (
	"regexp"
	"strings"
)

type abbreviation struct {
	pattern *regexp.Regexp
	replace string
}

// addressAbbreviations is applied in order to the street line. Entries match
// whole words, case-insensitively, and emit the USPS abbreviation in upper
// case.
var addressAbbreviations = buildAbbreviations([][2]string{
	{"STREET", "ST"},
	{"AVENUE", "AVE"},
	{"BOULEVARD", "BLVD"},
	{"DRIVE", "DR"},
	{"ROAD", "RD"},
	{"LANE", "LN"},
	{"COURT", "CT"},
	{"PLACE", "PL"},
	{"CIRCLE", "CIR"},
	{"HIGHWAY", "HWY"},
	{"PARKWAY", "PKWY"},
	{"TERRACE", "TER"},
	{"TRAIL", "TRL"},
	{"SQUARE", "SQ"},
	{"NORTHEAST", "NE"},
	{"NORTHWEST", "NW"},
	{"SOUTHEAST", "SE"},
	{"SOUTHWEST", "SW"},
	{"NORTH", "N"},
	{"SOUTH", "S"},
	{"EAST", "E"},
	{"WEST", "W"},
	{"APARTMENT", "APT"},
	{"SUITE", "STE"},
	{"BUILDING", "BLDG"},
	{"FLOOR", "FL"},
	{"ROOM", "RM"},
})

func buildAbbreviations(pairs [][2]string) []abbreviation {
	out := make([]abbreviation, len(pairs))
	for i, p := range pairs {
		out[i] = abbreviation{
			pattern: regexp.MustCompile(`(?i)\b` + p[0] + `\b`),
			replace: p[1],
		}
	}
	return out
}

// NormalizeAddress abbreviates street types, directionals and unit
// designators and collapses whitespace. Words not in the table keep their
// original case.
func NormalizeAddress(address string) string {
	out := strings.Join(strings.Fields(address), " ")
	for _, a := range addressAbbreviations {
		out = a.pattern.ReplaceAllLiteralString(out, a.replace)
	}
	return out
}

// AddressParts is a one-line address split into its components.
type AddressParts struct {
	Street string
	City   string
	State  string
	Zip    string
}

var zipTail = regexp.MustCompile(`\s*(\d{5}(?:-\d{4})?)$`)

// ParseCompositeAddress splits "street, city, ST zip" style lines. The state
// may be a two-letter code or a full name and is returned as the upper-case
// code. Parts that cannot be identified are left empty.
func ParseCompositeAddress(line string) AddressParts {
	var parts []string
	for _, p := range strings.Split(line, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return AddressParts{}
	}

	out := AddressParts{Street: parts[0]}
	rest := parts[1:]
	if len(rest) == 0 {
		return out
	}

	last := rest[len(rest)-1]
	if m := zipTail.FindStringSubmatchIndex(last); m != nil {
		out.Zip = last[m[2]:m[3]]
		last = strings.TrimSpace(last[:m[0]])
	}
	rest[len(rest)-1] = last
	// "ST, 12345" puts the state in its own segment.
	if last == "" && len(rest) > 1 {
		rest = rest[:len(rest)-1]
		last = rest[len(rest)-1]
	}
	if state, remaining, ok := splitTrailingState(last); ok {
		out.State = state
		rest[len(rest)-1] = remaining
	}

	// Segments between the street and the city are unit designators.
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] != "" {
			out.City = rest[i]
			break
		}
	}
	return out
}

// splitTrailingState detects a state code or name at the end of s and
// returns it with the text before it.
func splitTrailingState(s string) (code, remaining string, ok bool) {
	words := strings.Fields(s)
	// Longest state names ("district of columbia") are three words.
	for n := min(3, len(words)); n >= 1; n-- {
		candidate := strings.ToLower(strings.Join(words[len(words)-n:], " "))
		if n == 1 {
			if _, isCode := abbrToState[candidate]; isCode {
				return strings.ToUpper(candidate), strings.Join(words[:len(words)-n], " "), true
			}
		}
		if abbr, isName := stateToAbbr[candidate]; isName {
			return strings.ToUpper(abbr), strings.Join(words[:len(words)-n], " "), true
		}
	}
	return "", s, false
}

// NormalizeState returns the two-letter code for a state code or name, or
// the trimmed input when it is neither.
func NormalizeState(state string) string {
	lower := strings.ToLower(strings.TrimSpace(state))
	if _, ok := abbrToState[lower]; ok {
		return strings.ToUpper(lower)
	}
	if abbr, ok := stateToAbbr[lower]; ok {
		return strings.ToUpper(abbr)
	}
	return strings.TrimSpace(state)
}

// abbrToState maps lowercase state abbreviations to lowercase full names.
var abbrToState = map[string]string{
	"al": "alabama", "ak": "alaska", "az": "arizona", "ar": "arkansas",
	"ca": "california", "co": "colorado", "ct": "connecticut", "de": "delaware",
	"fl": "florida", "ga": "georgia", "hi": "hawaii", "id": "idaho",
	"il": "illinois", "in": "indiana", "ia": "iowa", "ks": "kansas",
	"ky": "kentucky", "la": "louisiana", "me": "maine", "md": "maryland",
	"ma": "massachusetts", "mi": "michigan", "mn": "minnesota", "ms": "mississippi",
	"mo": "missouri", "mt": "montana", "ne": "nebraska", "nv": "nevada",
	"nh": "new hampshire", "nj": "new jersey", "nm": "new mexico", "ny": "new york",
	"nc": "north carolina", "nd": "north dakota", "oh": "ohio", "ok": "oklahoma",
	"or": "oregon", "pa": "pennsylvania", "ri": "rhode island", "sc": "south carolina",
	"sd": "south dakota", "tn": "tennessee", "tx": "texas", "ut": "utah",
	"vt": "vermont", "va": "virginia", "wa": "washington", "wv": "west virginia",
	"wi": "wisconsin", "wy": "wyoming", "dc": "district of columbia",
}

// stateToAbbr maps lowercase full names to lowercase abbreviations.
var stateToAbbr = func() map[string]string {
	m := make(map[string]string, len(abbrToState))
	for abbr, full := range abbrToState {
		m[full] = abbr
	}
	return m
}()
