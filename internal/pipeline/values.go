package pipeline

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// normKey folds a field name for alias matching: lower case, letters and
// digits only. "Account_Num", "account num" and "accountNum" all become
// "accountnum".
func normKey(k string) string {
	var b strings.Builder
	b.Grow(len(k))
	for _, r := range k {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// fieldIndex is a raw field bag keyed by normalized name.
type fieldIndex map[string]any

// indexFields builds a fieldIndex. When two raw names fold to the same key
// the lexically first name wins, so lookups are deterministic.
func indexFields(fields map[string]any) fieldIndex {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	ix := make(fieldIndex, len(fields))
	for _, k := range names {
		nk := normKey(k)
		if _, seen := ix[nk]; !seen {
			ix[nk] = fields[k]
		}
	}
	return ix
}

// lookup returns the first non-blank value among keys.
func (ix fieldIndex) lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := ix[normKey(k)]
		if !ok || isBlank(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

func (ix fieldIndex) str(keys ...string) string {
	v, _ := ix.lookup(keys...)
	return asString(v)
}

func (ix fieldIndex) float(keys ...string) float64 {
	v, _ := ix.lookup(keys...)
	return asFloat(v)
}

func (ix fieldIndex) int(keys ...string) int {
	v, _ := ix.lookup(keys...)
	return asInt(v)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// asString renders scalars as trimmed text. Whole floats print without a
// decimal part so numeric parcel ids survive JSON decoding.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

var moneyStripper = strings.NewReplacer("$", "", ",", "", " ", "")

// asFloat parses numbers and numeric text such as "$250,055.00".
// Unparseable values yield 0.
// asFloat coerces v to a finite number. NaN, infinities and unparseable
// values become 0.
func asFloat(v any) float64 {
	f := rawFloat(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func rawFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(moneyStripper.Replace(strings.TrimSpace(t)), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asInt(v any) int {
	f := asFloat(v)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}
