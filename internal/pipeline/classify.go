package pipeline

import (
	"regexp"
	"strings"

	"github.com/sells-group/parcel-ingest/internal/model"
)

type classRule struct {
	propertyType string
	contains     []string
}

// classRules are checked in order against the lower-cased code; the first
// rule with a matching substring wins.
var classRules = []classRule{
	{model.PropertyTypeMixedUse, []string{"mixed"}},
	{model.PropertyTypeAgricultural, []string{"agri", "farm", "ranch", "timber", "orchard", "crop", "pasture"}},
	{model.PropertyTypeIndustrial, []string{"industr", "manufactur", "warehouse", "factory"}},
	{model.PropertyTypeCommercial, []string{"commerc", "retail", "office", "store", "business", "hotel", "restaurant"}},
	{model.PropertyTypeResidential, []string{"resid", "single family", "single-family", "multi", "apartment", "condo", "townho", "dwelling", "duplex", "mobile home"}},
	{model.PropertyTypeOther, []string{"exempt", "vacant", "utilit", "government", "church", "school", "park"}},
}

// zoningPrefixes classify bare zoning codes such as "R-1", "C2" or "AG".
var zoningPrefixes = []struct {
	pattern      *regexp.Regexp
	propertyType string
}{
	{regexp.MustCompile(`^(MU|MX|PUD)`), model.PropertyTypeMixedUse},
	{regexp.MustCompile(`^(AG|A)([-\d]|$)`), model.PropertyTypeAgricultural},
	{regexp.MustCompile(`^(I|M|LI|HI)([-\d]|$)`), model.PropertyTypeIndustrial},
	{regexp.MustCompile(`^(C|B|CB|GB|NB)([-\d]|$)`), model.PropertyTypeCommercial},
	{regexp.MustCompile(`^(R|RS|RM|RR|SF|MF)([-\d]|$)`), model.PropertyTypeResidential},
}

// ClassifyPropertyType maps a zoning, use or class description to one of the
// model.PropertyType* categories. Empty input is Unknown; anything
// unrecognized is Other.
func ClassifyPropertyType(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.PropertyTypeUnknown
	}

	lower := strings.ToLower(code)
	for _, rule := range classRules {
		for _, s := range rule.contains {
			if strings.Contains(lower, s) {
				return rule.propertyType
			}
		}
	}

	upper := strings.ToUpper(strings.ReplaceAll(code, " ", ""))
	for _, z := range zoningPrefixes {
		if z.pattern.MatchString(upper) {
			return z.propertyType
		}
	}
	return model.PropertyTypeOther
}

// texasUseCodes maps the leading letter of a Texas state property use code
// (PTAD category) to a property type.
var texasUseCodes = map[byte]string{
	'A': model.PropertyTypeResidential,
	'B': model.PropertyTypeResidential,
	'C': model.PropertyTypeOther,
	'D': model.PropertyTypeAgricultural,
	'E': model.PropertyTypeAgricultural,
	'F': model.PropertyTypeCommercial,
	'M': model.PropertyTypeResidential,
}

// classifyTexasUseCode handles codes like "A1" or "F2"; F2 is industrial.
func classifyTexasUseCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", false
	}
	if strings.HasPrefix(code, "F2") {
		return model.PropertyTypeIndustrial, true
	}
	pt, ok := texasUseCodes[code[0]]
	return pt, ok
}
