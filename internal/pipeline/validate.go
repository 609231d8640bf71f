package pipeline

import (
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/parcel-ingest/internal/model"
)

// RuleRequiredField prefixes the built-in required-field results, e.g.
// "required_field:parcelId".
const RuleRequiredField = "required_field"

var requiredFields = []struct {
	name string
	get  func(*model.StandardizedRecord) string
}{
	{"parcelId", func(r *model.StandardizedRecord) string { return r.ParcelID }},
	{"propertyAddress", func(r *model.StandardizedRecord) string { return r.PropertyAddress }},
	{"state", func(r *model.StandardizedRecord) string { return r.State }},
}

// validate records one result per required field and per registered rule.
// Failures are logged; the record is never rejected.
func (p *Pipeline) validate(rec *model.StandardizedRecord, rules []namedRule) {
	results := make([]model.ValidationResult, 0, len(requiredFields)+len(rules))
	for _, f := range requiredFields {
		vr := model.ValidationResult{Rule: RuleRequiredField + ":" + f.name, Valid: f.get(rec) != ""}
		if !vr.Valid {
			vr.Message = fmt.Sprintf("missing required field %s", f.name)
		}
		results = append(results, vr)
	}
	for _, r := range rules {
		valid, msg := r.fn(rec)
		results = append(results, model.ValidationResult{Rule: r.name, Valid: valid, Message: msg})
	}
	rec.Metadata.ValidationResults = results

	for _, vr := range rec.Failed() {
		p.log.Warn("pipeline: validation warning",
			zap.String("source_id", rec.Metadata.SourceID),
			zap.String("parcel_id", rec.ParcelID),
			zap.String("rule", vr.Rule),
			zap.String("message", vr.Message),
		)
	}
}

var (
	zipPattern   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	statePattern = regexp.MustCompile(`^[A-Z]{2}$`)
)

// RegisterDefaultRules installs format checks that go beyond required
// fields. Empty optional values pass.
func (p *Pipeline) RegisterDefaultRules() {
	p.RegisterValidationRule("zip_format", func(r *model.StandardizedRecord) (bool, string) {
		if r.ZipCode == "" || zipPattern.MatchString(r.ZipCode) {
			return true, ""
		}
		return false, fmt.Sprintf("zip code %q is not a 5 or 9 digit ZIP", r.ZipCode)
	})
	p.RegisterValidationRule("state_code", func(r *model.StandardizedRecord) (bool, string) {
		if r.State == "" || statePattern.MatchString(r.State) {
			return true, ""
		}
		return false, fmt.Sprintf("state %q is not a two-letter code", r.State)
	})
	p.RegisterValidationRule("tax_year_range", func(r *model.StandardizedRecord) (bool, string) {
		y := r.TaxInfo.TaxYear
		if y == 0 || (y >= 1900 && y <= time.Now().Year()+1) {
			return true, ""
		}
		return false, fmt.Sprintf("tax year %d is out of range", y)
	})
	p.RegisterValidationRule("non_negative_values", func(r *model.StandardizedRecord) (bool, string) {
		if r.TaxInfo.AssessedValue < 0 || r.SaleInfo.SaleAmount < 0 {
			return false, "assessed or sale value is negative"
		}
		return true, ""
	})
}
