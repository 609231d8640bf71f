package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Property type categories produced by zoning and use-code classification.
const (
	PropertyTypeResidential  = "Residential"
	PropertyTypeCommercial   = "Commercial"
	PropertyTypeIndustrial   = "Industrial"
	PropertyTypeAgricultural = "Agricultural"
	PropertyTypeMixedUse     = "Mixed Use"
	PropertyTypeOther        = "Other"
	PropertyTypeUnknown      = "Unknown"
)

// RawRecord is a loosely typed field bag as fetched from a source. Region is
// the source's configured region, used when the fields omit state or county.
type RawRecord struct {
	SourceID   string         `json:"sourceId"`
	SourceType string         `json:"sourceType"`
	Region     Region         `json:"region"`
	Fields     map[string]any `json:"fields"`
}

// Get returns the first non-nil value among keys, matched exactly.
func (r RawRecord) Get(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r.Fields[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether every key is present with a non-nil value.
func (r RawRecord) Has(keys ...string) bool {
	for _, k := range keys {
		if v, ok := r.Fields[k]; !ok || v == nil {
			return false
		}
	}
	return true
}

// TaxInfo holds assessment and tax figures.
type TaxInfo struct {
	AssessedValue    float64 `json:"assessedValue,omitempty"`
	LandValue        float64 `json:"landValue,omitempty"`
	ImprovementValue float64 `json:"improvementValue,omitempty"`
	TaxAmount        float64 `json:"taxAmount,omitempty"`
	TaxYear          int     `json:"taxYear,omitempty"`
}

// SaleInfo holds the most recent transfer or assessment valuation.
type SaleInfo struct {
	SaleDate   string  `json:"saleDate,omitempty"`
	SaleAmount float64 `json:"saleAmount,omitempty"`
	SaleType   string  `json:"saleType,omitempty"`
}

// PropertyDetails holds physical characteristics.
type PropertyDetails struct {
	YearBuilt  int     `json:"yearBuilt,omitempty"`
	SquareFeet float64 `json:"squareFeet,omitempty"`
	LotSize    float64 `json:"lotSize,omitempty"`
	Bedrooms   int     `json:"bedrooms,omitempty"`
	Bathrooms  float64 `json:"bathrooms,omitempty"`
	Zoning     string  `json:"zoning,omitempty"`
	LandUse    string  `json:"landUse,omitempty"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is the geocoded position of a property.
type Location struct {
	Coordinates      Coordinates `json:"coordinates"`
	FormattedAddress string      `json:"formattedAddress,omitempty"`
	Confidence       float64     `json:"confidence,omitempty"`
}

// ValidationResult is the outcome of one validation rule.
type ValidationResult struct {
	Rule    string `json:"rule"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// RecordMetadata carries provenance for a standardized record.
type RecordMetadata struct {
	SourceID          string             `json:"sourceId"`
	SourceType        string             `json:"sourceType,omitempty"`
	RawData           map[string]any     `json:"rawData,omitempty"`
	LastUpdated       time.Time          `json:"lastUpdated"`
	ValidationResults []ValidationResult `json:"validationResults,omitempty"`
}

// StandardizedRecord is the canonical property schema.
type StandardizedRecord struct {
	ParcelID        string          `json:"parcelId"`
	PropertyAddress string          `json:"propertyAddress"`
	City            string          `json:"city"`
	State           string          `json:"state"`
	County          string          `json:"county"`
	ZipCode         string          `json:"zipCode"`
	OwnerName       string          `json:"ownerName,omitempty"`
	PropertyType    string          `json:"propertyType,omitempty"`
	TaxInfo         TaxInfo         `json:"taxInfo"`
	SaleInfo        SaleInfo        `json:"saleInfo"`
	PropertyDetails PropertyDetails `json:"propertyDetails"`
	Location        *Location       `json:"location,omitempty"`
	Metadata        RecordMetadata  `json:"metadata"`
}

// CanonicalKeys are the identity fields whose presence marks a field bag as
// already standardized.
var CanonicalKeys = []string{"parcelId", "propertyAddress", "city", "state", "county"}

// AsRaw converts the record back into a raw field bag in canonical shape so
// it can be fed through the pipeline again.
func (r *StandardizedRecord) AsRaw() (RawRecord, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return RawRecord{}, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return RawRecord{}, err
	}
	return RawRecord{
		SourceID:   r.Metadata.SourceID,
		SourceType: r.Metadata.SourceType,
		Fields:     fields,
	}, nil
}

// CompositeAddress joins street, city, state, and zip into one line,
// skipping empty parts and parts the street line already spells out.
func (r *StandardizedRecord) CompositeAddress() string {
	street := strings.TrimSpace(r.PropertyAddress)
	lower := strings.ToLower(street)
	parts := []string{}
	if street != "" {
		parts = append(parts, street)
	}
	for _, p := range []string{r.City, r.State, r.ZipCode} {
		p = strings.TrimSpace(p)
		if p == "" || strings.Contains(lower, strings.ToLower(p)) {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}

// Failed returns the validation results that did not pass.
func (r *StandardizedRecord) Failed() []ValidationResult {
	var out []ValidationResult
	for _, v := range r.Metadata.ValidationResults {
		if !v.Valid {
			out = append(out, v)
		}
	}
	return out
}
