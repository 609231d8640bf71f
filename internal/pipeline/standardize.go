package pipeline

import (
	"encoding/json"
	"maps"
	"time"

	"github.com/sells-group/parcel-ingest/internal/model"
)

// fieldAlias binds candidate raw field names, in priority order, to one
// canonical field.
type fieldAlias struct {
	field string
	keys  []string
	set   func(r *model.StandardizedRecord, ix fieldIndex, keys []string)
}

func setString(dst func(*model.StandardizedRecord) *string) func(*model.StandardizedRecord, fieldIndex, []string) {
	return func(r *model.StandardizedRecord, ix fieldIndex, keys []string) {
		*dst(r) = ix.str(keys...)
	}
}

func setFloat(dst func(*model.StandardizedRecord) *float64) func(*model.StandardizedRecord, fieldIndex, []string) {
	return func(r *model.StandardizedRecord, ix fieldIndex, keys []string) {
		*dst(r) = ix.float(keys...)
	}
}

func setInt(dst func(*model.StandardizedRecord) *int) func(*model.StandardizedRecord, fieldIndex, []string) {
	return func(r *model.StandardizedRecord, ix fieldIndex, keys []string) {
		*dst(r) = ix.int(keys...)
	}
}

// genericAliases drives standardization of sources without a dedicated
// mapping. Adding an alias is a one-line change here. Names are matched after
// normKey folding.
var genericAliases = []fieldAlias{
	{"parcelId", []string{"parcelId", "parcelNumber", "accountNumber", "apn", "pin", "accountNum", "account", "parcel", "folio", "taxId", "propertyId"},
		setString(func(r *model.StandardizedRecord) *string { return &r.ParcelID })},
	{"propertyAddress", []string{"propertyAddress", "address", "propertyLocation", "situsAddress", "siteAddress", "streetAddress", "location", "fullAddress"},
		setString(func(r *model.StandardizedRecord) *string { return &r.PropertyAddress })},
	{"city", []string{"city", "situsCity", "propertyCity", "siteCity", "municipality", "town"},
		setString(func(r *model.StandardizedRecord) *string { return &r.City })},
	{"state", []string{"state", "situsState", "propertyState", "stateCode"},
		setString(func(r *model.StandardizedRecord) *string { return &r.State })},
	{"county", []string{"county", "countyName", "situsCounty"},
		setString(func(r *model.StandardizedRecord) *string { return &r.County })},
	{"zipCode", []string{"zipCode", "zip", "postalCode", "situsZip", "zip5", "propertyZip"},
		setString(func(r *model.StandardizedRecord) *string { return &r.ZipCode })},
	{"ownerName", []string{"ownerName", "owner", "owner1", "ownerName1", "taxpayerName", "primaryOwner"},
		setString(func(r *model.StandardizedRecord) *string { return &r.OwnerName })},

	{"taxInfo.assessedValue", []string{"assessedValue", "totalAssessedValue", "assessment", "totalValue", "appraisedValue", "marketValue"},
		setFloat(func(r *model.StandardizedRecord) *float64 { return &r.TaxInfo.AssessedValue })},
	{"taxInfo.landValue", []string{"landValue", "assessedLandValue", "land"},
		setFloat(func(r *model.StandardizedRecord) *float64 { return &r.TaxInfo.LandValue })},
	{"taxInfo.improvementValue", []string{"improvementValue", "buildingValue", "improvements", "assessedImprovementValue"},
		setFloat(func(r *model.StandardizedRecord) *float64 { return &r.TaxInfo.ImprovementValue })},
	{"taxInfo.taxAmount", []string{"taxAmount", "totalTax", "taxes", "annualTax"},
		setFloat(func(r *model.StandardizedRecord) *float64 { return &r.TaxInfo.TaxAmount })},
	{"taxInfo.taxYear", []string{"taxYear", "assessmentYear", "rollYear", "year"},
		setInt(func(r *model.StandardizedRecord) *int { return &r.TaxInfo.TaxYear })},

	{"saleInfo.saleDate", []string{"saleDate", "lastSaleDate", "deedDate", "transferDate"},
		setString(func(r *model.StandardizedRecord) *string { return &r.SaleInfo.SaleDate })},
	{"saleInfo.saleAmount", []string{"saleAmount", "salePrice", "lastSalePrice", "considerationAmount"},
		setFloat(func(r *model.StandardizedRecord) *float64 { return &r.SaleInfo.SaleAmount })},
	{"saleInfo.saleType", []string{"saleType", "deedType", "instrumentType"},
		setString(func(r *model.StandardizedRecord) *string { return &r.SaleInfo.SaleType })},

	{"propertyDetails.yearBuilt", []string{"yearBuilt", "yrBuilt", "builtYear"},
		setInt(func(r *model.StandardizedRecord) *int { return &r.PropertyDetails.YearBuilt })},
	{"propertyDetails.squareFeet", []string{"squareFeet", "sqft", "livingArea", "buildingArea", "gla", "finishedArea"},
		setFloat(func(r *model.StandardizedRecord) *float64 { return &r.PropertyDetails.SquareFeet })},
	{"propertyDetails.lotSize", []string{"lotSize", "acreage", "acres", "landAcres", "lotArea", "landArea"},
		setFloat(func(r *model.StandardizedRecord) *float64 { return &r.PropertyDetails.LotSize })},
	{"propertyDetails.bedrooms", []string{"bedrooms", "beds", "numBedrooms"},
		setInt(func(r *model.StandardizedRecord) *int { return &r.PropertyDetails.Bedrooms })},
	{"propertyDetails.bathrooms", []string{"bathrooms", "baths", "numBathrooms", "fullBaths"},
		setFloat(func(r *model.StandardizedRecord) *float64 { return &r.PropertyDetails.Bathrooms })},
	{"propertyDetails.zoning", []string{"zoning", "zoningCode", "zone"},
		setString(func(r *model.StandardizedRecord) *string { return &r.PropertyDetails.Zoning })},
	{"propertyDetails.landUse", []string{"landUse", "landUseCode", "useCode", "propertyUse", "useDescription"},
		setString(func(r *model.StandardizedRecord) *string { return &r.PropertyDetails.LandUse })},
}

// typeKeys hold descriptions fed to ClassifyPropertyType, in priority order.
var typeKeys = []string{"propertyType", "propertyClass", "classDescription", "landUse", "useCode", "propertyUse", "zoning"}

var (
	latitudeKeys  = []string{"latitude", "lat", "y"}
	longitudeKeys = []string{"longitude", "lon", "lng", "long", "x"}
)

// standardizeGeneric maps an arbitrary field bag using genericAliases, then
// fills gaps from the composite address and the source region.
func standardizeGeneric(raw model.RawRecord) *model.StandardizedRecord {
	ix := indexFields(raw.Fields)
	rec := &model.StandardizedRecord{}
	for _, a := range genericAliases {
		a.set(rec, ix, a.keys)
	}

	if rec.City == "" || rec.ZipCode == "" || rec.State == "" {
		parts := ParseCompositeAddress(rec.PropertyAddress)
		fillEmpty(&rec.City, parts.City)
		fillEmpty(&rec.State, parts.State)
		fillEmpty(&rec.ZipCode, parts.Zip)
	}
	fillEmpty(&rec.State, raw.Region.State)
	fillEmpty(&rec.County, raw.Region.County)
	rec.State = NormalizeState(rec.State)

	rec.PropertyType = ClassifyPropertyType(ix.str(typeKeys...))
	rec.Location = locationFromFields(ix)
	return rec
}

// locationFromFields returns source-supplied coordinates, if both are
// present and non-zero.
func locationFromFields(ix fieldIndex) *model.Location {
	lat, lon := ix.float(latitudeKeys...), ix.float(longitudeKeys...)
	if lat == 0 || lon == 0 || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil
	}
	return &model.Location{
		Coordinates: model.Coordinates{Latitude: lat, Longitude: lon},
		Confidence:  1,
	}
}

func fillEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// isCanonical reports whether fields already carry the standardized shape.
func isCanonical(raw model.RawRecord) bool {
	return raw.Has(model.CanonicalKeys...)
}

// fromCanonical decodes an already-standardized field bag. Validation
// results are dropped because validation runs again.
func fromCanonical(raw model.RawRecord) (*model.StandardizedRecord, error) {
	data, err := json.Marshal(raw.Fields)
	if err != nil {
		return nil, err
	}
	rec := &model.StandardizedRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, err
	}
	rec.Metadata.ValidationResults = nil
	return rec, nil
}

// stampMetadata records provenance. Existing provenance from an earlier pass
// is kept.
func stampMetadata(rec *model.StandardizedRecord, raw model.RawRecord, sourceType string, now func() time.Time) {
	fillEmpty(&rec.Metadata.SourceID, raw.SourceID)
	fillEmpty(&rec.Metadata.SourceType, sourceType)
	if rec.Metadata.RawData == nil {
		rec.Metadata.RawData = maps.Clone(raw.Fields)
		if rec.Metadata.RawData == nil {
			rec.Metadata.RawData = map[string]any{}
		}
	}
	rec.Metadata.LastUpdated = now()
}
