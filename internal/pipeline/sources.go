package pipeline

import (
	"github.com/sells-group/parcel-ingest/internal/model"
)

// Source types with built-in mappings.
const (
	SourceStMarysMD  = "st-marys-county-md"
	SourceTarrantTX  = "tarrant-county-tx"
	saleTypeAssessed = "Assessment"
	saleTypeDeed     = "Sale"
)

// RegisterDefaultSources installs the built-in source mappings.
func (p *Pipeline) RegisterDefaultSources() {
	p.RegisterSourceStandardization(SourceStMarysMD, StandardizeStMarys)
	p.RegisterSourceStandardization(SourceTarrantTX, StandardizeTarrant)
}

// StandardizeStMarys maps records scraped from the St. Mary's County, MD
// real property search. The site reports one composite location line and a
// total assessment, which stands in for sale value when no sale is listed.
func StandardizeStMarys(raw model.RawRecord) *model.StandardizedRecord {
	ix := indexFields(raw.Fields)
	address := ix.str("propertyLocation", "propertyAddress", "address")
	parts := ParseCompositeAddress(address)

	rec := &model.StandardizedRecord{
		ParcelID:        ix.str("accountNumber", "accountId", "parcelId"),
		PropertyAddress: address,
		City:            parts.City,
		State:           "MD",
		County:          "St. Mary's",
		ZipCode:         parts.Zip,
		OwnerName:       ix.str("ownerName", "owner"),
		PropertyType:    ClassifyPropertyType(ix.str("propertyUse", "landUse", "zoning")),
		TaxInfo: model.TaxInfo{
			AssessedValue:    ix.float("totalValue", "assessedValue"),
			LandValue:        ix.float("landValue"),
			ImprovementValue: ix.float("improvementValue", "improvementsValue"),
			TaxYear:          ix.int("taxYear"),
		},
		PropertyDetails: model.PropertyDetails{
			YearBuilt:  ix.int("yearBuilt"),
			SquareFeet: ix.float("aboveGradeLivingArea", "livingArea"),
			LotSize:    ix.float("landArea", "acreage"),
			Zoning:     ix.str("zoning"),
			LandUse:    ix.str("propertyUse", "landUse"),
		},
	}

	if price := ix.float("salePrice", "lastSalePrice"); price > 0 {
		rec.SaleInfo = model.SaleInfo{
			SaleDate:   ix.str("saleDate", "transferDate"),
			SaleAmount: price,
			SaleType:   saleTypeDeed,
		}
	} else {
		rec.SaleInfo = model.SaleInfo{
			SaleAmount: ix.float("totalValue"),
			SaleType:   saleTypeAssessed,
		}
	}
	return rec
}

// StandardizeTarrant maps the Tarrant Appraisal District (Fort Worth, TX)
// certified roll export, optionally merged with its supplemental file that
// carries coordinates and last sale date.
func StandardizeTarrant(raw model.RawRecord) *model.StandardizedRecord {
	ix := indexFields(raw.Fields)

	rec := &model.StandardizedRecord{
		ParcelID:        ix.str("Account_Num", "AccountNumber"),
		PropertyAddress: ix.str("Situs_Address"),
		City:            ix.str("City"),
		State:           "TX",
		County:          "Tarrant",
		OwnerName:       ix.str("Owner_Name"),
		TaxInfo: model.TaxInfo{
			AssessedValue:    ix.float("Total_Value", "Appraised_Value"),
			LandValue:        ix.float("Land_Value"),
			ImprovementValue: ix.float("Improvement_Value"),
			TaxYear:          ix.int("Appraisal_Year", "Tax_Year"),
		},
		SaleInfo: model.SaleInfo{
			SaleDate: ix.str("LastSaleDate", "Deed_Date"),
		},
		PropertyDetails: model.PropertyDetails{
			YearBuilt:  ix.int("Year_Built"),
			SquareFeet: ix.float("Living_Area"),
			LotSize:    ix.float("Land_Acres"),
			Bedrooms:   ix.int("Num_Bedrooms"),
			Bathrooms:  ix.float("Num_Bathrooms"),
			LandUse:    ix.str("State_Use_Code", "LandUseCode"),
		},
		Location: locationFromFields(ix),
	}
	if rec.SaleInfo.SaleDate != "" {
		rec.SaleInfo.SaleType = saleTypeDeed
	}

	parts := ParseCompositeAddress(rec.PropertyAddress)
	fillEmpty(&rec.City, parts.City)
	fillEmpty(&rec.ZipCode, parts.Zip)
	fillEmpty(&rec.ZipCode, ix.str("Situs_Zip", "Zip"))

	if pt, ok := classifyTexasUseCode(ix.str("State_Use_Code")); ok {
		rec.PropertyType = pt
	} else {
		rec.PropertyType = ClassifyPropertyType(ix.str("Property_Class", "SiteClassDescr"))
	}
	return rec
}
