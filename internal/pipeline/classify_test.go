package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/parcel-ingest/internal/model"
)

func TestClassifyPropertyType(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"", model.PropertyTypeUnknown},
		{"  ", model.PropertyTypeUnknown},
		{"Residential", model.PropertyTypeResidential},
		{"SINGLE FAMILY DWELLING", model.PropertyTypeResidential},
		{"Condominium", model.PropertyTypeResidential},
		{"Commercial Retail", model.PropertyTypeCommercial},
		{"office building", model.PropertyTypeCommercial},
		{"Light Industrial", model.PropertyTypeIndustrial},
		{"Warehouse", model.PropertyTypeIndustrial},
		{"Agricultural", model.PropertyTypeAgricultural},
		{"Farm / Ranch", model.PropertyTypeAgricultural},
		{"Mixed Use Commercial", model.PropertyTypeMixedUse},
		{"Exempt - Church", model.PropertyTypeOther},
		{"R-1", model.PropertyTypeResidential},
		{"RM2", model.PropertyTypeResidential},
		{"C-2", model.PropertyTypeCommercial},
		{"CB", model.PropertyTypeCommercial},
		{"I-1", model.PropertyTypeIndustrial},
		{"M1", model.PropertyTypeIndustrial},
		{"AG", model.PropertyTypeAgricultural},
		{"MU-1", model.PropertyTypeMixedUse},
		{"PUD", model.PropertyTypeMixedUse},
		{"ZZ-9", model.PropertyTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPropertyType(tt.code))
		})
	}
}

func TestClassifyTexasUseCode(t *testing.T) {
	tests := []struct {
		code   string
		want   string
		wantOK bool
	}{
		{"A1", model.PropertyTypeResidential, true},
		{"b2", model.PropertyTypeResidential, true},
		{"F1", model.PropertyTypeCommercial, true},
		{"F2", model.PropertyTypeIndustrial, true},
		{"D1", model.PropertyTypeAgricultural, true},
		{"C1", model.PropertyTypeOther, true},
		{"X", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := classifyTexasUseCode(tt.code)
		assert.Equal(t, tt.wantOK, ok, tt.code)
		assert.Equal(t, tt.want, got, tt.code)
	}
}
