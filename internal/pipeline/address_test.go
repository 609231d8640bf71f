package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"123 Main Street, APARTMENT 4", "123 Main ST, APT 4"},
		{"500 north Oak avenue  Suite 200", "500 N Oak AVE STE 200"},
		{"12 Southwest Parkway", "12 SW PKWY"},
		{"9 Streeter Rd", "9 Streeter Rd"},
		{"77 Martin Luther King Jr Boulevard", "77 Martin Luther King Jr BLVD"},
		{"  ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAddress(tt.in))
		})
	}
}

func TestNormalizeAddress_Idempotent(t *testing.T) {
	once := NormalizeAddress("1000 Main Street, Leonardtown, MD 20650")
	assert.Equal(t, "1000 Main ST, Leonardtown, MD 20650", once)
	assert.Equal(t, once, NormalizeAddress(once))
}

func TestParseCompositeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want AddressParts
	}{
		{"1000 Main Street, Leonardtown, MD 20650", AddressParts{"1000 Main Street", "Leonardtown", "MD", "20650"}},
		{"100 Main St, Fort Worth TX 76102-1234", AddressParts{"100 Main St", "Fort Worth", "TX", "76102-1234"}},
		{"1 Elm St, Albany, New York", AddressParts{"1 Elm St", "Albany", "NY", ""}},
		{"1 Elm St, Washington, District of Columbia 20001", AddressParts{"1 Elm St", "Washington", "DC", "20001"}},
		{"12 South Street, Apartment 5, Springfield, IL 62701", AddressParts{"12 South Street", "Springfield", "IL", "62701"}},
		{"1000 MAIN ST, LEONARDTOWN, MD, 20650", AddressParts{"1000 MAIN ST", "LEONARDTOWN", "MD", "20650"}},
		{"9 Oak Ave, Unit B, , Austin TX 78701", AddressParts{"9 Oak Ave", "Austin", "TX", "78701"}},
		{"55 Pine Rd", AddressParts{Street: "55 Pine Rd"}},
		{"55 Pine Rd, 20650", AddressParts{Street: "55 Pine Rd", Zip: "20650"}},
		{"", AddressParts{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCompositeAddress(tt.in))
		})
	}
}

func TestNormalizeState(t *testing.T) {
	assert.Equal(t, "MD", NormalizeState("md"))
	assert.Equal(t, "MD", NormalizeState(" Maryland "))
	assert.Equal(t, "TX", NormalizeState("TEXAS"))
	assert.Equal(t, "Ontario", NormalizeState("Ontario"))
	assert.Equal(t, "", NormalizeState(""))
}
