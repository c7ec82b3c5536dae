package epd

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitID(t *testing.T) {
	tests := []struct {
		id, suite, desc string
	}{
		{"STS(v1.0) Undermining.001", "STS(v1.0)", "Undermining"},
		{"STS(v2.2) Open Files and Diagonals.015", "STS(v2.2)", "Open Files and Diagonals"},
		{"T1.1", "T1.1", ""},
		{"T1\tKnight outposts", "T1", "Knight outposts"},
		{"S3 v1.5 endgame", "S3", "v1.5 endgame"},
		{"", "", ""},
	}
	for _, tt := range tests {
		suite, desc := SplitID(tt.id)
		assert.Equal(t, tt.suite, suite, tt.id)
		assert.Equal(t, tt.desc, desc, tt.id)
	}
}

func TestCompareNatural(t *testing.T) {
	assert.Negative(t, CompareNatural("Suite.2", "Suite.10"))
	assert.Negative(t, CompareNatural("A9", "A10"))
	assert.Positive(t, CompareNatural("A10", "A9"))
	assert.Negative(t, CompareNatural("S1", "S1.1"))
	assert.Negative(t, CompareNatural("S01.2", "S1.3"))
	assert.Negative(t, CompareNatural("99999999999999999999999", "100000000000000000000000"))
	assert.Zero(t, CompareNatural("x1", "x1"))
	// Equal numbers fall back to string order.
	assert.Negative(t, CompareNatural("a1", "b1"))

	ids := []string{"STS10.1", "STS2.10", "STS2.2", "STS1.100", "STS1.99"}
	slices.SortFunc(ids, CompareNatural)
	assert.Equal(t, []string{"STS1.99", "STS1.100", "STS2.2", "STS2.10", "STS10.1"}, ids)
}

func TestCompareSuites(t *testing.T) {
	suites := []string{"STS(v10.0)", "STS(v2.0)", "misc", "STS(v1.0)"}
	slices.SortFunc(suites, CompareSuites)
	assert.Equal(t, []string{"misc", "STS(v1.0)", "STS(v2.0)", "STS(v10.0)"}, suites)

	n, ok := SuiteNumber("STS(v12.0)")
	assert.True(t, ok)
	assert.Equal(t, "12", n)
	_, ok = SuiteNumber("misc")
	assert.False(t, ok)
}
