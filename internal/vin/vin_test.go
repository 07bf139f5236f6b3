package vin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCheckDigit(t *testing.T) {
	cases := []struct {
		name string
		vin  string
		want bool
	}{
		{"known good corvette", "1G1YY32G5X5114539", true},
		{"lowercase accepted", "1g1yy32g5x5114539", true},
		{"single digit mutated", "1G1YY32G5X5114538", false},
		{"wrong check digit", "1G1YY32G6X5114539", false},
		{"forbidden character", "1G1YY32G5X511453I", false},
		{"too short", "1G1YY32G5X511453", false},
		{"pre-standard identifier", "CSX2196", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidateCheckDigit(tc.vin))
		})
	}
}

func TestDecodeModelYear(t *testing.T) {
	cases := []struct {
		name string
		vin  string
		want int
	}{
		{"X with digit position 7 is 1999", "1G1YY32G5X5114539", 1999},
		{"A with letter position 7 is 2010", "JHMGE8H5XAC123456", 2010},
		{"short vin decodes to nothing", "CSX2196", 0},
		{"unknown year code", "1G1YY32G5O5114539", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DecodeModelYear(tc.vin))
		})
	}
}

func TestResolveMake(t *testing.T) {
	assert.Equal(t, "Chevrolet", ResolveMake("1G1YY32G5X5114539"))
	assert.Equal(t, "Tesla", ResolveMake("5YJSA1E26MF000001"))
	assert.Equal(t, "", ResolveMake("XX9ABCDEF00000000"))
	assert.Equal(t, "", ResolveMake("1G"))
}

func TestPreStandardEra(t *testing.T) {
	assert.True(t, PreStandardEra("CSX2196", 0), "short identifiers are pre-standard")
	assert.True(t, PreStandardEra("1G1YY32G5X5114539", 1975), "claimed year before 1981")
	assert.False(t, PreStandardEra("1G1YY32G5X5114539", 1999))
	assert.False(t, PreStandardEra("1G1YY32G5X5114539", 0), "no claimed year, full length")
}

func TestMatchPrefix(t *testing.T) {
	assert.Equal(t, "1G1YY32G", MatchPrefix("1G1YY32G5X5114539"))
	assert.Equal(t, "CSX2196", MatchPrefix("csx2196 "))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "1G1YY32G5X5114539", Normalize("  1g1yy32g5x5114539 "))
	assert.Equal(t, "", Normalize("   "))
}
