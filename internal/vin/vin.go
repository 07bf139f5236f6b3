// Package vin implements VIN mechanics: the mod-11 check digit, model-year
// decoding from position 10, and coarse manufacturer resolution from the
// WMI. Pure lookups only; the remote decoder lives in vpic.go.
package vin

import "strings"

const StandardLength = 17

// FirstStandardYear is when 17-character VINs with check digits became
// mandatory. Shorter or earlier identifiers are "pre-standard era".
const FirstStandardYear = 1981

// transliteration values for the mod-11 checksum. I, O and Q are never
// valid VIN characters.
var translit = map[byte]int{
	'0': 0, '1': 1, '2': 2, '3': 3, '4': 4, '5': 5, '6': 6, '7': 7, '8': 8, '9': 9,
	'A': 1, 'B': 2, 'C': 3, 'D': 4, 'E': 5, 'F': 6, 'G': 7, 'H': 8,
	'J': 1, 'K': 2, 'L': 3, 'M': 4, 'N': 5, 'P': 7, 'R': 9,
	'S': 2, 'T': 3, 'U': 4, 'V': 5, 'W': 6, 'X': 7, 'Y': 8, 'Z': 9,
}

var weights = [StandardLength]int{8, 7, 6, 5, 4, 3, 2, 10, 0, 9, 8, 7, 6, 5, 4, 3, 2}

// Normalize upper-cases and trims a raw VIN string.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidateCheckDigit runs the mod-11 checksum on a 17-character VIN.
// Returns false for any VIN that is not 17 characters or contains an
// invalid character.
func ValidateCheckDigit(vin string) bool {
	vin = Normalize(vin)
	if len(vin) != StandardLength {
		return false
	}

	sum := 0
	for i := 0; i < StandardLength; i++ {
		v, ok := translit[vin[i]]
		if !ok {
			return false
		}
		sum += v * weights[i]
	}

	rem := sum % 11
	want := byte('0' + rem)
	if rem == 10 {
		want = 'X'
	}
	return vin[8] == want
}

// Position-10 model-year codes, 1980 base. The cycle repeats every 30
// years; position 7 disambiguates (digit = 1980-2009, letter = 2010-2039).
var yearCodes = map[byte]int{
	'A': 1980, 'B': 1981, 'C': 1982, 'D': 1983, 'E': 1984, 'F': 1985,
	'G': 1986, 'H': 1987, 'J': 1988, 'K': 1989, 'L': 1990, 'M': 1991,
	'N': 1992, 'P': 1993, 'R': 1994, 'S': 1995, 'T': 1996, 'V': 1997,
	'W': 1998, 'X': 1999, 'Y': 2000,
	'1': 2001, '2': 2002, '3': 2003, '4': 2004, '5': 2005,
	'6': 2006, '7': 2007, '8': 2008, '9': 2009,
}

// DecodeModelYear returns the model year encoded at position 10 of a
// standard VIN, or 0 when the VIN is short or the code is unknown.
func DecodeModelYear(vin string) int {
	vin = Normalize(vin)
	if len(vin) != StandardLength {
		return 0
	}
	year, ok := yearCodes[vin[9]]
	if !ok {
		return 0
	}
	if vin[6] >= 'A' && vin[6] <= 'Z' {
		year += 30
	}
	return year
}

// Common WMI prefixes. Enough to make the "decodes to a plausible
// year+make" call; unknown prefixes return "".
var wmiMakes = map[string]string{
	"1G1": "Chevrolet", "1GC": "Chevrolet", "2G1": "Chevrolet", "3G1": "Chevrolet",
	"1G6": "Cadillac", "1GY": "Cadillac",
	"1GM": "Pontiac", "1G4": "Buick", "1GT": "GMC",
	"1FA": "Ford", "1FT": "Ford", "1FM": "Ford", "1ZV": "Ford",
	"1C3": "Chrysler", "2C3": "Chrysler",
	"1B3": "Dodge", "2B3": "Dodge",
	"1HG": "Honda", "2HG": "Honda", "JHM": "Honda",
	"JH4": "Acura",
	"1N4": "Nissan", "JN1": "Nissan",
	"4T1": "Toyota", "JT2": "Toyota", "JTD": "Toyota", "JTH": "Lexus",
	"4S3": "Subaru", "JF1": "Subaru",
	"JM1": "Mazda",
	"KMH": "Hyundai", "KNA": "Kia",
	"1VW": "Volkswagen", "3VW": "Volkswagen", "WVW": "Volkswagen",
	"WAU": "Audi", "WBA": "BMW", "WBS": "BMW",
	"WDB": "Mercedes-Benz", "WDD": "Mercedes-Benz",
	"WP0": "Porsche",
	"ZFF": "Ferrari", "ZAM": "Maserati", "ZAR": "Alfa Romeo",
	"SAJ": "Jaguar", "SAL": "Land Rover", "SCC": "Lotus", "SCF": "Aston Martin",
	"YV1": "Volvo",
	"5YJ": "Tesla",
}

// ResolveMake maps the first three VIN characters to a manufacturer name,
// or "" when unknown.
func ResolveMake(vin string) string {
	vin = Normalize(vin)
	if len(vin) < 3 {
		return ""
	}
	return wmiMakes[vin[:3]]
}

// PreStandardEra reports whether the VIN predates 17-character
// standardization: either the identifier is short, or the claimed model
// year is before 1981.
func PreStandardEra(vin string, claimedYear int) bool {
	if len(Normalize(vin)) < StandardLength {
		return true
	}
	return claimedYear > 0 && claimedYear < FirstStandardYear
}

// MatchPrefix returns the lookup prefix used against previously approved
// VINs: the leading 8 characters, or the whole identifier when shorter.
func MatchPrefix(vin string) string {
	vin = Normalize(vin)
	if len(vin) > 8 {
		return vin[:8]
	}
	return vin
}
