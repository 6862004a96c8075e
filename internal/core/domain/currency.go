package domain

import "strings"

// DefaultMinorUnits is the precision used for currencies not listed in minorUnits.
const DefaultMinorUnits int32 = 2

// minorUnits lists ISO 4217 currencies whose minor unit differs from two decimals.
var minorUnits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
	"ISK": 0,
	"UGX": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
	"JOD": 3,
	"TND": 3,
}

// CurrencyPrecision returns the number of decimal places amounts in currencyCode are rounded to.
func CurrencyPrecision(currencyCode string) int32 {
	if p, ok := minorUnits[strings.ToUpper(currencyCode)]; ok {
		return p
	}
	return DefaultMinorUnits
}
