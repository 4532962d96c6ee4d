package normalize

import (
	"strconv"
	"strings"
)

var ufs = map[string]bool{
	"AC": true, "AL": true, "AP": true, "AM": true, "BA": true, "CE": true, "DF": true,
	"ES": true, "GO": true, "MA": true, "MT": true, "MS": true, "MG": true, "PA": true,
	"PB": true, "PR": true, "PE": true, "PI": true, "RJ": true, "RN": true, "RS": true,
	"RO": true, "RR": true, "SC": true, "SP": true, "SE": true, "TO": true,
}

// UF returns the upper cased state code if it is one of the 27 brazilian federative units.
func UF(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, ufs[s]
}

func fixedDigits(digits string, size int) (string, bool) {
	if len(digits) != size {
		return "", false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return digits, true
}

// CEP accepts only 8 digit postal codes.
func CEP(digits string) (string, bool) {
	return fixedDigits(digits, 8)
}

// IBGE accepts only 7 digit municipality codes.
func IBGE(digits string) (string, bool) {
	return fixedDigits(digits, 7)
}

// CNPJ accepts only 14 digit registration numbers.
func CNPJ(digits string) (int64, bool) {
	digits, ok := fixedDigits(digits, 14)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func Latitude(f float64) bool {
	return f >= -90 && f <= 90
}

func Longitude(f float64) bool {
	return f >= -180 && f <= 180
}

// Share is a fraction of customers, it must be in [0, 1].
func Share(f float64) bool {
	return f >= 0 && f <= 1
}

// NonNegative is used for prices and rates.
func NonNegative(f float64) bool {
	return f >= 0
}

// FormatCNPJ formats a CNPJ as 00.000.000/0000-00.
func FormatCNPJ(cnpj int64) string {
	s := strconv.FormatInt(cnpj, 10)
	if len(s) < 14 {
		s = strings.Repeat("0", 14-len(s)) + s
	}
	return s[0:2] + "." + s[2:5] + "." + s[5:8] + "/" + s[8:12] + "-" + s[12:14]
}
