package util

import (
	"regexp"
	"strings"
)

// macQueryRegexp accepts six hex pairs where each of the five boundaries
// is one of ':', '-', '.' or nothing.
var macQueryRegexp = regexp.MustCompile(`^[0-9A-Fa-f]{2}(?:[:.\-]?[0-9A-Fa-f]{2}){5}$`)

// IsMACQuery reports whether s is written as a full MAC address.
func IsMACQuery(s string) bool {
	return macQueryRegexp.MatchString(strings.TrimSpace(s))
}

// MACDigits strips separators and lowercases s without validating it.
// aa:BB-cc.dd -> aabbccdd
func MACDigits(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(":", "", "-", "", ".", "").Replace(s)
	return strings.ToLower(s)
}

// minMACFragment is the shortest partial MAC searched against MAC tables.
const minMACFragment = 4

// IsPartialMACQuery reports whether s, once separators are stripped, is a
// run of at least four hex digits short of a full address.
func IsPartialMACQuery(s string) bool {
	digits := MACDigits(s)
	if len(digits) < minMACFragment || len(digits) >= 12 {
		return false
	}
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if !isDigit(c) && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// NormalizeMAC returns the dot-grouped form used by device MAC and ARP
// tables: aa:bb:cc:dd:ee:ff -> aabb.ccdd.eeff. Short inputs are left-padded
// with zeros; anything that is not 12 hex digits after cleaning is a
// FormatError.
func NormalizeMAC(raw string) (string, error) {
	digits, err := normalizeMACDigits(raw)
	if err != nil {
		return "", err
	}
	return digits[0:4] + "." + digits[4:8] + "." + digits[8:12], nil
}

// NormalizeMACPlain is NormalizeMAC without grouping: aabbccddeeff.
func NormalizeMACPlain(raw string) (string, error) {
	return normalizeMACDigits(raw)
}

func normalizeMACDigits(raw string) (string, error) {
	digits := MACDigits(raw)
	if digits == "" || len(digits) > 12 {
		return "", NewFormatError("MAC address", raw)
	}
	if len(digits) < 12 {
		digits = strings.Repeat("0", 12-len(digits)) + digits
	}
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if !isDigit(c) && (c < 'a' || c > 'f') {
			return "", NewFormatError("MAC address", raw)
		}
	}
	return digits, nil
}

// SameMAC reports whether a and b name the same MAC address. Values that do
// not normalize never match.
func SameMAC(a, b string) bool {
	na, err := normalizeMACDigits(a)
	if err != nil {
		return false
	}
	nb, err := normalizeMACDigits(b)
	if err != nil {
		return false
	}
	return na == nb
}
