// Package phone provides Brazilian phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"arrume_backend/platform/sanitize"

	"github.com/nyaruka/phonenumbers"
)

const (
	defaultRegion = "BR"
	countryCode   = "55"
	maxDigits     = 13
)

// Normalize strips everything but digits, prefixes the Brazilian country code
// onto 10 or 11 digit national numbers and truncates to 13 digits.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(input string) string {
	digits := sanitize.Digits(input)
	if (len(digits) == 10 || len(digits) == 11) && !strings.HasPrefix(digits, countryCode) {
		digits = countryCode + digits
	}
	if len(digits) > maxDigits {
		digits = digits[:maxDigits]
	}
	return digits
}

// IsDeliverable reports whether a normalized number has a plausible length
// for a Brazilian landline (12) or mobile (13) including the country code.
func IsDeliverable(normalized string) bool {
	n := len(normalized)
	return (n == 12 || n == 13) && sanitize.Digits(normalized) == normalized
}

// Same reports whether two numbers normalize to the same digits.
func Same(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}

// Display formats a number for humans, e.g. "(11) 98765-4321". Numbers that
// do not parse are returned unchanged.
func Display(input string) string {
	normalized := Normalize(input)
	if normalized == "" {
		return strings.TrimSpace(input)
	}

	number, err := phonenumbers.Parse("+"+normalized, defaultRegion)
	if err != nil {
		return normalized
	}

	return phonenumbers.Format(number, phonenumbers.NATIONAL)
}
