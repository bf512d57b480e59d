// Package sanitize cleans free-text form input before it is stored or rendered.
// Every function is total: bad input degrades to a shorter or empty value.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

// Field length limits for lead form input.
const (
	MaxName         = 200
	MaxCity         = 200
	MaxNeighborhood = 200
	MaxStreet       = 300
	MaxRegion       = 2
	MaxEmail        = 200
	PostalCodeLen   = 8
)

// Service kinds accepted on the lead form.
const (
	ServiceReupholster = "reforma"
	ServiceNew         = "novo"
	ServiceBoth        = "ambos"
)

var (
	unsafeChars = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "&", "", ";", "", `\`, "")
	emailRegex  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]{2,}$`)
)

// Field strips markup-significant characters, trims whitespace and truncates
// to max runes.
func Field(s string, max int) string {
	cleaned := strings.TrimSpace(unsafeChars.Replace(s))
	return Truncate(cleaned, max)
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}

// Digits keeps only ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PostalCode returns the digits of a CEP truncated to eight.
func PostalCode(s string) string {
	digits := Digits(s)
	if len(digits) > PostalCodeLen {
		return digits[:PostalCodeLen]
	}
	return digits
}

// IsPostalCode reports whether s is exactly eight digits.
func IsPostalCode(s string) bool {
	return len(s) == PostalCodeLen && Digits(s) == s
}

// Email lower-cases and trims the address. Anything that does not look like
// an address, or is too long, becomes "".
func Email(s string) string {
	email := strings.ToLower(strings.TrimSpace(s))
	if email == "" || len(email) > MaxEmail || !emailRegex.MatchString(email) {
		return ""
	}
	return email
}

// Region upper-cases a state code and keeps at most two letters.
func Region(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return Truncate(b.String(), MaxRegion)
}

// ServiceKind maps the requested service to one of the known kinds.
func ServiceKind(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ServiceReupholster:
		return ServiceReupholster
	case ServiceNew:
		return ServiceNew
	default:
		return ServiceBoth
	}
}

// Checkbox interprets an HTML checkbox or boolean-ish form value.
func Checkbox(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "1", "yes", "sim":
		return true
	default:
		return false
	}
}
