package domain

import (
	"regexp"
	"strings"
)

const (
	countryPrefix = "380"

	// FallbackPostalCode is used when the carrier did not supply a postal
	// code for the chosen city. Kyiv central post office.
	FallbackPostalCode = "01001"
)

var postalCodePattern = regexp.MustCompile(`^\d{5}$`)

// NormalizePhone canonicalises a Ukrainian phone number: every non-digit is
// stripped and the country prefix is ensured exactly once, yielding the
// +380XXXXXXXXX form. Normalising an already-normalised number is a no-op.
func NormalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n := digits.String()
	if strings.HasPrefix(n, countryPrefix) {
		return "+" + n
	}
	return "+38" + n
}

// SafePostalCode returns the supplied code when it is a valid 5-digit index
// and the fixed fallback otherwise.
func SafePostalCode(raw string) string {
	code := strings.TrimSpace(raw)
	if postalCodePattern.MatchString(code) {
		return code
	}
	return FallbackPostalCode
}
