package converters

import "strings"

const countryCode = "52"

// NormalizeMSISDN strips separators and the Mexican country code, leaving the ten-digit national number.
func NormalizeMSISDN(msisdn string) string {
	var b strings.Builder

	for _, r := range msisdn {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) == 12 && strings.HasPrefix(digits, countryCode) {
		return digits[len(countryCode):]
	}

	return digits
}
