package providers

import (
	"strings"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
)

const countryCode = "254"

// NormalizeMSISDN converts a Kenyan phone number to international format:
// country code plus subscriber number, no leading zero or plus sign.
// The function is idempotent: an already-normalized number is returned
// unchanged.
func NormalizeMSISDN(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	if digits == "" {
		return "", errors.NewValidationError("phone_number", "required")
	}

	switch {
	case strings.HasPrefix(digits, "0"):
		// Domestic trunk prefix replaced by the country code.
		digits = countryCode + digits[1:]
	case strings.HasPrefix(digits, countryCode):
		// Already international.
	case len(digits) <= 9:
		// Short local number missing its country-code prefix.
		digits = countryCode + digits
	}

	if len(digits) != 12 {
		return "", errors.NewValidationError("phone_number", "not a valid Kenyan mobile number")
	}
	return digits, nil
}
