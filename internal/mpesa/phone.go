package mpesa

import (
	"errors"
	"strings"
)

// ErrInvalidPhone means the customer number cannot be turned into a valid
// Safaricom MSISDN. This is caller error, not a provider failure.
var ErrInvalidPhone = errors.New("invalid phone number format, use 07XXXXXXXX or +2547XXXXXXXX")

const countryCode = "254"

// NormalizePhone converts the raw customer number to the 12-digit
// international format the provider requires:
//
//	0712345678   -> 254712345678
//	+254712345678 -> 254712345678
//	254712345678 -> 254712345678
//	712345678    -> 254712345678
func NormalizePhone(raw string) (string, error) {
	n := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(n, "0"):
		n = countryCode + n[1:]
	case strings.HasPrefix(n, "+"):
		n = n[1:]
	case strings.HasPrefix(n, countryCode):
		// Already in the right format
	default:
		// Assume it's the local number without the leading 0
		n = countryCode + n
	}

	if len(n) != 12 || !strings.HasPrefix(n, countryCode) || !allDigits(n) {
		return "", ErrInvalidPhone
	}
	return n, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
