package paycards

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"storefront/utils"
)

// FingerprintKey keys the card number hash; set from config at startup.
var FingerprintKey = []byte("change-me")

// normalizeNumber strips spaces and dashes and rejects anything that is not
// a plausible card number.
func normalizeNumber(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, raw)
	if len(digits) < 12 || len(digits) > 19 {
		return "", utils.BadRequest("Card number must be 12 to 19 digits")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", utils.BadRequest("Card number must contain only digits")
		}
	}
	if !luhnValid(digits) {
		return "", utils.BadRequest("Invalid card number")
	}
	return digits, nil
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func prefixIn(digits string, n, lo, hi int) bool {
	if len(digits) < n {
		return false
	}
	v, err := strconv.Atoi(digits[:n])
	return err == nil && v >= lo && v <= hi
}

// detectBrand classifies a card number by its issuer prefix.
func detectBrand(digits string) string {
	switch {
	case strings.HasPrefix(digits, "4"):
		return "visa"
	case prefixIn(digits, 2, 51, 55), prefixIn(digits, 4, 2221, 2720):
		return "mastercard"
	case prefixIn(digits, 2, 34, 34), prefixIn(digits, 2, 37, 37):
		return "amex"
	case strings.HasPrefix(digits, "6011"), strings.HasPrefix(digits, "65"), prefixIn(digits, 3, 644, 649):
		return "discover"
	case prefixIn(digits, 2, 60, 60), prefixIn(digits, 2, 81, 82), prefixIn(digits, 3, 508, 508):
		return "rupay"
	default:
		return "unknown"
	}
}

// fingerprint identifies a card number without storing it.
func fingerprint(key []byte, digits string) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(digits))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeYear accepts two or four digit years.
func normalizeYear(year int) int {
	if year >= 0 && year < 100 {
		return 2000 + year
	}
	return year
}

func checkExpiry(month, year int, now time.Time) error {
	if month < 1 || month > 12 {
		return utils.BadRequest("Expiry month must be between 1 and 12")
	}
	y, m, _ := now.Date()
	if year < y || (year == y && month < int(m)) {
		return utils.BadRequest("Card has expired")
	}
	if year > y+20 {
		return utils.BadRequest("Expiry year is too far in the future")
	}
	return nil
}
