package paycards

import (
	"net/http"
	"testing"
	"time"

	"storefront/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNumber(t *testing.T) {
	got, err := normalizeNumber("4111 1111-1111 1111")
	require.NoError(t, err)
	assert.Equal(t, "4111111111111111", got)

	for _, bad := range []string{"4111111111111112", "1234", "4111a11111111111", ""} {
		_, err := normalizeNumber(bad)
		var apiErr *utils.APIError
		require.ErrorAs(t, err, &apiErr, bad)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	}
}

func TestLuhnValid(t *testing.T) {
	assert.True(t, luhnValid("4111111111111111"))
	assert.True(t, luhnValid("5555555555554444"))
	assert.True(t, luhnValid("378282246310005"))
	assert.False(t, luhnValid("4111111111111121"))
}

func TestDetectBrand(t *testing.T) {
	tests := map[string]string{
		"4111111111111111": "visa",
		"5555555555554444": "mastercard",
		"2221000000000009": "mastercard",
		"378282246310005":  "amex",
		"6011111111111117": "discover",
		"6521000000000000": "discover",
		"6070000000000000": "rupay",
		"9999999999999999": "unknown",
	}
	for number, want := range tests {
		assert.Equal(t, want, detectBrand(number), number)
	}
}

func TestFingerprint(t *testing.T) {
	a := fingerprint([]byte("k1"), "4111111111111111")
	assert.Len(t, a, 64)
	assert.Equal(t, a, fingerprint([]byte("k1"), "4111111111111111"))
	assert.NotEqual(t, a, fingerprint([]byte("k2"), "4111111111111111"))
	assert.NotContains(t, a, "1111")
}

func TestNormalizeYear(t *testing.T) {
	assert.Equal(t, 2029, normalizeYear(29))
	assert.Equal(t, 2031, normalizeYear(2031))
}

func TestCheckExpiry(t *testing.T) {
	now := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, checkExpiry(10, 2026, now), "current month is still valid")
	assert.NoError(t, checkExpiry(1, 2030, now))
	assert.EqualError(t, checkExpiry(9, 2026, now), "Card has expired")
	assert.EqualError(t, checkExpiry(12, 2025, now), "Card has expired")
	assert.Error(t, checkExpiry(13, 2030, now))
	assert.Error(t, checkExpiry(0, 2030, now))
	assert.Error(t, checkExpiry(1, 2060, now))
}
