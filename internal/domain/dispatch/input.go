package dispatch

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	maxScenarioLength = 2000
	maxPriceDecimals  = 2
)

// maxPrice keeps prices inside NUMERIC(12,2).
var maxPrice = decimal.New(1, 10)

// ParsePrice parses the worker's price entry. The result is finite, positive
// and has at most two decimal places.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, newValidationError("price", "please enter a valid price")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, newValidationError("price", "please enter a valid price")
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, newValidationError("price", "must be greater than zero")
	}
	if d.GreaterThanOrEqual(maxPrice) {
		return decimal.Decimal{}, newValidationError("price", "is too large")
	}
	if -d.Exponent() > maxPriceDecimals && !d.Equal(d.Truncate(maxPriceDecimals)) {
		return decimal.Decimal{}, newValidationError("price", "supports at most two decimal places")
	}
	return d, nil
}

// NormalizeScenario trims the job description and rejects empty or oversized
// input.
func NormalizeScenario(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", newValidationError("scenario", "must not be empty")
	}
	if utf8.RuneCountInString(s) > maxScenarioLength {
		return "", newValidationError("scenario", "is too long")
	}
	return s, nil
}

// FormatLocation validates coordinates and renders them in the stored
// "lat,lng" form.
func FormatLocation(lat, lng float64) (string, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return "", newValidationError("latitude", "must be between -90 and 90")
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return "", newValidationError("longitude", "must be between -180 and 180")
	}
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64), nil
}

// NormalizeAvailability accepts the two worker-selectable status labels.
func NormalizeAvailability(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "ready", strings.ToLower(StatusReady):
		return StatusReady, nil
	case "break", strings.ToLower(StatusBreak):
		return StatusBreak, nil
	default:
		return "", newValidationError("status", "must be ready or break")
	}
}
