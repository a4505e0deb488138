package models

import "math"

// MinorToMajor converts a Stripe minor-unit amount (cents) to the decimal
// major-unit amount the platform stores.
func MinorToMajor(amount int64) float64 {
	return float64(amount) / 100
}

// MajorToMinor converts a platform decimal amount back to minor units.
// Rounds to absorb float representation error, so the conversion
// round-trips for any integer minor amount.
func MajorToMinor(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
