package quality

// BonusUnits is the number of contributions above the free baseline.
func BonusUnits(contributions, baseline int) int {
	if units := contributions - baseline; units > 0 {
		return units
	}
	return 0
}

// BonusAmount converts units into a currency amount rounded to cents.
func BonusAmount(units int, rate float64) float64 {
	return round2(float64(units) * rate)
}
