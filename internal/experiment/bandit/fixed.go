package bandit

// FixedSplit selects a variant by a deterministic weighted split over the
// provided fraction in [0, 1). The fraction is typically derived from the
// subject's allocation hash, so the chosen arm is a pure function of the
// subject and the static weights.
//
// Arms without positive weights share the split equally when no arm carries
// a weight; when at least one arm is weighted, zero-weight arms are never
// chosen.
func FixedSplit(arms []Arm, fraction float64) (int, error) {
	if len(arms) == 0 {
		return 0, ErrNoArms
	}
	if fraction < 0 || fraction >= 1 {
		return 0, ErrInvalidFraction
	}

	weights := make([]float64, len(arms))
	var total float64
	for i, arm := range arms {
		weights[i] = arm.Weight
		total += arm.Weight
	}
	if total == 0 {
		for i := range weights {
			weights[i] = 1
		}
		total = float64(len(arms))
	}

	target := fraction * total
	var cumulative float64
	for i, weight := range weights {
		cumulative += weight
		if target < cumulative {
			return i, nil
		}
	}
	// Floating-point accumulation can land exactly on the upper edge.
	return len(arms) - 1, nil
}
