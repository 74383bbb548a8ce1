package bandit

import "math"

// UCB selects a variant by the UCB1 rule. It is fully deterministic for a
// fixed arm snapshot: no randomness and no time dependence.
//
// Any arm with zero observations is selected before any explored arm, ties
// among unexplored arms broken by input order. Otherwise each arm scores
// mean + c*sqrt(2*ln(total)/n) and the argmax wins. With c = 0 the rule
// degenerates to pure exploitation; larger c widens exploration, and the
// bonus shrinks toward zero as the total observation count grows.
func UCB(arms []Arm, c float64) (int, error) {
	if len(arms) == 0 {
		return 0, ErrNoArms
	}
	if c < 0 {
		return 0, ErrInvalidExploration
	}

	// Unexplored arms have an unboundedly high score.
	var total int64
	for i, arm := range arms {
		if arm.Observations == 0 {
			return i, nil
		}
		total += arm.Observations
	}

	best := 0
	bestScore := math.Inf(-1)
	for i, arm := range arms {
		bonus := c * math.Sqrt(2*math.Log(float64(total))/float64(arm.Observations))
		if score := arm.Mean + bonus; score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best, nil
}
