package bandit

import "golang.org/x/exp/rand"

// EpsilonGreedy selects a variant by the epsilon-greedy rule: with
// probability epsilon a uniformly random arm (explore), otherwise the arm
// with the highest observed mean, ties broken by first maximum (exploit).
//
// The boundaries are exact: epsilon 0 always exploits and epsilon 1 always
// explores, because the uniform draw in [0, 1) is compared strictly against
// epsilon.
func EpsilonGreedy(arms []Arm, epsilon float64, src rand.Source) (int, error) {
	if len(arms) == 0 {
		return 0, ErrNoArms
	}
	if epsilon < 0 || epsilon > 1 {
		return 0, ErrInvalidEpsilon
	}
	if src == nil {
		return 0, ErrMissingSource
	}

	rng := rand.New(src)
	if rng.Float64() < epsilon {
		return rng.Intn(len(arms)), nil
	}
	return bestMeanIndex(arms), nil
}
