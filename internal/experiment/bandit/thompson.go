package bandit

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Thompson selects a variant by Thompson sampling: each arm draws one sample
// from its Beta posterior and the largest draw wins, ties broken by input
// order.
//
// An arm with zero observations draws from the prior Beta(priorAlpha,
// priorBeta), which is how exploration emerges; there is no explicit epsilon
// term. Priors are validated positive, so posterior parameters are always
// positive by construction.
func Thompson(arms []Arm, priorAlpha, priorBeta float64, src rand.Source) (int, error) {
	if len(arms) == 0 {
		return 0, ErrNoArms
	}
	if priorAlpha <= 0 || priorBeta <= 0 {
		return 0, ErrInvalidPrior
	}
	if src == nil {
		return 0, ErrMissingSource
	}

	best := 0
	bestDraw := -1.0
	for i, arm := range arms {
		draw := posterior(arm, priorAlpha, priorBeta, src).Rand()
		if draw > bestDraw {
			best = i
			bestDraw = draw
		}
	}
	return best, nil
}

// ProbabilityToBeBest estimates, for every arm, the posterior probability
// that its true rate exceeds all others. It draws joint sets of posterior
// samples and counts, per arm, the fraction of sets in which that
// arm's draw is the strict maximum (ties resolve to the earliest arm).
func ProbabilityToBeBest(arms []Arm, priorAlpha, priorBeta float64, samples int, src rand.Source) ([]float64, error) {
	if len(arms) == 0 {
		return nil, ErrNoArms
	}
	if priorAlpha <= 0 || priorBeta <= 0 {
		return nil, ErrInvalidPrior
	}
	if samples <= 0 {
		return nil, ErrInvalidSampleCount
	}
	if src == nil {
		return nil, ErrMissingSource
	}

	posteriors := make([]distuv.Beta, len(arms))
	for i, arm := range arms {
		posteriors[i] = posterior(arm, priorAlpha, priorBeta, src)
	}

	wins := make([]int, len(arms))
	for draw := 0; draw < samples; draw++ {
		best := 0
		bestDraw := -1.0
		for i := range posteriors {
			sample := posteriors[i].Rand()
			if sample > bestDraw {
				best = i
				bestDraw = sample
			}
		}
		wins[best]++
	}

	probabilities := make([]float64, len(arms))
	for i, count := range wins {
		probabilities[i] = float64(count) / float64(samples)
	}
	return probabilities, nil
}

// posterior builds the Beta posterior for an arm under the given prior.
// distuv.Beta samples via gamma draws internally, so no native Beta sampler
// is needed.
func posterior(arm Arm, priorAlpha, priorBeta float64, src rand.Source) distuv.Beta {
	return distuv.Beta{
		Alpha: float64(arm.Successes) + priorAlpha,
		Beta:  float64(arm.Failures) + priorBeta,
		Src:   src,
	}
}
