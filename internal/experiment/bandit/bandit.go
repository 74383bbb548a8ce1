// Package bandit implements the variant-selection strategies for the engine.
//
// Every function operates on an immutable snapshot of per-variant statistics
// and is safe to call from any goroutine. Strategies that sample take an
// explicit rand.Source; given the same source state and the same arms, a
// strategy always produces the same choice.
package bandit

import (
	apperrors "github.com/splitsignal/splitsignal/internal/platform/errors"
)

// Arm is an immutable statistics snapshot for one variant.
type Arm struct {
	VariantID    string
	Observations int64
	Successes    int64
	Failures     int64
	Mean         float64
	// Weight is the static split weight used by fixed allocation.
	Weight float64
}

var (
	// ErrNoArms indicates a selection request without variants.
	ErrNoArms = apperrors.New(apperrors.CodeSelectionNoVariants, "at least one variant is required for selection")
	// ErrInvalidPrior indicates a non-positive Beta prior parameter.
	ErrInvalidPrior = apperrors.New(apperrors.CodeExperimentInvalidPrior, "prior alpha and beta must be positive")
	// ErrInvalidEpsilon indicates an exploration rate outside [0, 1].
	ErrInvalidEpsilon = apperrors.New(apperrors.CodeExperimentInvalidEpsilon, "epsilon must be between 0 and 1")
	// ErrInvalidExploration indicates a negative UCB exploration constant.
	ErrInvalidExploration = apperrors.New(apperrors.CodeExperimentInvalidExploration, "exploration constant must be non-negative")
	// ErrMissingSource indicates a sampling strategy was invoked without a random source.
	ErrMissingSource = apperrors.New(apperrors.CodeInferenceMissingSource, "random source is required")
	// ErrInvalidSampleCount indicates a non-positive Monte Carlo sample count.
	ErrInvalidSampleCount = apperrors.New(apperrors.CodeInferenceInvalidInput, "sample count must be positive")
	// ErrInvalidFraction indicates a split fraction outside [0, 1).
	ErrInvalidFraction = apperrors.New(apperrors.CodeInferenceInvalidInput, "split fraction must be in [0, 1)")
)

// bestMeanIndex returns the index of the arm with the highest observed mean,
// ties broken by input order.
func bestMeanIndex(arms []Arm) int {
	best := 0
	for i := 1; i < len(arms); i++ {
		if arms[i].Mean > arms[best].Mean {
			best = i
		}
	}
	return best
}
