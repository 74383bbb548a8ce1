// Package bayes implements the Bayesian A/B analysis routines: significance
// testing, credible intervals, and expected loss over Beta-Bernoulli
// posteriors.
//
// All sampling routines take an explicit rand.Source and are pure over their
// inputs; sample counts bound their cost. Zero-observation inputs reduce to
// the prior Beta(priorAlpha, priorBeta), so no routine divides by zero or
// yields NaN as long as priors are positive.
package bayes

import (
	"sort"

	apperrors "github.com/splitsignal/splitsignal/internal/platform/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrInvalidPrior indicates a non-positive Beta prior parameter.
	ErrInvalidPrior = apperrors.New(apperrors.CodeExperimentInvalidPrior, "prior alpha and beta must be positive")
	// ErrInvalidThreshold indicates a significance threshold outside (0, 1).
	ErrInvalidThreshold = apperrors.New(apperrors.CodeExperimentInvalidThreshold, "significance threshold must be between 0 and 1")
	// ErrInvalidConfidence indicates a confidence level outside (0, 1).
	ErrInvalidConfidence = apperrors.New(apperrors.CodeInferenceInvalidInput, "confidence must be between 0 and 1")
	// ErrInvalidSampleCount indicates a non-positive Monte Carlo sample count.
	ErrInvalidSampleCount = apperrors.New(apperrors.CodeInferenceInvalidInput, "sample count must be positive")
	// ErrMissingSource indicates a sampling routine was invoked without a random source.
	ErrMissingSource = apperrors.New(apperrors.CodeInferenceMissingSource, "random source is required")
)

// Counts are the binary sufficient statistics for one variant.
type Counts struct {
	Successes int64
	Failures  int64
}

// Prior parameterizes the shared Beta prior.
type Prior struct {
	Alpha float64
	Beta  float64
}

// Uniform is the uninformative Beta(1, 1) prior.
var Uniform = Prior{Alpha: 1, Beta: 1}

func (p Prior) valid() bool {
	return p.Alpha > 0 && p.Beta > 0
}

// posterior builds the Beta posterior for counts under the prior.
func posterior(counts Counts, prior Prior, src rand.Source) distuv.Beta {
	return distuv.Beta{
		Alpha: float64(counts.Successes) + prior.Alpha,
		Beta:  float64(counts.Failures) + prior.Beta,
		Src:   src,
	}
}

// Result captures the outcome of a two-variant Bayesian test.
type Result struct {
	// ProbabilityToBeBest is the posterior probability that the treatment's
	// true rate exceeds the control's.
	ProbabilityToBeBest float64
	// IsSignificant reports whether the probability cleared the threshold in
	// either direction: a clearly better or clearly worse treatment both
	// count as a significant finding.
	IsSignificant bool
	// LiftMean is the mean relative lift (treatment - control) / control
	// across posterior draws.
	LiftMean float64
	// LiftLow and LiftHigh bound the credible interval of the lift
	// distribution at the threshold confidence.
	LiftLow  float64
	LiftHigh float64
}

// RunTest compares a treatment against a control by paired posterior
// sampling.
func RunTest(control, treatment Counts, threshold float64, prior Prior, samples int, src rand.Source) (Result, error) {
	if threshold <= 0 || threshold >= 1 {
		return Result{}, ErrInvalidThreshold
	}
	if !prior.valid() {
		return Result{}, ErrInvalidPrior
	}
	if samples <= 0 {
		return Result{}, ErrInvalidSampleCount
	}
	if src == nil {
		return Result{}, ErrMissingSource
	}

	controlPosterior := posterior(control, prior, src)
	treatmentPosterior := posterior(treatment, prior, src)

	wins := 0
	lifts := make([]float64, 0, samples)
	var liftSum float64
	for i := 0; i < samples; i++ {
		controlRate := controlPosterior.Rand()
		treatmentRate := treatmentPosterior.Rand()
		if treatmentRate > controlRate {
			wins++
		}
		if controlRate > 0 {
			lift := (treatmentRate - controlRate) / controlRate
			lifts = append(lifts, lift)
			liftSum += lift
		}
	}

	probability := float64(wins) / float64(samples)
	result := Result{
		ProbabilityToBeBest: probability,
		IsSignificant:       probability >= threshold || probability <= 1-threshold,
	}
	if len(lifts) > 0 {
		result.LiftMean = liftSum / float64(len(lifts))
		sort.Float64s(lifts)
		tail := (1 - threshold) / 2
		result.LiftLow = stat.Quantile(tail, stat.Empirical, lifts, nil)
		result.LiftHigh = stat.Quantile(1-tail, stat.Empirical, lifts, nil)
	}
	return result, nil
}

// CredibleInterval returns the central posterior interval containing the
// true rate with the given confidence. The interval strictly narrows as
// observations grow at fixed proportions and strictly widens as confidence
// increases for fixed data.
func CredibleInterval(counts Counts, confidence float64, prior Prior) (low, high float64, err error) {
	if confidence <= 0 || confidence >= 1 {
		return 0, 0, ErrInvalidConfidence
	}
	if !prior.valid() {
		return 0, 0, ErrInvalidPrior
	}

	dist := posterior(counts, prior, nil)
	tail := (1 - confidence) / 2
	return dist.Quantile(tail), dist.Quantile(1 - tail), nil
}

// ExpectedLoss estimates E[max(0, rate_control - rate_treatment)]: the
// expected cost of choosing the treatment if the control were actually
// better. It is near zero for statistically identical variants and sharpens
// toward the true rate gap as sample sizes grow.
func ExpectedLoss(control, treatment Counts, prior Prior, samples int, src rand.Source) (float64, error) {
	if !prior.valid() {
		return 0, ErrInvalidPrior
	}
	if samples <= 0 {
		return 0, ErrInvalidSampleCount
	}
	if src == nil {
		return 0, ErrMissingSource
	}

	controlPosterior := posterior(control, prior, src)
	treatmentPosterior := posterior(treatment, prior, src)

	var lossSum float64
	for i := 0; i < samples; i++ {
		if gap := controlPosterior.Rand() - treatmentPosterior.Rand(); gap > 0 {
			lossSum += gap
		}
	}
	return lossSum / float64(samples), nil
}
