package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/splitsignal/splitsignal/internal/experiment/bandit"
	"github.com/splitsignal/splitsignal/internal/experiment/bayes"
	"github.com/splitsignal/splitsignal/internal/experiment/domain"
)

// Recommended actions in a stats report.
const (
	ActionContinue       = "continue"
	ActionConcludeWinner = "conclude_winner"
)

// VariantReport is the analysis view of one variant.
type VariantReport struct {
	Variant  domain.Variant
	Variance float64
	// ProbabilityToBeBest is zero unless the joint posterior was evaluated.
	ProbabilityToBeBest float64
	// CredibleLow and CredibleHigh bound the posterior rate for binary
	// primary metrics.
	CredibleLow  float64
	CredibleHigh float64
}

// Comparison is a Bayesian test of one treatment against the control.
type Comparison struct {
	VariantID    string
	Result       bayes.Result
	ExpectedLoss float64
}

// Report is the full stats report for an experiment.
type Report struct {
	Experiment        domain.Experiment
	Variants          []VariantReport
	Comparisons       []Comparison
	TotalObservations int64
	// RecommendedAction is "continue" or "conclude_winner".
	RecommendedAction   string
	RecommendedWinnerID string
}

// GetExperimentStats builds the analysis report for an experiment. It is
// valid in every lifecycle state and reads an immutable stats snapshot; all
// Monte Carlo work happens outside any lock. When the experiment has
// auto-promotion enabled and the report recommends a winner, the experiment
// is concluded with that winner as a side effect.
func (s *Service) GetExperimentStats(ctx context.Context, experimentID string) (Report, error) {
	experiment, err := s.store.GetExperiment(ctx, experimentID)
	if err != nil {
		return Report{}, err
	}
	variants, err := s.store.ListVariantsByExperiment(ctx, experimentID)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Experiment:        experiment,
		Variants:          make([]VariantReport, len(variants)),
		RecommendedAction: ActionContinue,
	}

	binary := experiment.Config.PrimaryMetricBinary
	prior := bayes.Prior{Alpha: experiment.Config.PriorAlpha, Beta: experiment.Config.PriorBeta}
	threshold := experiment.Config.SignificanceThreshold

	observed := 0
	for i, variant := range variants {
		entry := VariantReport{
			Variant:  variant,
			Variance: variant.Stats.Variance(),
		}
		if binary {
			low, high, err := bayes.CredibleInterval(counts(variant), threshold, prior)
			if err != nil {
				return Report{}, fmt.Errorf("credible interval for %s: %w", variant.ID, err)
			}
			entry.CredibleLow = low
			entry.CredibleHigh = high
		}
		report.Variants[i] = entry
		report.TotalObservations += variant.Stats.Observations
		if variant.Stats.Observations > 0 {
			observed++
		}
	}

	// The joint posterior is only meaningful once at least two variants
	// carry binary outcome data.
	if binary && observed >= 2 {
		probabilities, err := bandit.ProbabilityToBeBest(
			snapshotArms(variants),
			experiment.Config.PriorAlpha,
			experiment.Config.PriorBeta,
			s.sampleCount,
			s.newSource(),
		)
		if err != nil {
			return Report{}, fmt.Errorf("probability to be best: %w", err)
		}

		best := 0
		for i, probability := range probabilities {
			report.Variants[i].ProbabilityToBeBest = probability
			if probability > probabilities[best] {
				best = i
			}
		}
		if probabilities[best] >= threshold && report.TotalObservations >= experiment.Config.MinSampleSize {
			report.RecommendedAction = ActionConcludeWinner
			report.RecommendedWinnerID = variants[best].ID
		}
	}

	if binary && experiment.Config.Strategy == domain.StrategyBayesianAB && len(variants) >= 2 {
		comparisons, err := s.compareAgainstControl(variants, threshold, prior)
		if err != nil {
			return Report{}, err
		}
		report.Comparisons = comparisons
	}

	// Auto-promotion concludes on the recommendation the moment the report
	// observes it.
	if experiment.Config.AutoPromoteWinner &&
		experiment.Status == domain.StatusRunning &&
		report.RecommendedAction == ActionConcludeWinner {
		concluded, err := s.ConcludeExperiment(ctx, experiment.ID, report.RecommendedWinnerID)
		switch {
		case err == nil:
			report.Experiment = concluded
		case errors.Is(err, domain.ErrInvalidStatusTransition):
			// A racing caller concluded first; the report keeps its snapshot.
		default:
			return Report{}, err
		}
	}

	return report, nil
}

// compareAgainstControl runs the Bayesian test for every treatment against
// the control variant (the flagged control, or the first variant).
func (s *Service) compareAgainstControl(variants []domain.Variant, threshold float64, prior bayes.Prior) ([]Comparison, error) {
	control := variants[0]
	for _, variant := range variants {
		if variant.IsControl {
			control = variant
			break
		}
	}

	comparisons := make([]Comparison, 0, len(variants)-1)
	for _, variant := range variants {
		if variant.ID == control.ID {
			continue
		}
		result, err := bayes.RunTest(counts(control), counts(variant), threshold, prior, s.sampleCount, s.newSource())
		if err != nil {
			return nil, fmt.Errorf("bayesian test for %s: %w", variant.ID, err)
		}
		loss, err := bayes.ExpectedLoss(counts(control), counts(variant), prior, s.sampleCount, s.newSource())
		if err != nil {
			return nil, fmt.Errorf("expected loss for %s: %w", variant.ID, err)
		}
		comparisons = append(comparisons, Comparison{
			VariantID:    variant.ID,
			Result:       result,
			ExpectedLoss: loss,
		})
	}
	return comparisons, nil
}

// recommendWinner resolves the default winner for Conclude when the caller
// omitted one. It mirrors the report's recommendation and returns empty when
// no variant cleared the bar.
func (s *Service) recommendWinner(experiment domain.Experiment, variants []domain.Variant) string {
	if !experiment.Config.PrimaryMetricBinary || len(variants) < 2 {
		return ""
	}

	observed := 0
	var total int64
	for _, variant := range variants {
		total += variant.Stats.Observations
		if variant.Stats.Observations > 0 {
			observed++
		}
	}
	if observed < 2 || total < experiment.Config.MinSampleSize {
		return ""
	}

	probabilities, err := bandit.ProbabilityToBeBest(
		snapshotArms(variants),
		experiment.Config.PriorAlpha,
		experiment.Config.PriorBeta,
		s.sampleCount,
		s.newSource(),
	)
	if err != nil {
		return ""
	}

	best := 0
	for i, probability := range probabilities {
		if probability > probabilities[best] {
			best = i
		}
	}
	if probabilities[best] < experiment.Config.SignificanceThreshold {
		return ""
	}
	return variants[best].ID
}

func counts(variant domain.Variant) bayes.Counts {
	return bayes.Counts{
		Successes: variant.Stats.Successes,
		Failures:  variant.Stats.Failures,
	}
}
