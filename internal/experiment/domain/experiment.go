package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/splitsignal/splitsignal/internal/platform/id"
)

// Config captures the immutable configuration of an experiment.
type Config struct {
	Name                string
	Strategy            Strategy
	PrimaryMetric       string
	PrimaryMetricBinary bool
	SecondaryMetrics    []string
	// TrafficAllocation is the fraction of subjects admitted into the
	// experiment; the remainder receive the excluded outcome.
	TrafficAllocation     float64
	MinSampleSize         int64
	SignificanceThreshold float64
	AutoPromoteWinner     bool
	// PriorAlpha and PriorBeta parameterize the Beta prior shared by
	// Thompson sampling and the Bayesian analysis routines.
	PriorAlpha float64
	PriorBeta  float64
	// Epsilon is the exploration rate for the epsilon-greedy strategy.
	Epsilon float64
	// Exploration is the UCB1 exploration constant.
	Exploration float64
}

// Experiment represents an experiment and its lifecycle state.
type Experiment struct {
	ID     string
	Config Config
	Status Status
	// WinnerVariantID references the concluded winner, when one was chosen.
	WinnerVariantID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	ConcludedAt     *time.Time
}

// VariantInput describes one candidate variant at creation time.
type VariantInput struct {
	Name      string
	IsControl bool
	// Weight is the static split weight used by the fixed-allocation
	// strategy. Zero means "share the unweighted remainder equally".
	Weight float64
	// Payload is owned by the caller and opaque to the engine.
	Payload []byte
}

// CreateExperimentInput describes everything needed to create an experiment.
type CreateExperimentInput struct {
	Config   Config
	Variants []VariantInput
}

// CreateExperiment validates input and builds a draft experiment with its
// variant set. The variant set is fixed once the experiment leaves draft.
func CreateExperiment(input CreateExperimentInput, now func() time.Time, idGenerator func() (string, error)) (Experiment, []Variant, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeConfig(input.Config)
	if err != nil {
		return Experiment{}, nil, err
	}
	if len(input.Variants) < 2 {
		return Experiment{}, nil, ErrVariantCount
	}
	for _, variant := range input.Variants {
		if strings.TrimSpace(variant.Name) == "" {
			return Experiment{}, nil, ErrVariantNameEmpty
		}
		if variant.Weight < 0 {
			return Experiment{}, nil, ErrInvalidWeight
		}
	}

	experimentID, err := idGenerator()
	if err != nil {
		return Experiment{}, nil, fmt.Errorf("generate experiment id: %w", err)
	}

	createdAt := now().UTC()
	experiment := Experiment{
		ID:        experimentID,
		Config:    normalized,
		Status:    StatusDraft,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	variants := make([]Variant, 0, len(input.Variants))
	for _, input := range input.Variants {
		variantID, err := idGenerator()
		if err != nil {
			return Experiment{}, nil, fmt.Errorf("generate variant id: %w", err)
		}
		variants = append(variants, Variant{
			ID:           variantID,
			ExperimentID: experimentID,
			Name:         strings.TrimSpace(input.Name),
			IsControl:    input.IsControl,
			Weight:       input.Weight,
			Payload:      input.Payload,
			CreatedAt:    createdAt,
			UpdatedAt:    createdAt,
		})
	}

	return experiment, variants, nil
}

// NormalizeConfig trims and validates experiment configuration, applying
// defaults for unset prior and threshold parameters.
func NormalizeConfig(config Config) (Config, error) {
	config.Name = strings.TrimSpace(config.Name)
	if config.Name == "" {
		return Config{}, ErrEmptyName
	}

	config.PrimaryMetric = strings.TrimSpace(config.PrimaryMetric)
	if config.PrimaryMetric == "" {
		return Config{}, ErrPrimaryMetricEmpty
	}
	secondary := make([]string, 0, len(config.SecondaryMetrics))
	for _, metric := range config.SecondaryMetrics {
		trimmed := strings.TrimSpace(metric)
		if trimmed == "" {
			return Config{}, ErrMetricEmpty
		}
		secondary = append(secondary, trimmed)
	}
	config.SecondaryMetrics = secondary

	if _, ok := ParseStrategy(string(config.Strategy)); !ok {
		return Config{}, ErrInvalidStrategy
	}
	if config.TrafficAllocation < 0 || config.TrafficAllocation > 1 {
		return Config{}, ErrInvalidAllocation
	}

	if config.PriorAlpha == 0 {
		config.PriorAlpha = 1
	}
	if config.PriorBeta == 0 {
		config.PriorBeta = 1
	}
	if config.PriorAlpha <= 0 || config.PriorBeta <= 0 {
		return Config{}, ErrInvalidPrior
	}

	if config.SignificanceThreshold == 0 {
		config.SignificanceThreshold = 0.95
	}
	if config.SignificanceThreshold <= 0 || config.SignificanceThreshold >= 1 {
		return Config{}, ErrInvalidThreshold
	}

	if config.Epsilon < 0 || config.Epsilon > 1 {
		return Config{}, ErrInvalidEpsilon
	}
	if config.Exploration < 0 {
		return Config{}, ErrInvalidExploration
	}
	if config.MinSampleSize < 0 {
		config.MinSampleSize = 0
	}

	return config, nil
}

// Start transitions a draft experiment to running.
func (e *Experiment) Start(now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	if !isStatusTransitionAllowed(e.Status, StatusRunning) {
		return ErrInvalidStatusTransition
	}

	startedAt := now().UTC()
	e.Status = StatusRunning
	e.StartedAt = &startedAt
	e.UpdatedAt = startedAt
	return nil
}

// Conclude transitions a running experiment to completed, recording the
// winning variant when one was chosen.
func (e *Experiment) Conclude(winnerVariantID string, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	if !isStatusTransitionAllowed(e.Status, StatusCompleted) {
		return ErrInvalidStatusTransition
	}

	concludedAt := now().UTC()
	e.Status = StatusCompleted
	e.WinnerVariantID = winnerVariantID
	e.ConcludedAt = &concludedAt
	e.UpdatedAt = concludedAt
	return nil
}

// AcceptsMetric reports whether the experiment declared the metric.
func (e Experiment) AcceptsMetric(metric string) bool {
	if metric == e.Config.PrimaryMetric {
		return true
	}
	for _, declared := range e.Config.SecondaryMetrics {
		if metric == declared {
			return true
		}
	}
	return false
}
