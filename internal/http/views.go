package http

import (
	"encoding/json"
	"time"

	"github.com/splitsignal/splitsignal/internal/experiment/domain"
	"github.com/splitsignal/splitsignal/internal/experiment/service"
)

type statsJSON struct {
	Observations int64   `json:"observations"`
	Successes    int64   `json:"successes"`
	Failures     int64   `json:"failures"`
	Mean         float64 `json:"mean"`
	Variance     float64 `json:"variance"`
}

type variantJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	IsControl bool            `json:"is_control"`
	Weight    float64         `json:"weight"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Stats     statsJSON       `json:"stats"`
}

type experimentJSON struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	Strategy              string        `json:"strategy"`
	PrimaryMetric         string        `json:"primary_metric"`
	PrimaryMetricBinary   bool          `json:"primary_metric_binary"`
	SecondaryMetrics      []string      `json:"secondary_metrics,omitempty"`
	TrafficAllocation     float64       `json:"traffic_allocation"`
	MinSampleSize         int64         `json:"min_sample_size"`
	SignificanceThreshold float64       `json:"significance_threshold"`
	AutoPromoteWinner     bool          `json:"auto_promote_winner"`
	PriorAlpha            float64       `json:"prior_alpha"`
	PriorBeta             float64       `json:"prior_beta"`
	Epsilon               float64       `json:"epsilon"`
	Exploration           float64       `json:"exploration"`
	Status                string        `json:"status"`
	WinnerVariantID       string        `json:"winner_variant_id,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
	StartedAt             *time.Time    `json:"started_at,omitempty"`
	ConcludedAt           *time.Time    `json:"concluded_at,omitempty"`
	Variants              []variantJSON `json:"variants,omitempty"`
}

type assignmentJSON struct {
	ID           string            `json:"id"`
	ExperimentID string            `json:"experiment_id"`
	VariantID    string            `json:"variant_id"`
	SubjectID    string            `json:"subject_id"`
	Context      map[string]string `json:"context,omitempty"`
	AssignedAt   time.Time         `json:"assigned_at"`
}

type decisionJSON struct {
	Excluded   bool            `json:"excluded"`
	Created    bool            `json:"created,omitempty"`
	Assignment *assignmentJSON `json:"assignment,omitempty"`
	Variant    *variantJSON    `json:"variant,omitempty"`
}

type observationJSON struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	ExperimentID string    `json:"experiment_id"`
	VariantID    string    `json:"variant_id"`
	Metric       string    `json:"metric"`
	Value        float64   `json:"value"`
	RecordedAt   time.Time `json:"recorded_at"`
}

type variantReportJSON struct {
	Variant             variantJSON `json:"variant"`
	ProbabilityToBeBest float64     `json:"probability_to_be_best"`
	CredibleLow         float64     `json:"credible_low"`
	CredibleHigh        float64     `json:"credible_high"`
}

type comparisonJSON struct {
	VariantID           string  `json:"variant_id"`
	ProbabilityToBeBest float64 `json:"probability_to_be_best"`
	IsSignificant       bool    `json:"is_significant"`
	LiftMean            float64 `json:"lift_mean"`
	LiftLow             float64 `json:"lift_low"`
	LiftHigh            float64 `json:"lift_high"`
	ExpectedLoss        float64 `json:"expected_loss"`
}

type reportJSON struct {
	Experiment          experimentJSON      `json:"experiment"`
	Variants            []variantReportJSON `json:"variants"`
	Comparisons         []comparisonJSON    `json:"comparisons,omitempty"`
	TotalObservations   int64               `json:"total_observations"`
	RecommendedAction   string              `json:"recommended_action"`
	RecommendedWinnerID string              `json:"recommended_winner_id,omitempty"`
}

func variantView(variant domain.Variant) variantJSON {
	return variantJSON{
		ID:        variant.ID,
		Name:      variant.Name,
		IsControl: variant.IsControl,
		Weight:    variant.Weight,
		Payload:   variant.Payload,
		Stats: statsJSON{
			Observations: variant.Stats.Observations,
			Successes:    variant.Stats.Successes,
			Failures:     variant.Stats.Failures,
			Mean:         variant.Stats.Mean,
			Variance:     variant.Stats.Variance(),
		},
	}
}

func experimentView(experiment domain.Experiment, variants []domain.Variant) experimentJSON {
	view := experimentJSON{
		ID:                    experiment.ID,
		Name:                  experiment.Config.Name,
		Strategy:              string(experiment.Config.Strategy),
		PrimaryMetric:         experiment.Config.PrimaryMetric,
		PrimaryMetricBinary:   experiment.Config.PrimaryMetricBinary,
		SecondaryMetrics:      experiment.Config.SecondaryMetrics,
		TrafficAllocation:     experiment.Config.TrafficAllocation,
		MinSampleSize:         experiment.Config.MinSampleSize,
		SignificanceThreshold: experiment.Config.SignificanceThreshold,
		AutoPromoteWinner:     experiment.Config.AutoPromoteWinner,
		PriorAlpha:            experiment.Config.PriorAlpha,
		PriorBeta:             experiment.Config.PriorBeta,
		Epsilon:               experiment.Config.Epsilon,
		Exploration:           experiment.Config.Exploration,
		Status:                string(experiment.Status),
		WinnerVariantID:       experiment.WinnerVariantID,
		CreatedAt:             experiment.CreatedAt,
		UpdatedAt:             experiment.UpdatedAt,
		StartedAt:             experiment.StartedAt,
		ConcludedAt:           experiment.ConcludedAt,
	}
	for _, variant := range variants {
		view.Variants = append(view.Variants, variantView(variant))
	}
	return view
}

func decisionView(decision service.Decision) decisionJSON {
	if decision.Excluded {
		return decisionJSON{Excluded: true}
	}

	assignment := assignmentJSON{
		ID:           decision.Assignment.ID,
		ExperimentID: decision.Assignment.ExperimentID,
		VariantID:    decision.Assignment.VariantID,
		SubjectID:    decision.Assignment.SubjectID,
		Context:      decision.Assignment.Context,
		AssignedAt:   decision.Assignment.AssignedAt,
	}
	variant := variantView(decision.Variant)
	return decisionJSON{
		Created:    decision.Created,
		Assignment: &assignment,
		Variant:    &variant,
	}
}

func reportView(report service.Report) reportJSON {
	view := reportJSON{
		Experiment:          experimentView(report.Experiment, nil),
		Variants:            make([]variantReportJSON, 0, len(report.Variants)),
		TotalObservations:   report.TotalObservations,
		RecommendedAction:   report.RecommendedAction,
		RecommendedWinnerID: report.RecommendedWinnerID,
	}
	for _, entry := range report.Variants {
		view.Variants = append(view.Variants, variantReportJSON{
			Variant:             variantView(entry.Variant),
			ProbabilityToBeBest: entry.ProbabilityToBeBest,
			CredibleLow:         entry.CredibleLow,
			CredibleHigh:        entry.CredibleHigh,
		})
	}
	for _, comparison := range report.Comparisons {
		view.Comparisons = append(view.Comparisons, comparisonJSON{
			VariantID:           comparison.VariantID,
			ProbabilityToBeBest: comparison.Result.ProbabilityToBeBest,
			IsSignificant:       comparison.Result.IsSignificant,
			LiftMean:            comparison.Result.LiftMean,
			LiftLow:             comparison.Result.LiftLow,
			LiftHigh:            comparison.Result.LiftHigh,
			ExpectedLoss:        comparison.ExpectedLoss,
		})
	}
	return view
}
