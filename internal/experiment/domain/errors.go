package domain

import apperrors "github.com/splitsignal/splitsignal/internal/platform/errors"

var (
	// ErrEmptyName indicates a missing experiment name.
	ErrEmptyName = apperrors.New(apperrors.CodeExperimentNameEmpty, "experiment name is required")
	// ErrVariantCount indicates fewer than two variants were supplied.
	ErrVariantCount = apperrors.New(apperrors.CodeExperimentVariantCount, "experiment requires at least two variants")
	// ErrInvalidAllocation indicates a traffic allocation outside [0, 1].
	ErrInvalidAllocation = apperrors.New(apperrors.CodeExperimentInvalidAllocation, "traffic allocation must be between 0 and 1")
	// ErrInvalidStrategy indicates a missing or unknown selection strategy.
	ErrInvalidStrategy = apperrors.New(apperrors.CodeExperimentInvalidStrategy, "selection strategy is unknown")
	// ErrInvalidPrior indicates a non-positive Beta prior parameter.
	ErrInvalidPrior = apperrors.New(apperrors.CodeExperimentInvalidPrior, "prior alpha and beta must be positive")
	// ErrInvalidEpsilon indicates an exploration rate outside [0, 1].
	ErrInvalidEpsilon = apperrors.New(apperrors.CodeExperimentInvalidEpsilon, "epsilon must be between 0 and 1")
	// ErrInvalidExploration indicates a negative UCB exploration constant.
	ErrInvalidExploration = apperrors.New(apperrors.CodeExperimentInvalidExploration, "exploration constant must be non-negative")
	// ErrInvalidThreshold indicates a significance threshold outside (0, 1).
	ErrInvalidThreshold = apperrors.New(apperrors.CodeExperimentInvalidThreshold, "significance threshold must be between 0 and 1")
	// ErrPrimaryMetricEmpty indicates a missing primary metric name.
	ErrPrimaryMetricEmpty = apperrors.New(apperrors.CodeExperimentPrimaryMetricEmpty, "primary metric name is required")
	// ErrInvalidStatusTransition indicates a disallowed experiment status change.
	ErrInvalidStatusTransition = apperrors.New(apperrors.CodeExperimentInvalidStatusChange, "experiment status transition is not allowed")
	// ErrStatusDisallowsOperation indicates the experiment is in the wrong state for an operation.
	ErrStatusDisallowsOperation = apperrors.New(apperrors.CodeExperimentStatusDisallowsOp, "experiment status disallows this operation")
	// ErrVariantNameEmpty indicates a missing variant display name.
	ErrVariantNameEmpty = apperrors.New(apperrors.CodeVariantNameEmpty, "variant name is required")
	// ErrInvalidWeight indicates a negative static variant weight.
	ErrInvalidWeight = apperrors.New(apperrors.CodeVariantInvalidWeight, "variant weight must be non-negative")
	// ErrSubjectEmpty indicates a missing assignment subject id.
	ErrSubjectEmpty = apperrors.New(apperrors.CodeAssignmentSubjectEmpty, "subject id is required")
	// ErrMetricEmpty indicates a missing observation metric name.
	ErrMetricEmpty = apperrors.New(apperrors.CodeObservationMetricEmpty, "observation metric name is required")
	// ErrUnknownMetric indicates a metric not declared by the experiment.
	ErrUnknownMetric = apperrors.New(apperrors.CodeObservationUnknownMetric, "metric is not declared by the experiment")
)
