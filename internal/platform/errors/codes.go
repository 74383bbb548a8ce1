// Package errors provides structured error handling for the engine.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Experiment configuration errors
	CodeExperimentNameEmpty           Code = "EXPERIMENT_NAME_EMPTY"
	CodeExperimentVariantCount        Code = "EXPERIMENT_VARIANT_COUNT_INVALID"
	CodeExperimentInvalidAllocation   Code = "EXPERIMENT_INVALID_TRAFFIC_ALLOCATION"
	CodeExperimentInvalidStrategy     Code = "EXPERIMENT_INVALID_STRATEGY"
	CodeExperimentInvalidPrior        Code = "EXPERIMENT_INVALID_PRIOR"
	CodeExperimentInvalidEpsilon      Code = "EXPERIMENT_INVALID_EPSILON"
	CodeExperimentInvalidExploration  Code = "EXPERIMENT_INVALID_EXPLORATION"
	CodeExperimentInvalidThreshold    Code = "EXPERIMENT_INVALID_SIGNIFICANCE_THRESHOLD"
	CodeExperimentPrimaryMetricEmpty  Code = "EXPERIMENT_PRIMARY_METRIC_EMPTY"
	CodeExperimentInvalidStatusChange Code = "EXPERIMENT_INVALID_STATUS_TRANSITION"
	CodeExperimentStatusDisallowsOp   Code = "EXPERIMENT_STATUS_DISALLOWS_OPERATION"

	// Variant errors
	CodeVariantNameEmpty     Code = "VARIANT_NAME_EMPTY"
	CodeVariantInvalidWeight Code = "VARIANT_INVALID_WEIGHT"

	// Assignment errors
	CodeAssignmentSubjectEmpty Code = "SUBJECT_ID_EMPTY"

	// Observation errors
	CodeObservationMetricEmpty   Code = "OBSERVATION_METRIC_EMPTY"
	CodeObservationUnknownMetric Code = "OBSERVATION_UNKNOWN_METRIC"

	// Selection/inference errors
	CodeSelectionNoVariants    Code = "SELECTION_NO_VARIANTS"
	CodeInferenceInvalidInput  Code = "INFERENCE_INVALID_INPUT"
	CodeInferenceMissingSource Code = "INFERENCE_MISSING_RANDOM_SOURCE"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodePageTokenInvalid Code = "PAGE_TOKEN_INVALID"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeExperimentInvalidStatusChange, CodeExperimentStatusDisallowsOp:
		return http.StatusConflict
	case CodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
