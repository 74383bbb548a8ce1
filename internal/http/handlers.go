package http

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/splitsignal/splitsignal/internal/experiment/domain"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type variantInput struct {
	Name      string          `json:"name"`
	IsControl bool            `json:"is_control"`
	Weight    float64         `json:"weight"`
	Payload   json.RawMessage `json:"payload"`
}

type createExperimentRequest struct {
	Name                  string         `json:"name"`
	Strategy              string         `json:"strategy"`
	PrimaryMetric         string         `json:"primary_metric"`
	PrimaryMetricBinary   bool           `json:"primary_metric_binary"`
	SecondaryMetrics      []string       `json:"secondary_metrics"`
	TrafficAllocation     float64        `json:"traffic_allocation"`
	MinSampleSize         int64          `json:"min_sample_size"`
	SignificanceThreshold float64        `json:"significance_threshold"`
	AutoPromoteWinner     bool           `json:"auto_promote_winner"`
	PriorAlpha            float64        `json:"prior_alpha"`
	PriorBeta             float64        `json:"prior_beta"`
	Epsilon               float64        `json:"epsilon"`
	Exploration           float64        `json:"exploration"`
	Variants              []variantInput `json:"variants"`
}

func (s *Server) handleCreateExperiment(c echo.Context) error {
	var req createExperimentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	input := domain.CreateExperimentInput{
		Config: domain.Config{
			Name:                  req.Name,
			Strategy:              domain.Strategy(req.Strategy),
			PrimaryMetric:         req.PrimaryMetric,
			PrimaryMetricBinary:   req.PrimaryMetricBinary,
			SecondaryMetrics:      req.SecondaryMetrics,
			TrafficAllocation:     req.TrafficAllocation,
			MinSampleSize:         req.MinSampleSize,
			SignificanceThreshold: req.SignificanceThreshold,
			AutoPromoteWinner:     req.AutoPromoteWinner,
			PriorAlpha:            req.PriorAlpha,
			PriorBeta:             req.PriorBeta,
			Epsilon:               req.Epsilon,
			Exploration:           req.Exploration,
		},
	}
	for _, variant := range req.Variants {
		input.Variants = append(input.Variants, domain.VariantInput{
			Name:      variant.Name,
			IsControl: variant.IsControl,
			Weight:    variant.Weight,
			Payload:   variant.Payload,
		})
	}

	experiment, variants, err := s.service.CreateExperiment(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, experimentView(experiment, variants))
}

func (s *Server) handleGetExperiment(c echo.Context) error {
	experiment, variants, err := s.service.GetExperiment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, experimentView(experiment, variants))
}

func (s *Server) handleListExperiments(c echo.Context) error {
	pageSize := defaultPageSize
	if raw := c.QueryParam("page_size"); raw != "" {
		if err := echo.QueryParamsBinder(c).Int("page_size", &pageSize).BindError(); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid page_size")
		}
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		return echo.NewHTTPError(http.StatusBadRequest, "page_size out of range")
	}

	page, err := s.service.ListExperiments(c.Request().Context(), pageSize, c.QueryParam("page_token"))
	if err != nil {
		return err
	}

	experiments := make([]experimentJSON, 0, len(page.Experiments))
	for _, experiment := range page.Experiments {
		experiments = append(experiments, experimentView(experiment, nil))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"experiments":     experiments,
		"next_page_token": page.NextPageToken,
	})
}

func (s *Server) handleStartExperiment(c echo.Context) error {
	experiment, err := s.service.StartExperiment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, experimentView(experiment, nil))
}

type concludeRequest struct {
	WinnerVariantID string `json:"winner_variant_id"`
}

func (s *Server) handleConcludeExperiment(c echo.Context) error {
	var req concludeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	experiment, err := s.service.ConcludeExperiment(c.Request().Context(), c.Param("id"), req.WinnerVariantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, experimentView(experiment, nil))
}

type assignRequest struct {
	SubjectID string            `json:"subject_id"`
	Context   map[string]string `json:"context"`
}

func (s *Server) handleAssignVariant(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SubjectID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject_id is required")
	}

	decision, err := s.service.AssignVariant(c.Request().Context(), c.Param("id"), req.SubjectID, req.Context)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decisionView(decision))
}

type observationRequest struct {
	AssignmentID string  `json:"assignment_id"`
	Metric       string  `json:"metric"`
	Value        float64 `json:"value"`
}

func (s *Server) handleRecordObservation(c echo.Context) error {
	var req observationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.AssignmentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "assignment_id is required")
	}

	observation, variant, err := s.service.RecordObservation(c.Request().Context(), req.AssignmentID, req.Metric, req.Value)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"observation": observationJSON{
			ID:           observation.ID,
			AssignmentID: observation.AssignmentID,
			ExperimentID: observation.ExperimentID,
			VariantID:    observation.VariantID,
			Metric:       observation.Metric,
			Value:        observation.Value,
			RecordedAt:   observation.RecordedAt,
		},
		"variant": variantView(variant),
	})
}

func (s *Server) handleGetStats(c echo.Context) error {
	report, err := s.service.GetExperimentStats(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reportView(report))
}
