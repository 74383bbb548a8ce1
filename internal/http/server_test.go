package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/splitsignal/splitsignal/internal/experiment/service"
	sqlitestore "github.com/splitsignal/splitsignal/internal/experiment/storage/sqlite"
	"golang.org/x/exp/rand"
)

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	rec := doRequest(t, server, http.MethodGet, "/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestCreateExperimentEndpoint(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	rec := doRequest(t, server, http.MethodPost, "/api/v1/experiments", createBody())

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Variants []struct {
			ID        string `json:"id"`
			IsControl bool   `json:"is_control"`
		} `json:"variants"`
	}
	decodeBody(t, rec, &body)
	if body.ID == "" || body.Status != "draft" {
		t.Fatalf("unexpected create response: %+v", body)
	}
	if len(body.Variants) != 2 || !body.Variants[0].IsControl {
		t.Fatalf("unexpected variants: %+v", body.Variants)
	}
}

func TestCreateExperimentValidationError(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	// Missing name trips config validation.
	body := strings.Replace(createBody(), `"name": "checkout-button",`, "", 1)
	rec := doRequest(t, server, http.MethodPost, "/api/v1/experiments", body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var errBody errorResponse
	decodeBody(t, rec, &errBody)
	if errBody.Code != "EXPERIMENT_NAME_EMPTY" {
		t.Fatalf("unexpected error code %q", errBody.Code)
	}
}

func TestGetExperimentNotFound(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	rec := doRequest(t, server, http.MethodGet, "/api/v1/experiments/missing", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var errBody errorResponse
	decodeBody(t, rec, &errBody)
	if errBody.Code != "NOT_FOUND" {
		t.Fatalf("unexpected error code %q", errBody.Code)
	}
}

func TestAssignBeforeStartConflicts(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	experimentID := createExperiment(t, server)

	rec := doRequest(t, server, http.MethodPost,
		fmt.Sprintf("/api/v1/experiments/%s/assignments", experimentID),
		`{"subject_id": "user-1"}`)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var errBody errorResponse
	decodeBody(t, rec, &errBody)
	if errBody.Code != "EXPERIMENT_STATUS_DISALLOWS_OPERATION" {
		t.Fatalf("unexpected error code %q", errBody.Code)
	}
}

func TestExperimentFlowOverHTTP(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	experimentID := createExperiment(t, server)

	// Start.
	rec := doRequest(t, server, http.MethodPost,
		fmt.Sprintf("/api/v1/experiments/%s/start", experimentID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Assign.
	rec = doRequest(t, server, http.MethodPost,
		fmt.Sprintf("/api/v1/experiments/%s/assignments", experimentID),
		`{"subject_id": "user-1", "context": {"country": "CA"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("assign: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var decision struct {
		Excluded   bool `json:"excluded"`
		Assignment *struct {
			ID        string `json:"id"`
			VariantID string `json:"variant_id"`
		} `json:"assignment"`
	}
	decodeBody(t, rec, &decision)
	if decision.Excluded || decision.Assignment == nil {
		t.Fatalf("unexpected decision: %s", rec.Body.String())
	}

	// Repeat assignment is sticky.
	rec = doRequest(t, server, http.MethodPost,
		fmt.Sprintf("/api/v1/experiments/%s/assignments", experimentID),
		`{"subject_id": "user-1"}`)
	var repeat struct {
		Assignment *struct {
			ID string `json:"id"`
		} `json:"assignment"`
	}
	decodeBody(t, rec, &repeat)
	if repeat.Assignment == nil || repeat.Assignment.ID != decision.Assignment.ID {
		t.Fatalf("expected sticky assignment, got %s", rec.Body.String())
	}

	// Observe.
	rec = doRequest(t, server, http.MethodPost, "/api/v1/observations",
		fmt.Sprintf(`{"assignment_id": %q, "metric": "conversion", "value": 1}`, decision.Assignment.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("observe: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Undeclared metric is rejected.
	rec = doRequest(t, server, http.MethodPost, "/api/v1/observations",
		fmt.Sprintf(`{"assignment_id": %q, "metric": "undeclared", "value": 1}`, decision.Assignment.ID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for undeclared metric, got %d", rec.Code)
	}

	// Stats.
	rec = doRequest(t, server, http.MethodGet,
		fmt.Sprintf("/api/v1/experiments/%s/stats", experimentID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report struct {
		RecommendedAction string `json:"recommended_action"`
		TotalObservations int64  `json:"total_observations"`
	}
	decodeBody(t, rec, &report)
	if report.RecommendedAction == "" || report.TotalObservations != 1 {
		t.Fatalf("unexpected report: %s", rec.Body.String())
	}

	// Conclude with an explicit winner.
	rec = doRequest(t, server, http.MethodPost,
		fmt.Sprintf("/api/v1/experiments/%s/conclude", experimentID),
		fmt.Sprintf(`{"winner_variant_id": %q}`, decision.Assignment.VariantID))
	if rec.Code != http.StatusOK {
		t.Fatalf("conclude: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var concluded struct {
		Status          string `json:"status"`
		WinnerVariantID string `json:"winner_variant_id"`
	}
	decodeBody(t, rec, &concluded)
	if concluded.Status != "completed" || concluded.WinnerVariantID != decision.Assignment.VariantID {
		t.Fatalf("unexpected concluded experiment: %s", rec.Body.String())
	}
}

func TestListExperimentsEndpoint(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	createExperiment(t, server)
	createExperiment(t, server)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/experiments?page_size=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Experiments   []json.RawMessage `json:"experiments"`
		NextPageToken string            `json:"next_page_token"`
	}
	decodeBody(t, rec, &body)
	if len(body.Experiments) != 1 || body.NextPageToken == "" {
		t.Fatalf("unexpected list response: %s", rec.Body.String())
	}

	rec = doRequest(t, server, http.MethodGet, "/api/v1/experiments?page_size=0", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad page size, got %d", rec.Code)
	}
}

// Test helpers

func createBody() string {
	return `{
		"name": "checkout-button",
		"strategy": "thompson",
		"primary_metric": "conversion",
		"primary_metric_binary": true,
		"secondary_metrics": ["revenue"],
		"traffic_allocation": 1,
		"variants": [
			{"name": "control", "is_control": true},
			{"name": "treatment"}
		]
	}`
}

func createExperiment(t *testing.T, server *Server) string {
	t.Helper()

	rec := doRequest(t, server, http.MethodPost, "/api/v1/experiments", createBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create experiment: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &body)
	return body.ID
}

func doRequest(t *testing.T, server *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echoHeaderContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "experiments.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Fatalf("close store: %v", closeErr)
		}
	})

	clock := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	svc, err := service.New(store,
		service.WithClock(func() time.Time { return clock }),
		service.WithRandomSource(func() rand.Source { return rand.NewSource(1) }),
		service.WithSampleCount(2000),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	server, err := NewServer(svc, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return server
}
