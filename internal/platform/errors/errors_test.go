package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	base := New(CodeNotFound, "experiment not found")
	wrapped := fmt.Errorf("load experiment: %w", base)

	if !stderrors.Is(wrapped, New(CodeNotFound, "different message")) {
		t.Fatal("expected errors with equal codes to match")
	}
	if stderrors.Is(wrapped, New(CodeExperimentNameEmpty, "experiment not found")) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeUnknown, "persist experiment", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"domain error", New(CodeNotFound, "missing"), CodeNotFound},
		{"wrapped domain error", fmt.Errorf("outer: %w", New(CodeExperimentStatusDisallowsOp, "not running")), CodeExperimentStatusDisallowsOp},
		{"foreign error", stderrors.New("plain"), CodeUnknown},
	}

	for _, tc := range cases {
		if got := CodeOf(tc.err); got != tc.want {
			t.Fatalf("%s: expected code %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeExperimentInvalidStatusChange, http.StatusConflict},
		{CodeExperimentStatusDisallowsOp, http.StatusConflict},
		{CodeExperimentVariantCount, http.StatusBadRequest},
		{CodeUnknown, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("code %q: expected status %d, got %d", tc.code, tc.want, got)
		}
	}
}
