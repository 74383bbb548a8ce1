package bandit

import (
	"errors"
	"testing"
)

func TestFixedSplitUniformWithoutWeights(t *testing.T) {
	arms := []Arm{{VariantID: "a"}, {VariantID: "b"}, {VariantID: "c"}, {VariantID: "d"}}

	cases := []struct {
		fraction float64
		want     int
	}{
		{0, 0},
		{0.24, 0},
		{0.25, 1},
		{0.5, 2},
		{0.74, 2},
		{0.75, 3},
		{0.999, 3},
	}

	for _, tc := range cases {
		chosen, err := FixedSplit(arms, tc.fraction)
		if err != nil {
			t.Fatalf("fixed split %v: %v", tc.fraction, err)
		}
		if chosen != tc.want {
			t.Fatalf("fraction %v: expected index %d, got %d", tc.fraction, tc.want, chosen)
		}
	}
}

func TestFixedSplitRespectsWeights(t *testing.T) {
	arms := []Arm{
		{VariantID: "control", Weight: 3},
		{VariantID: "treatment", Weight: 1},
	}

	cases := []struct {
		fraction float64
		want     int
	}{
		{0, 0},
		{0.5, 0},
		{0.74, 0},
		{0.75, 1},
		{0.99, 1},
	}

	for _, tc := range cases {
		chosen, err := FixedSplit(arms, tc.fraction)
		if err != nil {
			t.Fatalf("fixed split %v: %v", tc.fraction, err)
		}
		if chosen != tc.want {
			t.Fatalf("fraction %v: expected index %d, got %d", tc.fraction, tc.want, chosen)
		}
	}
}

func TestFixedSplitDeterministic(t *testing.T) {
	arms := []Arm{{VariantID: "a", Weight: 1}, {VariantID: "b", Weight: 2}}

	first, err := FixedSplit(arms, 0.42)
	if err != nil {
		t.Fatalf("fixed split: %v", err)
	}
	for i := 0; i < 50; i++ {
		chosen, err := FixedSplit(arms, 0.42)
		if err != nil {
			t.Fatalf("fixed split: %v", err)
		}
		if chosen != first {
			t.Fatalf("repeat call returned %d, expected %d", chosen, first)
		}
	}
}

func TestFixedSplitValidation(t *testing.T) {
	arms := []Arm{{VariantID: "a"}, {VariantID: "b"}}

	if _, err := FixedSplit(nil, 0.5); !errors.Is(err, ErrNoArms) {
		t.Fatalf("expected ErrNoArms, got %v", err)
	}
	if _, err := FixedSplit(arms, -0.1); !errors.Is(err, ErrInvalidFraction) {
		t.Fatalf("expected ErrInvalidFraction, got %v", err)
	}
	if _, err := FixedSplit(arms, 1); !errors.Is(err, ErrInvalidFraction) {
		t.Fatalf("expected ErrInvalidFraction, got %v", err)
	}
}
