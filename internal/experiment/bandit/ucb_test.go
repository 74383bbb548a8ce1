package bandit

import (
	"errors"
	"testing"
)

func TestUCBSelectsUnexploredFirst(t *testing.T) {
	arms := []Arm{
		{VariantID: "a", Observations: 500, Successes: 450, Failures: 50, Mean: 0.9},
		{VariantID: "b"},
		{VariantID: "c"},
	}

	chosen, err := UCB(arms, 2)
	if err != nil {
		t.Fatalf("ucb: %v", err)
	}
	if chosen != 1 {
		t.Fatalf("expected first unexplored arm (index 1), got %d", chosen)
	}
}

func TestUCBDeterministic(t *testing.T) {
	arms := []Arm{
		{VariantID: "a", Observations: 4000, Successes: 1200, Failures: 2800, Mean: 0.3},
		{VariantID: "b", Observations: 4000, Successes: 1600, Failures: 2400, Mean: 0.4},
		{VariantID: "c", Observations: 2000, Successes: 700, Failures: 1300, Mean: 0.35},
	}

	first, err := UCB(arms, 2)
	if err != nil {
		t.Fatalf("ucb: %v", err)
	}
	for i := 0; i < 100; i++ {
		chosen, err := UCB(arms, 2)
		if err != nil {
			t.Fatalf("ucb: %v", err)
		}
		if chosen != first {
			t.Fatalf("repeat call %d returned %d, expected %d", i, chosen, first)
		}
	}
}

func TestUCBZeroConstantExploits(t *testing.T) {
	arms := []Arm{
		{VariantID: "a", Observations: 10, Successes: 2, Failures: 8, Mean: 0.2},
		{VariantID: "b", Observations: 1000, Successes: 450, Failures: 550, Mean: 0.45},
		{VariantID: "c", Observations: 10, Successes: 4, Failures: 6, Mean: 0.4},
	}

	chosen, err := UCB(arms, 0)
	if err != nil {
		t.Fatalf("ucb: %v", err)
	}
	if chosen != 1 {
		t.Fatalf("expected pure exploitation to pick the best mean, got index %d", chosen)
	}
}

func TestUCBExplorationBonusFavorsUndersampled(t *testing.T) {
	// The undersampled arm has a slightly lower mean but a much larger
	// exploration bonus, so a generous constant should pick it.
	arms := []Arm{
		{VariantID: "a", Observations: 10000, Successes: 5000, Failures: 5000, Mean: 0.5},
		{VariantID: "b", Observations: 10, Successes: 4, Failures: 6, Mean: 0.4},
	}

	chosen, err := UCB(arms, 2)
	if err != nil {
		t.Fatalf("ucb: %v", err)
	}
	if chosen != 1 {
		t.Fatalf("expected exploration to pick the undersampled arm, got %d", chosen)
	}

	exploit, err := UCB(arms, 0)
	if err != nil {
		t.Fatalf("ucb: %v", err)
	}
	if exploit != 0 {
		t.Fatalf("expected exploitation to pick the better mean, got %d", exploit)
	}
}

func TestUCBValidation(t *testing.T) {
	if _, err := UCB(nil, 2); !errors.Is(err, ErrNoArms) {
		t.Fatalf("expected ErrNoArms, got %v", err)
	}
	if _, err := UCB([]Arm{{VariantID: "a"}}, -1); !errors.Is(err, ErrInvalidExploration) {
		t.Fatalf("expected ErrInvalidExploration, got %v", err)
	}
}
