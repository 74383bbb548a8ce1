package bandit

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func TestThompsonPrefersBetterArm(t *testing.T) {
	arms := []Arm{
		{VariantID: "a", Observations: 100, Successes: 10, Failures: 90, Mean: 0.1},
		{VariantID: "b", Observations: 100, Successes: 50, Failures: 50, Mean: 0.5},
	}

	src := rand.NewSource(1)
	counts := make([]int, len(arms))
	for i := 0; i < 1000; i++ {
		chosen, err := Thompson(arms, 1, 1, src)
		if err != nil {
			t.Fatalf("thompson: %v", err)
		}
		counts[chosen]++
	}

	if counts[1] <= 700 {
		t.Fatalf("expected better arm chosen more than 700/1000 times, got %d", counts[1])
	}
}

func TestThompsonExploresUnobservedArm(t *testing.T) {
	arms := []Arm{
		{VariantID: "seasoned", Observations: 1000, Successes: 900, Failures: 100, Mean: 0.9},
		{VariantID: "fresh"},
	}

	src := rand.NewSource(7)
	freshChosen := 0
	for i := 0; i < 5000; i++ {
		chosen, err := Thompson(arms, 1, 1, src)
		if err != nil {
			t.Fatalf("thompson: %v", err)
		}
		if chosen == 1 {
			freshChosen++
		}
	}

	// The fresh arm draws from the uniform prior, so it beats a 0.9-rate arm
	// roughly 10% of the time. It must be explored, if rarely.
	if freshChosen == 0 {
		t.Fatal("expected the unobserved arm to be explored at least once")
	}
	if freshChosen > 2500 {
		t.Fatalf("expected the unobserved arm to remain the minority choice, got %d/5000", freshChosen)
	}
}

func TestThompsonValidation(t *testing.T) {
	arms := []Arm{{VariantID: "a"}, {VariantID: "b"}}

	if _, err := Thompson(nil, 1, 1, rand.NewSource(1)); !errors.Is(err, ErrNoArms) {
		t.Fatalf("expected ErrNoArms, got %v", err)
	}
	if _, err := Thompson(arms, 0, 1, rand.NewSource(1)); !errors.Is(err, ErrInvalidPrior) {
		t.Fatalf("expected ErrInvalidPrior, got %v", err)
	}
	if _, err := Thompson(arms, 1, 1, nil); !errors.Is(err, ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
}

func TestThompsonReproducible(t *testing.T) {
	arms := []Arm{
		{VariantID: "a", Observations: 20, Successes: 5, Failures: 15, Mean: 0.25},
		{VariantID: "b", Observations: 20, Successes: 12, Failures: 8, Mean: 0.6},
		{VariantID: "c", Observations: 20, Successes: 9, Failures: 11, Mean: 0.45},
	}

	run := func(seed uint64) []int {
		src := rand.NewSource(seed)
		choices := make([]int, 50)
		for i := range choices {
			chosen, err := Thompson(arms, 1, 1, src)
			if err != nil {
				t.Fatalf("thompson: %v", err)
			}
			choices[i] = chosen
		}
		return choices
	}

	first, second := run(99), run(99)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("draw %d diverged between identical seeds: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestProbabilityToBeBest(t *testing.T) {
	arms := []Arm{
		{VariantID: "a", Observations: 1000, Successes: 200, Failures: 800, Mean: 0.2},
		{VariantID: "b", Observations: 1000, Successes: 600, Failures: 400, Mean: 0.6},
	}

	probabilities, err := ProbabilityToBeBest(arms, 1, 1, 4000, rand.NewSource(3))
	if err != nil {
		t.Fatalf("probability to be best: %v", err)
	}

	var sum float64
	for _, p := range probabilities {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("expected probabilities to sum to 1, got %v", sum)
	}
	if probabilities[1] < 0.99 {
		t.Fatalf("expected clear winner probability above 0.99, got %v", probabilities[1])
	}
}

func TestProbabilityToBeBestZeroObservations(t *testing.T) {
	arms := []Arm{{VariantID: "a"}, {VariantID: "b"}, {VariantID: "c"}}

	probabilities, err := ProbabilityToBeBest(arms, 1, 1, 6000, rand.NewSource(11))
	if err != nil {
		t.Fatalf("probability to be best: %v", err)
	}

	// All arms share the prior, so each should be best about a third of the
	// time, and nothing may be NaN.
	for i, p := range probabilities {
		if math.IsNaN(p) {
			t.Fatalf("arm %d probability is NaN", i)
		}
		if p < 0.25 || p > 0.42 {
			t.Fatalf("arm %d probability %v outside uniform band", i, p)
		}
	}
}
