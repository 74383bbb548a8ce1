package domain

import "strings"

// Strategy identifies the variant-selection algorithm for an experiment.
type Strategy string

const (
	StrategyUnspecified   Strategy = ""
	StrategyThompson      Strategy = "thompson"
	StrategyUCB           Strategy = "ucb"
	StrategyEpsilonGreedy Strategy = "epsilon_greedy"
	StrategyBayesianAB    Strategy = "bayesian_ab"
)

// ParseStrategy canonicalizes strategy labels from transport or storage.
func ParseStrategy(value string) (Strategy, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return StrategyUnspecified, false
	}
	switch strings.ToLower(trimmed) {
	case "thompson", "thompson_sampling":
		return StrategyThompson, true
	case "ucb", "ucb1":
		return StrategyUCB, true
	case "epsilon_greedy", "epsilon-greedy":
		return StrategyEpsilonGreedy, true
	case "bayesian_ab", "bayesian-ab":
		return StrategyBayesianAB, true
	default:
		return StrategyUnspecified, false
	}
}
