// Package domain holds the experiment aggregate: experiments, variants,
// per-variant sufficient statistics, assignments, and observations, together
// with the lifecycle state machine and configuration validation rules.
//
// Domain constructors take injectable clocks and id generators so callers
// control time and identity in tests. Nothing in this package performs I/O.
package domain
