package domain

import "math"

// Stats holds per-variant sufficient statistics.
//
// Binary metrics keep success/failure counts and derive the mean as the
// observed conversion rate. Continuous metrics maintain a running mean and
// M2 (sum of squared deviations) using Welford's algorithm, so variance is
// available without re-summing observations.
type Stats struct {
	Observations int64
	Successes    int64
	Failures     int64
	Mean         float64
	M2           float64
}

// Record folds one metric value into the statistics.
//
// For binary metrics a positive value counts as a success and anything else
// as a failure; the mean is always successes/observations. For continuous
// metrics the value updates the running mean and M2 incrementally.
func (s *Stats) Record(value float64, binary bool) {
	s.Observations++

	if binary {
		if value > 0 {
			s.Successes++
		} else {
			s.Failures++
		}
		s.Mean = float64(s.Successes) / float64(s.Observations)
		return
	}

	delta := value - s.Mean
	s.Mean += delta / float64(s.Observations)
	s.M2 += delta * (value - s.Mean)
}

// Variance returns the sample variance of recorded continuous values.
func (s Stats) Variance() float64 {
	if s.Observations < 2 {
		return 0
	}
	return s.M2 / float64(s.Observations-1)
}

// StdDev returns the sample standard deviation.
func (s Stats) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// Reset clears all counters. This is the only non-monotonic mutation.
func (s *Stats) Reset() {
	*s = Stats{}
}
