// Package service orchestrates the experimentation engine: lifecycle
// transitions, sticky variant assignment, observation recording, and
// statistical reports. It owns the per-experiment write serialization and is
// the only layer that touches storage, the bandit strategies, and the
// Bayesian engine together.
package service

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/splitsignal/splitsignal/internal/experiment/sink"
	"github.com/splitsignal/splitsignal/internal/experiment/storage"
	"github.com/splitsignal/splitsignal/internal/platform/id"
	"github.com/splitsignal/splitsignal/internal/platform/random"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// defaultSampleCount bounds the Monte Carlo work done per stats report.
const defaultSampleCount = 10000

// lockStripes is the size of the striped lock table. Writes for the same
// experiment always hash to the same stripe; different experiments rarely
// contend.
const lockStripes = 64

// Service coordinates the experimentation engine over a storage backend.
type Service struct {
	store       storage.Store
	events      sink.Sink
	logger      *zap.Logger
	now         func() time.Time
	newID       func() (string, error)
	newSource   func() rand.Source
	sampleCount int

	locks [lockStripes]sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithSink sets the outbound event sink.
func WithSink(events sink.Sink) Option {
	return func(s *Service) {
		if events != nil {
			s.events = events
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides identifier generation, primarily for tests.
func WithIDGenerator(generator func() (string, error)) Option {
	return func(s *Service) {
		if generator != nil {
			s.newID = generator
		}
	}
}

// WithRandomSource overrides the per-call random source factory so sampling
// strategies become deterministic under test.
func WithRandomSource(factory func() rand.Source) Option {
	return func(s *Service) {
		if factory != nil {
			s.newSource = factory
		}
	}
}

// WithSampleCount overrides the Monte Carlo sample count.
func WithSampleCount(samples int) Option {
	return func(s *Service) {
		if samples > 0 {
			s.sampleCount = samples
		}
	}
}

// New builds a Service over the provided store.
func New(store storage.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	s := &Service{
		store:       store,
		events:      sink.Noop{},
		logger:      zap.NewNop(),
		now:         time.Now,
		newID:       id.NewID,
		newSource:   random.NewEntropySource,
		sampleCount: defaultSampleCount,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// lockFor returns the stripe lock serializing writes for an experiment.
func (s *Service) lockFor(experimentID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(experimentID))
	return &s.locks[h.Sum32()%lockStripes]
}
