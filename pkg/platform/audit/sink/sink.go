// Package sink guards an audit store: operational events can be sampled down,
// and a circuit breaker stops writes while the store keeps failing so a broker
// outage does not stall the delivery worker.
package sink

import (
	"context"
	"errors"
	"log/slog"
	"time"

	audit "signup/pkg/platform/audit"
)

// ErrCircuitOpen is returned while writes are suspended.
var ErrCircuitOpen = errors.New("audit store circuit open")

type Sink struct {
	next    audit.Store
	breaker *breaker
	sampler *sampler
	metrics *Metrics
	logger  *slog.Logger
}

type Option func(*Sink)

// WithSampleRate sets the fraction of operational events kept.
func WithSampleRate(rate float64) Option {
	return func(s *Sink) {
		s.sampler.defaultRate = clamp(rate)
	}
}

// WithActionSampleRate overrides the rate for one operational event.
func WithActionSampleRate(event audit.AuditEvent, rate float64) Option {
	return func(s *Sink) {
		s.sampler.byAction[string(event)] = clamp(rate)
	}
}

func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(s *Sink) {
		s.breaker = newBreaker(threshold, cooldown)
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Sink) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

func New(next audit.Store, opts ...Option) *Sink {
	s := &Sink{
		next:    next,
		breaker: newBreaker(0, 0),
		sampler: newSampler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append implements audit.Store.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	if !s.sampler.keep(event) {
		if s.metrics != nil {
			s.metrics.Sampled.Inc()
		}
		return nil
	}
	if !s.breaker.allow() {
		if s.metrics != nil {
			s.metrics.CircuitDrops.Inc()
		}
		return ErrCircuitOpen
	}

	if err := s.next.Append(ctx, event); err != nil {
		opened := s.breaker.failure()
		if s.metrics != nil {
			s.metrics.WriteFailures.Inc()
			if opened {
				s.metrics.setOpen(true)
			}
		}
		if opened && s.logger != nil {
			s.logger.WarnContext(ctx, "audit store circuit opened", "error", err)
		}
		return err
	}

	s.breaker.success()
	if s.metrics != nil {
		s.metrics.Written.Inc()
		s.metrics.setOpen(false)
	}
	return nil
}

// Open reports whether writes are currently suspended.
func (s *Sink) Open() bool {
	return s.breaker.isOpen()
}
