package sink

import (
	"math/rand/v2"

	audit "signup/pkg/platform/audit"
)

// sampler keeps a fraction of operational events. Rates are clamped to [0, 1].
type sampler struct {
	defaultRate float64
	byAction    map[string]float64
	rand        func() float64
}

func newSampler() *sampler {
	return &sampler{
		defaultRate: 1,
		byAction:    make(map[string]float64),
		rand:        rand.Float64, //nolint:gosec // sampling doesn't need crypto rand
	}
}

func clamp(rate float64) float64 {
	switch {
	case rate < 0:
		return 0
	case rate > 1:
		return 1
	}
	return rate
}

// keep reports whether the event survives sampling. Compliance and security
// events are always kept.
func (s *sampler) keep(event audit.Event) bool {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	if category != audit.CategoryOperations {
		return true
	}
	rate, ok := s.byAction[event.Action]
	if !ok {
		rate = s.defaultRate
	}
	if rate >= 1 {
		return true
	}
	return s.rand() < rate
}
