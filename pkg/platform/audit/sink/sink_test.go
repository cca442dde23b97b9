package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "signup/pkg/platform/audit"
	auditmemory "signup/pkg/platform/audit/store/memory"
)

type flakyStore struct {
	err   error
	calls int
}

func (f *flakyStore) Append(context.Context, audit.Event) error {
	f.calls++
	return f.err
}

func event(action audit.AuditEvent) audit.Event {
	return audit.Event{Action: string(action), Subject: "alice", Category: action.Category()}
}

func TestSampling(t *testing.T) {
	ctx := context.Background()

	t.Run("operational events are sampled, compliance events never", func(t *testing.T) {
		store := auditmemory.NewInMemoryStore()
		m := NewMetrics(prometheus.NewRegistry())
		s := New(store, WithSampleRate(0), WithMetrics(m))

		require.NoError(t, s.Append(ctx, event(audit.EventIdentifierChecked)))
		require.NoError(t, s.Append(ctx, event(audit.EventAccountRegistered)))
		require.NoError(t, s.Append(ctx, event(audit.EventRegistrationFailed)))

		recorded, err := store.ListBySubject(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, recorded, 2)
		assert.Equal(t, string(audit.EventAccountRegistered), recorded[0].Action)
		assert.Equal(t, float64(1), promtestutil.ToFloat64(m.Sampled))
		assert.Equal(t, float64(2), promtestutil.ToFloat64(m.Written))
	})

	t.Run("per-action rate overrides the default", func(t *testing.T) {
		store := auditmemory.NewInMemoryStore()
		s := New(store, WithSampleRate(1), WithActionSampleRate(audit.EventIdentifierChecked, 0.5))
		draws := []float64{0.2, 0.7}
		s.sampler.rand = func() float64 {
			v := draws[0]
			draws = draws[1:]
			return v
		}

		require.NoError(t, s.Append(ctx, event(audit.EventIdentifierChecked)))
		require.NoError(t, s.Append(ctx, event(audit.EventIdentifierChecked)))
		require.NoError(t, s.Append(ctx, event(audit.EventSessionOpened)))

		recent, err := store.ListRecent(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, recent, 2)
	})

	t.Run("rates are clamped", func(t *testing.T) {
		assert.Equal(t, float64(0), clamp(-1))
		assert.Equal(t, float64(1), clamp(3))
	})
}

func TestCircuitBreaker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &flakyStore{err: errors.New("broker down")}
	m := NewMetrics(prometheus.NewRegistry())
	s := New(store, WithBreaker(2, time.Minute), WithMetrics(m))
	s.breaker.now = func() time.Time { return now }

	assert.Error(t, s.Append(ctx, event(audit.EventAccountRegistered)))
	assert.False(t, s.Open())
	assert.Error(t, s.Append(ctx, event(audit.EventAccountRegistered)))
	assert.True(t, s.Open())
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.CircuitOpen))

	err := s.Append(ctx, event(audit.EventAccountRegistered))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, store.calls, "open circuit must not reach the store")
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.CircuitDrops))

	t.Run("a failed probe after cooldown reopens immediately", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		assert.Error(t, s.Append(ctx, event(audit.EventAccountRegistered)))
		assert.Equal(t, 3, store.calls)
		assert.True(t, s.Open())
	})

	t.Run("a successful probe closes the circuit", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		store.err = nil
		assert.NoError(t, s.Append(ctx, event(audit.EventAccountRegistered)))
		assert.False(t, s.Open())
		assert.Equal(t, float64(0), promtestutil.ToFloat64(m.CircuitOpen))
	})
}
