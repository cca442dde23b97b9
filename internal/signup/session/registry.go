// Package session keeps one registration form per screen instance. A session
// is opened when the screen is entered and closed on cancel, on successful
// registration, or when it sits idle past its TTL.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"signup/internal/signup/form"
	"signup/internal/signup/metrics"
	"signup/internal/signup/models"
	"signup/internal/signup/orchestrator"
	dErrors "signup/pkg/domain-errors"
	audit "signup/pkg/platform/audit"
	"signup/pkg/platform/sentinel"
	"signup/pkg/requestcontext"
)

const DefaultTTL = 15 * time.Minute

// Close reasons recorded on the session-closed audit event.
const (
	ReasonCancelled  = "cancelled"
	ReasonRegistered = "registered"
	ReasonExpired    = "expired"
)

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type entry struct {
	id     string
	orch   *orchestrator.Orchestrator
	client string
	closed atomic.Bool
}

// Registry owns the live sessions. Idle sessions are evicted by the cache
// janitor; every access through Get extends the TTL.
type Registry struct {
	cache          *gocache.Cache
	ttl            time.Duration
	cleanup        time.Duration
	store          orchestrator.KeyedStore
	orchOpts       []orchestrator.Option
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Registry)

func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithCleanupInterval sets how often expired sessions are swept. Defaults to a
// quarter of the TTL, capped at one minute.
func WithCleanupInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.cleanup = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(r *Registry) {
		r.auditPublisher = publisher
	}
}

// WithOrchestratorOptions are applied to every orchestrator the registry creates.
func WithOrchestratorOptions(opts ...orchestrator.Option) Option {
	return func(r *Registry) {
		r.orchOpts = append(r.orchOpts, opts...)
	}
}

func NewRegistry(store orchestrator.KeyedStore, opts ...Option) *Registry {
	r := &Registry{
		ttl:   DefaultTTL,
		store: store,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cleanup == 0 {
		r.cleanup = cleanupInterval(r.ttl)
	}
	r.cache = gocache.New(r.ttl, r.cleanup)
	r.cache.OnEvicted(r.evicted)
	return r
}

func cleanupInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval > time.Minute {
		return time.Minute
	}
	if interval < 10*time.Millisecond {
		return 10 * time.Millisecond
	}
	return interval
}

// Open starts a session with an empty form. client is a short description of
// the user agent, recorded on audit events.
func (r *Registry) Open(ctx context.Context, client string) (string, *orchestrator.Orchestrator) {
	id := uuid.NewString()
	e := &entry{id: id, client: client}

	opts := make([]orchestrator.Option, 0, len(r.orchOpts)+2)
	opts = append(opts, r.orchOpts...)
	opts = append(opts,
		orchestrator.WithSessionID(id),
		orchestrator.WithOnSuccess(func(ctx context.Context, _ models.Account) {
			_ = r.Close(ctx, id, ReasonRegistered)
		}),
	)
	e.orch = orchestrator.New(form.New(), r.store, opts...)

	r.cache.SetDefault(id, e)
	if r.metrics != nil {
		r.metrics.SessionOpened()
	}
	r.emit(ctx, audit.EventSessionOpened, e, "opened")
	return id, e.orch
}

// Get returns the session's orchestrator and extends its TTL.
func (r *Registry) Get(_ context.Context, id string) (*orchestrator.Orchestrator, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	// Replace fails if the entry expired or was closed in between.
	if err := r.cache.Replace(id, e, gocache.DefaultExpiration); err != nil {
		return nil, notFound(id)
	}
	return e.orch, nil
}

// Close discards the session's form. Closing an unknown or already closed
// session returns a CodeNotFound error.
func (r *Registry) Close(ctx context.Context, id, reason string) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	if !e.closed.CompareAndSwap(false, true) {
		return notFound(id)
	}
	if reason == ReasonCancelled {
		e.orch.Cancel()
	}
	r.cache.Delete(id)
	r.emit(ctx, audit.EventSessionClosed, e, reason)
	return nil
}

// Len reports the number of sessions not yet evicted.
func (r *Registry) Len() int {
	return r.cache.ItemCount()
}

func (r *Registry) lookup(id string) (*entry, error) {
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, notFound(id)
	}
	e, ok := v.(*entry)
	if !ok || e.closed.Load() {
		return nil, notFound(id)
	}
	return e, nil
}

// evicted runs for explicit deletes and for janitor expiry.
func (r *Registry) evicted(_ string, v any) {
	if e, ok := v.(*entry); ok && e.closed.CompareAndSwap(false, true) {
		e.orch.Cancel()
		r.emit(context.Background(), audit.EventSessionClosed, e, ReasonExpired)
		if r.logger != nil {
			r.logger.Debug("signup session expired", "session_id", e.id)
		}
	}
	if r.metrics != nil {
		r.metrics.SessionClosed()
	}
}

func (r *Registry) emit(ctx context.Context, event audit.AuditEvent, e *entry, decision string) {
	if r.logger != nil {
		r.logger.InfoContext(ctx, string(event),
			"event", string(event),
			"log_type", "audit",
			"session_id", e.id,
			"decision", decision,
			"client", e.client,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if r.auditPublisher == nil {
		return
	}
	if err := r.auditPublisher.Emit(ctx, audit.Event{
		Action:    string(event),
		Decision:  decision,
		SessionID: e.id,
		Client:    e.client,
	}); err != nil && r.logger != nil {
		r.logger.WarnContext(ctx, "audit emit failed", "event", string(event), "error", err)
	}
}

func notFound(id string) error {
	return dErrors.Wrap(fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound), dErrors.CodeNotFound, "signup session not found")
}
