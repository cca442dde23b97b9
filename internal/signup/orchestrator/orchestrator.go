// Package orchestrator drives one registration session: it gates submission on
// a uniqueness check that still matches the live identifier, then commits the
// account with a single write.
//
// Every failure is resolved into a field message on the session's form. The
// returned error carries the same failure as a domain-errors code so callers
// can branch without parsing messages.
package orchestrator

//go:generate mockgen -source=orchestrator.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"signup/internal/signup/form"
	"signup/internal/signup/metrics"
	"signup/internal/signup/models"
	dErrors "signup/pkg/domain-errors"
	audit "signup/pkg/platform/audit"
	"signup/pkg/platform/sentinel"
	"signup/pkg/requestcontext"
)

// KeyedStore is the account store contract. Both calls fail with a wrapped
// sentinel.ErrUnavailable on transport or server errors.
type KeyedStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Write(ctx context.Context, key string, account models.Account) error
}

// AccountCreator is implemented by stores that can write only when the key is
// still free, returning a wrapped sentinel.ErrConflict otherwise.
type AccountCreator interface {
	CreateIfAbsent(ctx context.Context, key string, account models.Account) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Orchestrator owns the form of a single session. All methods are safe for
// concurrent use; remote calls run without the lock held so edits may land
// while a check or commit is in flight.
type Orchestrator struct {
	mu          sync.Mutex
	form        *form.Form
	result      *models.CheckResult
	checkSeq    uint64
	identEdits  uint64
	checkState  models.CheckState
	submitState models.SubmitState

	store          KeyedStore
	strict         bool
	sessionID      string
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
	onSuccess      func(ctx context.Context, account models.Account)
}

type Option func(o *Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(o *Orchestrator) {
		o.auditPublisher = publisher
	}
}

// WithSessionID tags logs, spans and audit events with the owning session.
func WithSessionID(id string) Option {
	return func(o *Orchestrator) {
		o.sessionID = id
	}
}

// WithOnSuccess registers the completion signal. It runs after the form has
// been reset and the lock released.
func WithOnSuccess(fn func(ctx context.Context, account models.Account)) Option {
	return func(o *Orchestrator) {
		o.onSuccess = fn
	}
}

// WithStrictCommit makes Register use CreateIfAbsent when the store supports it,
// closing the window between the uniqueness check and the write. Without it the
// commit overwrites whatever is stored under the identifier.
func WithStrictCommit() Option {
	return func(o *Orchestrator) {
		o.strict = true
	}
}

// New binds a form to a store. The form must not be shared with another
// orchestrator.
func New(f *form.Form, store KeyedStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		form:        f,
		store:       store,
		checkState:  models.CheckEditing,
		submitState: models.SubmitReady,
		tracer:      otel.Tracer("signup/orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// View is what the presentation layer reads after every operation.
type View struct {
	Form        form.Snapshot
	CheckState  models.CheckState
	SubmitState models.SubmitState
}

func (o *Orchestrator) Snapshot() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.viewLocked()
}

func (o *Orchestrator) viewLocked() View {
	return View{
		Form:        o.form.Snapshot(),
		CheckState:  o.checkState,
		SubmitState: o.submitState,
	}
}

// SetField applies a user edit. Editing the identifier drops any prior check.
func (o *Orchestrator) SetField(field models.Field, value string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.form.Set(field, value)
	if field == models.FieldIdentifier {
		o.identEdits++
		o.result = nil
		o.checkState = models.CheckEditing
	}
	if o.submitState != models.SubmitSubmitting {
		o.submitState = models.SubmitReady
	}
}

// CheckUniqueness probes the store for the current identifier and records the
// outcome against the exact value probed.
//
// A result is applied to the form only while the identifier has not been edited
// since the check was issued (even back to the same value) and no newer check
// has been issued; otherwise it is kept (or dropped, if superseded)
// without touching any message, and can never enable submission.
func (o *Orchestrator) CheckUniqueness(ctx context.Context) error {
	o.mu.Lock()
	identifier := o.form.Value(models.FieldIdentifier)
	if strings.TrimSpace(identifier) == "" {
		o.form.SetError(models.FieldIdentifier, models.MsgIdentifierRequired)
		o.mu.Unlock()
		o.incCheck("invalid")
		return dErrors.New(dErrors.CodeValidation, models.MsgIdentifierRequired)
	}
	o.checkSeq++
	seq := o.checkSeq
	edits := o.identEdits
	o.checkState = models.CheckChecking
	o.mu.Unlock()

	ctx, span := o.tracer.Start(ctx, "signup.CheckUniqueness", trace.WithAttributes(
		attribute.String("signup.session_id", o.sessionID),
	))
	defer span.End()

	start := time.Now()
	exists, err := o.store.Exists(ctx, identifier)
	o.observeCheck(start)

	o.mu.Lock()
	superseded := seq != o.checkSeq
	current := !superseded && o.identEdits == edits

	if err != nil {
		if !superseded {
			o.result = nil
		}
		if current {
			o.form.SetError(models.FieldIdentifier, models.MsgCheckFailed)
			o.form.MarkChecked(false)
			o.checkState = models.CheckEditing
		}
		o.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
		o.incCheck("error")
		o.logWarn(ctx, "identifier check failed", "error", err)
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, models.MsgCheckFailed)
	}

	outcome := models.OutcomeAvailable
	if exists {
		outcome = models.OutcomeTakenOrError
	}
	if !superseded {
		o.result = &models.CheckResult{CheckedIdentifier: identifier, Outcome: outcome}
	}
	if current {
		if exists {
			o.form.SetError(models.FieldIdentifier, models.MsgIdentifierTaken)
			o.form.MarkChecked(false)
			o.checkState = models.CheckUnavailable
		} else {
			o.form.SetNotice(models.FieldIdentifier, models.MsgIdentifierFree)
			o.form.MarkChecked(true)
			o.checkState = models.CheckAvailable
		}
	}
	o.mu.Unlock()

	span.SetAttributes(attribute.String("signup.check_outcome", string(outcome)))
	o.incCheck(string(outcome))
	if !current && o.logger != nil {
		o.logger.DebugContext(ctx, "discarding stale identifier check",
			"session_id", o.sessionID,
			"superseded", superseded,
		)
	}
	o.logAudit(ctx, audit.EventIdentifierChecked, identifier, string(outcome), "")

	if exists {
		return dErrors.New(dErrors.CodeUniquenessConflict, models.MsgIdentifierTaken)
	}
	return nil
}

// gateFailure is the first precondition Register found unmet.
type gateFailure struct {
	field   models.Field
	message string
	code    dErrors.Code
}

// gateLocked evaluates the submit preconditions in their fixed order.
func (o *Orchestrator) gateLocked() *gateFailure {
	name := o.form.Value(models.FieldName)
	identifier := o.form.Value(models.FieldIdentifier)
	password := o.form.Value(models.FieldPassword)
	confirm := o.form.Value(models.FieldConfirmPassword)

	switch {
	case strings.TrimSpace(name) == "":
		return &gateFailure{models.FieldName, models.MsgNameRequired, dErrors.CodeValidation}
	case strings.TrimSpace(identifier) == "":
		return &gateFailure{models.FieldIdentifier, models.MsgIdentifierRequired, dErrors.CodeValidation}
	case !o.form.Checked() || !o.result.ValidFor(identifier):
		return &gateFailure{models.FieldIdentifier, models.MsgMustCheck, dErrors.CodeUniquenessUnchecked}
	case strings.TrimSpace(password) == "":
		return &gateFailure{models.FieldPassword, models.MsgPasswordRequired, dErrors.CodeValidation}
	case strings.TrimSpace(confirm) == "":
		return &gateFailure{models.FieldConfirmPassword, models.MsgConfirmRequired, dErrors.CodeValidation}
	case password != confirm:
		return &gateFailure{models.FieldConfirmPassword, models.MsgPasswordMismatch, dErrors.CodeValidation}
	}
	return nil
}

// Register commits the account when every precondition holds. A failed
// precondition sets one field message and never reaches the store. On success
// the form is reset; on a failed write the values are kept for a retry.
func (o *Orchestrator) Register(ctx context.Context) error {
	_, err := o.RegisterAccount(ctx)
	return err
}

// RegisterAccount is Register returning the account that was committed.
func (o *Orchestrator) RegisterAccount(ctx context.Context) (models.Account, error) {
	o.mu.Lock()
	if o.submitState == models.SubmitSubmitting {
		o.mu.Unlock()
		o.incRegistration("busy")
		return models.Account{}, dErrors.New(dErrors.CodeBusy, models.MsgSubmitInProgress)
	}
	identifier := o.form.Value(models.FieldIdentifier)
	if failure := o.gateLocked(); failure != nil {
		o.form.SetError(failure.field, failure.message)
		o.mu.Unlock()
		o.incRegistration("rejected")
		if failure.code == dErrors.CodeUniquenessUnchecked {
			o.logAudit(ctx, audit.EventRegistrationBlocked, identifier, "blocked", string(failure.code))
		}
		return models.Account{}, dErrors.New(failure.code, failure.message)
	}
	account := models.Account{
		ID:       identifier,
		Password: o.form.Value(models.FieldPassword),
		Name:     o.form.Value(models.FieldName),
	}
	edits := o.identEdits
	o.submitState = models.SubmitSubmitting
	o.mu.Unlock()

	ctx, span := o.tracer.Start(ctx, "signup.Register", trace.WithAttributes(
		attribute.String("signup.session_id", o.sessionID),
		attribute.Bool("signup.strict_commit", o.strict),
	))
	defer span.End()

	start := time.Now()
	err := o.commit(ctx, identifier, account)
	o.observeCommit(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return models.Account{}, o.commitFailed(ctx, identifier, edits, err)
	}

	o.mu.Lock()
	o.form.ClearMessages()
	o.form.Reset()
	o.result = nil
	o.checkState = models.CheckEditing
	o.submitState = models.SubmitSucceeded
	o.mu.Unlock()

	o.incRegistration("succeeded")
	o.logAudit(ctx, audit.EventAccountRegistered, identifier, "created", "")
	if o.onSuccess != nil {
		o.onSuccess(ctx, account)
	}
	return account, nil
}

func (o *Orchestrator) commit(ctx context.Context, identifier string, account models.Account) error {
	if o.strict {
		if creator, ok := o.store.(AccountCreator); ok {
			return creator.CreateIfAbsent(ctx, identifier, account)
		}
	}
	return o.store.Write(ctx, identifier, account)
}

func (o *Orchestrator) commitFailed(ctx context.Context, identifier string, edits uint64, err error) error {
	conflict := errors.Is(err, sentinel.ErrConflict)

	o.mu.Lock()
	o.submitState = models.SubmitFailed
	if conflict {
		o.form.SetError(models.FieldIdentifier, models.MsgIdentifierTaken)
		if o.identEdits == edits {
			o.result = &models.CheckResult{CheckedIdentifier: identifier, Outcome: models.OutcomeTakenOrError}
			o.form.MarkChecked(false)
			o.checkState = models.CheckUnavailable
		}
	} else {
		o.form.SetError(models.FieldIdentifier, models.MsgRegisterFailed)
	}
	o.mu.Unlock()

	if conflict {
		o.incRegistration("conflict")
		o.logAudit(ctx, audit.EventRegistrationFailed, identifier, "conflict", err.Error())
		return dErrors.Wrap(err, dErrors.CodeUniquenessConflict, models.MsgIdentifierTaken)
	}
	o.incRegistration("failed")
	o.logWarn(ctx, "account write failed", "error", err)
	o.logAudit(ctx, audit.EventRegistrationFailed, identifier, "failed", err.Error())
	return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, models.MsgRegisterFailed)
}

// Cancel discards all form state. The session owner drops the orchestrator
// afterwards.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.form.Reset()
	o.result = nil
	o.checkState = models.CheckEditing
	if o.submitState != models.SubmitSubmitting {
		o.submitState = models.SubmitReady
	}
}

func (o *Orchestrator) logAudit(ctx context.Context, event audit.AuditEvent, identifier, decision, reason string) {
	requestID := requestcontext.RequestID(ctx)
	if o.logger != nil {
		o.logger.InfoContext(ctx, string(event),
			"event", string(event),
			"log_type", "audit",
			"identifier", identifier,
			"decision", decision,
			"session_id", o.sessionID,
			"request_id", requestID,
		)
	}
	if o.auditPublisher == nil {
		return
	}
	if err := o.auditPublisher.Emit(ctx, audit.Event{
		Subject:   identifier,
		Action:    string(event),
		Decision:  decision,
		Reason:    reason,
		SessionID: o.sessionID,
		RequestID: requestID,
	}); err != nil && o.logger != nil {
		o.logger.WarnContext(ctx, "audit emit failed", "event", string(event), "error", err)
	}
}

func (o *Orchestrator) logWarn(ctx context.Context, msg string, args ...any) {
	if o.logger == nil {
		return
	}
	args = append(args, "session_id", o.sessionID, "request_id", requestcontext.RequestID(ctx))
	o.logger.WarnContext(ctx, msg, args...)
}

func (o *Orchestrator) incCheck(outcome string) {
	if o.metrics != nil {
		o.metrics.IncCheck(outcome)
	}
}

func (o *Orchestrator) incRegistration(outcome string) {
	if o.metrics != nil {
		o.metrics.IncRegistration(outcome)
	}
}

func (o *Orchestrator) observeCheck(start time.Time) {
	if o.metrics != nil {
		o.metrics.ObserveCheck(start)
	}
}

func (o *Orchestrator) observeCommit(start time.Time) {
	if o.metrics != nil {
		o.metrics.ObserveCommit(start)
	}
}
