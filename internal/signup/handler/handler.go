// Package handler exposes a registration screen's callbacks as JSON endpoints.
// Each screen instance is a session; the form state lives server side.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"signup/internal/platform/middleware"
	"signup/internal/signup/models"
	"signup/internal/signup/orchestrator"
	"signup/internal/signup/session"
	dErrors "signup/pkg/domain-errors"
	"signup/pkg/platform/httputil"
	"signup/pkg/requestcontext"
)

// Sessions defines the session operations the handler needs.
type Sessions interface {
	Open(ctx context.Context, client string) (string, *orchestrator.Orchestrator)
	Get(ctx context.Context, id string) (*orchestrator.Orchestrator, error)
	Close(ctx context.Context, id, reason string) error
}

// Handler wires signup endpoints to the session registry.
type Handler struct {
	sessions Sessions
	logger   *slog.Logger
}

// New constructs a signup handler with its dependencies.
func New(sessions Sessions, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		logger:   logger,
	}
}

// Register mounts signup endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/signup/sessions", func(r chi.Router) {
		r.Post("/", h.HandleOpen)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.HandleView)
			r.Delete("/", h.HandleCancel)
			r.Put("/fields/{field}", h.HandleSetField)
			r.Post("/check", h.HandleCheck)
			r.Post("/submit", h.HandleSubmit)
		})
	})
}

// HandleOpen handles POST /signup/sessions.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client := middleware.DescribeClient(requestcontext.UserAgent(ctx))
	id, _ := h.sessions.Open(ctx, client)
	httputil.WriteJSON(w, http.StatusCreated, OpenResponse{SessionID: id})
}

// HandleView handles GET /signup/sessions/{sessionID}.
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	id, orch, ok := h.session(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromView(id, orch.Snapshot()))
}

// HandleSetField handles PUT /signup/sessions/{sessionID}/fields/{field}.
func (h *Handler) HandleSetField(w http.ResponseWriter, r *http.Request) {
	id, orch, ok := h.session(w, r)
	if !ok {
		return
	}
	field, err := models.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error()))
		return
	}
	req, err := httputil.DecodeJSON[SetFieldRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	orch.SetField(field, req.Value)

	if !field.IsSecret() {
		h.logger.DebugContext(r.Context(), "signup field updated",
			"request_id", requestcontext.RequestID(r.Context()),
			"session_id", id,
			"field", string(field),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, FromView(id, orch.Snapshot()))
}

// HandleCheck handles POST /signup/sessions/{sessionID}/check. A taken or blank
// identifier is a normal outcome reported through the view; only a failed
// probe changes the status.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, orch, ok := h.session(w, r)
	if !ok {
		return
	}

	err := orch.CheckUniqueness(ctx)
	view := FromView(id, orch.Snapshot())
	if dErrors.HasCode(err, dErrors.CodeStoreUnavailable) {
		h.logger.ErrorContext(ctx, "identifier check failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", id,
			"error", err,
		)
		h.writeView(w, err, view)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleSubmit handles POST /signup/sessions/{sessionID}/submit. On success
// the session is closed.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id, orch, ok := h.session(w, r)
	if !ok {
		return
	}

	account, err := orch.RegisterAccount(ctx)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeStoreUnavailable) {
			h.logger.ErrorContext(ctx, "registration failed",
				"request_id", requestcontext.RequestID(ctx),
				"session_id", id,
				"error", err,
			)
		}
		h.writeView(w, err, FromView(id, orch.Snapshot()))
		return
	}

	h.logger.InfoContext(ctx, "account registered",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", id,
		"identifier", account.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, RegisteredResponse{Registered: true, Identifier: account.ID})
}

// HandleCancel handles DELETE /signup/sessions/{sessionID}.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), chi.URLParam(r, "sessionID"), session.ReasonCancelled); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, *orchestrator.Orchestrator, bool) {
	id := chi.URLParam(r, "sessionID")
	orch, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return "", nil, false
	}
	return id, orch, true
}

// writeView writes the form together with the failure so the screen can render
// both from one response.
func (h *Handler) writeView(w http.ResponseWriter, err error, view *ViewResponse) {
	code := dErrors.CodeOf(err)
	if code == "" {
		code = dErrors.CodeInternal
	}
	view.Error = string(code)
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			view.ErrorDescription = de.Message
		}
	}
	httputil.WriteJSON(w, httputil.StatusFor(code), view)
}
