// Package handler renders customer records for the admin console with
// per-field masking.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vitrine/internal/audit"
	"vitrine/internal/customer"
	"vitrine/internal/platform/metrics"
	"vitrine/internal/platform/middleware"
	"vitrine/internal/privacy"
	"vitrine/internal/transport/http/shared"
	dErrors "vitrine/pkg/domain-errors"
	"vitrine/pkg/requestcontext"
	"vitrine/pkg/sentinel"
)

// Handler serves the masked customer view.
type Handler struct {
	store     customer.Store
	roles     privacy.RoleChecker
	recorder  *audit.Recorder
	validator middleware.TokenValidator
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func New(
	store customer.Store,
	roles privacy.RoleChecker,
	recorder *audit.Recorder,
	validator middleware.TokenValidator,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		store:     store,
		roles:     roles,
		recorder:  recorder,
		validator: validator,
		logger:    logger,
		metrics:   m,
	}
}

// Register mounts the admin customer routes. Callers must be authenticated;
// the elevated role only controls unmasking, not access to the page.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/admin/customers/{customerID}", h.handleGet)
	})
}

type customerResponse struct {
	ID        string               `json:"id"`
	FullName  string               `json:"full_name"`
	Email     privacy.DisplayState `json:"email"`
	Phone     privacy.DisplayState `json:"phone"`
	Notes     privacy.DisplayState `json:"notes"`
	CreatedAt time.Time            `json:"created_at"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "customerID")
	reveal := r.URL.Query().Get("reveal")

	c, err := h.store.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "customer not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load customer",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load customer"))
		return
	}

	// Privilege is re-checked on every render so revocation takes effect
	// immediately; a lookup failure renders masked, never raw.
	actor := requestcontext.ActorFrom(ctx)
	privileged, err := h.roles.HasRole(ctx, actor.ID(), privacy.RoleElevated)
	if err != nil {
		h.logger.WarnContext(ctx, "role check failed, rendering masked",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		privileged = false
	}

	resp := customerResponse{
		ID:        c.ID,
		FullName:  c.FullName,
		Email:     h.renderField(ctx, c.ID, "email", &c.Email, privacy.ClassIdentity, privileged, true, reveal == "email"),
		Phone:     h.renderField(ctx, c.ID, "phone", &c.Phone, privacy.ClassContact, privileged, true, reveal == "phone"),
		Notes:     h.renderField(ctx, c.ID, "notes", &c.Notes, privacy.ClassGeneric, privileged, false, false),
		CreatedAt: c.CreatedAt,
	}

	h.recorder.DataAccess(ctx, audit.AccessView, "customers", c.ID, nil)
	shared.WriteJSON(w, http.StatusOK, resp)
}

// renderField projects one sensitive field. A caller-initiated reveal of a
// toggleable field shows the raw value and is audited as a sensitive read
// naming the field; the masker itself records nothing.
func (h *Handler) renderField(
	ctx context.Context,
	customerID, field string,
	value *string,
	class privacy.Class,
	privileged, toggleable, revealed bool,
) privacy.DisplayState {
	state := privacy.Render(value, class, privileged, toggleable)
	if h.metrics != nil {
		h.metrics.MaskedRenders.WithLabelValues(string(class), boolLabel(state.Masked)).Inc()
	}
	if state.Masked && revealed && state.CanToggle {
		state.Value = *value
		state.Masked = false
		h.recorder.DataAccess(ctx, audit.AccessView, "customers", customerID, []string{field})
	}
	return state
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
