// Package handler exposes the audit log read path to the admin console.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vitrine/internal/audit"
	"vitrine/internal/platform/middleware"
	"vitrine/internal/session"
	"vitrine/internal/transport/http/shared"
	dErrors "vitrine/pkg/domain-errors"
	"vitrine/pkg/requestcontext"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Handler serves the paginated, time-descending audit event listing for the
// admin console, plus the storefront's page-view beacon.
type Handler struct {
	store          audit.Store
	recorder       *audit.Recorder
	resolver       *session.Resolver
	validator      middleware.TokenValidator
	logger         *slog.Logger
	adminTokenHash string
}

func New(
	store audit.Store,
	recorder *audit.Recorder,
	resolver *session.Resolver,
	validator middleware.TokenValidator,
	adminTokenHash string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		store:          store,
		recorder:       recorder,
		resolver:       resolver,
		validator:      validator,
		logger:         logger,
		adminTokenHash: adminTokenHash,
	}
}

// Register mounts the audit routes. The beacon resolves the same actor the
// cart routes see so page views attribute to the right guest or user.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(h.adminTokenHash, h.logger))
		r.Get("/admin/audit", h.handleList)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(h.validator, h.logger))
		r.Use(session.Middleware(h.resolver))
		r.Post("/events/page-view", h.handlePageView)
	})
}

type pageViewRequest struct {
	Path string `json:"path"`
}

// handlePageView records a storefront page view. Fire-and-forget on both
// sides: the beacon never fails.
func (h *Handler) handlePageView(w http.ResponseWriter, r *http.Request) {
	var req pageViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "path is required"))
		return
	}
	h.recorder.PageView(r.Context(), req.Path)
	w.WriteHeader(http.StatusAccepted)
}

type listResponse struct {
	Events []audit.Event `json:"events"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil || limit <= 0 || limit > maxLimit {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 200"))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "offset must be non-negative"))
		return
	}

	events, err := h.store.ListRecent(ctx, limit, offset)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	shared.WriteJSON(w, http.StatusOK, listResponse{Events: events, Limit: limit, Offset: offset})
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
