// Package handler exposes the cart API. Routes accept either an
// authenticated bearer token or an anonymous guest session; the session
// middleware guarantees an actor is always present.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vitrine/internal/cart"
	"vitrine/internal/platform/middleware"
	"vitrine/internal/session"
	"vitrine/internal/transport/http/shared"
	dErrors "vitrine/pkg/domain-errors"
	"vitrine/pkg/requestcontext"
)

// Handler is the thin HTTP layer over the cart coordinator.
type Handler struct {
	carts     *cart.Manager
	resolver  *session.Resolver
	validator middleware.TokenValidator
	logger    *slog.Logger
}

func New(carts *cart.Manager, resolver *session.Resolver, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{carts: carts, resolver: resolver, validator: validator, logger: logger}
}

// Register mounts the cart routes with their middleware chain.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(h.validator, h.logger))
		r.Use(session.Middleware(h.resolver))
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/cart", h.handleGet)
		r.Post("/cart/items", h.handleAddItem)
		r.Patch("/cart/items/{itemID}", h.handleUpdateQuantity)
		r.Delete("/cart/items/{itemID}", h.handleRemoveItem)
		r.Delete("/cart", h.handleClear)
	})
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartResponse struct {
	Items           []cart.Item `json:"items"`
	TotalItems      int         `json:"total_items"`
	TotalPriceCents int64       `json:"total_price_cents"`
}

func (h *Handler) coordinator(r *http.Request) *cart.Coordinator {
	return h.carts.For(cart.IdentityForActor(requestcontext.ActorFrom(r.Context())))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c := h.coordinator(r)
	items, err := c.Items(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.writeCart(w, c, items)
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	c := h.coordinator(r)
	if err := c.AddItem(r.Context(), req.ProductID, req.VariantID, req.Quantity); err != nil {
		shared.WriteError(w, err)
		return
	}
	items, err := c.Items(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.writeCart(w, c, items)
}

func (h *Handler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	c := h.coordinator(r)
	if err := c.UpdateQuantity(r.Context(), itemID, req.Quantity); err != nil {
		shared.WriteError(w, err)
		return
	}
	items, err := c.Items(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.writeCart(w, c, items)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	c := h.coordinator(r)
	if err := c.RemoveItem(r.Context(), itemID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	c := h.coordinator(r)
	if err := c.Clear(r.Context()); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeCart(w http.ResponseWriter, c *cart.Coordinator, items []cart.Item) {
	if items == nil {
		items = []cart.Item{}
	}
	totals := c.Totals()
	shared.WriteJSON(w, http.StatusOK, cartResponse{
		Items:           items,
		TotalItems:      totals.Items,
		TotalPriceCents: totals.Price,
	})
}
