package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vitrine/internal/audit"
	"vitrine/internal/platform/metrics"
	"vitrine/internal/ratelimit"
	dErrors "vitrine/pkg/domain-errors"
	"vitrine/pkg/requestcontext"
	"vitrine/pkg/sentinel"
)

const (
	addToCartAction = "addToCart"
	addToCartLimit  = 10
	addToCartWindow = time.Minute
)

// Coordinator drives one cart aggregate through its lifecycle:
// uninitialized -> resolving identity -> loading -> ready, with ready
// self-transitioning on each mutation and reverting to loading only on an
// explicit refresh. Every mutation is gated on the rate limiter and input
// validation before it touches the store, and reported to the audit recorder
// after it lands.
type Coordinator struct {
	identity Identity
	store    Store
	prices   PriceResolver
	limiter  *ratelimit.Limiter
	recorder *audit.Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu    sync.Mutex
	state State
	cart  Cart
	items []Item
}

// Totals are derived from the in-memory line items on every read, never
// cached independently, so they cannot drift from the lines.
type Totals struct {
	Items int   `json:"total_items"`
	Price int64 `json:"total_price_cents"`
}

func NewCoordinator(
	identity Identity,
	store Store,
	prices PriceResolver,
	limiter *ratelimit.Limiter,
	recorder *audit.Recorder,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Coordinator {
	return &Coordinator{
		identity: identity,
		store:    store,
		prices:   prices,
		limiter:  limiter,
		recorder: recorder,
		logger:   logger,
		metrics:  m,
		state:    StateUninitialized,
	}
}

// State returns the coordinator's current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ensureReady walks the state machine to ready, finding or creating the cart
// and loading its lines on first use. Callers hold c.mu.
func (c *Coordinator) ensureReady(ctx context.Context) error {
	if c.state == StateReady {
		return nil
	}

	c.state = StateResolvingIdentity
	if !c.identity.Valid() {
		c.state = StateUninitialized
		return dErrors.New(dErrors.CodeInvalidInput, "no cart identity")
	}

	c.state = StateLoading
	cart, err := c.store.FindOrCreate(ctx, c.identity)
	if err != nil {
		c.state = StateUninitialized
		return c.storeFailure(ctx, "find-or-create cart", err)
	}
	items, err := c.store.ListItems(ctx, cart.ID)
	if err != nil {
		c.state = StateUninitialized
		return c.storeFailure(ctx, "load cart items", err)
	}

	c.cart = cart
	c.items = items
	c.state = StateReady
	return nil
}

// AddItem adds quantity of a product variant to the cart, merging into an
// existing line for the same (product, variant) with the sum clamped to
// MaxQuantity. The in-memory list is refreshed from the store after the
// write; no optimistic-only state.
func (c *Coordinator) AddItem(ctx context.Context, productID, variantID string, quantity int) error {
	actor := requestcontext.ActorFrom(ctx)
	if !c.limiter.Allow(actor.ID()+":"+addToCartAction, addToCartLimit, addToCartWindow) {
		if c.metrics != nil {
			c.metrics.ThrottleRejections.WithLabelValues(addToCartAction).Inc()
		}
		c.recorder.SecurityIncident(ctx, audit.EventRateLimitExceeded, addToCartAction)
		return dErrors.New(dErrors.CodeRateLimited, "too many cart updates, please wait a moment")
	}

	if productID == "" || variantID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "product and variant are required")
	}
	if quantity <= 0 || quantity > MaxQuantity {
		return dErrors.New(dErrors.CodeInvalidInput, "quantity must be between 1 and 99")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureReady(ctx); err != nil {
		return err
	}

	existing, err := c.store.FindItem(ctx, c.cart.ID, productID, variantID)
	switch {
	case err == nil:
		merged := existing.Quantity + quantity
		if merged > MaxQuantity {
			merged = MaxQuantity
		}
		if err := c.store.UpdateItemQuantity(ctx, c.cart.ID, existing.ID, merged); err != nil {
			c.countMutation("add", "error")
			return c.storeFailure(ctx, "merge cart line", err)
		}
	case errors.Is(err, sentinel.ErrNotFound):
		price, err := c.prices.UnitPrice(ctx, productID, variantID)
		if err != nil {
			c.countMutation("add", "error")
			return c.storeFailure(ctx, "resolve unit price", err)
		}
		item := Item{
			ID:        uuid.NewString(),
			CartID:    c.cart.ID,
			ProductID: productID,
			VariantID: variantID,
			Quantity:  quantity,
			UnitPrice: price,
		}
		if err := c.store.InsertItem(ctx, item); err != nil {
			c.countMutation("add", "error")
			return c.storeFailure(ctx, "insert cart line", err)
		}
	default:
		c.countMutation("add", "error")
		return c.storeFailure(ctx, "find cart line", err)
	}

	// Authoritative refetch after the mutation.
	items, err := c.store.ListItems(ctx, c.cart.ID)
	if err != nil {
		// The write landed; the stale list reconciles on the next refetch.
		c.logger.WarnContext(ctx, "cart refetch after add failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		c.items = items
	}

	c.countMutation("add", "ok")
	c.recorder.DataAccess(ctx, audit.AccessEdit, "cart_items", c.cart.ID, nil)
	return nil
}

// UpdateQuantity sets a line's quantity. Zero or negative routes to
// RemoveItem; above MaxQuantity is rejected. The in-memory list is updated
// in place without a full refetch.
func (c *Coordinator) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return c.RemoveItem(ctx, itemID)
	}
	if quantity > MaxQuantity {
		return dErrors.New(dErrors.CodeInvalidInput, "quantity cannot exceed 99")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureReady(ctx); err != nil {
		return err
	}

	idx := c.indexOf(itemID)
	if idx < 0 {
		return dErrors.New(dErrors.CodeNotFound, "cart item not found")
	}

	if err := c.store.UpdateItemQuantity(ctx, c.cart.ID, itemID, quantity); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "cart item not found")
		}
		c.countMutation("update", "error")
		return c.storeFailure(ctx, "update cart line", err)
	}
	c.items[idx].Quantity = quantity

	c.countMutation("update", "ok")
	c.recorder.DataAccess(ctx, audit.AccessEdit, "cart_items", c.cart.ID, nil)
	return nil
}

// RemoveItem deletes a line. Removing an absent line succeeds: it is already
// removed, not an error.
func (c *Coordinator) RemoveItem(ctx context.Context, itemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureReady(ctx); err != nil {
		return err
	}

	if err := c.store.DeleteItem(ctx, c.cart.ID, itemID); err != nil {
		c.countMutation("remove", "error")
		return c.storeFailure(ctx, "delete cart line", err)
	}
	if idx := c.indexOf(itemID); idx >= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
	}

	c.countMutation("remove", "ok")
	c.recorder.DataAccess(ctx, audit.AccessDelete, "cart_items", c.cart.ID, nil)
	return nil
}

// Clear deletes all lines for the cart.
func (c *Coordinator) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureReady(ctx); err != nil {
		return err
	}

	if err := c.store.DeleteItems(ctx, c.cart.ID); err != nil {
		c.countMutation("clear", "error")
		return c.storeFailure(ctx, "clear cart", err)
	}
	c.items = nil

	c.countMutation("clear", "ok")
	c.recorder.DataAccess(ctx, audit.AccessDelete, "cart_items", c.cart.ID, nil)
	return nil
}

// Refresh reloads the line items from the authoritative store, passing
// through the loading state.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureReady(ctx); err != nil {
		return err
	}

	c.state = StateLoading
	items, err := c.store.ListItems(ctx, c.cart.ID)
	if err != nil {
		c.state = StateReady // keep the previous list rather than go dark
		return c.storeFailure(ctx, "refresh cart items", err)
	}
	c.items = items
	c.state = StateReady
	return nil
}

// Items returns a copy of the current in-memory line items.
func (c *Coordinator) Items(ctx context.Context) ([]Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	items := make([]Item, len(c.items))
	copy(items, c.items)
	return items, nil
}

// Totals recomputes the derived values from the current lines.
func (c *Coordinator) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()

	var t Totals
	for _, item := range c.items {
		t.Items += item.Quantity
		t.Price += int64(item.Quantity) * item.UnitPrice
	}
	return t
}

// indexOf locates a line in the in-memory list. Callers hold c.mu.
func (c *Coordinator) indexOf(itemID string) int {
	for i, item := range c.items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// storeFailure logs the underlying detail and returns the generic
// recoverable error the caller may surface. In-memory state stays as it was
// before the failed mutation so the UI never shows an item that was not
// persisted.
func (c *Coordinator) storeFailure(ctx context.Context, op string, err error) error {
	c.logger.ErrorContext(ctx, "cart store operation failed",
		"op", op,
		"error", err,
		"cart_identity", c.identity.Key(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.Wrap(dErrors.CodeUnavailable, "cart is temporarily unavailable, please retry", err)
}

func (c *Coordinator) countMutation(op, outcome string) {
	if c.metrics != nil {
		c.metrics.CartMutations.WithLabelValues(op, outcome).Inc()
	}
}

// Manager hands out one coordinator per cart identity so overlapping
// requests for the same identity share state and serialization.
//
// TODO: evict coordinators whose guest session has expired; the map only
// grows until restart.
type Manager struct {
	store    Store
	prices   PriceResolver
	limiter  *ratelimit.Limiter
	recorder *audit.Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu           sync.Mutex
	coordinators map[string]*Coordinator
}

func NewManager(
	store Store,
	prices PriceResolver,
	limiter *ratelimit.Limiter,
	recorder *audit.Recorder,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Manager {
	return &Manager{
		store:        store,
		prices:       prices,
		limiter:      limiter,
		recorder:     recorder,
		logger:       logger,
		metrics:      m,
		coordinators: make(map[string]*Coordinator),
	}
}

// For returns the coordinator for an identity, creating it on first use.
func (m *Manager) For(identity Identity) *Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.coordinators[identity.Key()]; ok {
		return c
	}
	c := NewCoordinator(identity, m.store, m.prices, m.limiter, m.recorder, m.logger, m.metrics)
	m.coordinators[identity.Key()] = c
	return c
}
