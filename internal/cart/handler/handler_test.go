package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"vitrine/internal/audit"
	"vitrine/internal/cart"
	"vitrine/internal/cart/mocks"
	"vitrine/internal/platform/middleware"
	"vitrine/internal/ratelimit"
	"vitrine/internal/session"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*middleware.TokenClaims, error) {
	if token == "valid-user-token" {
		return &middleware.TokenClaims{UserID: "user-1"}, nil
	}
	return nil, errors.New("invalid token")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, store cart.Store) chi.Router {
	t.Helper()
	logger := testLogger()
	recorder := audit.NewRecorder(audit.NewInMemoryStore(), 64, logger, nil)
	prices := cart.StaticPriceResolver{"prod-1:var-1": 1999}
	manager := cart.NewManager(store, prices, ratelimit.New(), recorder, logger, nil)
	resolver := session.NewResolver(session.NewInMemoryStore(), session.DefaultTTL, logger, nil)

	h := New(manager, resolver, stubValidator{}, logger)
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func doJSON(t *testing.T, router chi.Router, method, url string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, url, reader)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetCartMintsGuestSession(t *testing.T) {
	router := newTestRouter(t, cart.NewInMemoryStore())

	rec := doJSON(t, router, http.MethodGet, "/cart", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "first visit sets the guest session cookie")
	assert.True(t, sessionCookie.HttpOnly)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Items)
	assert.Zero(t, resp.TotalItems)
}

func TestAddItemRoundTrip(t *testing.T) {
	router := newTestRouter(t, cart.NewInMemoryStore())

	// Establish a session, then mutate under it.
	first := doJSON(t, router, http.MethodGet, "/cart", nil, nil)
	cookies := first.Result().Cookies()

	rec := doJSON(t, router, http.MethodPost, "/cart/items", addItemRequest{
		ProductID: "prod-1",
		VariantID: "var-1",
		Quantity:  2,
	}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.TotalItems)
	assert.Equal(t, int64(3998), resp.TotalPriceCents)

	// The same cookie sees the same cart.
	rec = doJSON(t, router, http.MethodGet, "/cart", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalItems)
}

func TestAddItemRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(t, cart.NewInMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddItemValidationErrorsMapToBadRequest(t *testing.T) {
	router := newTestRouter(t, cart.NewInMemoryStore())

	rec := doJSON(t, router, http.MethodPost, "/cart/items", addItemRequest{
		ProductID: "prod-1",
		VariantID: "var-1",
		Quantity:  100,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndRemoveItem(t *testing.T) {
	router := newTestRouter(t, cart.NewInMemoryStore())

	first := doJSON(t, router, http.MethodGet, "/cart", nil, nil)
	cookies := first.Result().Cookies()

	rec := doJSON(t, router, http.MethodPost, "/cart/items", addItemRequest{
		ProductID: "prod-1", VariantID: "var-1", Quantity: 2,
	}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	itemID := resp.Items[0].ID

	rec = doJSON(t, router, http.MethodPatch, "/cart/items/"+itemID, updateQuantityRequest{Quantity: 7}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.TotalItems)

	rec = doJSON(t, router, http.MethodDelete, "/cart/items/"+itemID, nil, cookies)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/cart", nil, cookies)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.TotalItems)
}

func TestClearCart(t *testing.T) {
	router := newTestRouter(t, cart.NewInMemoryStore())

	first := doJSON(t, router, http.MethodGet, "/cart", nil, nil)
	cookies := first.Result().Cookies()

	doJSON(t, router, http.MethodPost, "/cart/items", addItemRequest{
		ProductID: "prod-1", VariantID: "var-1", Quantity: 3,
	}, cookies)

	rec := doJSON(t, router, http.MethodDelete, "/cart", nil, cookies)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/cart", nil, cookies)
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.TotalItems)
}

func TestInvalidBearerTokenRejectedNotDowngraded(t *testing.T) {
	router := newTestRouter(t, cart.NewInMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer expired-or-forged")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code, "presented credentials must not degrade to guest")
	assert.Empty(t, rec.Result().Cookies(), "no guest session for rejected credentials")
}

func TestStoreOutageReturnsServiceUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().
		FindOrCreate(gomock.Any(), gomock.Any()).
		Return(cart.Cart{}, errors.New("connection refused")).
		AnyTimes()

	router := newTestRouter(t, store)

	rec := doJSON(t, router, http.MethodGet, "/cart", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body["message"], "connection refused", "backend detail stays out of the response")
}
