package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/guard"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/abgdnv/storefront/internal/storage"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// mockCatalog is a mock implementation of the Catalog interface
type mockCatalog struct {
	products   []catalog.Product
	byCategory []catalog.Product
	product    *catalog.Product
	categories []string
	user       *catalog.User
	token      string
	err        error
}

func (m *mockCatalog) Products(_ context.Context) ([]catalog.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m *mockCatalog) ProductByID(_ context.Context, _ int) (*catalog.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.product, nil
}

func (m *mockCatalog) Categories(_ context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.categories, nil
}

func (m *mockCatalog) ProductsByCategory(_ context.Context, _ string) ([]catalog.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byCategory, nil
}

func (m *mockCatalog) Login(_ context.Context, _, _ string) (*catalog.User, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return m.user, m.token, nil
}

// capturingPublisher records published events so tests can inspect them.
type capturingPublisher struct {
	published []messaging.Event
	err       error
}

func (p *capturingPublisher) Publish(_ context.Context, event messaging.Event) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	ValidationErrors map[string]string `json:"validation_errors"`
}

// toJSON is a helper function to convert a struct to JSON string
func toJSON(t *testing.T, v interface{}) string {
	t.Helper()
	bytes, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal to JSON: %v", err)
	}
	return string(bytes)
}

func testProduct(id int, price float64) catalog.Product {
	return catalog.Product{
		ID:          id,
		Title:       "Test Product",
		Price:       price,
		Category:    "electronics",
		Description: "A test product",
		Image:       "https://example.com/image.jpg",
		Rating:      catalog.Rating{Rate: 4.5, Count: 10},
	}
}

func testUser() catalog.User {
	return catalog.User{
		ID:       1,
		Email:    "test@example.com",
		Username: "testuser",
		Password: "password123",
		Name:     catalog.Name{Firstname: "Test", Lastname: "User"},
		Phone:    "123-456-7890",
	}
}

// newTestHandler wires a handler onto fresh in-memory stores.
func newTestHandler(t *testing.T, mock Catalog, publisher messaging.Publisher) (*Handler, *cart.Store, *session.Store) {
	t.Helper()
	ctx := context.Background()
	cartStore := cart.NewStore(ctx, storage.NewMemory(), testLogger)
	sessionStore := session.NewStore(ctx, storage.NewMemory(), testLogger)
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return NewHandler(cartStore, sessionStore, mock, publisher, testLogger), cartStore, sessionStore
}

func Test_StorefrontAPI_ListProducts(t *testing.T) {
	all := []catalog.Product{testProduct(1, 29.99), testProduct(2, 19.99)}
	jewelery := []catalog.Product{testProduct(3, 9.99)}

	testCases := []struct {
		name         string
		mockCatalog  mockCatalog
		target       string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - full catalog",
			mockCatalog:  mockCatalog{products: all},
			target:       "/api/v1/products",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, all),
		},
		{
			name:         "Success - filtered by category",
			mockCatalog:  mockCatalog{byCategory: jewelery},
			target:       "/api/v1/products?category=jewelery",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, jewelery),
		},
		{
			name:         "Success - limited",
			mockCatalog:  mockCatalog{products: all},
			target:       "/api/v1/products?limit=1",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, all[:1]),
		},
		{
			name:         "Error - invalid limit",
			mockCatalog:  mockCatalog{products: all},
			target:       "/api/v1/products?limit=abc",
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid limit number: abc"}),
		},
		{
			name:         "Error - upstream unavailable",
			mockCatalog:  mockCatalog{err: errors.New("connection refused")},
			target:       "/api/v1/products",
			expectedCode: http.StatusBadGateway,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to fetch products"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api, _, _ := newTestHandler(t, &tc.mockCatalog, nil)
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			rr := httptest.NewRecorder()

			// when
			api.ListProducts(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code, "status code should match")
			assert.JSONEq(t, tc.expectedBody, rr.Body.String(), "response body should match")
		})
	}
}

func Test_StorefrontAPI_GetProduct(t *testing.T) {
	p := testProduct(1, 29.99)

	testCases := []struct {
		name         string
		mockCatalog  mockCatalog
		productID    string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - product found",
			mockCatalog:  mockCatalog{product: &p},
			productID:    "1",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, p),
		},
		{
			name:         "Error - invalid id",
			mockCatalog:  mockCatalog{},
			productID:    "abc",
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid ID: abc"}),
		},
		{
			name:         "Error - product not found",
			mockCatalog:  mockCatalog{err: catalog.ErrProductNotFound},
			productID:    "42",
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID 42 not found"}),
		},
		{
			name:         "Error - upstream unavailable",
			mockCatalog:  mockCatalog{err: errors.New("connection refused")},
			productID:    "1",
			expectedCode: http.StatusBadGateway,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to fetch product"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api, _, _ := newTestHandler(t, &tc.mockCatalog, nil)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+tc.productID, nil)
			req.SetPathValue("id", tc.productID)
			rr := httptest.NewRecorder()

			// when
			api.GetProduct(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code, "status code should match")
			assert.JSONEq(t, tc.expectedBody, rr.Body.String(), "response body should match")
		})
	}
}

func Test_StorefrontAPI_ListCategories(t *testing.T) {
	testCases := []struct {
		name         string
		mockCatalog  mockCatalog
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - categories listed",
			mockCatalog:  mockCatalog{categories: []string{"electronics", "jewelery"}},
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, []string{"electronics", "jewelery"}),
		},
		{
			name:         "Error - upstream unavailable",
			mockCatalog:  mockCatalog{err: errors.New("connection refused")},
			expectedCode: http.StatusBadGateway,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to fetch categories"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api, _, _ := newTestHandler(t, &tc.mockCatalog, nil)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
			rr := httptest.NewRecorder()

			// when
			api.ListCategories(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code, "status code should match")
			assert.JSONEq(t, tc.expectedBody, rr.Body.String(), "response body should match")
		})
	}
}

func Test_StorefrontAPI_AddCartItem(t *testing.T) {
	p := testProduct(1, 29.99)

	testCases := []struct {
		name         string
		mockCatalog  mockCatalog
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - item added",
			mockCatalog:  mockCatalog{product: &p},
			body:         `{"product_id": 1, "quantity": 2}`,
			expectedCode: http.StatusCreated,
			expectedBody: toJSON(t, cart.Snapshot{
				Items:      []cart.Line{{Product: p, Quantity: 2}},
				TotalItems: 2,
				TotalPrice: 59.98,
			}),
		},
		{
			name:         "Error - invalid body",
			mockCatalog:  mockCatalog{},
			body:         `{not json`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid request body"}),
		},
		{
			name:         "Error - missing quantity",
			mockCatalog:  mockCatalog{},
			body:         `{"product_id": 1}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ValidationErrorResponse{
				ValidationErrors: map[string]string{"Quantity": "failed on rule: required"},
			}),
		},
		{
			name:         "Error - negative quantity",
			mockCatalog:  mockCatalog{},
			body:         `{"product_id": 1, "quantity": -2}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ValidationErrorResponse{
				ValidationErrors: map[string]string{"Quantity": "failed on rule: min"},
			}),
		},
		{
			name:         "Error - product not found",
			mockCatalog:  mockCatalog{err: catalog.ErrProductNotFound},
			body:         `{"product_id": 42, "quantity": 1}`,
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID 42 not found"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api, _, _ := newTestHandler(t, &tc.mockCatalog, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			// when
			api.AddCartItem(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code, "status code should match")
			assert.JSONEq(t, tc.expectedBody, rr.Body.String(), "response body should match")
		})
	}
}

func Test_StorefrontAPI_AddCartItem_MergesExistingLine(t *testing.T) {
	// given
	p := testProduct(1, 29.99)
	api, cartStore, _ := newTestHandler(t, &mockCatalog{product: &p}, nil)
	cartStore.AddItem(context.Background(), p, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id": 1, "quantity": 2}`))
	rr := httptest.NewRecorder()

	// when
	api.AddCartItem(rr, req)

	// then
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, []cart.Line{{Product: p, Quantity: 3}}, cartStore.Items(), "same product should merge into one line")
}

func Test_StorefrontAPI_UpdateCartItem(t *testing.T) {
	p := testProduct(1, 29.99)

	testCases := []struct {
		name          string
		productID     string
		body          string
		expectedCode  int
		expectedLines []cart.Line
	}{
		{
			name:          "Success - quantity set absolutely",
			productID:     "1",
			body:          `{"quantity": 5}`,
			expectedCode:  http.StatusOK,
			expectedLines: []cart.Line{{Product: p, Quantity: 5}},
		},
		{
			name:          "Success - zero removes the line",
			productID:     "1",
			body:          `{"quantity": 0}`,
			expectedCode:  http.StatusOK,
			expectedLines: []cart.Line{},
		},
		{
			name:          "Error - missing quantity",
			productID:     "1",
			body:          `{}`,
			expectedCode:  http.StatusBadRequest,
			expectedLines: []cart.Line{{Product: p, Quantity: 1}},
		},
		{
			name:          "Error - negative quantity rejected",
			productID:     "1",
			body:          `{"quantity": -1}`,
			expectedCode:  http.StatusBadRequest,
			expectedLines: []cart.Line{{Product: p, Quantity: 1}},
		},
		{
			name:          "Error - invalid id",
			productID:     "abc",
			body:          `{"quantity": 5}`,
			expectedCode:  http.StatusBadRequest,
			expectedLines: []cart.Line{{Product: p, Quantity: 1}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api, cartStore, _ := newTestHandler(t, &mockCatalog{}, nil)
			cartStore.AddItem(context.Background(), p, 1)

			req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/items/"+tc.productID, strings.NewReader(tc.body))
			req.SetPathValue("id", tc.productID)
			rr := httptest.NewRecorder()

			// when
			api.UpdateCartItem(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code, "status code should match")
			assert.Equal(t, tc.expectedLines, cartStore.Items(), "cart lines should match")
		})
	}
}

func Test_StorefrontAPI_RemoveCartItem(t *testing.T) {
	// given
	p := testProduct(1, 29.99)
	api, cartStore, _ := newTestHandler(t, &mockCatalog{}, nil)
	cartStore.AddItem(context.Background(), p, 2)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/1", nil)
	req.SetPathValue("id", "1")
	rr := httptest.NewRecorder()

	// when
	api.RemoveCartItem(rr, req)

	// then
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, toJSON(t, cart.Snapshot{Items: []cart.Line{}, TotalItems: 0, TotalPrice: 0}), rr.Body.String())
	assert.Empty(t, cartStore.Items())
}

func Test_StorefrontAPI_ClearCart(t *testing.T) {
	// given
	api, cartStore, _ := newTestHandler(t, &mockCatalog{}, nil)
	cartStore.AddItem(context.Background(), testProduct(1, 29.99), 2)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/", nil)
	rr := httptest.NewRecorder()

	// when
	api.ClearCart(rr, req)

	// then
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String(), "response body should be empty")
	assert.Empty(t, cartStore.Items())
}

func Test_StorefrontAPI_Login(t *testing.T) {
	user := testUser()

	testCases := []struct {
		name         string
		mockCatalog  mockCatalog
		body         string
		expectedCode int
		expectedBody string
		expectCookie bool
	}{
		{
			name:         "Success - credentials accepted",
			mockCatalog:  mockCatalog{user: &user, token: "mock-token"},
			body:         `{"username": "testuser", "password": "password123"}`,
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, loginResponse{User: &user, Token: "mock-token"}),
			expectCookie: true,
		},
		{
			name:         "Error - invalid credentials",
			mockCatalog:  mockCatalog{err: catalog.ErrInvalidCredentials},
			body:         `{"username": "testuser", "password": "wrong"}`,
			expectedCode: http.StatusUnauthorized,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid username or password"}),
		},
		{
			name:         "Error - missing password",
			mockCatalog:  mockCatalog{},
			body:         `{"username": "testuser"}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ValidationErrorResponse{
				ValidationErrors: map[string]string{"Password": "failed on rule: required"},
			}),
		},
		{
			name:         "Error - upstream unavailable",
			mockCatalog:  mockCatalog{err: errors.New("connection refused")},
			body:         `{"username": "testuser", "password": "password123"}`,
			expectedCode: http.StatusBadGateway,
			expectedBody: toJSON(t, ErrorResponse{Error: "Login is temporarily unavailable"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api, _, sessionStore := newTestHandler(t, &tc.mockCatalog, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			// when
			api.Login(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code, "status code should match")
			assert.JSONEq(t, tc.expectedBody, rr.Body.String(), "response body should match")

			cookie := findCookie(rr, guard.DefaultCookieName)
			if tc.expectCookie {
				require.NotNil(t, cookie, "session mirror cookie should be set")
				expected, err := sessionStore.EncodedEnvelope()
				require.NoError(t, err)
				assert.Equal(t, expected, cookie.Value, "cookie should carry the persisted envelope")
				assert.True(t, sessionStore.IsAuthenticated())
			} else {
				assert.Nil(t, cookie, "no session cookie on failed login")
				assert.False(t, sessionStore.IsAuthenticated())
			}
		})
	}
}

func Test_StorefrontAPI_Logout(t *testing.T) {
	// given
	api, _, sessionStore := newTestHandler(t, &mockCatalog{}, nil)
	sessionStore.Login(context.Background(), testUser(), "mock-token")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rr := httptest.NewRecorder()

	// when
	api.Logout(rr, req)

	// then
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.False(t, sessionStore.IsAuthenticated())

	cookie := findCookie(rr, guard.DefaultCookieName)
	require.NotNil(t, cookie, "expiring cookie should be set")
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge, "cookie should be expired")
}

func Test_StorefrontAPI_Me(t *testing.T) {
	// given
	api, _, sessionStore := newTestHandler(t, &mockCatalog{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rr := httptest.NewRecorder()

	// when: nobody is logged in
	api.Me(rr, req)

	// then
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, toJSON(t, ErrorResponse{Error: "Not logged in"}), rr.Body.String())

	// given: a logged-in session
	sessionStore.Login(context.Background(), testUser(), "mock-token")
	rr = httptest.NewRecorder()

	// when
	api.Me(rr, req)

	// then
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, toJSON(t, sessionStore.Snapshot()), rr.Body.String())
}

func Test_StorefrontAPI_UpdateMe(t *testing.T) {
	testCases := []struct {
		name         string
		loggedIn     bool
		body         string
		expectedCode int
	}{
		{
			name:         "Success - email patched",
			loggedIn:     true,
			body:         `{"email": "updated@example.com"}`,
			expectedCode: http.StatusOK,
		},
		{
			name:         "Error - no active session",
			loggedIn:     false,
			body:         `{"email": "updated@example.com"}`,
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Error - invalid body",
			loggedIn:     true,
			body:         `{not json`,
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api, _, sessionStore := newTestHandler(t, &mockCatalog{}, nil)
			if tc.loggedIn {
				sessionStore.Login(context.Background(), testUser(), "mock-token")
			}

			req := httptest.NewRequest(http.MethodPatch, "/api/v1/auth/me", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			// when
			api.UpdateMe(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code, "status code should match")
			if tc.expectedCode == http.StatusOK {
				require.NotNil(t, sessionStore.User())
				assert.Equal(t, "updated@example.com", sessionStore.User().Email)
				assert.Equal(t, "mock-token", sessionStore.Token(), "token must survive a profile patch")
				assert.NotNil(t, findCookie(rr, guard.DefaultCookieName), "cookie should be refreshed")
			}
		})
	}
}

func Test_StorefrontAPI_CompleteCheckout(t *testing.T) {
	// given
	p := testProduct(1, 29.99)
	publisher := &capturingPublisher{}
	api, cartStore, sessionStore := newTestHandler(t, &mockCatalog{}, publisher)
	sessionStore.Login(context.Background(), testUser(), "mock-token")
	cartStore.AddItem(context.Background(), p, 2)

	req := httptest.NewRequest(http.MethodPost, "/checkout/complete", nil)
	rr := httptest.NewRecorder()

	// when
	api.CompleteCheckout(rr, req)

	// then
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		OrderID string `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	orderID, err := uuid.Parse(resp.OrderID)
	require.NoError(t, err, "order_id should be a valid UUID")

	require.Len(t, publisher.published, 1, "exactly one event should be published")
	event, ok := publisher.published[0].(events.CheckoutCompletedEvent)
	require.True(t, ok, "published event should be a CheckoutCompletedEvent")
	assert.Equal(t, messaging.CheckoutCompletedSubject, event.Subject())
	assert.Equal(t, orderID, event.OrderID)
	assert.Equal(t, 1, event.UserID)
	assert.Equal(t, 2, event.TotalItems)
	assert.InDelta(t, 59.98, event.TotalPrice, 1e-9)

	assert.Empty(t, cartStore.Items(), "cart should be cleared after checkout")
}

func Test_StorefrontAPI_CompleteCheckout_RequiresSession(t *testing.T) {
	// given
	api, cartStore, _ := newTestHandler(t, &mockCatalog{}, nil)
	cartStore.AddItem(context.Background(), testProduct(1, 29.99), 1)

	req := httptest.NewRequest(http.MethodPost, "/checkout/complete", nil)
	rr := httptest.NewRecorder()

	// when
	api.CompleteCheckout(rr, req)

	// then
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, toJSON(t, ErrorResponse{Error: "Not logged in"}), rr.Body.String())
	assert.NotEmpty(t, cartStore.Items(), "cart must not be touched")
}

func Test_StorefrontAPI_CompleteCheckout_EmptyCart(t *testing.T) {
	// given
	api, _, sessionStore := newTestHandler(t, &mockCatalog{}, nil)
	sessionStore.Login(context.Background(), testUser(), "mock-token")

	req := httptest.NewRequest(http.MethodPost, "/checkout/complete", nil)
	rr := httptest.NewRecorder()

	// when
	api.CompleteCheckout(rr, req)

	// then
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, toJSON(t, ErrorResponse{Error: "Cart is empty"}), rr.Body.String())
}

func Test_StorefrontAPI_CompleteCheckout_PublishFailure(t *testing.T) {
	// given
	publisher := &capturingPublisher{err: errors.New("stream unavailable")}
	api, cartStore, sessionStore := newTestHandler(t, &mockCatalog{}, publisher)
	sessionStore.Login(context.Background(), testUser(), "mock-token")
	cartStore.AddItem(context.Background(), testProduct(1, 29.99), 2)

	req := httptest.NewRequest(http.MethodPost, "/checkout/complete", nil)
	rr := httptest.NewRecorder()

	// when
	api.CompleteCheckout(rr, req)

	// then
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, toJSON(t, ErrorResponse{Error: "Failed to complete checkout"}), rr.Body.String())
	assert.NotEmpty(t, cartStore.Items(), "cart must be retained when the event did not go out")
}

func Test_StorefrontAPI_HealthCheck(t *testing.T) {
	api, _, _ := newTestHandler(t, &mockCatalog{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	api.HealthCheck(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "status code should be 200 OK")
	assert.Empty(t, rr.Body.String(), "response body should be empty")
}

// findCookie returns the named cookie from the recorded response, or nil.
func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
