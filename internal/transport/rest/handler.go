// Package rest provides the HTTP handlers for the storefront: catalog
// pass-through, cart and session mutations, and the demo checkout flow.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/guard"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Catalog is the slice of the remote API the handlers consume.
type Catalog interface {
	Products(ctx context.Context) ([]catalog.Product, error)
	ProductByID(ctx context.Context, id int) (*catalog.Product, error)
	Categories(ctx context.Context) ([]string, error)
	ProductsByCategory(ctx context.Context, category string) ([]catalog.Product, error)
	Login(ctx context.Context, username, password string) (*catalog.User, string, error)
}

type Handler struct {
	cart      *cart.Store
	session   *session.Store
	catalog   Catalog
	publisher messaging.Publisher
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewHandler creates the storefront HTTP handler set.
func NewHandler(cartStore *cart.Store, sessionStore *session.Store, catalogClient Catalog, publisher messaging.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		cart:      cartStore,
		session:   sessionStore,
		catalog:   catalogClient,
		publisher: publisher,
		validate:  validator.New(),

		logger: logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the storefront.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/categories", h.ListCategories)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Put("/items/{id}", h.UpdateCartItem)
			r.Delete("/items/{id}", h.RemoveCartItem)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
			r.Patch("/me", h.UpdateMe)
		})
	})
	r.Post("/checkout/complete", h.CompleteCheckout)
	r.Get("/healthz", h.HealthCheck)
}

// addItemRequest adds a catalog product to the cart.
type addItemRequest struct {
	ProductID int `json:"product_id" validate:"required,min=1"`
	Quantity  int `json:"quantity"   validate:"required,min=1"`
}

// updateQuantityRequest sets a line's quantity absolutely; zero removes the line.
type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User  *catalog.User `json:"user"`
	Token string        `json:"token"`
}

type checkoutResponse struct {
	OrderID uuid.UUID `json:"order_id"`
}

// ListProducts returns the catalog, optionally filtered by ?category= and
// truncated to ?limit= entries.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	category := r.URL.Query().Get("category")

	limit := int32(0)
	if r.URL.Query().Get("limit") != "" {
		parsed, ok := web.ParseValidateGt(r, w, mLogger, "limit", 0)
		if !ok {
			return
		}
		limit = parsed
	}

	var (
		products []catalog.Product
		err      error
	)
	if category != "" {
		products, err = h.catalog.ProductsByCategory(r.Context(), category)
	} else {
		products, err = h.catalog.Products(r.Context())
	}
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error fetching products", "error", err)
		web.RespondError(w, mLogger, http.StatusBadGateway, "Failed to fetch products")
		return
	}
	if limit > 0 && int(limit) < len(products) {
		products = products[:limit]
	}
	web.RespondJSON(w, mLogger, http.StatusOK, products)
}

// GetProduct returns a single catalog product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	product, err := h.catalog.ProductByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error fetching product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusBadGateway, "Failed to fetch product")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, product)
}

// ListCategories returns the catalog's category list.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error fetching categories", "error", err)
		web.RespondError(w, mLogger, http.StatusBadGateway, "Failed to fetch categories")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, categories)
}

// GetCart returns the current cart snapshot.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.cart.Snapshot())
}

// AddCartItem resolves the product in the catalog and merges it into the cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, req) {
		return
	}

	product, err := h.catalog.ProductByID(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", req.ProductID)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", req.ProductID))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error fetching product", "ID", req.ProductID, "error", err)
		web.RespondError(w, mLogger, http.StatusBadGateway, "Failed to fetch product")
		return
	}

	h.cart.AddItem(r.Context(), *product, req.Quantity)
	mLogger.InfoContext(r.Context(), "Item added to cart", "ID", req.ProductID, "quantity", req.Quantity)
	web.RespondJSON(w, mLogger, http.StatusCreated, h.cart.Snapshot())
}

// UpdateCartItem sets a line's quantity; zero or below removes the line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, req) {
		return
	}

	h.cart.UpdateQuantity(r.Context(), id, *req.Quantity)
	mLogger.DebugContext(r.Context(), "Cart line updated", "ID", id, "quantity", *req.Quantity)
	web.RespondJSON(w, mLogger, http.StatusOK, h.cart.Snapshot())
}

// RemoveCartItem deletes a line from the cart. Idempotent.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	h.cart.RemoveItem(r.Context(), id)
	web.RespondJSON(w, mLogger, http.StatusOK, h.cart.Snapshot())
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	h.cart.Clear(r.Context())
	web.RespondJSON(w, mLogger, http.StatusNoContent, nil)
}

// Login verifies credentials against the catalog's user records, records the
// outcome in the session store and mirrors the persisted envelope into the
// auth-storage cookie so the route guard sees the same snapshot.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, req) {
		return
	}

	user, token, err := h.catalog.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidCredentials) {
			mLogger.WarnContext(r.Context(), "Login failed", "username", req.Username)
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error verifying credentials", "error", err)
		web.RespondError(w, mLogger, http.StatusBadGateway, "Login is temporarily unavailable")
		return
	}

	h.session.Login(r.Context(), *user, token)
	h.setSessionCookie(w, r, mLogger)

	mLogger.InfoContext(r.Context(), "User logged in", "username", user.Username)
	web.RespondJSON(w, mLogger, http.StatusOK, loginResponse{User: user, Token: token})
}

// Logout clears the session and expires the mirror cookie. Idempotent.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	h.session.Logout(r.Context())
	http.SetCookie(w, &http.Cookie{
		Name:     guard.DefaultCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	web.RespondJSON(w, mLogger, http.StatusNoContent, nil)
}

// Me returns the session snapshot for the logged-in user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	if !h.session.IsAuthenticated() {
		web.RespondError(w, mLogger, http.StatusUnauthorized, "Not logged in")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, h.session.Snapshot())
}

// UpdateMe shallow-merges a partial identity into the logged-in user.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var patch session.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.session.UpdateUser(r.Context(), patch); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			mLogger.WarnContext(r.Context(), "Profile update without active session")
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Not logged in")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error updating profile", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	h.setSessionCookie(w, r, mLogger)
	web.RespondJSON(w, mLogger, http.StatusOK, h.session.Snapshot())
}

// CompleteCheckout publishes the checkout event and empties the cart.
// The cart is cleared only after the event went out.
func (h *Handler) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	user := h.session.User()
	if user == nil || !h.session.IsAuthenticated() {
		web.RespondError(w, mLogger, http.StatusUnauthorized, "Not logged in")
		return
	}

	snap := h.cart.Snapshot()
	if len(snap.Items) == 0 {
		web.RespondError(w, mLogger, http.StatusBadRequest, "Cart is empty")
		return
	}

	event := events.CheckoutCompletedEvent{
		OrderID:    uuid.New(),
		UserID:     user.ID,
		TotalItems: snap.TotalItems,
		TotalPrice: snap.TotalPrice,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.publisher.Publish(r.Context(), event); err != nil {
		mLogger.ErrorContext(r.Context(), "Error publishing checkout event", "order_id", event.OrderID, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to complete checkout")
		return
	}

	h.cart.Clear(r.Context())
	mLogger.InfoContext(r.Context(), "Checkout completed", slog.String("order_id", event.OrderID.String()))
	web.RespondJSON(w, mLogger, http.StatusOK, checkoutResponse{OrderID: event.OrderID})
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// setSessionCookie mirrors the persisted session envelope into the cookie the
// route guard reads.
func (h *Handler) setSessionCookie(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) {
	value, err := h.session.EncodedEnvelope()
	if err != nil {
		// The in-memory session is already updated; a missing mirror only
		// affects the guard, which degrades to a login redirect.
		mLogger.WarnContext(r.Context(), "Failed to encode session cookie", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     guard.DefaultCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
	})
}

// validateStruct runs the request DTO through the validator and renders
// field-level errors. Returns false when the request was rejected.
func (h *Handler) validateStruct(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dto any) bool {
	if err := h.validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
