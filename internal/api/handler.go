// Package api implements the storefront's JSON/HTTP surface: public catalog
// and auth endpoints, the authenticated cart and checkout flow, and the
// admin back office.
package api

import (
	"net/http"

	"github.com/mkoval/storefront/internal/domain/auth"
	"github.com/mkoval/storefront/internal/domain/cart"
	"github.com/mkoval/storefront/internal/domain/order"
	"github.com/mkoval/storefront/internal/domain/pricing"
	"github.com/mkoval/storefront/internal/domain/product"
)

// Handler serves the storefront API, delegating business logic to the domain
// services and repositories.
type Handler struct {
	auth     *auth.Service
	products product.Repository
	carts    *cart.Service
	checkout *order.Service
	orders   order.Repository
	users    auth.UserRepository
	settings pricing.Store
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	authService *auth.Service,
	products product.Repository,
	carts *cart.Service,
	checkout *order.Service,
	orders order.Repository,
	users auth.UserRepository,
	settings pricing.Store,
) *Handler {
	return &Handler{
		auth:     authService,
		products: products,
		carts:    carts,
		checkout: checkout,
		orders:   orders,
		users:    users,
		settings: settings,
	}
}

// Routes registers every API route on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	// Public.
	mux.HandleFunc("GET /api/product", h.listProducts)
	mux.HandleFunc("GET /api/product/{id}", h.getProduct)
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)

	// Authenticated.
	mux.Handle("POST /api/auth/logout", h.authenticated(h.logout))
	mux.Handle("GET /api/cart", h.authenticated(h.getCart))
	mux.Handle("POST /api/cart/items", h.authenticated(h.addCartItem))
	mux.Handle("PUT /api/cart/items/{productID}", h.authenticated(h.updateCartItem))
	mux.Handle("DELETE /api/cart/items/{productID}", h.authenticated(h.removeCartItem))
	mux.Handle("POST /api/checkout", h.authenticated(h.placeOrder))
	mux.Handle("GET /api/orders", h.authenticated(h.listOrders))
	mux.Handle("GET /api/orders/{id}", h.authenticated(h.getOrder))

	// Admin.
	mux.Handle("POST /api/admin/products", h.admin(h.createProduct))
	mux.Handle("PUT /api/admin/products/{id}", h.admin(h.updateProduct))
	mux.Handle("DELETE /api/admin/products/{id}", h.admin(h.deleteProduct))
	mux.Handle("GET /api/admin/orders", h.admin(h.adminListOrders))
	mux.Handle("PUT /api/admin/orders/{id}/status", h.admin(h.updateOrderStatus))
	mux.Handle("GET /api/admin/users", h.admin(h.listUsers))
	mux.Handle("GET /api/admin/settings", h.admin(h.getSettings))
	mux.Handle("PUT /api/admin/settings", h.admin(h.updateSettings))
}
