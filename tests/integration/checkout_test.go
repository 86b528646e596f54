//go:build integration

package integration

import (
	"math"
	"net/http"
	"testing"
)

func shippingInfo() map[string]any {
	return map[string]any{
		"address": "1 Main St",
		"city":    "Springfield",
		"zip":     "12345",
		"phone":   "555-0100",
	}
}

func addToCart(t *testing.T, token, productID string, quantity int) {
	t.Helper()

	resp := doRequest(t, http.MethodPost, "/api/cart/items", token, map[string]any{
		"productId": productID,
		"quantity":  quantity,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add %s to cart: status %d", productID, resp.StatusCode)
	}
}

func TestCart_RequiresAuth(t *testing.T) {
	resp := doGet(t, "/api/cart")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCheckoutFlow(t *testing.T) {
	token := registerUser(t, "checkout-flow@example.com")

	// 2 x baklava (4.00) + 1 x tiramisu (5.50) = 13.50 subtotal.
	addToCart(t, token, "baklava", 2)
	addToCart(t, token, "tiramisu", 1)

	resp := doRequest(t, http.MethodGet, "/api/cart", token, nil)
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if cart.Subtotal != 13.50 {
		t.Fatalf("expected subtotal 13.50, got %v", cart.Subtotal)
	}

	resp = doRequest(t, http.MethodPost, "/api/checkout", token, shippingInfo())
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.Status != "paid" {
		t.Errorf("expected status paid, got %q", order.Status)
	}
	// Defaults: 10%% tax, $10 delivery below the $50 threshold.
	if order.Subtotal != 13.50 || order.Tax != 1.35 || order.Shipping != 10.00 {
		t.Errorf("unexpected totals: %+v", order)
	}
	if math.Abs(order.Total-24.85) > 1e-9 {
		t.Errorf("expected total 24.85, got %v", order.Total)
	}
	if len(order.Items) != 2 {
		t.Errorf("expected 2 order lines, got %d", len(order.Items))
	}

	// Cart cleared by the checkout transaction.
	resp = doRequest(t, http.MethodGet, "/api/cart", token, nil)
	cart = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(cart.Items) != 0 {
		t.Errorf("expected empty cart after checkout, got %d items", len(cart.Items))
	}

	// The order appears in history.
	resp = doRequest(t, http.MethodGet, "/api/orders", token, nil)
	orders := decodeJSON[[]orderResponse](t, resp)
	resp.Body.Close()
	if len(orders) != 1 || orders[0].ID != order.ID {
		t.Errorf("expected order %s in history, got %+v", order.ID, orders)
	}
}

func TestCheckout_FreeShipping(t *testing.T) {
	token := registerUser(t, "free-shipping@example.com")

	// 8 x macaron-mix (8.00) = 64.00, above the 50.00 threshold.
	addToCart(t, token, "macaron-mix", 8)

	resp := doRequest(t, http.MethodPost, "/api/checkout", token, shippingInfo())
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.Shipping != 0 {
		t.Errorf("expected free shipping, got %v", order.Shipping)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	token := registerUser(t, "empty-cart@example.com")

	resp := doRequest(t, http.MethodPost, "/api/checkout", token, shippingInfo())
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCheckout_InsufficientStock(t *testing.T) {
	token := registerUser(t, "insufficient@example.com")
	admin := loginAdmin(t)

	// Cart wants 3 units; an admin then drops stock to 1.
	addToCart(t, token, "creme-brulee", 3)

	resp := doRequest(t, http.MethodPut, "/api/admin/products/creme-brulee", admin, map[string]any{
		"stock": 1,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin stock update: status %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodPost, "/api/checkout", token, shippingInfo())
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	// Nothing was committed: the cart still holds the line.
	resp2 := doRequest(t, http.MethodGet, "/api/cart", token, nil)
	cart := decodeJSON[cartResponse](t, resp2)
	resp2.Body.Close()
	if len(cart.Items) != 1 {
		t.Errorf("expected cart to survive failed checkout, got %d items", len(cart.Items))
	}
}

func TestAdmin_Gate(t *testing.T) {
	token := registerUser(t, "not-admin@example.com")

	resp := doRequest(t, http.MethodGet, "/api/admin/orders", token, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestAdmin_OrderStatus(t *testing.T) {
	token := registerUser(t, "status-flow@example.com")
	admin := loginAdmin(t)

	addToCart(t, token, "cake-slice", 1)

	resp := doRequest(t, http.MethodPost, "/api/checkout", token, shippingInfo())
	order := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPut, "/api/admin/orders/"+order.ID+"/status", admin, map[string]any{
		"status": "shipped",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ship order: status %d", resp.StatusCode)
	}

	// Regressing to paid is rejected.
	resp = doRequest(t, http.MethodPut, "/api/admin/orders/"+order.ID+"/status", admin, map[string]any{
		"status": "paid",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}
