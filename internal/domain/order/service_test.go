package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoval/storefront/internal/domain/cart"
	"github.com/mkoval/storefront/internal/domain/pricing"
	"github.com/mkoval/storefront/internal/domain/product"
)

// --- In-memory unit of work ---
//
// memUnitOfWork mimics transactional semantics: fn runs against a deep copy
// of the state, which replaces the original only when fn succeeds. Rollback
// tests assert the original state is untouched after failures.

type memState struct {
	products map[string]*product.Product
	carts    map[string]map[string]int // userID -> productID -> quantity
	orders   []*Order
	settings pricing.Settings

	createOrderErr error
	conflictOn     string // product ID whose decrement reports a concurrent conflict
}

func (s *memState) clone() *memState {
	c := &memState{
		products:       make(map[string]*product.Product, len(s.products)),
		carts:          make(map[string]map[string]int, len(s.carts)),
		orders:         append([]*Order(nil), s.orders...),
		settings:       s.settings,
		createOrderErr: s.createOrderErr,
		conflictOn:     s.conflictOn,
	}
	for id, p := range s.products {
		cp := *p
		c.products[id] = &cp
	}
	for user, lines := range s.carts {
		cl := make(map[string]int, len(lines))
		for id, qty := range lines {
			cl[id] = qty
		}
		c.carts[user] = cl
	}
	return c
}

type memUnitOfWork struct {
	state *memState
}

func (u *memUnitOfWork) WithinTx(ctx context.Context, fn func(context.Context, Repositories) error) error {
	work := u.state.clone()
	r := Repositories{
		Carts:    &memCartRepo{s: work},
		Products: &memProductRepo{s: work},
		Orders:   &memOrderRepo{s: work},
		Settings: &memSettings{s: work},
	}
	if err := fn(ctx, r); err != nil {
		return err
	}
	*u.state = *work
	return nil
}

type memCartRepo struct{ s *memState }

func (m *memCartRepo) Lines(ctx context.Context, userID string) ([]cart.CheckoutLine, error) {
	return m.CheckoutLines(ctx, userID)
}

func (m *memCartRepo) CheckoutLines(_ context.Context, userID string) ([]cart.CheckoutLine, error) {
	var out []cart.CheckoutLine
	for id, qty := range m.s.carts[userID] {
		p := m.s.products[id]
		out = append(out, cart.CheckoutLine{
			ProductID:   id,
			ProductName: p.Name,
			Quantity:    qty,
			UnitPrice:   p.Price,
			Stock:       p.Stock,
		})
	}
	return out, nil
}

func (m *memCartRepo) Get(_ context.Context, userID, productID string) (*cart.Line, error) {
	qty, ok := m.s.carts[userID][productID]
	if !ok {
		return nil, cart.ErrLineNotFound
	}
	return &cart.Line{ProductID: productID, Quantity: qty}, nil
}

func (m *memCartRepo) Put(_ context.Context, userID, productID string, quantity int) error {
	if m.s.carts[userID] == nil {
		m.s.carts[userID] = map[string]int{}
	}
	m.s.carts[userID][productID] = quantity
	return nil
}

func (m *memCartRepo) Remove(_ context.Context, userID, productID string) error {
	delete(m.s.carts[userID], productID)
	return nil
}

func (m *memCartRepo) Clear(_ context.Context, userID string) error {
	delete(m.s.carts, userID)
	return nil
}

type memProductRepo struct{ s *memState }

func (m *memProductRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }

func (m *memProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *memProductRepo) Create(_ context.Context, _ *product.Product) error { return nil }
func (m *memProductRepo) Update(_ context.Context, _ *product.Product) error { return nil }
func (m *memProductRepo) Delete(_ context.Context, _ string) error           { return nil }

func (m *memProductRepo) DecrementStock(_ context.Context, id string, quantity int) error {
	if id == m.s.conflictOn {
		return product.ErrStockConflict
	}
	p, ok := m.s.products[id]
	if !ok {
		return product.ErrNotFound
	}
	if p.Stock < quantity {
		return product.ErrStockConflict
	}
	p.Stock -= quantity
	return nil
}

type memOrderRepo struct{ s *memState }

func (m *memOrderRepo) Create(_ context.Context, o *Order) error {
	if m.s.createOrderErr != nil {
		return m.s.createOrderErr
	}
	m.s.orders = append(m.s.orders, o)
	return nil
}

func (m *memOrderRepo) GetByID(_ context.Context, _ string) (*Order, error) {
	return nil, ErrNotFound
}

func (m *memOrderRepo) ListByUser(_ context.Context, _ string) ([]Order, error) { return nil, nil }

func (m *memOrderRepo) List(_ context.Context) ([]Order, error) { return nil, nil }
func (m *memOrderRepo) UpdateStatus(_ context.Context, _ string, _ Status) error {
	return nil
}

type memSettings struct{ s *memState }

func (m *memSettings) Current(_ context.Context) (pricing.Settings, error) {
	return m.s.settings, nil
}

// --- Helpers ---

func newState() *memState {
	return &memState{
		products: map[string]*product.Product{},
		carts:    map[string]map[string]int{},
		settings: pricing.DefaultSettings(),
	}
}

func (s *memState) addProduct(id, name, price string, stock int) {
	s.products[id] = &product.Product{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func (s *memState) addCartLine(userID, productID string, qty int) {
	if s.carts[userID] == nil {
		s.carts[userID] = map[string]int{}
	}
	s.carts[userID][productID] = qty
}

func checkoutReq(userID string) PlaceOrderRequest {
	return PlaceOrderRequest{
		UserID:        userID,
		Address:       "1 Main St",
		City:          "Springfield",
		Zip:           "12345",
		Phone:         "555-0100",
		PaymentMethod: "credit_card",
	}
}

// --- Tests ---

func TestPlaceOrder_EmptyCart(t *testing.T) {
	state := newState()
	svc := NewService(&memUnitOfWork{state: state})

	_, err := svc.PlaceOrder(context.Background(), checkoutReq("u1"))

	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, state.orders, "no order record may exist")
}

func TestPlaceOrder_MissingShippingField(t *testing.T) {
	state := newState()
	state.addProduct("p1", "Widget", "10.00", 5)
	state.addCartLine("u1", "p1", 1)
	svc := NewService(&memUnitOfWork{state: state})

	req := checkoutReq("u1")
	req.Zip = ""
	_, err := svc.PlaceOrder(context.Background(), req)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "zip", ve.Field)
	assert.Len(t, state.carts["u1"], 1, "cart must be untouched")
}

func TestPlaceOrder_Success(t *testing.T) {
	state := newState()
	state.addProduct("p1", "Widget", "10.00", 5)
	state.addCartLine("u1", "p1", 2)
	svc := NewService(&memUnitOfWork{state: state})

	o, err := svc.PlaceOrder(context.Background(), checkoutReq("u1"))
	require.NoError(t, err)

	// Settings are the defaults: 10% tax, $10 delivery, free shipping at $50.
	assert.True(t, decimal.RequireFromString("20.00").Equal(o.Subtotal))
	assert.True(t, decimal.RequireFromString("2.00").Equal(o.Tax))
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Shipping))
	assert.True(t, decimal.RequireFromString("32.00").Equal(o.Total))
	assert.Equal(t, StatusPaid, o.Status)
	assert.NotEmpty(t, o.ID)

	require.Len(t, o.Lines, 1)
	assert.Equal(t, "p1", o.Lines[0].ProductID)
	assert.Equal(t, 2, o.Lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Lines[0].UnitPrice))

	assert.Equal(t, 3, state.products["p1"].Stock, "stock must be decremented")
	assert.Empty(t, state.carts["u1"], "cart must be cleared")
	require.Len(t, state.orders, 1)
}

func TestPlaceOrder_FreeShippingOverThreshold(t *testing.T) {
	state := newState()
	state.addProduct("p1", "Widget", "30.00", 5)
	state.addCartLine("u1", "p1", 2)
	svc := NewService(&memUnitOfWork{state: state})

	o, err := svc.PlaceOrder(context.Background(), checkoutReq("u1"))
	require.NoError(t, err)

	assert.True(t, o.Shipping.IsZero())
	assert.True(t, decimal.RequireFromString("66.00").Equal(o.Total))
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	state := newState()
	state.addProduct("p1", "Widget", "10.00", 1)
	state.addCartLine("u1", "p1", 3)
	svc := NewService(&memUnitOfWork{state: state})

	_, err := svc.PlaceOrder(context.Background(), checkoutReq("u1"))

	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "Widget", ise.ProductName)
	assert.Equal(t, 1, ise.Available)

	// Full rollback: nothing observable changed.
	assert.Empty(t, state.orders)
	assert.Equal(t, 1, state.products["p1"].Stock)
	assert.Equal(t, 3, state.carts["u1"]["p1"])
}

func TestPlaceOrder_ConcurrentStockConflict(t *testing.T) {
	state := newState()
	state.addProduct("p1", "Widget", "10.00", 1)
	state.addCartLine("u1", "p1", 1)
	state.conflictOn = "p1"
	svc := NewService(&memUnitOfWork{state: state})

	_, err := svc.PlaceOrder(context.Background(), checkoutReq("u1"))

	require.ErrorIs(t, err, ErrStockConflict)
	assert.Empty(t, state.orders, "rolled-back order must not be observable")
	assert.Equal(t, 1, state.carts["u1"]["p1"], "cart must survive the conflict")
}

func TestPlaceOrder_PersistenceFailure(t *testing.T) {
	state := newState()
	state.addProduct("p1", "Widget", "10.00", 5)
	state.addCartLine("u1", "p1", 1)
	state.createOrderErr = errors.New("connection reset")
	svc := NewService(&memUnitOfWork{state: state})

	_, err := svc.PlaceOrder(context.Background(), checkoutReq("u1"))

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 5, state.products["p1"].Stock)
	assert.Equal(t, 1, state.carts["u1"]["p1"])
}

func TestPlaceOrder_PriceIsFrozenSnapshot(t *testing.T) {
	state := newState()
	state.addProduct("p1", "Widget", "10.00", 5)
	state.addCartLine("u1", "p1", 1)
	svc := NewService(&memUnitOfWork{state: state})

	o, err := svc.PlaceOrder(context.Background(), checkoutReq("u1"))
	require.NoError(t, err)

	// A later price change must not leak into the placed order.
	state.products["p1"].Price = decimal.RequireFromString("99.00")

	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Lines[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("10.00").Equal(state.orders[0].Lines[0].UnitPrice))
}

func TestPlaceOrder_DefaultPaymentMethod(t *testing.T) {
	state := newState()
	state.addProduct("p1", "Widget", "10.00", 5)
	state.addCartLine("u1", "p1", 1)
	svc := NewService(&memUnitOfWork{state: state})

	req := checkoutReq("u1")
	req.PaymentMethod = ""
	o, err := svc.PlaceOrder(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "dummy", o.PaymentMethod)
}

func TestStatus_Transitions(t *testing.T) {
	assert.True(t, StatusPaid.CanTransitionTo(StatusShipped))
	assert.True(t, StatusShipped.CanTransitionTo(StatusDelivered))
	assert.True(t, StatusPending.CanTransitionTo(StatusPaid))
	assert.True(t, StatusPaid.CanTransitionTo(StatusCancelled))

	assert.False(t, StatusPaid.CanTransitionTo(StatusDelivered), "no skipping shipped")
	assert.False(t, StatusDelivered.CanTransitionTo(StatusCancelled), "delivered is terminal")
	assert.False(t, StatusCancelled.CanTransitionTo(StatusPaid), "cancelled is terminal")
	assert.False(t, StatusPaid.CanTransitionTo(StatusPaid))
	assert.False(t, StatusPaid.CanTransitionTo(Status("bogus")))
}
