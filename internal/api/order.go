package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/mkoval/storefront/internal/domain/order"
)

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	req := order.PlaceOrderRequest{UserID: userFrom(r.Context()).ID}
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "address":
			req.Address, err = d.Str()
		case "city":
			req.City, err = d.Str()
		case "zip":
			req.Zip, err = d.Str()
		case "phone":
			req.Phone, err = d.Str()
		case "paymentMethod":
			req.PaymentMethod, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.checkout.PlaceOrder(r.Context(), req)
	if err != nil {
		respondOrderError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrders(e, orders)
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	// Customers see only their own orders; a foreign ID reads as missing.
	u := userFrom(r.Context())
	if o.UserID != u.ID && !u.Admin {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}

	respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ise *order.InsufficientStockError
		ve  *order.ValidationError
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "cart is empty")
	case errors.Is(err, order.ErrStockConflict):
		respondError(w, http.StatusConflict, "stock changed, please retry")
	case errors.As(err, &ise):
		respondError(w, http.StatusConflict, ise.Error())
	case errors.As(err, &ve):
		respondError(w, http.StatusBadRequest, ve.Error())
	default:
		respondInternal(w, r, err)
	}
}

func encodeOrders(e *jx.Encoder, orders []order.Order) {
	e.ArrStart()
	for i := range orders {
		encodeOrder(e, &orders[i])
	}
	e.ArrEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("userId")
	e.Str(o.UserID)
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range o.Lines {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("name")
		e.Str(l.ProductName)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unitPrice")
		money(e, l.UnitPrice)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	money(e, o.Subtotal)
	e.FieldStart("tax")
	money(e, o.Tax)
	e.FieldStart("shipping")
	money(e, o.Shipping)
	e.FieldStart("total")
	money(e, o.Total)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("shippingAddress")
	e.Str(o.ShippingInfo.Address)
	e.FieldStart("shippingCity")
	e.Str(o.ShippingInfo.City)
	e.FieldStart("shippingZip")
	e.Str(o.ShippingInfo.Zip)
	e.FieldStart("phone")
	e.Str(o.ShippingInfo.Phone)
	e.FieldStart("paymentMethod")
	e.Str(o.PaymentMethod)
	e.FieldStart("createdAt")
	timestamp(e, o.CreatedAt)
	e.ObjEnd()
}
