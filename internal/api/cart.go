package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/mkoval/storefront/internal/domain/cart"
	"github.com/mkoval/storefront/internal/domain/product"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.Get(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		e.ArrStart()
		for _, l := range view.Lines {
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
		money(e, view.Subtotal)
		e.ObjEnd()
	})
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID string
		quantity  int
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = d.Str()
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil || productID == "" {
		respondError(w, http.StatusBadRequest, "productId and quantity are required")
		return
	}

	if err := h.carts.Add(r.Context(), userFrom(r.Context()).ID, productID, quantity); err != nil {
		respondCartError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var quantity int
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	userID := userFrom(r.Context()).ID
	if err := h.carts.SetQuantity(r.Context(), userID, r.PathValue("productID"), quantity); err != nil {
		respondCartError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context()).ID
	if err := h.carts.Remove(r.Context(), userID, r.PathValue("productID")); err != nil {
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondCartError(w http.ResponseWriter, r *http.Request, err error) {
	var sle *cart.StockLimitError
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, cart.ErrInvalidQuantity.Error())
	case errors.Is(err, cart.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "cart line not found")
	case errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusNotFound, "product not found")
	case errors.As(err, &sle):
		respondError(w, http.StatusConflict, sle.Error())
	default:
		respondInternal(w, r, err)
	}
}
