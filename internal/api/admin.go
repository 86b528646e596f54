package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/mkoval/storefront/internal/domain/order"
	"github.com/mkoval/storefront/internal/domain/pricing"
	"github.com/mkoval/storefront/internal/domain/product"
)

// decodeProduct reads the admin product payload into p, leaving absent fields
// untouched.
func decodeProduct(r *http.Request, p *product.Product) error {
	return decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "stock":
			p.Stock, err = d.Int()
		case "category":
			p.Category, err = d.Str()
		case "imageUrl":
			p.ImageURL, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
}

func validProduct(p *product.Product) (string, bool) {
	switch {
	case p.Name == "":
		return "name is required", false
	case p.Price.IsNegative():
		return "price cannot be negative", false
	case p.Stock < 0:
		return "stock cannot be negative", false
	}
	return "", true
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	p := product.Product{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
	if err := decodeProduct(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if msg, ok := validProduct(&p); !ok {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.products.Create(r.Context(), &p); err != nil {
		respondInternal(w, r, err)
		return
	}

	respond(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeProduct(e, &p)
	})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	existing, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	p := *existing
	if err := decodeProduct(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if msg, ok := validProduct(&p); !ok {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.products.Update(r.Context(), &p); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProduct(e, &p)
	})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrders(e, orders)
	})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var status string
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "status":
			status, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	next := order.Status(status)
	if !next.Valid() {
		respondError(w, http.StatusBadRequest, "unknown status")
		return
	}

	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	if !o.Status.CanTransitionTo(next) {
		respondError(w, http.StatusConflict, "invalid status transition")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), o.ID, next); err != nil {
		respondInternal(w, r, err)
		return
	}

	o.Status = next
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range users {
			encodeUser(e, &users[i])
		}
		e.ArrEnd()
	})
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Current(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSettings(e, s)
	})
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Current(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	err = decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "taxRate":
			s.TaxRatePercent, err = decodeDecimal(d)
		case "deliveryFee":
			s.DeliveryFee, err = decodeDecimal(d)
		case "freeShippingThreshold":
			s.FreeShippingThreshold, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.settings.Update(r.Context(), s); err != nil {
		respondInternal(w, r, err)
		return
	}

	respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSettings(e, s)
	})
}

func encodeSettings(e *jx.Encoder, s pricing.Settings) {
	e.ObjStart()
	e.FieldStart("taxRate")
	e.RawStr(s.TaxRatePercent.String())
	e.FieldStart("deliveryFee")
	money(e, s.DeliveryFee)
	e.FieldStart("freeShippingThreshold")
	money(e, s.FreeShippingThreshold)
	e.ObjEnd()
}
