package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/mkoval/storefront/internal/domain/product"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range products {
			encodeProduct(e, &products[i])
		}
		e.ArrEnd()
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProduct(e, p)
	})
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	money(e, p.Price)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("imageUrl")
	e.Str(p.ImageURL)
	e.ObjEnd()
}
