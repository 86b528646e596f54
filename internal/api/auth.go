package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/mkoval/storefront/internal/domain/auth"
)

type userKey struct{}

// userFrom returns the authenticated user stored by the auth middleware.
func userFrom(ctx context.Context) *auth.User {
	u, _ := ctx.Value(userKey{}).(*auth.User)
	return u
}

// authenticated wraps next with bearer token authentication. The resolved
// user lands in the request context.
func (h *Handler) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		u, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrSessionNotFound):
				respondError(w, http.StatusUnauthorized, "invalid token")
			case errors.Is(err, auth.ErrSessionExpired):
				respondError(w, http.StatusUnauthorized, "session expired")
			default:
				respondInternal(w, r, err)
			}
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, u)))
	})
}

// admin is authenticated plus the is_admin gate.
func (h *Handler) admin(next http.HandlerFunc) http.Handler {
	return h.authenticated(func(w http.ResponseWriter, r *http.Request) {
		if !userFrom(r.Context()).Admin {
			respondError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var name, email, password string
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			name, err = d.Str()
		case "email":
			email, err = d.Str()
		case "password":
			password, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	token, u, err := h.auth.Register(r.Context(), name, email, password)
	if err != nil {
		var ve *auth.ValidationError
		switch {
		case errors.As(err, &ve):
			respondError(w, http.StatusBadRequest, ve.Message)
		case errors.Is(err, auth.ErrEmailTaken):
			respondError(w, http.StatusConflict, "email already registered")
		default:
			respondInternal(w, r, err)
		}
		return
	}

	respond(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeSession(e, token, u)
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var email, password string
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "email":
			email, err = d.Str()
		case "password":
			password, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	token, u, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		respondInternal(w, r, err)
		return
	}

	respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSession(e, token, u)
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := bearerToken(r)
	if err := h.auth.Logout(r.Context(), token); err != nil {
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func encodeSession(e *jx.Encoder, token string, u *auth.User) {
	e.ObjStart()
	e.FieldStart("token")
	e.Str(token)
	e.FieldStart("user")
	encodeUser(e, u)
	e.ObjEnd()
}

func encodeUser(e *jx.Encoder, u *auth.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(u.ID)
	e.FieldStart("name")
	e.Str(u.Name)
	e.FieldStart("email")
	e.Str(u.Email)
	e.FieldStart("isAdmin")
	e.Bool(u.Admin)
	e.FieldStart("createdAt")
	timestamp(e, u.CreatedAt)
	e.ObjEnd()
}
