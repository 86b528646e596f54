package httpmiddleware

import (
	"net/http"
	"strings"
)

// CORSConfig configures cross-origin resource sharing.
type CORSConfig struct {
	// AllowedOrigins lists origins permitted to call the API. "*" allows any.
	AllowedOrigins []string
	// AllowedMethods defaults to the storefront verb set when empty.
	AllowedMethods []string
	// AllowedHeaders defaults to Authorization and Content-Type when empty.
	AllowedHeaders []string
}

// CORS returns a middleware that answers preflight requests and stamps CORS
// headers on matching origins. Non-matching origins pass through without CORS
// headers, which browsers treat as a denial.
func CORS(cfg CORSConfig) Middleware {
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Authorization", "Content-Type"}
	}
	allowMethods := strings.Join(methods, ", ")
	allowHeaders := strings.Join(headers, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(cfg.AllowedOrigins, origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")

				if r.Method == http.MethodOptions {
					h.Set("Access-Control-Allow-Methods", allowMethods)
					h.Set("Access-Control-Allow-Headers", allowHeaders)
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
