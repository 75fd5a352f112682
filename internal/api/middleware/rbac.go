package middleware

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/staffplan/internal/access"
)

// RequireAction returns middleware that admits callers allowed to perform
// action regardless of ownership.
func RequireAction(action access.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if !access.Allowed(p, action, "") {
				log.Printf("access denied: %s (%s) cannot %s", p.UserID, p.Role, action)
				jsonForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireActionOnSelf is RequireAction for routes whose {id} URL parameter
// names the engineer that owns the resource.
func RequireActionOnSelf(action access.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if !access.Allowed(p, action, chi.URLParam(r, "id")) {
				log.Printf("access denied: %s (%s) cannot %s", p.UserID, p.Role, action)
				jsonForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
