package middleware

import (
	"context"
	"net/http"

	goPortal "github.com/MrEthical07/goPortal"
)

// RequireSession answers 401 unless the shared engine holds a token.
func RequireSession(engine *goPortal.Engine) func(http.Handler) http.Handler {
	return RequireSessionFunc(Static(engine))
}

// RequireSessionFunc answers 401 unless the engine pick returns holds a
// token. It does not fetch the user; combine it with GuardFunc on page routes
// for that. Accepted requests carry the engine in their context.
func RequireSessionFunc(pick EngineFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			engine := pick(r)
			if !engine.HasToken() {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), engineContextKey{}, engine)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
