package middleware

import (
	"context"
	"net/http"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/router"
)

type (
	locationContextKey struct{}
	engineContextKey   struct{}
)

// EngineFunc picks the engine serving r. Servers with one session per client
// return that client's engine; a nil engine answers 503.
type EngineFunc func(r *http.Request) *goPortal.Engine

// Static serves every request from engine.
func Static(engine *goPortal.Engine) EngineFunc {
	return func(*http.Request) *goPortal.Engine { return engine }
}

// LocationFromContext returns the location Guard resolved for the request.
func LocationFromContext(ctx context.Context) (router.Location, bool) {
	loc, ok := ctx.Value(locationContextKey{}).(router.Location)
	return loc, ok
}

// EngineFromContext returns the engine Guard or RequireSession picked for
// the request.
func EngineFromContext(ctx context.Context) (*goPortal.Engine, bool) {
	engine, ok := ctx.Value(engineContextKey{}).(*goPortal.Engine)
	return engine, ok && engine != nil
}

// Guard runs the navigation guard of one shared engine. Every client sees
// the same session; use GuardFunc when clients sign in separately.
func Guard(engine *goPortal.Engine) func(http.Handler) http.Handler {
	return GuardFunc(Static(engine))
}

// GuardFunc runs the navigation guard of the engine pick returns before page
// requests. GET and HEAD requests to a redirected location get 302 Found
// with the target in Location; allowed ones reach next with the resolved
// location and the engine in their context. Other methods pass through
// untouched.
func GuardFunc(pick EngineFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			engine := pick(r)
			rt := engine.Router()
			if rt == nil {
				http.Error(w, "portal unavailable", http.StatusServiceUnavailable)
				return
			}

			to, d := rt.Check(r.Context(), r.URL.Path)
			if !d.Allowed() {
				http.Redirect(w, r, d.Path, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), locationContextKey{}, to)
			ctx = context.WithValue(ctx, engineContextKey{}, engine)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
