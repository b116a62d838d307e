package router

import (
	"context"
	"fmt"
	"sync"
)

// Router combines a [Table] with a [Guard] and tracks the current location.
type Router struct {
	table *Table
	guard *Guard

	mu      sync.RWMutex
	current Location
}

// New creates a [Router] starting at the unmatched root location.
func New(table *Table, guard *Guard) *Router {
	return &Router{
		table:   table,
		guard:   guard,
		current: Location{Path: "/"},
	}
}

// Table returns the route table.
func (r *Router) Table() *Table {
	return r.table
}

// Guard returns the navigation guard.
func (r *Router) Guard() *Guard {
	return r.guard
}

// Current returns the last location a Push settled on.
func (r *Router) Current() Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Check resolves path and runs the guard once without changing the current
// location.
func (r *Router) Check(ctx context.Context, path string) (Location, Decision) {
	to := r.table.Resolve(path)
	return to, r.guard.BeforeEach(ctx, to, r.Current())
}

// Push navigates to path. Every redirect is itself guarded; the chain stops
// at the first allowed location or fails with [ErrRedirectLoop] once it
// exceeds the configured MaxRedirects.
func (r *Router) Push(ctx context.Context, path string) (Location, error) {
	from := r.Current()
	to := r.table.Resolve(path)

	limit := r.guard.Config().MaxRedirects
	for hops := 0; ; hops++ {
		d := r.guard.BeforeEach(ctx, to, from)
		if d.Allowed() {
			r.mu.Lock()
			r.current = to
			r.mu.Unlock()
			return to, nil
		}
		if hops >= limit {
			return Location{}, fmt.Errorf("%w: %s after %d redirects", ErrRedirectLoop, path, hops)
		}
		to = r.table.Resolve(d.Path)
	}
}
