package router

import (
	"context"
	"time"
)

// SessionSource is the read side of the session the guard consults.
//
// FetchUser must recover from its own failures (clearing the token when the
// fetch fails) and never surface them.
type SessionSource interface {
	HasToken() bool
	HasUser() bool
	FetchUser(ctx context.Context)
}

// Observer receives every guard decision with the time spent reaching it,
// including any awaited user fetch.
type Observer interface {
	ObserveNavigation(d Decision, elapsed time.Duration)
}

// Guard runs before each route transition.
type Guard struct {
	session  SessionSource
	cfg      Config
	observer Observer
}

// NewGuard creates a [Guard]. observer may be nil.
func NewGuard(session SessionSource, cfg Config, observer Observer) *Guard {
	return &Guard{
		session:  session,
		cfg:      cfg.withDefaults(),
		observer: observer,
	}
}

// Config returns the effective guard configuration.
func (g *Guard) Config() Config {
	return g.cfg
}

// BeforeEach decides a transition to the target location. When a token is
// present but no user is loaded it first awaits exactly one FetchUser, so the
// decision sees the post-fetch token state (a failed fetch has logged out by
// then). The current location is not consulted.
func (g *Guard) BeforeEach(ctx context.Context, to, _ Location) Decision {
	start := time.Now()

	if g.session.HasToken() && !g.session.HasUser() {
		g.session.FetchUser(ctx)
	}

	d := Decide(g.session.HasToken(), to, g.cfg)
	if g.observer != nil {
		g.observer.ObserveNavigation(d, time.Since(start))
	}
	return d
}
