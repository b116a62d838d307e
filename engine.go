package goPortal

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrEthical07/goPortal/internal/audit"
	"github.com/MrEthical07/goPortal/internal/flows"
	"github.com/MrEthical07/goPortal/router"
	"github.com/MrEthical07/goPortal/session"
	"golang.org/x/sync/singleflight"
)

// APIClient is the backend surface the engine calls. *apiclient.Client
// implements it.
type APIClient interface {
	Login(ctx context.Context, email, password string) (string, error)
	CurrentUser(ctx context.Context, token string) (session.Identity, error)
	Logout(ctx context.Context, token string) error
}

// Engine is the portal session store. It owns the session record, persists
// the token through a session.TokenStorage and drives the navigation guard.
//
// Methods are safe for concurrent use in the memory-safety sense only:
// two overlapping Login calls may interleave their state changes.
type Engine struct {
	config  Config
	logger  *slog.Logger
	api     APIClient
	storage session.TokenStorage
	state   *sessionState
	router  *router.Router
	audit   *audit.Dispatcher
	metrics *Metrics
	flows   flows.Deps

	// fetches collapses concurrent FetchUser calls for the same token.
	fetches singleflight.Group
}

// Close flushes and stops the audit dispatcher. It does not touch the
// persisted token.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login exchanges credentials for a token, persists it, and loads the user.
//
// Loading is true for the duration of the call and Error is cleared on entry.
// On failure Error holds the server-provided message or
// Config.Session.FallbackError, and the returned error wraps [ErrLoginFailed]
// together with its cause. A failure after the token exchange keeps the
// token: the next FetchUser or navigation decides its fate.
func (e *Engine) Login(ctx context.Context, email, password string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return flows.RunLogin(ctx, email, password, e.flows.Login)
}

// FetchUser loads the user for the held token. Without a token it does
// nothing. Any failure runs the logout procedure; nothing is returned.
//
// Calls that overlap an in-flight fetch for the same token wait for it and
// share its outcome instead of asking the backend again.
func (e *Engine) FetchUser(ctx context.Context) {
	if e == nil {
		return
	}
	token := e.Token()
	if token == "" {
		return
	}
	_, _, _ = e.fetches.Do(token, func() (any, error) {
		flows.RunFetchUser(ctx, e.flows.FetchUser)
		return nil, nil
	})
}

// Logout asks the backend to end the session, ignoring its answer, then
// clears user and token and removes the persisted token.
//
// The only error is a failed removal of the persisted token (wrapping
// [ErrTokenStorage]); memory is cleared even then.
func (e *Engine) Logout(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return flows.RunLogout(ctx, e.flows.Logout)
}

// IsAdmin reports whether the loaded user has the admin role.
func (e *Engine) IsAdmin() bool {
	return e.hasRole(session.RoleAdmin)
}

// IsStaff reports whether the loaded user has the staff role. Admins are not
// staff.
func (e *Engine) IsStaff() bool {
	return e.hasRole(session.RoleStaff)
}

func (e *Engine) hasRole(want session.Role) bool {
	if e == nil {
		return false
	}
	role, ok := e.state.role()
	return ok && role == want
}

// State returns a copy of the session record.
func (e *Engine) State() session.State {
	if e == nil {
		return session.State{}
	}
	return e.state.snapshot()
}

// Token returns the held token, or "".
func (e *Engine) Token() string {
	if e == nil {
		return ""
	}
	return e.state.Token()
}

// User returns a copy of the loaded user, or nil.
func (e *Engine) User() *session.Identity {
	return e.State().User
}

// HasToken reports whether a token is held.
func (e *Engine) HasToken() bool {
	return e.Token() != ""
}

// HasUser reports whether a user is loaded.
func (e *Engine) HasUser() bool {
	if e == nil {
		return false
	}
	return e.state.hasUser()
}

// Router returns the navigation router guarded by this engine.
func (e *Engine) Router() *router.Router {
	if e == nil {
		return nil
	}
	return e.router
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// navigationObserver feeds guard decisions into metrics and audit without
// widening the Engine's exported surface.
type navigationObserver struct {
	engine *Engine
}

func (o navigationObserver) ObserveNavigation(d router.Decision, elapsed time.Duration) {
	e := o.engine
	switch {
	case d.Allowed():
		e.metricInc(MetricNavigationAllowed)
	case d.Reason == router.ReasonAuthRequired:
		e.metricInc(MetricNavigationRedirectLogin)
	case d.Reason == router.ReasonAuthenticated:
		e.metricInc(MetricNavigationRedirectHome)
	}
	if e.metrics != nil {
		e.metrics.Observe(MetricGuardLatency, elapsed)
	}
	if !d.Allowed() {
		e.logger.Debug("portal navigation redirected", "to", d.Path, "decision", d.String())
		e.emitNavigationAudit(d)
	}
}
