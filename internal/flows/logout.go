package flows

import (
	"context"
	"fmt"
)

// LogoutMetrics carries metric IDs used by the logout flow.
type LogoutMetrics struct {
	Logout              int
	LogoutRemoteFailure int
}

// LogoutEvents carries audit event names used by the logout flow.
type LogoutEvents struct {
	Logout string
}

// LogoutErrors carries host-level sentinel errors used by the logout flow.
type LogoutErrors struct {
	TokenStorage error
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	State   SessionWriter
	API     API
	Storage TokenStore

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  LogoutErrors
}

// RunLogout invalidates the server-side session on a best-effort basis, then
// unconditionally clears user and token and removes the persisted token.
//
// The backend call's error is discarded. The only error returned is a failure
// to remove the persisted token, and memory is cleared even then.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.State == nil {
		return nil
	}

	if deps.API != nil {
		if err := deps.API.Logout(ctx, deps.State.Token()); err != nil {
			deps.MetricInc(deps.Metrics.LogoutRemoteFailure)
		}
	}

	deps.State.Clear()

	var removeErr error
	if deps.Storage != nil {
		removeErr = deps.Storage.Remove(ctx)
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, removeErr == nil, "", removeErr, nil)

	if removeErr != nil {
		return fmt.Errorf("%w: %w", deps.Errors.TokenStorage, removeErr)
	}
	return nil
}
