package flows

import "context"

// FetchUserMetrics carries metric IDs used by the fetch-user flow.
type FetchUserMetrics struct {
	FetchSuccess       int
	FetchFailure       int
	SessionInvalidated int
}

// FetchUserEvents carries audit event names used by the fetch-user flow.
type FetchUserEvents struct {
	SessionInvalidated string
}

// FetchUserDeps captures fetch-user dependencies.
type FetchUserDeps struct {
	State SessionWriter
	API   API
	// Logout runs the full logout procedure when the fetch fails.
	Logout func(context.Context) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics FetchUserMetrics
	Events  FetchUserEvents
}

// RunFetchUser loads the current user for the held token.
//
// Without a token it does nothing. A failed fetch is treated as session
// invalidation: the logout procedure runs and nothing is surfaced.
func RunFetchUser(ctx context.Context, deps FetchUserDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopLog
	}
	if deps.State == nil || deps.API == nil {
		return
	}

	token := deps.State.Token()
	if token == "" {
		return
	}

	user, err := deps.API.CurrentUser(ctx, token)
	if err != nil {
		deps.MetricInc(deps.Metrics.FetchFailure)
		deps.MetricInc(deps.Metrics.SessionInvalidated)
		deps.EmitAudit(ctx, deps.Events.SessionInvalidated, false, "", err, nil)
		deps.Warn("portal user fetch failed, logging out", "error", err)
		if deps.Logout != nil {
			if logoutErr := deps.Logout(ctx); logoutErr != nil {
				deps.Warn("portal forced logout incomplete", "error", logoutErr)
			}
		}
		return
	}

	deps.State.SetUser(user)
	deps.MetricInc(deps.Metrics.FetchSuccess)
}
