package flows

import (
	"context"
	"fmt"
)

// LoginMetrics carries metric IDs used by the login flow.
type LoginMetrics struct {
	LoginSuccess        int
	LoginFailure        int
	TokenPersistFailure int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady error
	LoginFailed    error
	TokenStorage   error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	// FallbackError is the session error when the failure carries no
	// server-provided message.
	FallbackError string

	State   SessionWriter
	API     API
	Storage TokenStore

	// MessageFrom extracts a server-provided message from an API error.
	MessageFrom func(error) (string, bool)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// TokenStore is the persisted-token surface used by login and logout.
type TokenStore interface {
	Save(ctx context.Context, token string) error
	Remove(ctx context.Context) error
}

// RunLogin exchanges credentials for a token, persists it and loads the
// current user.
//
// Loading is set for the whole call and always cleared on return. Any failure
// sets the session error (server message or FallbackError) and is returned
// wrapped in Errors.LoginFailed; token and user keep whatever partial state
// the failing step left.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopLog
	}
	if deps.MessageFrom == nil {
		deps.MessageFrom = func(error) (string, bool) { return "", false }
	}
	if deps.State == nil || deps.API == nil || deps.Storage == nil {
		return deps.Errors.EngineNotReady
	}

	deps.State.BeginLoading()
	defer deps.State.EndLoading()

	fail := func(stage string, cause error) error {
		msg := deps.FallbackError
		if serverMsg, ok := deps.MessageFrom(cause); ok {
			msg = serverMsg
		}
		deps.State.SetError(msg)
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", cause, func() map[string]string {
			return map[string]string{
				"email": email,
				"stage": stage,
			}
		})
		deps.Warn("portal login failed", "stage", stage, "error", cause)
		return fmt.Errorf("%w: %w", deps.Errors.LoginFailed, cause)
	}

	token, err := deps.API.Login(ctx, email, password)
	if err != nil {
		return fail("credentials", err)
	}

	deps.State.SetToken(token)
	if err := deps.Storage.Save(ctx, token); err != nil {
		deps.MetricInc(deps.Metrics.TokenPersistFailure)
		return fail("persist", fmt.Errorf("%w: %w", deps.Errors.TokenStorage, err))
	}

	user, err := deps.API.CurrentUser(ctx, token)
	if err != nil {
		return fail("user", err)
	}
	deps.State.SetUser(user)

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, nil, func() map[string]string {
		return map[string]string{
			"role": string(user.Role),
		}
	})
	return nil
}
