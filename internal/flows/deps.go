package flows

import (
	"context"

	"github.com/MrEthical07/goPortal/session"
)

// SessionWriter is the Engine-owned session record the flows mutate.
type SessionWriter interface {
	Token() string
	// BeginLoading sets loading and clears the last error.
	BeginLoading()
	EndLoading()
	SetError(msg string)
	SetToken(token string)
	SetUser(user session.Identity)
	// Clear drops user and token from memory.
	Clear()
}

// API is the backend surface the flows call.
type API interface {
	Login(ctx context.Context, email, password string) (string, error)
	CurrentUser(ctx context.Context, token string) (session.Identity, error)
	Logout(ctx context.Context, token string) error
}

// AuditFunc emits one audit event. meta is evaluated lazily.
type AuditFunc func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)

// Deps groups flow dependency sets. The Engine builds this once and
// delegates each operation to the matching flow.
type Deps struct {
	Login     LoginDeps
	FetchUser FetchUserDeps
	Logout    LogoutDeps
}

func noopMetric(int) {}

func noopAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noopLog(string, ...any) {}
