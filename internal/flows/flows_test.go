package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goPortal/session"
)

var (
	errNotReady   = errors.New("not ready")
	errLogin      = errors.New("login failed")
	errStorage    = errors.New("token storage")
	errRejected   = errors.New("rejected")
	errBackend    = errors.New("backend down")
	errRedisWrite = errors.New("redis write")
)

type fakeState struct {
	user         *session.Identity
	token        string
	loading      bool
	err          string
	loadingSeen  bool
	clearedCalls int
}

func (s *fakeState) Token() string { return s.token }
func (s *fakeState) BeginLoading() {
	s.loading = true
	s.loadingSeen = true
	s.err = ""
}
func (s *fakeState) EndLoading()           { s.loading = false }
func (s *fakeState) SetError(msg string)   { s.err = msg }
func (s *fakeState) SetToken(token string) { s.token = token }
func (s *fakeState) SetUser(u session.Identity) {
	s.user = &u
}
func (s *fakeState) Clear() {
	s.clearedCalls++
	s.user = nil
	s.token = ""
}

type fakeAPI struct {
	loginToken string
	loginErr   error
	user       session.Identity
	userErr    error
	logoutErr  error

	logoutTokens []string
}

func (a *fakeAPI) Login(context.Context, string, string) (string, error) {
	return a.loginToken, a.loginErr
}

func (a *fakeAPI) CurrentUser(context.Context, string) (session.Identity, error) {
	return a.user, a.userErr
}

func (a *fakeAPI) Logout(_ context.Context, token string) error {
	a.logoutTokens = append(a.logoutTokens, token)
	return a.logoutErr
}

type fakeStore struct {
	saved     string
	saveErr   error
	removeErr error
	removed   int
}

func (s *fakeStore) Save(_ context.Context, token string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = token
	return nil
}

func (s *fakeStore) Remove(context.Context) error {
	s.removed++
	if s.removeErr != nil {
		return s.removeErr
	}
	s.saved = ""
	return nil
}

type serverMessage struct{ msg string }

func (e serverMessage) Error() string { return "server: " + e.msg }

func messageFrom(err error) (string, bool) {
	var sm serverMessage
	if errors.As(err, &sm) {
		return sm.msg, true
	}
	return "", false
}

func loginDeps(state *fakeState, api *fakeAPI, store *fakeStore, counts map[int]int) LoginDeps {
	return LoginDeps{
		FallbackError: "Invalid Credentials",
		State:         state,
		API:           api,
		Storage:       store,
		MessageFrom:   messageFrom,
		MetricInc:     func(id int) { counts[id]++ },
		Metrics:       LoginMetrics{LoginSuccess: 1, LoginFailure: 2, TokenPersistFailure: 3},
		Errors:        LoginErrors{EngineNotReady: errNotReady, LoginFailed: errLogin, TokenStorage: errStorage},
	}
}

func TestRunLoginSuccess(t *testing.T) {
	state := &fakeState{err: "stale"}
	api := &fakeAPI{loginToken: "tok", user: session.Identity{ID: "u1", Role: session.RoleStaff}}
	store := &fakeStore{}
	counts := map[int]int{}

	if err := RunLogin(context.Background(), "a@b.c", "pw", loginDeps(state, api, store, counts)); err != nil {
		t.Fatalf("RunLogin failed: %v", err)
	}
	if state.token != "tok" || store.saved != "tok" {
		t.Fatalf("expected token in memory and storage, got %q / %q", state.token, store.saved)
	}
	if state.user == nil || state.user.ID != "u1" {
		t.Fatalf("expected user loaded, got %+v", state.user)
	}
	if state.loading || !state.loadingSeen || state.err != "" {
		t.Fatalf("unexpected loading/error state: loading=%v seen=%v err=%q", state.loading, state.loadingSeen, state.err)
	}
	if counts[1] != 1 || counts[2] != 0 {
		t.Fatalf("unexpected metric counts %v", counts)
	}
}

func TestRunLoginCredentialRejectionUsesServerMessage(t *testing.T) {
	state := &fakeState{}
	api := &fakeAPI{loginErr: serverMessage{msg: "Wrong password"}}
	store := &fakeStore{}
	counts := map[int]int{}

	err := RunLogin(context.Background(), "a@b.c", "bad", loginDeps(state, api, store, counts))
	if !errors.Is(err, errLogin) {
		t.Fatalf("expected wrapped login error, got %v", err)
	}
	var sm serverMessage
	if !errors.As(err, &sm) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if state.err != "Wrong password" {
		t.Fatalf("expected server message, got %q", state.err)
	}
	if state.token != "" || store.saved != "" || state.loading {
		t.Fatalf("unexpected state after rejection: %+v store=%q", state, store.saved)
	}
	if counts[2] != 1 {
		t.Fatalf("expected one failure metric, got %v", counts)
	}
}

func TestRunLoginUserFetchFailureKeepsToken(t *testing.T) {
	state := &fakeState{}
	api := &fakeAPI{loginToken: "tok", userErr: errRejected}
	store := &fakeStore{}

	err := RunLogin(context.Background(), "a@b.c", "pw", loginDeps(state, api, store, map[int]int{}))
	if !errors.Is(err, errLogin) || !errors.Is(err, errRejected) {
		t.Fatalf("expected login error wrapping cause, got %v", err)
	}
	if state.err != "Invalid Credentials" {
		t.Fatalf("expected fallback message, got %q", state.err)
	}
	if state.token != "tok" || store.saved != "tok" || state.user != nil {
		t.Fatalf("expected partial state (token, no user), got %+v store=%q", state, store.saved)
	}
	if state.loading {
		t.Fatal("loading must be cleared on failure")
	}
}

func TestRunLoginPersistFailure(t *testing.T) {
	state := &fakeState{}
	api := &fakeAPI{loginToken: "tok", user: session.Identity{ID: "u1"}}
	store := &fakeStore{saveErr: errRedisWrite}
	counts := map[int]int{}

	err := RunLogin(context.Background(), "a@b.c", "pw", loginDeps(state, api, store, counts))
	if !errors.Is(err, errStorage) || !errors.Is(err, errRedisWrite) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if state.token != "tok" || state.user != nil {
		t.Fatalf("expected in-memory token only, got %+v", state)
	}
	if counts[3] != 1 || counts[2] != 1 {
		t.Fatalf("expected persist and login failure metrics, got %v", counts)
	}
}

func TestRunLoginNotReady(t *testing.T) {
	err := RunLogin(context.Background(), "a", "b", LoginDeps{Errors: LoginErrors{EngineNotReady: errNotReady}})
	if !errors.Is(err, errNotReady) {
		t.Fatalf("expected errNotReady, got %v", err)
	}
}

func TestRunFetchUserWithoutTokenIsNoop(t *testing.T) {
	state := &fakeState{}
	api := &fakeAPI{userErr: errBackend}
	logoutCalls := 0

	RunFetchUser(context.Background(), FetchUserDeps{
		State:  state,
		API:    api,
		Logout: func(context.Context) error { logoutCalls++; return nil },
	})
	if logoutCalls != 0 || state.clearedCalls != 0 || state.user != nil {
		t.Fatalf("expected no state change, got %+v logout=%d", state, logoutCalls)
	}
}

func TestRunFetchUserSuccess(t *testing.T) {
	state := &fakeState{token: "tok"}
	api := &fakeAPI{user: session.Identity{ID: "u1", Role: session.RoleAdmin}}

	RunFetchUser(context.Background(), FetchUserDeps{State: state, API: api})
	if state.user == nil || state.user.Role != session.RoleAdmin {
		t.Fatalf("expected admin user, got %+v", state.user)
	}
}

func TestRunFetchUserFailureLogsOut(t *testing.T) {
	state := &fakeState{token: "tok"}
	api := &fakeAPI{userErr: errBackend}
	store := &fakeStore{saved: "tok"}
	counts := map[int]int{}

	RunFetchUser(context.Background(), FetchUserDeps{
		State: state,
		API:   api,
		Logout: func(ctx context.Context) error {
			return RunLogout(ctx, LogoutDeps{State: state, API: api, Storage: store})
		},
		MetricInc: func(id int) { counts[id]++ },
		Metrics:   FetchUserMetrics{FetchSuccess: 1, FetchFailure: 2, SessionInvalidated: 3},
	})
	if state.token != "" || state.user != nil || store.saved != "" {
		t.Fatalf("expected full logout state, got %+v store=%q", state, store.saved)
	}
	if counts[2] != 1 || counts[3] != 1 {
		t.Fatalf("unexpected metrics %v", counts)
	}
	if len(api.logoutTokens) != 1 || api.logoutTokens[0] != "tok" {
		t.Fatalf("expected best-effort backend logout with token, got %v", api.logoutTokens)
	}
}

func TestRunLogoutIgnoresBackendFailure(t *testing.T) {
	state := &fakeState{token: "tok", user: &session.Identity{ID: "u1"}}
	api := &fakeAPI{logoutErr: errBackend}
	store := &fakeStore{saved: "tok"}
	counts := map[int]int{}

	err := RunLogout(context.Background(), LogoutDeps{
		State:     state,
		API:       api,
		Storage:   store,
		MetricInc: func(id int) { counts[id]++ },
		Metrics:   LogoutMetrics{Logout: 1, LogoutRemoteFailure: 2},
		Errors:    LogoutErrors{TokenStorage: errStorage},
	})
	if err != nil {
		t.Fatalf("expected backend failure to be ignored, got %v", err)
	}
	if state.token != "" || state.user != nil || store.saved != "" {
		t.Fatalf("expected cleared state, got %+v store=%q", state, store.saved)
	}
	if counts[1] != 1 || counts[2] != 1 {
		t.Fatalf("unexpected metrics %v", counts)
	}
}

func TestRunLogoutStorageFailureStillClearsMemory(t *testing.T) {
	state := &fakeState{token: "tok", user: &session.Identity{ID: "u1"}}
	store := &fakeStore{saved: "tok", removeErr: errRedisWrite}

	err := RunLogout(context.Background(), LogoutDeps{
		State:   state,
		API:     &fakeAPI{},
		Storage: store,
		Errors:  LogoutErrors{TokenStorage: errStorage},
	})
	if !errors.Is(err, errStorage) || !errors.Is(err, errRedisWrite) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if state.token != "" || state.user != nil {
		t.Fatalf("memory must be cleared regardless, got %+v", state)
	}
}
