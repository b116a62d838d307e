package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goPortal/apitest"
	"github.com/MrEthical07/goPortal/internal/rate"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type handlerEnv struct {
	settings settings
	logger   *slog.Logger
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	sessions *clientSessions
	h        http.Handler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	backend := apitest.NewServer(demoUsers...)
	t.Cleanup(backend.Close)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := defaultSettings()
	s.API.URL = backend.URL
	s.Redis.Addr = mr.Addr()
	env := &handlerEnv{settings: s, logger: slog.New(slog.DiscardHandler), mr: mr, rdb: rdb}
	env.sessions, env.h = env.open(t, nil)
	return env
}

// open builds a fresh session pool and handler over the same Redis, as a
// restarted server would.
func (env *handlerEnv) open(t *testing.T, limiter *rate.Limiter) (*clientSessions, http.Handler) {
	t.Helper()
	sessions, err := openClientSessions(context.Background(), env.settings, env.rdb, env.logger)
	if err != nil {
		t.Fatalf("openClientSessions failed: %v", err)
	}
	t.Cleanup(sessions.Close)
	return sessions, newPortalHandler(sessions, env.settings.portalConfig(env.logger), env.logger, limiter)
}

// browser replays the cookies h sets, like a client with a cookie jar.
type browser struct {
	h       http.Handler
	addr    string
	cookies map[string]*http.Cookie
}

func newBrowser(h http.Handler, ip string) *browser {
	return &browser{h: h, addr: ip + ":40000", cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	req.RemoteAddr = b.addr
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) login(user apitest.User) *httptest.ResponseRecorder {
	return b.post("/session", url.Values{"email": {user.Email}, "password": {user.Password}})
}

func (b *browser) view(t *testing.T) sessionView {
	t.Helper()
	rec := b.get("/api/session")
	if rec.Code != http.StatusOK {
		t.Fatalf("session view: expected 200, got %d", rec.Code)
	}
	var v sessionView
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode session view: %v", err)
	}
	return v
}

func (b *browser) sessionID() string {
	if c, ok := b.cookies[sessionCookie]; ok {
		return c.Value
	}
	return ""
}

func TestPortalHandlerSessionFlow(t *testing.T) {
	env := newHandlerEnv(t)
	b := newBrowser(env.h, "192.0.2.1")

	rec := b.get("/service-requests")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("anonymous page visit: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := b.get("/api/session"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}

	admin := demoUsers[0]
	rec = b.login(admin)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/service-requests" {
		t.Fatalf("login: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	id := b.sessionID()
	if id == "" {
		t.Fatal("login must issue a session cookie")
	}
	key := "gp:token:" + id
	token, err := env.mr.Get(key)
	if err != nil || token == "" {
		t.Fatalf("expected token persisted under %s: %v", key, err)
	}
	if env.mr.Exists("gp:token") {
		t.Fatal("browser sessions must not touch the operator token key")
	}

	rec = b.get("/api/session")
	if strings.Contains(rec.Body.String(), token) {
		t.Fatal("session view must not expose the token")
	}
	view := b.view(t)
	if !view.HasToken || !view.IsAdmin || view.IsStaff || view.Email != admin.Email {
		t.Fatalf("unexpected session view %+v", view)
	}

	rec = b.get("/student-management")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "page=StudentManagement") {
		t.Fatalf("signed-in page visit: %d %q", rec.Code, rec.Body.String())
	}
	rec = b.get("/")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/service-requests" {
		t.Fatalf("signed-in login visit: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = b.get("/metrics")
	if !strings.Contains(rec.Body.String(), "goportal_login_success_total 1") {
		t.Fatalf("metrics missing login counter:\n%s", rec.Body.String())
	}

	rec = b.post("/session/logout", nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("logout: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if b.sessionID() != "" {
		t.Fatal("logout must expire the session cookie")
	}
	if env.mr.Exists(key) {
		t.Fatal("logout must remove the persisted token")
	}
	if env.sessions.Active() != 0 {
		t.Fatalf("expected no active sessions, got %d", env.sessions.Active())
	}
}

func TestPortalHandlerKeepsClientsApart(t *testing.T) {
	env := newHandlerEnv(t)
	a := newBrowser(env.h, "192.0.2.1")
	b := newBrowser(env.h, "192.0.2.2")
	admin, staff := demoUsers[0], demoUsers[1]

	if rec := a.login(admin); rec.Code != http.StatusSeeOther {
		t.Fatalf("client A login: %d", rec.Code)
	}

	if rec := b.get("/api/session"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("client B must not see client A's session, got %d %q", rec.Code, rec.Body.String())
	}
	rec := b.get("/student-management")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("client B must be sent to login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	if rec := b.login(staff); rec.Code != http.StatusSeeOther {
		t.Fatalf("client B login: %d", rec.Code)
	}
	if a.sessionID() == b.sessionID() {
		t.Fatal("clients must get distinct session ids")
	}
	if v := a.view(t); !v.IsAdmin || v.Email != admin.Email {
		t.Fatalf("client A view changed: %+v", v)
	}
	if v := b.view(t); !v.IsStaff || v.Email != staff.Email {
		t.Fatalf("client B view: %+v", v)
	}
	if env.sessions.Active() != 2 {
		t.Fatalf("expected two active sessions, got %d", env.sessions.Active())
	}

	if rec := a.post("/session/logout", nil); rec.Code != http.StatusSeeOther {
		t.Fatalf("client A logout: %d", rec.Code)
	}
	if rec := a.get("/api/session"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("client A must be signed out, got %d", rec.Code)
	}
	if v := b.view(t); !v.IsStaff {
		t.Fatalf("client A logout must not end client B's session: %+v", v)
	}

	rec = b.get("/metrics")
	if !strings.Contains(rec.Body.String(), "goportal_login_success_total 2") {
		t.Fatalf("metrics must aggregate clients:\n%s", rec.Body.String())
	}
}

func TestPortalHandlerRestoresSessionAfterRestart(t *testing.T) {
	env := newHandlerEnv(t)
	first := newBrowser(env.h, "192.0.2.1")
	if rec := first.login(demoUsers[1]); rec.Code != http.StatusSeeOther {
		t.Fatalf("login: %d", rec.Code)
	}

	restarted, h := env.open(t, nil)
	b := newBrowser(h, "192.0.2.1")
	b.cookies = first.cookies

	if v := b.view(t); !v.HasToken {
		t.Fatalf("expected restored session, got %+v", v)
	}
	rec := b.get("/service-requests")
	if rec.Code != http.StatusOK {
		t.Fatalf("restored session page visit: %d", rec.Code)
	}
	if v := b.view(t); !v.IsStaff {
		t.Fatalf("expected user fetched on navigation, got %+v", v)
	}
	if restarted.Active() != 1 {
		t.Fatalf("expected one restored session, got %d", restarted.Active())
	}
}

func TestPortalHandlerIgnoresUnknownSessionCookies(t *testing.T) {
	env := newHandlerEnv(t)

	for _, value := range []string{uuid.NewString(), "../token", ""} {
		b := newBrowser(env.h, "192.0.2.3")
		b.cookies[sessionCookie] = &http.Cookie{Name: sessionCookie, Value: value}
		if rec := b.get("/api/session"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("cookie %q: expected 401, got %d", value, rec.Code)
		}
		if rec := b.get("/service-requests"); rec.Code != http.StatusFound {
			t.Fatalf("cookie %q: expected redirect, got %d", value, rec.Code)
		}
	}
	if env.sessions.Active() != 0 {
		t.Fatalf("unknown cookies must not create sessions, got %d", env.sessions.Active())
	}
}

func TestPortalHandlerDropsRevokedSessions(t *testing.T) {
	env := newHandlerEnv(t)
	b := newBrowser(env.h, "192.0.2.1")
	if rec := b.login(demoUsers[1]); rec.Code != http.StatusSeeOther {
		t.Fatalf("login: %d", rec.Code)
	}
	key := "gp:token:" + b.sessionID()

	// A restarted server restores a token the backend rejects.
	restarted, h := env.open(t, nil)
	if err := env.mr.Set(key, "not-a-token"); err != nil {
		t.Fatalf("miniredis set: %v", err)
	}
	b.h = h

	rec := b.get("/service-requests")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("rejected token must redirect to login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if env.mr.Exists(key) {
		t.Fatal("failed fetch must remove the persisted token")
	}
	if rec := b.get("/api/session"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after forced logout, got %d", rec.Code)
	}
	if restarted.Active() != 0 {
		t.Fatalf("expected the logged-out session dropped, got %d", restarted.Active())
	}
}

func TestPortalHandlerRejectedLogin(t *testing.T) {
	env := newHandlerEnv(t)
	b := newBrowser(env.h, "192.0.2.1")

	rec := b.post("/session", url.Values{"email": {"nobody@example.com"}, "password": {"x"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Wrong email or password") {
		t.Fatalf("expected server message, got %q", rec.Body.String())
	}
	if b.sessionID() != "" || env.sessions.Active() != 0 {
		t.Fatal("rejected login must not open a session")
	}
}

func TestPortalHandlerThrottlesFailedLogins(t *testing.T) {
	env := newHandlerEnv(t)
	limiter := rate.New(env.rdb, rate.Config{Prefix: "gp", MaxAttempts: 2, Cooldown: time.Minute, PerIP: true})
	sessions, h := env.open(t, limiter)
	b := newBrowser(h, "192.0.2.1")
	staff := demoUsers[1]

	for i := 0; i < 2; i++ {
		rec := b.post("/session", url.Values{"email": {staff.Email}, "password": {"wrong"}})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}

	rec := b.login(staff)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after exhausting the budget, got %d", rec.Code)
	}
	if sessions.Active() != 0 {
		t.Fatal("throttled login must not reach the backend")
	}

	env.mr.FastForward(time.Minute + time.Second)
	rec = b.login(staff)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected login after the window, got %d", rec.Code)
	}
	if env.mr.Exists("gp:rl:" + staff.Email) {
		t.Fatal("successful login must reset the account counter")
	}
}
