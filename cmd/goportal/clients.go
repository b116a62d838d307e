package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/session"
	"github.com/google/uuid"
)

const sessionCookie = "goportal_session"

// engineFactory builds one client engine over storage.
type engineFactory func(ctx context.Context, storage session.TokenStorage) (*goPortal.Engine, error)

// clientSessions gives every browser its own engine, keyed by the session
// cookie. Requests without a live session share an anonymous engine that is
// never signed in. Engines are kept only while they hold a token.
type clientSessions struct {
	open    engineFactory
	storage func(id string) session.TokenStorage
	metrics *goPortal.Metrics
	logger  *slog.Logger
	anon    *goPortal.Engine

	mu      sync.Mutex
	engines map[string]*goPortal.Engine
	dropped uint64
}

func newClientSessions(ctx context.Context, open engineFactory, storage func(id string) session.TokenStorage, metrics *goPortal.Metrics, logger *slog.Logger) (*clientSessions, error) {
	anon, err := open(ctx, session.NewMemoryTokenStorage(""))
	if err != nil {
		return nil, err
	}
	return &clientSessions{
		open:    open,
		storage: storage,
		metrics: metrics,
		logger:  logger,
		anon:    anon,
		engines: make(map[string]*goPortal.Engine),
	}, nil
}

// clientTokenKey is the token key of one client under the configured key.
func clientTokenKey(key, id string) string {
	if key == "" {
		key = session.DefaultTokenKey
	}
	return key + ":" + id
}

func sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// Pick returns the engine of the requesting client, or the anonymous engine.
func (cs *clientSessions) Pick(r *http.Request) *goPortal.Engine {
	if engine := cs.lookup(r); engine != nil {
		return engine
	}
	return cs.anon
}

// lookup returns the client's signed-in engine. An unknown id is restored
// from storage so sessions outlive a restart; engines that lost their token
// are dropped.
func (cs *clientSessions) lookup(r *http.Request) *goPortal.Engine {
	id, ok := sessionID(r)
	if !ok {
		return nil
	}

	cs.mu.Lock()
	if engine, ok := cs.engines[id]; ok {
		if !engine.HasToken() && !engine.State().Loading {
			delete(cs.engines, id)
			cs.retireLocked(engine)
			engine = nil
		}
		cs.mu.Unlock()
		return engine
	}
	cs.mu.Unlock()

	restored, err := cs.open(r.Context(), cs.storage(id))
	if err != nil {
		cs.logger.Warn("portal session restore failed", "error", err)
		return nil
	}
	if !restored.HasToken() {
		restored.Close()
		return nil
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if existing, ok := cs.engines[id]; ok {
		restored.Close()
		return existing
	}
	cs.engines[id] = restored
	return restored
}

// Login signs the client in on its own engine, issuing a session cookie for
// a new client. The returned engine carries the failure message on error.
func (cs *clientSessions) Login(w http.ResponseWriter, r *http.Request, email, password string) (*goPortal.Engine, error) {
	if engine := cs.lookup(r); engine != nil {
		return engine, engine.Login(r.Context(), email, password)
	}

	id := uuid.NewString()
	engine, err := cs.open(r.Context(), cs.storage(id))
	if err != nil {
		return nil, err
	}
	if err := engine.Login(r.Context(), email, password); err != nil {
		engine.Close()
		return engine, err
	}

	cs.mu.Lock()
	cs.engines[id] = engine
	cs.mu.Unlock()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return engine, nil
}

// Logout ends the client's session and expires its cookie. Clients without a
// session get the cookie cleared and nothing else.
func (cs *clientSessions) Logout(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	engine := cs.lookup(r)
	if engine == nil {
		return nil
	}
	err := engine.Logout(r.Context())

	id, _ := sessionID(r)
	cs.mu.Lock()
	if cs.engines[id] == engine {
		delete(cs.engines, id)
	}
	cs.retireLocked(engine)
	cs.mu.Unlock()
	return err
}

func (cs *clientSessions) retireLocked(engine *goPortal.Engine) {
	engine.Close()
	cs.dropped += engine.AuditDropped()
}

// Active returns the number of signed-in clients.
func (cs *clientSessions) Active() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.engines)
}

// MetricsSnapshot reports the counters every client engine shares.
func (cs *clientSessions) MetricsSnapshot() goPortal.MetricsSnapshot {
	return cs.metrics.Snapshot()
}

// AuditDropped sums dropped audit events over live and retired engines.
func (cs *clientSessions) AuditDropped() uint64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	total := cs.dropped + cs.anon.AuditDropped()
	for _, engine := range cs.engines {
		total += engine.AuditDropped()
	}
	return total
}

// Close stops every engine. Persisted tokens stay in storage.
func (cs *clientSessions) Close() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for id, engine := range cs.engines {
		delete(cs.engines, id)
		cs.retireLocked(engine)
	}
	cs.anon.Close()
}
