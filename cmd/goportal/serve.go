package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/apitest"
	"github.com/MrEthical07/goPortal/internal/rate"
	"github.com/MrEthical07/goPortal/metrics/export/prometheus"
	"github.com/MrEthical07/goPortal/middleware"
	"github.com/MrEthical07/goPortal/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 5 * time.Second

// demoUsers seed the mock backend.
var demoUsers = []apitest.User{
	{ID: "1", Email: "admin@example.com", Name: "Admin", Role: "admin", Password: "admin-password"},
	{ID: "2", Email: "staff@example.com", Name: "Staff", Role: "staff", Password: "staff-password"},
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve guarded portal pages, one session per browser",
		Description: "Each browser signs in separately; its session cookie selects a token persisted\n" +
			"under <redis.prefix>:<redis.key>:<session id>. The operator session used by\n" +
			"login, logout and whoami is not shared with browsers.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address (overrides server.addr)"},
			&cli.BoolFlag{
				Name:  "mock-backend",
				Usage: "serve against an in-process fake backend; without a Redis address the token lives in miniredis",
			},
		},
		Action: func(c *cli.Context) error {
			s := currentSettings(c)
			logger := currentLogger(c)
			if c.IsSet("addr") {
				s.Server.Addr = c.String("addr")
			}

			if c.Bool("mock-backend") {
				backend := apitest.NewServer(demoUsers...)
				defer backend.Close()
				s.API.URL = backend.URL
				for _, u := range demoUsers {
					logger.Info("mock backend user", "email", u.Email, "role", u.Role)
				}

				if s.Redis.Addr == "" {
					mr, err := miniredis.Run()
					if err != nil {
						return fmt.Errorf("start miniredis: %w", err)
					}
					defer mr.Close()
					s.Redis.Addr = mr.Addr()
				}
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if s.Redis.Addr == "" {
				return errRedisAddrRequired
			}
			client := s.redisClient()
			defer client.Close()

			sessions, err := openClientSessions(ctx, s, client, logger)
			if err != nil {
				return err
			}
			defer sessions.Close()

			var limiter *rate.Limiter
			if s.Throttle.Enabled {
				limiter = rate.New(client, s.throttleConfig())
			}

			srv := &http.Server{
				Addr:              s.Server.Addr,
				Handler:           newPortalHandler(sessions, s.portalConfig(logger), logger, limiter),
				ReadHeaderTimeout: 5 * time.Second,
			}
			return runServer(ctx, srv, logger)
		},
	}
}

// openClientSessions builds the per-client engine pool. Every engine shares
// one set of counters and the slog audit sink.
func openClientSessions(ctx context.Context, s settings, client redis.UniversalClient, logger *slog.Logger) (*clientSessions, error) {
	cfg := s.portalConfig(logger)
	metrics := goPortal.NewMetrics(cfg.Metrics)
	sink := goPortal.NewSlogSink(logger)

	open := func(ctx context.Context, storage session.TokenStorage) (*goPortal.Engine, error) {
		return goPortal.New().
			WithConfig(cfg).
			WithTokenStorage(storage).
			WithMetrics(metrics).
			WithAuditSink(sink).
			Build(ctx)
	}
	storage := func(id string) session.TokenStorage {
		return session.NewRedisTokenStorage(client, s.Redis.Prefix, clientTokenKey(s.Redis.Key, id))
	}
	return newClientSessions(ctx, open, storage, metrics, logger)
}

func runServer(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("portal listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("portal shutting down")
	return srv.Shutdown(shutdownCtx)
}

type sessionView struct {
	HasToken bool   `json:"hasToken"`
	Loading  bool   `json:"loading"`
	Error    string `json:"error,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
	IsStaff  bool   `json:"isStaff"`
}

// newPortalHandler serves the session form endpoints, a JSON session view,
// Prometheus metrics and every other path as a guarded page. Each request
// runs against the engine of its own client. A nil limiter disables login
// throttling; a throttle that cannot reach Redis fails open.
func newPortalHandler(sessions *clientSessions, cfg goPortal.Config, logger *slog.Logger, limiter *rate.Limiter) http.Handler {
	pages := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loc, _ := middleware.LocationFromContext(r.Context())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		name := loc.Name
		if name == "" {
			name = "NotFound"
		}
		fmt.Fprintf(w, "page=%s path=%s components=%v\n", name, loc.Path, loc.Matched)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		email, ip := r.FormValue("email"), clientIP(r)
		if limiter != nil {
			if err := limiter.Check(r.Context(), email, ip); errors.Is(err, rate.ErrRateLimited) {
				http.Error(w, "Too many login attempts", http.StatusTooManyRequests)
				return
			} else if err != nil {
				logger.Warn("portal login throttle unavailable", "error", err)
			}
		}

		engine, err := sessions.Login(w, r, email, r.FormValue("password"))
		if err != nil {
			logger.Debug("portal form login failed", "error", err)
			if limiter != nil {
				if ferr := limiter.Fail(r.Context(), email, ip); ferr != nil && !errors.Is(ferr, rate.ErrRateLimited) {
					logger.Warn("portal login throttle unavailable", "error", ferr)
				}
			}
			if engine == nil {
				http.Error(w, "portal unavailable", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, engine.State().Error, http.StatusUnauthorized)
			return
		}

		if limiter != nil {
			if err := limiter.Reset(r.Context(), email, ip); err != nil {
				logger.Warn("portal login throttle unavailable", "error", err)
			}
		}
		http.Redirect(w, r, cfg.Navigation.DefaultAuthenticatedPath, http.StatusSeeOther)
	})
	mux.HandleFunc("POST /session/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.Logout(w, r); err != nil {
			logger.Warn("portal logout failed", "error", err)
			http.Error(w, "logout failed", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, cfg.Navigation.LoginPath, http.StatusSeeOther)
	})
	mux.Handle("GET /api/session", middleware.RequireSessionFunc(sessions.Pick)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		engine, _ := middleware.EngineFromContext(r.Context())
		st := engine.State()
		view := sessionView{
			HasToken: st.HasToken(),
			Loading:  st.Loading,
			Error:    st.Error,
			IsAdmin:  engine.IsAdmin(),
			IsStaff:  engine.IsStaff(),
		}
		if st.User != nil {
			view.Name, view.Email, view.Role = st.User.Name, st.User.Email, string(st.User.Role)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	})))
	mux.Handle("GET /metrics", prometheus.NewPrometheusExporterFromSource(sessions).Handler())
	mux.Handle("/", middleware.GuardFunc(sessions.Pick)(pages))
	return mux
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
