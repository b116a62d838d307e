package goPortal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/goPortal/apiclient"
	"github.com/MrEthical07/goPortal/internal/audit"
	"github.com/MrEthical07/goPortal/internal/flows"
	"github.com/MrEthical07/goPortal/router"
	"github.com/MrEthical07/goPortal/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config  Config
	redis   redis.UniversalClient
	storage session.TokenStorage
	api     APIClient
	routes  []router.Route

	auditSink AuditSink
	metrics   *Metrics

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis persists the token in Redis under
// Config.Storage.RedisPrefix + ":" + Config.Storage.TokenKey.
// WithTokenStorage takes precedence when both are set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTokenStorage sets a custom token storage.
func (b *Builder) WithTokenStorage(storage session.TokenStorage) *Builder {
	b.storage = storage
	return b
}

// WithAPIClient sets the backend client. Without it Build creates an
// *apiclient.Client from Config.API.
func (b *Builder) WithAPIClient(api APIClient) *Builder {
	b.api = api
	return b
}

// WithRoutes replaces the default route table.
func (b *Builder) WithRoutes(routes []router.Route) *Builder {
	b.routes = routes
	return b
}

// WithAuditSink sets the audit destination. Events are only dispatched when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets Config.Logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.config.Logger = logger
	return b
}

// WithMetricsEnabled toggles Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles Config.Metrics.EnableLatencyHistograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithMetrics records into m instead of counters of the engine's own, so
// several engines can report as one. Config.Metrics then has no effect.
func (b *Builder) WithMetrics(m *Metrics) *Builder {
	b.metrics = m
	return b
}

// Build validates the configuration, wires the engine and restores any
// persisted token. A token that cannot be read is logged and treated as
// absent. The user is not fetched here; the first guarded navigation or an
// explicit FetchUser does that.
func (b *Builder) Build(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- TOKEN STORAGE --------
	storage := b.storage
	if storage == nil {
		if b.redis == nil {
			return nil, ErrTokenStorageRequired
		}
		storage = session.NewRedisTokenStorage(b.redis, cfg.Storage.RedisPrefix, cfg.Storage.TokenKey)
	}

	// -------- API CLIENT --------
	api := b.api
	if api == nil {
		if cfg.API.BaseURL == "" {
			return nil, ErrAPIClientRequired
		}
		client, err := apiclient.New(apiclient.Config{
			BaseURL:    cfg.API.BaseURL,
			Timeout:    cfg.API.Timeout,
			LoginPath:  cfg.API.LoginPath,
			UserPath:   cfg.API.UserPath,
			LogoutPath: cfg.API.LogoutPath,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		api = client
	}

	// -------- ROUTES --------
	routes := b.routes
	if routes == nil {
		routes = router.DefaultRoutes()
	}
	table, err := router.NewTable(routes)
	if err != nil {
		return nil, err
	}

	metrics := b.metrics
	if metrics == nil {
		metrics = NewMetrics(cfg.Metrics)
	}

	engine := &Engine{
		config:  cfg,
		logger:  logger,
		api:     api,
		storage: storage,
		state:   &sessionState{},
		metrics: metrics,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}
	engine.router = router.New(table, router.NewGuard(engine, cfg.routerConfig(), navigationObserver{engine: engine}))
	engine.flows = engine.buildFlowDeps()

	token, err := storage.Load(ctx)
	switch {
	case err != nil:
		logger.Warn("portal token restore failed", "error", err)
	case token != "":
		engine.state.SetToken(token)
		logger.Debug("portal token restored")
	}

	b.built = true
	return engine, nil
}

func (e *Engine) buildFlowDeps() flows.Deps {
	metricInc := func(id int) { e.metricInc(MetricID(id)) }
	emitAudit := func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string) {
		e.emitAudit(ctx, event, success, userID, err, meta)
	}

	logout := flows.LogoutDeps{
		State:     e.state,
		API:       e.api,
		Storage:   e.storage,
		MetricInc: metricInc,
		EmitAudit: emitAudit,
		Metrics: flows.LogoutMetrics{
			Logout:              int(MetricLogout),
			LogoutRemoteFailure: int(MetricLogoutRemoteFailure),
		},
		Events: flows.LogoutEvents{Logout: auditEventLogout},
		Errors: flows.LogoutErrors{TokenStorage: ErrTokenStorage},
	}

	return flows.Deps{
		Login: flows.LoginDeps{
			FallbackError: e.config.Session.FallbackError,
			State:         e.state,
			API:           e.api,
			Storage:       e.storage,
			MessageFrom:   apiclient.MessageFrom,
			MetricInc:     metricInc,
			EmitAudit:     emitAudit,
			Warn:          e.logger.Warn,
			Metrics: flows.LoginMetrics{
				LoginSuccess:        int(MetricLoginSuccess),
				LoginFailure:        int(MetricLoginFailure),
				TokenPersistFailure: int(MetricTokenPersistFailure),
			},
			Events: flows.LoginEvents{
				LoginSuccess: auditEventLoginSuccess,
				LoginFailure: auditEventLoginFailure,
			},
			Errors: flows.LoginErrors{
				EngineNotReady: ErrEngineNotReady,
				LoginFailed:    ErrLoginFailed,
				TokenStorage:   ErrTokenStorage,
			},
		},
		FetchUser: flows.FetchUserDeps{
			State: e.state,
			API:   e.api,
			Logout: func(ctx context.Context) error {
				return flows.RunLogout(ctx, logout)
			},
			MetricInc: metricInc,
			EmitAudit: emitAudit,
			Warn:      e.logger.Warn,
			Metrics: flows.FetchUserMetrics{
				FetchSuccess:       int(MetricUserFetchSuccess),
				FetchFailure:       int(MetricUserFetchFailure),
				SessionInvalidated: int(MetricSessionInvalidated),
			},
			Events: flows.FetchUserEvents{SessionInvalidated: auditEventSessionInvalidated},
		},
		Logout: logout,
	}
}
