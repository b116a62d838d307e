package goPortal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/goPortal/router"
	"github.com/MrEthical07/goPortal/session"
)

// Config holds every tunable of the portal engine. Zero-valued sections are
// not filled in automatically; start from DefaultConfig.
type Config struct {
	API        APIConfig
	Storage    StorageConfig
	Session    SessionConfig
	Navigation NavigationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig

	// Logger receives engine diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the backend. Paths are joined to BaseURL.
type APIConfig struct {
	BaseURL    string
	Timeout    time.Duration
	LoginPath  string
	UserPath   string
	LogoutPath string
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig names the persisted token key. With Redis the key is
// RedisPrefix + ":" + TokenKey.
type StorageConfig struct {
	RedisPrefix string
	TokenKey    string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session-store behavior.
type SessionConfig struct {
	// FallbackError is the session error after a login failure that carries
	// no server message.
	FallbackError string
}

/*
====================================
NAVIGATION CONFIG
====================================
*/

// NavigationConfig mirrors router.Config.
type NavigationConfig struct {
	LoginPath                string
	DefaultAuthenticatedPath string
	MaxRedirects             int
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the portal defaults. BaseURL is left empty: either
// set it or hand the Builder an API client.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout:    10 * time.Second,
			LoginPath:  "/login",
			UserPath:   "/user",
			LogoutPath: "/logout",
		},
		Storage: StorageConfig{
			RedisPrefix: "gp",
			TokenKey:    session.DefaultTokenKey,
		},
		Session: SessionConfig{
			FallbackError: "Invalid Credentials",
		},
		Navigation: NavigationConfig{
			LoginPath:                router.PathLogin,
			DefaultAuthenticatedPath: router.PathServiceRequests,
			MaxRedirects:             10,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// Logger is shared; every other field is a value.
	return cfg
}

// Validate checks the configuration for values the engine cannot run with.
// Every failure wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	if c.API.Timeout < 0 {
		return fmt.Errorf("%w: API.Timeout must be >= 0", ErrInvalidConfig)
	}
	if c.API.BaseURL != "" && !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("%w: API.BaseURL must be an http(s) URL", ErrInvalidConfig)
	}
	for _, p := range []struct{ name, value string }{
		{"API.LoginPath", c.API.LoginPath},
		{"API.UserPath", c.API.UserPath},
		{"API.LogoutPath", c.API.LogoutPath},
	} {
		if p.value == "" {
			return fmt.Errorf("%w: %s must be set", ErrInvalidConfig, p.name)
		}
	}

	if strings.TrimSpace(c.Storage.TokenKey) == "" {
		return fmt.Errorf("%w: Storage.TokenKey must be set", ErrInvalidConfig)
	}
	if strings.Contains(c.Storage.RedisPrefix, " ") {
		return fmt.Errorf("%w: Storage.RedisPrefix must not contain spaces", ErrInvalidConfig)
	}

	if c.Session.FallbackError == "" {
		return fmt.Errorf("%w: Session.FallbackError must be set", ErrInvalidConfig)
	}

	if !strings.HasPrefix(c.Navigation.LoginPath, "/") {
		return fmt.Errorf("%w: Navigation.LoginPath must be absolute", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.Navigation.DefaultAuthenticatedPath, "/") {
		return fmt.Errorf("%w: Navigation.DefaultAuthenticatedPath must be absolute", ErrInvalidConfig)
	}
	if c.Navigation.LoginPath == c.Navigation.DefaultAuthenticatedPath {
		return fmt.Errorf("%w: Navigation.LoginPath and DefaultAuthenticatedPath must differ", ErrInvalidConfig)
	}
	if c.Navigation.MaxRedirects <= 0 {
		return fmt.Errorf("%w: Navigation.MaxRedirects must be > 0", ErrInvalidConfig)
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: Audit.BufferSize must be > 0 when audit is enabled", ErrInvalidConfig)
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return fmt.Errorf("%w: Metrics.EnableLatencyHistograms requires Metrics.Enabled", ErrInvalidConfig)
	}

	return nil
}

func (c Config) routerConfig() router.Config {
	return router.Config{
		LoginPath:                c.Navigation.LoginPath,
		DefaultAuthenticatedPath: c.Navigation.DefaultAuthenticatedPath,
		MaxRedirects:             c.Navigation.MaxRedirects,
	}
}
