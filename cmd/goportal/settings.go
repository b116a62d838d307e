package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/internal/confloader"
	"github.com/MrEthical07/goPortal/internal/rate"
	"github.com/redis/go-redis/v9"
)

// settings is the file/env view of the portal configuration. Keys hold no
// underscores so GOPORTAL_SECTION_KEY maps onto section.key.
type settings struct {
	API struct {
		URL     string        `koanf:"url"`
		Timeout time.Duration `koanf:"timeout"`
		Login   string        `koanf:"login"`
		User    string        `koanf:"user"`
		Logout  string        `koanf:"logout"`
	} `koanf:"api"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
		Prefix   string `koanf:"prefix"`
		Key      string `koanf:"key"`
	} `koanf:"redis"`

	Session struct {
		Fallback string `koanf:"fallback"`
	} `koanf:"session"`

	Navigation struct {
		Login     string `koanf:"login"`
		Home      string `koanf:"home"`
		Redirects int    `koanf:"redirects"`
	} `koanf:"navigation"`

	Audit struct {
		Enabled bool `koanf:"enabled"`
		Buffer  int  `koanf:"buffer"`
		Drop    bool `koanf:"drop"`
	} `koanf:"audit"`

	Metrics struct {
		Enabled    bool `koanf:"enabled"`
		Histograms bool `koanf:"histograms"`
	} `koanf:"metrics"`

	Throttle struct {
		Enabled  bool          `koanf:"enabled"`
		Attempts int           `koanf:"attempts"`
		Cooldown time.Duration `koanf:"cooldown"`
		PerIP    bool          `koanf:"perip"`
	} `koanf:"throttle"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`

	Server struct {
		Addr string `koanf:"addr"`
	} `koanf:"server"`
}

func defaultSettings() settings {
	def := goPortal.DefaultConfig()

	var s settings
	s.API.URL = def.API.BaseURL
	s.API.Timeout = def.API.Timeout
	s.API.Login = def.API.LoginPath
	s.API.User = def.API.UserPath
	s.API.Logout = def.API.LogoutPath
	s.Redis.Prefix = def.Storage.RedisPrefix
	s.Redis.Key = def.Storage.TokenKey
	s.Session.Fallback = def.Session.FallbackError
	s.Navigation.Login = def.Navigation.LoginPath
	s.Navigation.Home = def.Navigation.DefaultAuthenticatedPath
	s.Navigation.Redirects = def.Navigation.MaxRedirects
	s.Audit.Enabled = def.Audit.Enabled
	s.Audit.Buffer = def.Audit.BufferSize
	s.Audit.Drop = def.Audit.DropIfFull
	s.Metrics.Enabled = def.Metrics.Enabled
	s.Metrics.Histograms = def.Metrics.EnableLatencyHistograms
	throttle := rate.DefaultConfig()
	s.Throttle.Enabled = true
	s.Throttle.Attempts = throttle.MaxAttempts
	s.Throttle.Cooldown = throttle.Cooldown
	s.Throttle.PerIP = throttle.PerIP
	s.Log.Level = "info"
	s.Log.Format = "text"
	s.Server.Addr = "127.0.0.1:8080"
	return s
}

// loadSettings layers the YAML file at path, GOPORTAL_* variables and
// overrides over the defaults.
func loadSettings(path string, overrides map[string]any) (settings, error) {
	s := defaultSettings()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(&s); err != nil {
		return settings{}, err
	}
	return s, nil
}

// portalConfig maps the settings onto the engine configuration.
func (s settings) portalConfig(logger *slog.Logger) goPortal.Config {
	cfg := goPortal.DefaultConfig()
	cfg.API = goPortal.APIConfig{
		BaseURL:    s.API.URL,
		Timeout:    s.API.Timeout,
		LoginPath:  s.API.Login,
		UserPath:   s.API.User,
		LogoutPath: s.API.Logout,
	}
	cfg.Storage = goPortal.StorageConfig{
		RedisPrefix: s.Redis.Prefix,
		TokenKey:    s.Redis.Key,
	}
	cfg.Session.FallbackError = s.Session.Fallback
	cfg.Navigation = goPortal.NavigationConfig{
		LoginPath:                s.Navigation.Login,
		DefaultAuthenticatedPath: s.Navigation.Home,
		MaxRedirects:             s.Navigation.Redirects,
	}
	cfg.Audit = goPortal.AuditConfig{
		Enabled:    s.Audit.Enabled,
		BufferSize: s.Audit.Buffer,
		DropIfFull: s.Audit.Drop,
	}
	cfg.Metrics = goPortal.MetricsConfig{
		Enabled:                 s.Metrics.Enabled,
		EnableLatencyHistograms: s.Metrics.Histograms,
	}
	cfg.Logger = logger
	return cfg
}

// throttleConfig keeps limiter counters next to the token under the same
// Redis prefix.
func (s settings) throttleConfig() rate.Config {
	return rate.Config{
		Prefix:      s.Redis.Prefix,
		MaxAttempts: s.Throttle.Attempts,
		Cooldown:    s.Throttle.Cooldown,
		PerIP:       s.Throttle.PerIP,
	}
}

func (s settings) redisClient() redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{s.Redis.Addr},
		Password: s.Redis.Password,
		DB:       s.Redis.DB,
	})
}

// newLogger builds a slog handler for level ("debug", "info", "warn",
// "error") and format ("text" or "json").
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", format)
	}
}
