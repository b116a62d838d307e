package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goPortal "github.com/MrEthical07/goPortal"
)

func TestDefaultSettingsMatchEngineDefaults(t *testing.T) {
	cfg := defaultSettings().portalConfig(nil)
	def := goPortal.DefaultConfig()

	if cfg.API != def.API || cfg.Storage != def.Storage || cfg.Navigation != def.Navigation {
		t.Fatalf("defaults diverge:\n got %+v\nwant %+v", cfg, def)
	}
	if cfg.Session != def.Session || cfg.Audit != def.Audit || cfg.Metrics != def.Metrics {
		t.Fatalf("defaults diverge:\n got %+v\nwant %+v", cfg, def)
	}
}

func TestDefaultServerAddrIsLoopback(t *testing.T) {
	if got := defaultSettings().Server.Addr; got != "127.0.0.1:8080" {
		t.Fatalf("expected loopback default, got %q", got)
	}
}

func TestLoadSettingsFileEnvAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goportal.yaml")
	content := `
api:
  url: "http://file-backend"
  timeout: "2s"
redis:
  addr: "file-redis:6379"
  prefix: "portal"
navigation:
  redirects: 4
audit:
  enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GOPORTAL_REDIS_ADDR", "env-redis:6379")
	t.Setenv("GOPORTAL_SESSION_FALLBACK", "Login failed")

	s, err := loadSettings(path, map[string]any{"api.url": "http://flag-backend"})
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}

	cfg := s.portalConfig(nil)
	if cfg.API.BaseURL != "http://flag-backend" {
		t.Fatalf("override must win, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 2*time.Second || cfg.API.UserPath != "/user" {
		t.Fatalf("unexpected api config %+v", cfg.API)
	}
	if s.Redis.Addr != "env-redis:6379" {
		t.Fatalf("env must override file, got %q", s.Redis.Addr)
	}
	if cfg.Storage.RedisPrefix != "portal" || cfg.Storage.TokenKey != "token" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Session.FallbackError != "Login failed" {
		t.Fatalf("unexpected fallback %q", cfg.Session.FallbackError)
	}
	if cfg.Navigation.MaxRedirects != 4 || cfg.Navigation.LoginPath != "/" {
		t.Fatalf("unexpected navigation config %+v", cfg.Navigation)
	}
	if !cfg.Audit.Enabled || cfg.Audit.BufferSize != 1024 {
		t.Fatalf("unexpected audit config %+v", cfg.Audit)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("mapped config must validate: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("unexpected log output %q", out)
	}

	if _, err := newLogger(&buf, "loud", "text"); err == nil {
		t.Fatal("expected invalid level error")
	}
	if _, err := newLogger(&buf, "info", "xml"); err == nil {
		t.Fatal("expected invalid format error")
	}
}
