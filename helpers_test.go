package goPortal

import (
	"context"
	"log/slog"
	"testing"

	"github.com/MrEthical07/goPortal/apiclient"
	"github.com/MrEthical07/goPortal/apitest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testTokenKey = "gp:token"

var (
	adminUser = apitest.User{ID: "1", Email: "admin@portal.test", Name: "Ada", Role: "admin", Password: "admin-pw"}
	staffUser = apitest.User{ID: "2", Email: "staff@portal.test", Name: "Sam", Role: "staff", Password: "staff-pw"}
)

type testEnv struct {
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	backend *apitest.Server
	api     *apiclient.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	backend := apitest.NewServer(adminUser, staffUser)

	api, err := apiclient.New(apiclient.Config{BaseURL: backend.URL, HTTPClient: backend.Client()})
	if err != nil {
		t.Fatalf("apiclient.New failed: %v", err)
	}

	t.Cleanup(func() {
		backend.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return &testEnv{mr: mr, rdb: rdb, backend: backend, api: api}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.DiscardHandler)
	return cfg
}

func (env *testEnv) build(t *testing.T, cfg Config, sink AuditSink) *Engine {
	t.Helper()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(env.rdb).
		WithAPIClient(env.api).
		WithAuditSink(sink).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func (env *testEnv) persisted(t *testing.T) (string, bool) {
	t.Helper()
	if !env.mr.Exists(testTokenKey) {
		return "", false
	}
	v, err := env.mr.Get(testTokenKey)
	if err != nil {
		t.Fatalf("miniredis get: %v", err)
	}
	return v, true
}
