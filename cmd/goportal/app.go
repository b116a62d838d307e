package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/urfave/cli/v2"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

const (
	metaSettings = "settings"
	metaLogger   = "logger"
)

var errRedisAddrRequired = errors.New("redis address required (--redis-addr or GOPORTAL_REDIS_ADDR)")

// flagKeys maps global flags onto configuration keys. A flag only overrides
// the file and environment when the user set it.
var flagKeys = map[string]string{
	"api-url":    "api.url",
	"redis-addr": "redis.addr",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "goportal",
		Usage:   "portal session store and navigation guard",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			serveCommand(),
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			routesCommand(),
		},
		Before: loadContext,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"GOPORTAL_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "api-url",
			Usage: "backend base URL",
		},
		&cli.StringFlag{
			Name:  "redis-addr",
			Usage: "Redis address holding the persisted token",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "text or json",
		},
	}
}

func loadContext(c *cli.Context) error {
	overrides := map[string]any{}
	for flagName, key := range flagKeys {
		if c.IsSet(flagName) {
			overrides[key] = c.String(flagName)
		}
	}

	s, err := loadSettings(c.String("config"), overrides)
	if err != nil {
		return err
	}
	logger, err := newLogger(c.App.ErrWriter, s.Log.Level, s.Log.Format)
	if err != nil {
		return err
	}

	c.App.Metadata[metaSettings] = s
	c.App.Metadata[metaLogger] = logger
	return nil
}

func currentSettings(c *cli.Context) settings {
	if s, ok := c.App.Metadata[metaSettings].(settings); ok {
		return s
	}
	return defaultSettings()
}

func currentLogger(c *cli.Context) *slog.Logger {
	if l, ok := c.App.Metadata[metaLogger].(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// openEngine builds an engine over the Redis-persisted token. The returned
// function closes the engine and the Redis client.
func openEngine(ctx context.Context, s settings, logger *slog.Logger) (*goPortal.Engine, func(), error) {
	if s.Redis.Addr == "" {
		return nil, nil, errRedisAddrRequired
	}
	client := s.redisClient()

	engine, err := goPortal.New().
		WithConfig(s.portalConfig(logger)).
		WithRedis(client).
		WithAuditSink(goPortal.NewSlogSink(logger)).
		Build(ctx)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return engine, func() {
		engine.Close()
		_ = client.Close()
	}, nil
}
