package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/guardian"
	"github.com/aretw0/guardian/internal/adapters/file"
	"github.com/aretw0/guardian/internal/adapters/memory"
	openaiAdapter "github.com/aretw0/guardian/internal/adapters/openai"
	"github.com/aretw0/guardian/internal/adapters/postgres"
	redisAdapter "github.com/aretw0/guardian/internal/adapters/redis"
	"github.com/aretw0/guardian/internal/config"
	"github.com/aretw0/guardian/internal/logging"
	"github.com/aretw0/guardian/pkg/ports"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(logging.ParseLevel(cfg.Logging.Level))
}

// buildStore returns the configured session store and, for backends that
// support it, a distributed locker sharing the store's connection.
func buildStore(cfg *config.Config) (ports.SessionStore, ports.DistributedLocker, error) {
	switch cfg.Store.Backend {
	case "memory":
		return memory.New(), nil, nil
	case "file":
		return file.New(cfg.Store.File.Path), nil, nil
	case "redis":
		var opts []redisAdapter.Option
		if cfg.Store.Redis.TTL > 0 {
			opts = append(opts, redisAdapter.WithTTL(cfg.Store.Redis.TTL))
		}
		store := redisAdapter.New(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB, opts...)
		return store, store.Locker(), nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// buildEngine wires the configured store, databases, and planner into an
// engine. The returned cleanup closes the database pools.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*guardian.Engine, func(), error) {
	store, locker, err := buildStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	var caps []ports.Capability
	var specs []openaiAdapter.CapabilitySpec
	var cleanups []func()
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	for _, db := range cfg.Databases {
		if db.DSN == "" {
			continue
		}
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{DSN: db.DSN, MaxConns: db.MaxConns})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("database %s: %w", db.Name, err)
		}
		cleanups = append(cleanups, pool.Close)

		name := db.Name + "_sql_db_query"
		caps = append(caps, postgres.NewCapability(name, db.Description, pool))
		specs = append(specs, openaiAdapter.CapabilitySpec{Name: name, Description: db.Description})
	}

	if cfg.Planner.APIKey == "" {
		cleanup()
		return nil, nil, errors.New("planner api key is required (set OPENAI_API_KEY)")
	}
	client := openaiAdapter.NewClient(cfg.Planner.APIKey, cfg.Planner.BaseURL)
	planner := openaiAdapter.New(client, specs,
		openaiAdapter.WithModel(cfg.Planner.Model),
		openaiAdapter.WithTemperature(cfg.Planner.Temperature),
	)

	engineOpts := []guardian.Option{
		guardian.WithStore(store),
		guardian.WithCapabilities(caps...),
		guardian.WithLogger(logger),
		guardian.WithMaxSteps(cfg.Engine.MaxSteps),
		guardian.WithLogTail(cfg.Engine.LogTail),
	}
	if locker != nil {
		engineOpts = append(engineOpts, guardian.WithLocker(locker))
	}

	return guardian.New(planner, engineOpts...), cleanup, nil
}
