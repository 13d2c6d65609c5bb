// Package bootstrap opens the shared resources of the command binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/cache"
	"github.com/tcdata/railnet/internal/config"
	"github.com/tcdata/railnet/internal/dataset"
	"github.com/tcdata/railnet/internal/graph"
	"github.com/tcdata/railnet/internal/logger"
	"github.com/tcdata/railnet/internal/models"
	"github.com/tcdata/railnet/internal/routing"
	"github.com/tcdata/railnet/internal/store"
)

// Resources bundles configuration, logger and the optional backing
// services. Pool and Redis are nil unless enabled in the configuration.
type Resources struct {
	Config *config.Config
	Logger *zap.Logger
	Pool   *pgxpool.Pool
	Redis  *redis.Client
}

// Open loads the configuration at path and connects to the enabled
// services
func Open(ctx context.Context, path string) (*Resources, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	r := &Resources{Config: cfg, Logger: log}

	if cfg.Database.Enabled {
		log.Info("connecting to database", zap.String("host", cfg.Database.Host), zap.Int("port", cfg.Database.Port))
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.Pool = pool
		if err := store.EnsureSchema(ctx, pool); err != nil {
			r.Close()
			return nil, err
		}
		log.Info("database connection established")
	}

	if cfg.Redis.Enabled {
		log.Info("connecting to redis", zap.String("addr", cfg.Redis.Addr()))
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.Redis = client
		log.Info("redis connection established")
	}
	return r, nil
}

// Close releases all connections and flushes the logger
func (r *Resources) Close() {
	if r.Redis != nil {
		r.Redis.Close()
	}
	if r.Pool != nil {
		r.Pool.Close()
	}
	_ = r.Logger.Sync()
}

// Store returns the Postgres repository, nil when the database is disabled
func (r *Resources) Store() *store.Repository {
	if r.Pool == nil {
		return nil
	}
	return store.NewRepository(r.Pool, r.Logger)
}

// Repository returns the configured dataset source
func (r *Resources) Repository() (dataset.Repository, error) {
	if r.Config.Data.Source == "postgres" {
		if r.Pool == nil {
			return nil, errors.New("postgres source requires a database connection")
		}
		return r.Store(), nil
	}
	return dataset.NewFileRepository(r.Config.Data.Dir)
}

// SuggestionCache returns the Redis backed cache; it is inert without Redis
func (r *Resources) SuggestionCache() *cache.SuggestionCache {
	return cache.NewSuggestionCache(r.Redis, r.Config.Redis.TTL)
}

// Presets returns the service presets of the configured file, or the
// built-in ones
func (r *Resources) Presets() (routing.Presets, error) {
	if r.Config.Data.PresetsFile == "" {
		return routing.DefaultPresets(), nil
	}
	return routing.LoadPresetsFile(r.Config.Data.PresetsFile)
}

// Network loads the dataset and builds its route graph
func (r *Resources) Network(ctx context.Context) (*dataset.Snapshot, *routing.Network, error) {
	repo, err := r.Repository()
	if err != nil {
		return nil, nil, err
	}
	snap, err := dataset.Load(ctx, repo)
	if err != nil {
		return nil, nil, err
	}

	network, stats := snap.Network(graph.NewBuilder(r.Logger), models.DefaultHiddenGroups())
	r.Logger.Info("route graph built",
		zap.String("source", r.Config.Data.Source),
		zap.Int("stations", stats.Nodes),
		zap.Int("paths", stats.Edges),
		zap.Int("skipped", stats.Skipped),
		zap.String("fingerprint", snap.Fingerprint),
	)
	return snap, network, nil
}

// Tasks reads the task document of the data directory. A missing document
// yields nil.
func (r *Resources) Tasks() (*dataset.Document, error) {
	doc, err := dataset.ReadDocument(filepath.Join(r.Config.Data.Dir, dataset.TaskFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return doc, err
}
