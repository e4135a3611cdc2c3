// Package app constructs the shared fetch pipeline once per process and hands
// it to the CLI and HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/adeilh/metafetch/batch"
	"github.com/adeilh/metafetch/cache"
	"github.com/adeilh/metafetch/cache/bigcache"
	"github.com/adeilh/metafetch/cache/memory"
	"github.com/adeilh/metafetch/cache/redis"
	"github.com/adeilh/metafetch/db/sql/postgres"
	"github.com/adeilh/metafetch/db/sql/sqlite"
	"github.com/adeilh/metafetch/internal/config"
	"github.com/adeilh/metafetch/kitsu"
	"github.com/adeilh/metafetch/mapping"
	"github.com/adeilh/metafetch/ratelimit"
	"github.com/adeilh/metafetch/retry"
	"github.com/adeilh/metafetch/tmdb"
)

// mappingLifeWindow bounds preloaded mapping entries on the bigcache backend,
// which has no per-entry expiry of its own.
const mappingLifeWindow = 10 * 365 * 24 * time.Hour

// App holds the process-wide pipeline. The limiter and caches are shared by
// every caller; build one App per process.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Limiter *ratelimit.Limiter
	Fetcher *tmdb.Fetcher
	Batch   *batch.Orchestrator
	Kitsu   *kitsu.Resolver

	closers []func() error
}

// New wires the pipeline described by cfg. A nil logger discards output.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	recordStore, kitsuStore, err := a.buildStores(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	recordCodec, err := cache.CodecByName[tmdb.Record](cfg.Cache.Codec)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	records, err := cache.New(cache.Options[tmdb.Record]{
		Store:      recordStore,
		Codec:      recordCodec,
		DefaultTTL: cfg.Cache.TTL(),
		Logger:     logger.Named("cache"),
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	kitsuCodec, err := cache.CodecByName[kitsu.Resolution](cfg.Cache.Codec)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	resolutions, err := cache.New(cache.Options[kitsu.Resolution]{
		Store:      kitsuStore,
		Codec:      kitsuCodec,
		DefaultTTL: cfg.Cache.TTL(),
		Logger:     logger.Named("cache"),
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Limiter = ratelimit.New(cfg.TMDB.RequestsPerSecond, ratelimit.WithConcurrency(cfg.TMDB.Concurrency))

	a.Fetcher, err = tmdb.NewFetcher(a.Limiter, records,
		tmdb.WithBaseURL(cfg.TMDB.BaseURL),
		tmdb.WithAPIKey(cfg.TMDB.APIKey),
		tmdb.WithLanguage(cfg.TMDB.Language),
		tmdb.WithTimeout(cfg.TMDB.Timeout()),
		tmdb.WithPolicy(retry.Policy{MaxAttempts: cfg.TMDB.MaxAttempts, BaseDelay: cfg.TMDB.BaseDelay()}),
		tmdb.WithLogger(logger.Named("tmdb")),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if !a.Fetcher.HasAPIKey() {
		logger.Warn("tmdb api key not configured; lookups will be rejected",
			zap.String("hint", "set TMDB_API_KEY or tmdb.api_key"),
		)
	}

	a.Batch = batch.New(a.Fetcher,
		batch.WithWindowSize(cfg.TMDB.BatchSize),
		batch.WithPause(cfg.TMDB.BatchPause()),
		batch.WithLogger(logger.Named("batch")),
	)

	a.Kitsu, err = kitsu.NewResolver(resolutions,
		kitsu.WithAddonURL(cfg.Kitsu.AddonURL),
		kitsu.WithTimeout(cfg.Kitsu.Timeout()),
		kitsu.WithUnresolvedTTL(cfg.Kitsu.UnresolvedTTL()),
		kitsu.WithLogger(logger.Named("kitsu")),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	logger.Debug("pipeline ready",
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("cache_codec", cfg.Cache.Codec),
		zap.Float64("rps", cfg.TMDB.RequestsPerSecond),
		zap.Duration("interval", a.Limiter.Interval()),
	)
	return a, nil
}

func (a *App) buildStores(ctx context.Context) (cache.Store, cache.Store, error) {
	c := a.Config.Cache
	switch c.Backend {
	case config.BackendMemory:
		records, err := memory.NewStore(memory.Options{MaxEntries: c.MaxEntries, Metrics: true})
		if err != nil {
			return nil, nil, fmt.Errorf("app: memory store: %w", err)
		}
		a.closers = append(a.closers, a.closeMemoryStore("tmdb", records))
		ids, err := memory.NewStore(memory.Options{MaxEntries: c.MaxEntries, Metrics: true})
		if err != nil {
			return nil, nil, fmt.Errorf("app: memory store: %w", err)
		}
		a.closers = append(a.closers, a.closeMemoryStore("kitsu", ids))
		return records, ids, nil

	case config.BackendBigCache:
		records, err := bigcache.NewStore(ctx, bigcache.Options{LifeWindow: c.TTL()})
		if err != nil {
			return nil, nil, fmt.Errorf("app: bigcache store: %w", err)
		}
		a.closers = append(a.closers, records.Close)
		ids, err := bigcache.NewStore(ctx, bigcache.Options{LifeWindow: mappingLifeWindow})
		if err != nil {
			return nil, nil, fmt.Errorf("app: bigcache store: %w", err)
		}
		a.closers = append(a.closers, ids.Close)
		return records, ids, nil

	case config.BackendRedis:
		client := redis.NewClient(redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		a.closers = append(a.closers, func() error {
			if err := client.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
				return err
			}
			return nil
		})
		records, err := redis.NewStoreWithClient(client, c.KeyPrefix+"tmdb:")
		if err != nil {
			return nil, nil, err
		}
		ids, err := redis.NewStoreWithClient(client, c.KeyPrefix+"kitsu:")
		if err != nil {
			return nil, nil, err
		}
		if err := records.Ping(ctx); err != nil {
			// The cache degrades to misses, so an unreachable redis is not fatal.
			a.Logger.Warn("redis unreachable; cache will miss", zap.String("addr", c.RedisAddr), zap.Error(err))
		}
		return records, ids, nil

	default:
		return nil, nil, fmt.Errorf("app: unknown cache backend %q", c.Backend)
	}
}

// closeMemoryStore logs the store's hit ratio before releasing it.
func (a *App) closeMemoryStore(name string, s *memory.Store) func() error {
	return func() error {
		hits, misses, ratio := s.Stats()
		a.Logger.Info("memory cache stats",
			zap.String("cache", name),
			zap.Uint64("hits", hits),
			zap.Uint64("misses", misses),
			zap.Float64("hit_ratio", ratio),
		)
		return s.Close()
	}
}

// MappingSources returns the configured mapping tables in load order: the
// file first, then the database. The returned close func releases database
// connections.
func (a *App) MappingSources(ctx context.Context) ([]mapping.Source, func() error, error) {
	k := a.Config.Kitsu
	var (
		sources []mapping.Source
		closeFn = func() error { return nil }
	)
	if k.MappingFile != "" {
		sources = append(sources, mapping.File{Path: k.MappingFile})
	}
	switch k.MappingDriver {
	case config.DriverPostgres:
		repo, err := postgres.OpenMappingRepository(ctx,
			postgres.WithDSN(k.MappingDSN),
			postgres.WithMaxOpenConns(1),
			postgres.WithPingTimeout(k.Timeout()),
		)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, repo)
		closeFn = repo.Close
	case config.DriverSQLite:
		repo, err := sqlite.Open(ctx, k.MappingDSN)
		if err != nil {
			return nil, nil, err
		}
		a.Logger.Debug("mapping database opened", zap.String("driver", k.MappingDriver), zap.String("path", repo.Path()))
		sources = append(sources, repo)
		closeFn = repo.Close
	}
	return sources, closeFn, nil
}

// Preload loads every configured mapping source into the Kitsu cache and
// returns the number of entries stored. With no source configured it is a
// no-op.
func (a *App) Preload(ctx context.Context) (int, error) {
	sources, closeFn, err := a.MappingSources(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = closeFn() }()

	total := 0
	for _, src := range sources {
		n, err := a.Kitsu.Preload(ctx, src)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Close releases cache backends. Safe to call more than once.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
