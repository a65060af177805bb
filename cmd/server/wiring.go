package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/darkodi/sitebuilder/internal/config"
	"github.com/darkodi/sitebuilder/internal/generate"
	"github.com/darkodi/sitebuilder/internal/logger"
	"github.com/darkodi/sitebuilder/internal/metrics"
	"github.com/darkodi/sitebuilder/internal/store"
)

// stores holds the opened backends and what must be closed on exit
type stores struct {
	kv      store.KV
	blob    store.Blob // nil when screenshots are not stored
	sweeper *store.Sweeper
	closers []func() error
}

// openStores builds the KV and blob backends selected in cfg. SQL drivers
// share one database handle when both sides use the same driver.
func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	s := &stores{}
	dbs := map[string]*sql.DB{}

	openDB := func(driver string) (*sql.DB, error) {
		if db, ok := dbs[driver]; ok {
			return db, nil
		}
		dsn := cfg.Store.Path
		if driver == "postgres" {
			dsn = cfg.Store.DatabaseURL
		}
		db, err := store.OpenSQL(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
		}
		dbs[driver] = db
		return db, nil
	}

	switch cfg.Store.Driver {
	case "redis":
		kv, err := store.NewRedisKV(ctx, store.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		s.kv = kv
		s.closers = append(s.closers, kv.Close)
	case "sqlite", "postgres":
		db, err := openDB(cfg.Store.Driver)
		if err != nil {
			return nil, err
		}
		kv := store.NewSQLKV(db, cfg.Store.Driver)
		sweeper, err := store.NewSweeper(kv, cfg.Store.SweepSchedule, log)
		if err != nil {
			kv.Close()
			return nil, err
		}
		sweeper.Start()
		s.kv = kv
		s.sweeper = sweeper
		s.closers = append(s.closers, kv.Close)
	default:
		log.Warn("using in-memory store; data is lost on restart")
		s.kv = store.NewMemoryKV()
	}

	switch cfg.Blob.Driver {
	case "s3":
		blob, err := store.NewS3Blob(ctx, store.S3Options{
			Bucket:          cfg.Blob.Bucket,
			Region:          cfg.Blob.Region,
			Endpoint:        cfg.Blob.Endpoint,
			AccessKeyID:     cfg.Blob.AccessKeyID,
			SecretAccessKey: cfg.Blob.SecretAccessKey,
		})
		if err != nil {
			s.Close(log)
			return nil, fmt.Errorf("failed to configure S3: %w", err)
		}
		s.blob = blob
	case "sqlite", "postgres":
		_, shared := dbs[cfg.Blob.Driver]
		db, err := openDB(cfg.Blob.Driver)
		if err != nil {
			s.Close(log)
			return nil, err
		}
		blob := store.NewSQLBlob(db, cfg.Blob.Driver, !shared)
		s.blob = blob
		// blobs close first so an owned handle is released before the KV's
		s.closers = append([]func() error{blob.Close}, s.closers...)
	case "memory":
		s.blob = store.NewMemoryBlob()
	default:
		log.Warn("no blob store configured; screenshots are disabled")
	}

	return s, nil
}

// Close stops the sweeper and releases every backend
func (s *stores) Close(log *logger.Logger) {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.Error("failed to close store", "error", err.Error())
		}
	}
}

// newGenerateClient builds the provider selected in cfg
func newGenerateClient(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*generate.Client, error) {
	typ, err := generate.ParseProviderType(cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}
	provider, err := generate.NewProvider(generate.ProviderConfig{
		Type:    typ,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	return generate.NewClient(provider, generate.Options{
		APIKey:              cfg.LLM.APIKey,
		BuildModel:          cfg.LLM.BuildModel,
		BuildMaxTokens:      cfg.LLM.BuildMaxTokens,
		SurpriseModel:       cfg.LLM.SurpriseModel,
		SurpriseMaxTokens:   cfg.LLM.SurpriseMaxTokens,
		SurpriseTemperature: float32(cfg.LLM.SurpriseTemperature),
	}, log, m), nil
}
