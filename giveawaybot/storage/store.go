// Package storage provides the versioned document store backing the
// giveaway collections. Documents are opaque JSON blobs addressed by a
// path-like key; every save is an atomic full replace recorded with an
// audit change note and a fresh revision id.
package storage

import (
	"context"
	"fmt"
)

// Store is the document store contract. Get returns (nil, nil) for an
// absent key; absence is never an error. Save replaces the whole
// document.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, doc []byte, changeNote string) error
}

// Config selects the document store backend. Backend is one of "s3",
// "postgres" or "mongo"; only the matching subsection is read.
type Config struct {
	Backend   string `toml:"backend"`
	CacheSize int    `toml:"cache_size"`
	S3        struct {
		Key    string `toml:"key"`
		Secret string `toml:"secret"`
		Region string `toml:"region"`
		Bucket string `toml:"bucket"`
		Root   string `toml:"root"`
	} `toml:"s3"`
	Postgres struct {
		Host     string `toml:"host"`
		Port     int    `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		Database string `toml:"database"`
	} `toml:"postgres"`
	Mongo struct {
		URI      string `toml:"uri"`
		Database string `toml:"database"`
	} `toml:"mongo"`
}

// New builds the backend selected by cfg.Backend and wraps it with the
// LRU read cache when cache_size is set.
func New(ctx context.Context, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Backend {
	case "s3":
		store = NewS3Store(cfg.S3.Key, cfg.S3.Secret, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.Root)
	case "postgres":
		store, err = NewPostgresStore(ctx, PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
		})
	case "mongo":
		store, err = NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize > 0 {
		return WithCache(store, cfg.CacheSize)
	}
	return store, nil
}
