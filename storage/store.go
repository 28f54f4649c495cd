// Package storage persists serialized models as opaque byte blobs under string keys.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no model is stored under a key.
var ErrNotFound = errors.New("model not found")

// Store is a flat key/blob store. Keys may contain '/' to group models.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Store kinds accepted by Open.
const (
	KindFile  = "file"
	KindRedis = "redis"
)

// Config selects and parameterizes a store.
type Config struct {
	Kind   string `mapstructure:"kind" yaml:"kind"`
	Addr   string `mapstructure:"addr" yaml:"addr"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// Open returns the store described by @cfg. File stores are rooted at @dir.
func Open(cfg Config, dir string) (Store, error) {
	switch cfg.Kind {
	case "", KindFile:
		return NewFileStore(dir), nil
	case KindRedis:
		if cfg.Addr == "" {
			return nil, errors.New("redis store requires an address")
		}
		return NewRedisStore(cfg.Addr, cfg.Prefix), nil
	}
	return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
}
