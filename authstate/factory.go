package authstate

import (
	"context"
	"fmt"
	"time"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config selects and configures a Repo implementation.
type Config struct {
	Driver string
	TTL    time.Duration
	Redis  RedisConfig
}

// New creates the Repo named by cfg.Driver. An empty driver means memory.
func New(ctx context.Context, cfg Config) (Repo, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewInMemoryRepo(cfg.TTL), nil
	case DriverRedis:
		repo, err := NewRedisRepo(ctx, cfg.Redis, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown state store driver: %s", cfg.Driver)
	}
}
