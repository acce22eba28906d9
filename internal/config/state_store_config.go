package config

import (
	"strings"

	"github.com/ehealthMP/Omh-Schimmer/authstate"
)

type StateStoreConfig interface {
	GetStateStoreDriver() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
	GetAuthStateConfig() authstate.Config
}

type StateStore struct{}

var _ StateStoreConfig = StateStore{}

func (StateStore) GetStateStoreDriver() string {
	return strings.ToLower(GetEnv("STATE_STORE", authstate.DriverMemory))
}

func (StateStore) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (StateStore) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (StateStore) GetRedisDB() int {
	return GetInt("REDIS_DB", 0)
}

func (StateStore) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "shimmer")
}

// GetAuthStateConfig assembles the handshake state store configuration.
func (s StateStore) GetAuthStateConfig() authstate.Config {
	return authstate.Config{
		Driver: s.GetStateStoreDriver(),
		TTL:    Handshake{}.GetStateTTL(),
		Redis: authstate.RedisConfig{
			Addr:      s.GetRedisAddr(),
			Password:  s.GetRedisPassword(),
			DB:        s.GetRedisDB(),
			KeyPrefix: s.GetRedisPrefix(),
		},
	}
}
