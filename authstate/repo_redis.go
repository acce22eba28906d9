package authstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

const keyTypeHandshake = "handshake"

var _ Repo = (*RedisRepo)(nil)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int

	// KeyPrefix separates deployments sharing one Redis, e.g. "shimmer".
	KeyPrefix string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisRepo implements Repo on Redis so several instances can share
// handshake state. Expiry is enforced by Redis key TTLs.
type RedisRepo struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// storedHandshake is the JSON form of AuthorizationRequestParameters in Redis.
type storedHandshake struct {
	Username             string            `json:"username"`
	ShimKey              string            `json:"shim_key"`
	StateKey             string            `json:"state_key"`
	RedirectURI          string            `json:"redirect_uri"`
	HTTPMethod           string            `json:"http_method"`
	AuthorizationURL     string            `json:"authorization_url"`
	RequestParams        map[string]string `json:"request_params"`
	AdditionalParameters map[string]string `json:"additional_parameters,omitempty"`
	CreatedAt            int64             `json:"created_at"`
}

// NewRedisRepo connects to Redis and verifies the connection.
func NewRedisRepo(ctx context.Context, cfg RedisConfig, ttl time.Duration) (*RedisRepo, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisRepoWithClient(client, cfg.KeyPrefix, ttl), nil
}

// NewRedisRepoWithClient creates a RedisRepo with a pre-configured client.
// This is useful for testing with miniredis.
func NewRedisRepoWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRepo{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (r *RedisRepo) key(stateKey string) string {
	if r.keyPrefix == "" {
		return keyTypeHandshake + ":" + stateKey
	}
	return r.keyPrefix + ":" + keyTypeHandshake + ":" + stateKey
}

// Put stores params with the repo TTL
func (r *RedisRepo) Put(ctx context.Context, stateKey string, params *oauthmodel.AuthorizationRequestParameters) error {
	if err := validate(stateKey, params); err != nil {
		return err
	}

	data, err := json.Marshal(storedHandshake{
		Username:             params.Username,
		ShimKey:              params.ShimKey,
		StateKey:             params.StateKey,
		RedirectURI:          params.RedirectURI,
		HTTPMethod:           params.HTTPMethod,
		AuthorizationURL:     params.AuthorizationURL,
		RequestParams:        params.RequestParams,
		AdditionalParameters: params.AdditionalParameters,
		CreatedAt:            params.CreatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal handshake state: %w", err)
	}

	return r.client.Set(ctx, r.key(stateKey), data, r.ttl).Err()
}

// Get returns the live entry
func (r *RedisRepo) Get(ctx context.Context, stateKey string) (*oauthmodel.AuthorizationRequestParameters, error) {
	if stateKey == "" {
		return nil, errEmptyState
	}
	return r.decode(r.client.Get(ctx, r.key(stateKey)).Bytes())
}

// Take uses GETDEL so concurrent callbacks cannot both consume a state key
func (r *RedisRepo) Take(ctx context.Context, stateKey string) (*oauthmodel.AuthorizationRequestParameters, error) {
	if stateKey == "" {
		return nil, errEmptyState
	}
	return r.decode(r.client.GetDel(ctx, r.key(stateKey)).Bytes())
}

// Delete removes an entry
func (r *RedisRepo) Delete(ctx context.Context, stateKey string) error {
	if stateKey == "" {
		return errEmptyState
	}
	if err := r.client.Del(ctx, r.key(stateKey)).Err(); err != nil {
		return fmt.Errorf("failed to delete handshake state: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity (health check).
func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (r *RedisRepo) Close() error {
	return r.client.Close()
}

func (r *RedisRepo) decode(data []byte, err error) (*oauthmodel.AuthorizationRequestParameters, error) {
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get handshake state: %w", err)
	}

	var stored storedHandshake
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal handshake state: %w", err)
	}

	return &oauthmodel.AuthorizationRequestParameters{
		Username:             stored.Username,
		ShimKey:              stored.ShimKey,
		StateKey:             stored.StateKey,
		RedirectURI:          stored.RedirectURI,
		HTTPMethod:           stored.HTTPMethod,
		AuthorizationURL:     stored.AuthorizationURL,
		RequestParams:        oauthmodel.TokenParameters(stored.RequestParams),
		AdditionalParameters: stored.AdditionalParameters,
		CreatedAt:            time.Unix(stored.CreatedAt, 0),
	}, nil
}
