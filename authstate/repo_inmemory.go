package authstate

import (
	"context"
	"sync"
	"time"

	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
	gocache "github.com/patrickmn/go-cache"
)

const minCleanupInterval = time.Second

var _ Repo = (*InMemoryRepo)(nil)

type memoryEntry struct {
	params    *oauthmodel.AuthorizationRequestParameters
	expiresAt time.Time
}

// InMemoryRepo is a thread-safe in-memory implementation of the Repo
// interface for single-instance deployments. Entries expire after the TTL and
// a janitor goroutine evicts them.
type InMemoryRepo struct {
	mu      sync.Mutex
	cache   *gocache.Cache
	ttl     time.Duration
	nowTime func() time.Time
}

// InMemoryOption defines a function type to modify the InMemoryRepo instance.
type InMemoryOption func(*InMemoryRepo)

// WithNowTime sets the now time function used for expiry checks (primarily for testing)
func WithNowTime(nowFunc func() time.Time) InMemoryOption {
	return func(r *InMemoryRepo) {
		r.nowTime = nowFunc
	}
}

// NewInMemoryRepo creates a new in-memory handshake state repository.
// A non-positive ttl falls back to DefaultTTL.
func NewInMemoryRepo(ttl time.Duration, options ...InMemoryOption) *InMemoryRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cleanup := ttl / 2
	if cleanup < minCleanupInterval {
		cleanup = minCleanupInterval
	}

	r := &InMemoryRepo{
		cache:   gocache.New(ttl, cleanup),
		ttl:     ttl,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Put stores a copy of params
func (r *InMemoryRepo) Put(_ context.Context, stateKey string, params *oauthmodel.AuthorizationRequestParameters) error {
	if err := validate(stateKey, params); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Set(stateKey, memoryEntry{
		params:    params.Clone(),
		expiresAt: r.nowTime().Add(r.ttl),
	}, r.ttl)
	return nil
}

// Get returns a copy of the live entry
func (r *InMemoryRepo) Get(_ context.Context, stateKey string) (*oauthmodel.AuthorizationRequestParameters, error) {
	if stateKey == "" {
		return nil, errEmptyState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.lookup(stateKey)
	if err != nil {
		return nil, err
	}
	return entry.params.Clone(), nil
}

// Take returns a copy of the live entry and removes it
func (r *InMemoryRepo) Take(_ context.Context, stateKey string) (*oauthmodel.AuthorizationRequestParameters, error) {
	if stateKey == "" {
		return nil, errEmptyState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.lookup(stateKey)
	r.cache.Delete(stateKey)
	if err != nil {
		return nil, err
	}
	return entry.params, nil
}

// Delete removes an entry
func (r *InMemoryRepo) Delete(_ context.Context, stateKey string) error {
	if stateKey == "" {
		return errEmptyState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Delete(stateKey)
	return nil
}

// Len returns the number of stored entries, including expired ones the
// janitor has not evicted yet.
func (r *InMemoryRepo) Len() int {
	return r.cache.ItemCount()
}

// Close drops all entries.
func (r *InMemoryRepo) Close() error {
	r.cache.Flush()
	return nil
}

// lookup must be called with r.mu held.
func (r *InMemoryRepo) lookup(stateKey string) (memoryEntry, error) {
	v, ok := r.cache.Get(stateKey)
	if !ok {
		return memoryEntry{}, ErrNotFound
	}
	entry, ok := v.(memoryEntry)
	if !ok || !r.nowTime().Before(entry.expiresAt) {
		return memoryEntry{}, ErrNotFound
	}
	return entry, nil
}
