package authstate_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ehealthMP/Omh-Schimmer/authstate"
	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testTTL = 10 * time.Minute

func testParams(stateKey string) *oauthmodel.AuthorizationRequestParameters {
	return &oauthmodel.AuthorizationRequestParameters{
		Username:         "alice",
		ShimKey:          "withings",
		StateKey:         stateKey,
		RedirectURI:      "https://shim.example.com/authorize/withings/callback?state=" + stateKey,
		HTTPMethod:       "GET",
		AuthorizationURL: "https://provider.example.com/authorize?oauth_token=rt1",
		RequestParams: oauthmodel.TokenParameters{
			oauthmodel.OAuthToken:       "rt1",
			oauthmodel.OAuthTokenSecret: "rts1",
		},
		AdditionalParameters: map[string]string{"origin": "mobile"},
		CreatedAt:            time.Unix(1700000000, 0),
	}
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// repoFixture runs the same behaviour against each implementation; advance
// moves the store's notion of time forward.
type repoFixture struct {
	name    string
	repo    authstate.Repo
	advance func(d time.Duration)
}

func setupRepos(t *testing.T) []repoFixture {
	t.Helper()

	c := &clock{now: time.Now()}
	memory := authstate.NewInMemoryRepo(testTTL, authstate.WithNowTime(c.Now))
	t.Cleanup(func() { _ = memory.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisRepo := authstate.NewRedisRepoWithClient(client, "test", testTTL)
	t.Cleanup(func() { _ = redisRepo.Close() })

	return []repoFixture{
		{name: "memory", repo: memory, advance: c.Advance},
		{name: "redis", repo: redisRepo, advance: mr.FastForward},
	}
}

func TestRepo_PutGet(t *testing.T) {
	ctx := context.Background()
	for _, f := range setupRepos(t) {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.repo.Put(ctx, "s1", testParams("s1")))

			got, err := f.repo.Get(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, testParams("s1"), got)

			// Get does not consume.
			_, err = f.repo.Get(ctx, "s1")
			require.NoError(t, err)
		})
	}
}

func TestRepo_TakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	for _, f := range setupRepos(t) {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.repo.Put(ctx, "s1", testParams("s1")))

			got, err := f.repo.Take(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, "rts1", got.RequestParams.TokenSecret())

			_, err = f.repo.Take(ctx, "s1")
			require.ErrorIs(t, err, authstate.ErrNotFound)
			_, err = f.repo.Get(ctx, "s1")
			require.ErrorIs(t, err, authstate.ErrNotFound)
		})
	}
}

func TestRepo_Expiry(t *testing.T) {
	ctx := context.Background()
	for _, f := range setupRepos(t) {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.repo.Put(ctx, "fresh", testParams("fresh")))
			require.NoError(t, f.repo.Put(ctx, "stale", testParams("stale")))

			f.advance(testTTL - time.Minute)
			_, err := f.repo.Get(ctx, "stale")
			require.NoError(t, err, "still inside the ttl")

			f.advance(2 * time.Minute)
			_, err = f.repo.Get(ctx, "stale")
			require.ErrorIs(t, err, authstate.ErrNotFound)
			_, err = f.repo.Take(ctx, "fresh")
			require.ErrorIs(t, err, authstate.ErrNotFound)
		})
	}
}

func TestRepo_Delete(t *testing.T) {
	ctx := context.Background()
	for _, f := range setupRepos(t) {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.repo.Put(ctx, "s1", testParams("s1")))
			require.NoError(t, f.repo.Delete(ctx, "s1"))
			require.NoError(t, f.repo.Delete(ctx, "s1"), "deleting twice is fine")

			_, err := f.repo.Get(ctx, "s1")
			require.ErrorIs(t, err, authstate.ErrNotFound)
		})
	}
}

func TestRepo_Validation(t *testing.T) {
	ctx := context.Background()
	for _, f := range setupRepos(t) {
		t.Run(f.name, func(t *testing.T) {
			require.Error(t, f.repo.Put(ctx, "", testParams("")))
			require.Error(t, f.repo.Put(ctx, "s1", nil))
			_, err := f.repo.Get(ctx, "")
			require.Error(t, err)
			_, err = f.repo.Take(ctx, "")
			require.Error(t, err)
			require.Error(t, f.repo.Delete(ctx, ""))
		})
	}
}

func TestRepo_CopiesValues(t *testing.T) {
	ctx := context.Background()
	for _, f := range setupRepos(t) {
		t.Run(f.name, func(t *testing.T) {
			params := testParams("s1")
			require.NoError(t, f.repo.Put(ctx, "s1", params))

			params.RequestParams[oauthmodel.OAuthTokenSecret] = "mutated"
			got, err := f.repo.Get(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, "rts1", got.RequestParams.TokenSecret())

			got.Username = "mallory"
			again, err := f.repo.Get(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, "alice", again.Username)
		})
	}
}

func TestRepo_ConcurrentTakeConsumesOnce(t *testing.T) {
	ctx := context.Background()
	for _, f := range setupRepos(t) {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.repo.Put(ctx, "s1", testParams("s1")))

			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := f.repo.Take(ctx, "s1"); err == nil {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			require.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestRepo_IndependentKeys(t *testing.T) {
	ctx := context.Background()
	for _, f := range setupRepos(t) {
		t.Run(f.name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 25; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := fmt.Sprintf("state-%d", i)
					p := testParams(key)
					p.Username = fmt.Sprintf("user-%d", i)
					require.NoError(t, f.repo.Put(ctx, key, p))
				}(i)
			}
			wg.Wait()

			for i := 0; i < 25; i++ {
				got, err := f.repo.Take(ctx, fmt.Sprintf("state-%d", i))
				require.NoError(t, err)
				require.Equal(t, fmt.Sprintf("user-%d", i), got.Username)
			}
		})
	}
}

func TestRedisRepo_KeyPrefixAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := authstate.NewRedisRepoWithClient(client, "shimmer", 5*time.Minute)
	defer repo.Close()

	require.NoError(t, repo.Put(context.Background(), "abc", testParams("abc")))

	require.True(t, mr.Exists("shimmer:handshake:abc"))
	require.Equal(t, 5*time.Minute, mr.TTL("shimmer:handshake:abc"))
	require.NoError(t, repo.Ping(context.Background()))
}

func TestInMemoryRepo_DefaultTTL(t *testing.T) {
	c := &clock{now: time.Now()}
	repo := authstate.NewInMemoryRepo(0, authstate.WithNowTime(c.Now))
	defer repo.Close()

	require.NoError(t, repo.Put(context.Background(), "s1", testParams("s1")))
	require.Equal(t, 1, repo.Len())

	c.Advance(authstate.DefaultTTL + time.Second)
	_, err := repo.Get(context.Background(), "s1")
	require.ErrorIs(t, err, authstate.ErrNotFound)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	repo, err := authstate.New(ctx, authstate.Config{})
	require.NoError(t, err)
	require.IsType(t, &authstate.InMemoryRepo{}, repo)

	mr := miniredis.RunT(t)
	repo, err = authstate.New(ctx, authstate.Config{
		Driver: authstate.DriverRedis,
		TTL:    time.Minute,
		Redis:  authstate.RedisConfig{Addr: mr.Addr(), KeyPrefix: "t"},
	})
	require.NoError(t, err)
	require.IsType(t, &authstate.RedisRepo{}, repo)
	require.NoError(t, repo.Close())

	_, err = authstate.New(ctx, authstate.Config{Driver: authstate.DriverRedis})
	require.Error(t, err)

	_, err = authstate.New(ctx, authstate.Config{Driver: "etcd"})
	require.Error(t, err)
}
