package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ehealthMP/Omh-Schimmer/authstate"
	"github.com/ehealthMP/Omh-Schimmer/internal/config"
	"github.com/ehealthMP/Omh-Schimmer/shim"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "BASE_URL", "ENV", "STATE_TTL", "TOKEN_HTTP_TIMEOUT", "STATE_STORE", "REDIS_DB"} {
		t.Setenv(k, "")
	}
	cfg := config.New()

	require.Equal(t, ":8080", cfg.GetPort())
	require.Equal(t, "http://localhost:8080", cfg.GetBaseURL())
	require.True(t, cfg.IsDev())
	require.Equal(t, 10*time.Minute, cfg.GetStateTTL())
	require.Equal(t, 30*time.Second, cfg.GetTokenHTTPTimeout())
	require.Equal(t, authstate.DriverMemory, cfg.GetStateStoreDriver())
	require.Equal(t, 0, cfg.GetRedisDB())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("BASE_URL", "https://shims.example.com/")
	t.Setenv("ENV", "PROD")
	t.Setenv("STATE_TTL", "5m")
	t.Setenv("TOKEN_HTTP_TIMEOUT", "nonsense")
	t.Setenv("STATE_STORE", "REDIS")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_PREFIX", "omh")

	cfg := config.New()
	require.Equal(t, ":9090", cfg.GetPort())
	require.Equal(t, "https://shims.example.com", cfg.GetBaseURL())
	require.False(t, cfg.IsDev())
	require.Equal(t, 30*time.Second, cfg.GetTokenHTTPTimeout(), "invalid durations fall back")

	store := cfg.GetAuthStateConfig()
	require.Equal(t, authstate.DriverRedis, store.Driver)
	require.Equal(t, 5*time.Minute, store.TTL)
	require.Equal(t, "redis:6379", store.Redis.Addr)
	require.Equal(t, 2, store.Redis.DB)
	require.Equal(t, "omh", store.Redis.KeyPrefix)
}

func TestParseProviders(t *testing.T) {
	t.Setenv("WITHINGS_SECRET", "s3cret")

	providers, err := config.ParseProviders([]byte(`
providers:
  - key: withings
    client_id: withings-client
    client_secret: ${WITHINGS_SECRET}
  - key: fitbit-eu
    type: fitbit
    client_id: fitbit-client
    client_secret: other
    authorize_signing: token_only
    realm: Fitbit
`))
	require.NoError(t, err)
	require.Len(t, providers, 2)

	require.Equal(t, "s3cret", providers[0].ClientSecret)
	require.Equal(t, "withings", providers[0].ProviderType())
	require.Equal(t, "fitbit", providers[1].ProviderType())
	require.Equal(t, shim.SignWithTokenOnly, providers[1].AuthorizeSigning)
	require.Equal(t, "Fitbit", providers[1].Realm)
}

func TestParseProviders_LiteralDollarSigns(t *testing.T) {
	t.Setenv("et", "expanded")
	t.Setenv("ACME_HOST", "acme.example.com")

	providers, err := config.ParseProviders([]byte(`
providers:
  - key: acme
    client_id: "id$1"
    client_secret: "s3cr$et"
    request_token_url: "https://${ACME_HOST}/request_token?x=$y"
  - key: bare
    client_id: id
    client_secret: "$et${UNSET_SHIMMER_VAR}$"
`))
	require.NoError(t, err)
	require.Len(t, providers, 2)

	require.Equal(t, "id$1", providers[0].ClientID)
	require.Equal(t, "s3cr$et", providers[0].ClientSecret)
	require.Equal(t, "https://acme.example.com/request_token?x=$y", providers[0].RequestTokenURL)
	require.Equal(t, "$et$", providers[1].ClientSecret)
}

func TestParseProviders_Invalid(t *testing.T) {
	_, err := config.ParseProviders([]byte("providers: [unclosed"))
	require.Error(t, err)

	_, err = config.ParseProviders([]byte("providers:\n  - client_id: x\n"))
	require.Error(t, err)

	_, err = config.ParseProviders([]byte("providers:\n  - key: a\n  - key: a\n"))
	require.Error(t, err)
}

func TestLoadProviders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  - key: withings\n"), 0o600))
	t.Setenv("PROVIDERS_FILE", path)

	providers, err := config.New().LoadProviders()
	require.NoError(t, err)
	require.Equal(t, "withings", providers[0].Key)

	t.Setenv("PROVIDERS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = config.New().LoadProviders()
	require.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_NAME=FromDotEnv\n"), 0o600))
	t.Setenv("APP_NAME", "")
	require.NoError(t, os.Unsetenv("APP_NAME"))

	require.NoError(t, config.LoadEnvFile(path))
	require.Equal(t, "FromDotEnv", config.New().GetAppName())

	require.NoError(t, config.LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
}
