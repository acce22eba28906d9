package tokenexchange_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	shimerrors "github.com/ehealthMP/Omh-Schimmer/internal/errors"
	"github.com/ehealthMP/Omh-Schimmer/oauth1"
	"github.com/ehealthMP/Omh-Schimmer/oauth1/tokenexchange"
	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "client-1"
	testClientSecret = "client-secret-1"
)

// fakeProvider records what the token endpoint received and answers with a
// canned status and body.
type fakeProvider struct {
	mu       sync.Mutex
	status   int
	body     string
	received []*http.Request
	params   []url.Values
	calls    int
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	p.mu.Lock()
	p.calls++
	p.received = append(p.received, r)
	p.params = append(p.params, r.Form)
	status, body := p.status, p.body
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func setupClient(t *testing.T, options ...tokenexchange.ClientOption) *tokenexchange.Client {
	t.Helper()

	signer, err := oauth1.NewSigner(oauthmodel.ClientCredentials{ClientID: testClientID, ClientSecret: testClientSecret})
	require.NoError(t, err)

	client, err := tokenexchange.NewClient(signer, options...)
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresSigner(t *testing.T) {
	_, err := tokenexchange.NewClient(nil)
	require.Error(t, err)
}

func TestFetchRequestToken(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			provider := &fakeProvider{status: http.StatusOK, body: "oauth_token=rt1&oauth_token_secret=rts1&oauth_callback_confirmed=true"}
			srv := httptest.NewServer(provider)
			defer srv.Close()

			params, err := setupClient(t).FetchRequestToken(context.Background(), srv.URL+"/request_token", method, "https://shim.example.com/authorize/acme/callback?state=s1")
			require.NoError(t, err)

			require.Equal(t, "rt1", params.Token())
			require.Equal(t, "rts1", params.TokenSecret())
			require.Equal(t, "true", params[oauthmodel.OAuthCallbackConfirm])

			require.Len(t, provider.received, 1)
			require.Equal(t, method, provider.received[0].Method)
			form := provider.params[0]
			require.Equal(t, testClientID, form.Get(oauthmodel.OAuthConsumerKey))
			require.Equal(t, "https://shim.example.com/authorize/acme/callback?state=s1", form.Get(oauthmodel.OAuthCallback))
			require.Empty(t, form.Get(oauthmodel.OAuthToken))
			require.NotEmpty(t, form.Get(oauthmodel.OAuthSignature))
		})
	}
}

func TestFetchAccessToken(t *testing.T) {
	provider := &fakeProvider{status: http.StatusOK, body: "oauth_token=at1&oauth_token_secret=ats1&userid=42\n"}
	srv := httptest.NewServer(provider)
	defer srv.Close()

	params, err := setupClient(t).FetchAccessToken(context.Background(), srv.URL+"/access_token", http.MethodPost, "rt1", "rts1", "v1")
	require.NoError(t, err)

	require.Equal(t, "at1", params.Token())
	require.Equal(t, "ats1", params.TokenSecret())
	require.Equal(t, "42", params["userid"])

	form := provider.params[0]
	require.Equal(t, "rt1", form.Get(oauthmodel.OAuthToken))
	require.Equal(t, "v1", form.Get(oauthmodel.OAuthVerifier))

	// The provider can verify the signature with the request token secret.
	u, err := url.Parse(srv.URL + "/access_token")
	require.NoError(t, err)
	base := oauth1.BaseString(http.MethodPost, u, form)
	expected, err := oauth1.HMACSHA1{}.Sign(base, testClientSecret+"&rts1")
	require.NoError(t, err)
	require.Equal(t, expected, form.Get(oauthmodel.OAuthSignature))
}

func TestFetchAccessToken_RequiresRequestToken(t *testing.T) {
	_, err := setupClient(t).FetchAccessToken(context.Background(), "https://provider.example.com/access_token", http.MethodGet, "", "", "v1")
	require.ErrorIs(t, err, shimerrors.ErrProviderProtocol)
}

func TestExchange_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", want: shimerrors.ErrTokenExchange},
		{name: "unauthorized", status: http.StatusUnauthorized, body: "oauth_problem=signature_invalid", want: shimerrors.ErrTokenExchange},
		{name: "undecodable body", status: http.StatusOK, body: "oauth_token=%zz", want: shimerrors.ErrTokenExchange},
		{name: "missing token", status: http.StatusOK, body: "oauth_token_secret=x", want: shimerrors.ErrProviderProtocol},
		{name: "missing secret", status: http.StatusOK, body: "oauth_token=x", want: shimerrors.ErrProviderProtocol},
		{name: "empty body", status: http.StatusOK, body: "", want: shimerrors.ErrProviderProtocol},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(&fakeProvider{status: tc.status, body: tc.body})
			defer srv.Close()

			params, err := setupClient(t).FetchAccessToken(context.Background(), srv.URL, http.MethodGet, "rt1", "rts1", "v1")
			require.ErrorIs(t, err, tc.want)
			require.Nil(t, params)
		})
	}
}

func TestExchange_StatusInError(t *testing.T) {
	srv := httptest.NewServer(&fakeProvider{status: http.StatusInternalServerError, body: "upstream down"})
	defer srv.Close()

	_, err := setupClient(t).FetchRequestToken(context.Background(), srv.URL, http.MethodGet, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
	require.Contains(t, err.Error(), "upstream down")
}

func TestExchange_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := setupClient(t, tokenexchange.WithTimeout(50*time.Millisecond))
	_, err := client.FetchRequestToken(context.Background(), srv.URL, http.MethodGet, "")
	require.ErrorIs(t, err, shimerrors.ErrTokenExchange)
}

func TestExchange_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := setupClient(t).FetchRequestToken(context.Background(), endpoint, http.MethodGet, "")
	require.ErrorIs(t, err, shimerrors.ErrTokenExchange)
}

func TestExchange_UnsupportedMethod(t *testing.T) {
	_, err := setupClient(t).FetchRequestToken(context.Background(), "https://provider.example.com/rt", http.MethodDelete, "")
	require.ErrorIs(t, err, shimerrors.ErrConfiguration)
}

func TestExchange_Observer(t *testing.T) {
	srv := httptest.NewServer(&fakeProvider{status: http.StatusOK, body: "oauth_token=rt1&oauth_token_secret=rts1"})
	defer srv.Close()

	var steps []string
	var errs []error
	client := setupClient(t, tokenexchange.WithObserver(func(step string, _ time.Duration, err error) {
		steps = append(steps, step)
		errs = append(errs, err)
	}))

	_, err := client.FetchRequestToken(context.Background(), srv.URL, http.MethodGet, "")
	require.NoError(t, err)
	_, err = client.FetchAccessToken(context.Background(), srv.URL, http.MethodGet, "rt1", "rts1", "v1")
	require.NoError(t, err)

	require.Equal(t, []string{"request_token", "access_token"}, steps)
	require.Equal(t, []error{nil, nil}, errs)
}

func TestParseTokenResponse(t *testing.T) {
	params, err := tokenexchange.ParseTokenResponse([]byte("  oauth_token=a%20b&oauth_token_secret=c  "))
	require.NoError(t, err)
	require.Equal(t, "a b", params.Token())
	require.Equal(t, "c", params.TokenSecret())
}
