// Package tokenexchange performs the two token-retrieving calls of the OAuth
// 1.0a handshake against a provider's request-token and access-token
// endpoints.
package tokenexchange

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	shimerrors "github.com/ehealthMP/Omh-Schimmer/internal/errors"
	"github.com/ehealthMP/Omh-Schimmer/oauth1"
	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds each token call when no deadline is set.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
	maxErrorBodyLen  = 256
)

// Client issues signed token requests for one integration.
type Client struct {
	signer     *oauth1.Signer
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
	observe    func(step string, d time.Duration, err error)
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for token calls
func WithHTTPClient(c *http.Client) ClientOption {
	return func(tc *Client) {
		if c != nil {
			tc.httpClient = c
		}
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(tc *Client) {
		if d > 0 {
			tc.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) ClientOption {
	return func(tc *Client) {
		tc.logger = l
	}
}

// WithObserver registers a callback invoked after every token call with the
// step name ("request_token" or "access_token"), its duration and outcome.
func WithObserver(f func(step string, d time.Duration, err error)) ClientOption {
	return func(tc *Client) {
		tc.observe = f
	}
}

// NewClient creates a token exchange client signing with signer.
func NewClient(signer *oauth1.Signer, options ...ClientOption) (*Client, error) {
	if signer == nil {
		return nil, errors.New("[NewClient] signer is required")
	}

	c := &Client{
		signer:     signer,
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// FetchRequestToken obtains a temporary request token. The call is signed
// with the client credentials only and carries oauth_callback.
func (c *Client) FetchRequestToken(ctx context.Context, endpoint, method, callbackURL string) (oauthmodel.TokenParameters, error) {
	extra := map[string]string{}
	if callbackURL != "" {
		extra[oauthmodel.OAuthCallback] = callbackURL
	}
	return c.exchange(ctx, "request_token", "FetchRequestToken", endpoint, method, "", "", extra)
}

// FetchAccessToken trades an authorized request token and its verifier for
// an access token. The call is signed with the request token pair.
func (c *Client) FetchAccessToken(ctx context.Context, endpoint, method, requestToken, requestTokenSecret, verifier string) (oauthmodel.TokenParameters, error) {
	if requestToken == "" {
		return nil, shimerrors.New(shimerrors.KindProviderProtocol, "FetchAccessToken", "request token is required")
	}
	extra := map[string]string{}
	if verifier != "" {
		extra[oauthmodel.OAuthVerifier] = verifier
	}
	return c.exchange(ctx, "access_token", "FetchAccessToken", endpoint, method, requestToken, requestTokenSecret, extra)
}

func (c *Client) exchange(ctx context.Context, step, op, endpoint, method, token, tokenSecret string, extra map[string]string) (params oauthmodel.TokenParameters, err error) {
	start := time.Now()
	defer func() {
		if c.observe != nil {
			c.observe(step, time.Since(start), err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.signer.SignedRequest(ctx, method, endpoint, token, tokenSecret, extra)
	if err != nil {
		return nil, shimerrors.Wrap(shimerrors.KindSigning, op, err)
	}

	c.logger.Debug().
		Str("step", step).
		Str("method", req.Method).
		Str("endpoint", endpoint).
		Msg("calling provider token endpoint")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shimerrors.Wrap(shimerrors.KindTokenExchange, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, shimerrors.Wrap(shimerrors.KindTokenExchange, op, errors.Wrap(err, "failed to read response body"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().
			Str("step", step).
			Int("status", resp.StatusCode).
			Msg("provider token endpoint returned an error status")
		return nil, shimerrors.New(shimerrors.KindTokenExchange, op, "provider returned status %d: %s", resp.StatusCode, truncate(string(body)))
	}

	params, err = ParseTokenResponse(body)
	if err != nil {
		return nil, shimerrors.Wrap(shimerrors.KindTokenExchange, op, err)
	}
	return params, nil
}

// ParseTokenResponse decodes an application/x-www-form-urlencoded token
// response. A body that cannot be decoded is a token exchange error; a body
// without oauth_token or oauth_token_secret is a provider protocol error.
func ParseTokenResponse(body []byte) (oauthmodel.TokenParameters, error) {
	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, shimerrors.New(shimerrors.KindTokenExchange, "ParseTokenResponse", "could not parse token parameters: %v", err)
	}

	params := make(oauthmodel.TokenParameters, len(values))
	for k := range values {
		params[k] = values.Get(k)
	}

	if !params.Has(oauthmodel.OAuthToken) {
		return nil, shimerrors.New(shimerrors.KindProviderProtocol, "ParseTokenResponse", "response is missing %s", oauthmodel.OAuthToken)
	}
	if !params.Has(oauthmodel.OAuthTokenSecret) {
		return nil, shimerrors.New(shimerrors.KindProviderProtocol, "ParseTokenResponse", "response is missing %s", oauthmodel.OAuthTokenSecret)
	}
	return params, nil
}

func truncate(s string) string {
	if len(s) <= maxErrorBodyLen {
		return s
	}
	return s[:maxErrorBodyLen] + "..."
}
