package shim

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ehealthMP/Omh-Schimmer/authstate"
	shimerrors "github.com/ehealthMP/Omh-Schimmer/internal/errors"
	"github.com/ehealthMP/Omh-Schimmer/oauth1"
	"github.com/ehealthMP/Omh-Schimmer/oauth1/tokenexchange"
	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultCallbackBaseURL is used when no public base URL is configured.
const DefaultCallbackBaseURL = "http://localhost:8080"

// Callback query parameters some providers send when the user declines.
var denialParams = []string{"denied", "oauth_problem"}

// Observer receives handshake events, e.g. for metrics.
type Observer interface {
	HandshakeTransition(shimKey string, state HandshakeState)
	TokenCall(shimKey, step string, d time.Duration, err error)
}

// Authorizer runs the OAuth 1.0a handshake for one shim.
type Authorizer struct {
	shim            Shim
	repo            authstate.Repo
	tokens          *tokenexchange.Client
	signer          *oauth1.Signer
	callbackBaseURL string
	newStateKey     func() string
	nowTime         func() time.Time
	logger          zerolog.Logger
	observer        Observer
	httpClient      *http.Client
	timeout         time.Duration
	signerOptions   []oauth1.SignerOption
}

// AuthorizerOption defines a function type to modify the Authorizer instance.
type AuthorizerOption func(*Authorizer)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizerOption {
	return func(a *Authorizer) {
		a.nowTime = nowFunc
	}
}

// WithStateKeyGenerator replaces the uuid v4 state key generator
func WithStateKeyGenerator(f func() string) AuthorizerOption {
	return func(a *Authorizer) {
		a.newStateKey = f
	}
}

// WithCallbackBaseURL sets the public base URL the provider redirects back to
func WithCallbackBaseURL(base string) AuthorizerOption {
	return func(a *Authorizer) {
		a.callbackBaseURL = strings.TrimRight(base, "/")
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) AuthorizerOption {
	return func(a *Authorizer) {
		a.logger = l
	}
}

// WithObserver registers an observer for transitions and token calls
func WithObserver(o Observer) AuthorizerOption {
	return func(a *Authorizer) {
		a.observer = o
	}
}

// WithHTTPClient sets the HTTP client for token calls
func WithHTTPClient(c *http.Client) AuthorizerOption {
	return func(a *Authorizer) {
		a.httpClient = c
	}
}

// WithTimeout bounds each token call
func WithTimeout(d time.Duration) AuthorizerOption {
	return func(a *Authorizer) {
		a.timeout = d
	}
}

// WithSignerOptions adds options to the signer, after any the shim supplies
func WithSignerOptions(options ...oauth1.SignerOption) AuthorizerOption {
	return func(a *Authorizer) {
		a.signerOptions = append(a.signerOptions, options...)
	}
}

// NewAuthorizer creates an Authorizer for s storing handshakes in repo.
func NewAuthorizer(s Shim, repo authstate.Repo, options ...AuthorizerOption) (*Authorizer, error) {
	if s == nil {
		return nil, errors.New("[NewAuthorizer] shim is required")
	}
	if repo == nil {
		return nil, errors.New("[NewAuthorizer] state repo is required")
	}
	if s.ShimKey() == "" {
		return nil, shimerrors.New(shimerrors.KindConfiguration, "NewAuthorizer", "shim key is required")
	}
	if s.BaseRequestTokenURL() == "" || s.BaseAuthorizeURL() == "" || s.BaseTokenURL() == "" {
		return nil, shimerrors.New(shimerrors.KindConfiguration, "NewAuthorizer", "%s: provider endpoints are required", s.ShimKey())
	}

	a := &Authorizer{
		shim:            s,
		repo:            repo,
		callbackBaseURL: DefaultCallbackBaseURL,
		newStateKey:     func() string { return uuid.New().String() },
		nowTime:         time.Now,
		logger:          zerolog.Nop(),
		timeout:         tokenexchange.DefaultTimeout,
	}
	for _, opt := range options {
		opt(a)
	}
	a.logger = a.logger.With().Str("shim", s.ShimKey()).Logger()

	var signerOptions []oauth1.SignerOption
	if configurer, ok := s.(SignerConfigurer); ok {
		shimOptions, err := configurer.SignerOptions()
		if err != nil {
			return nil, err
		}
		signerOptions = append(signerOptions, shimOptions...)
	}
	signerOptions = append(signerOptions, a.signerOptions...)

	signer, err := oauth1.NewSigner(oauthmodel.ClientCredentials{
		ClientID:     s.ClientID(),
		ClientSecret: s.ClientSecret(),
	}, signerOptions...)
	if err != nil {
		return nil, err
	}
	a.signer = signer

	a.tokens, err = tokenexchange.NewClient(signer,
		tokenexchange.WithHTTPClient(a.httpClient),
		tokenexchange.WithTimeout(a.timeout),
		tokenexchange.WithLogger(a.logger),
		tokenexchange.WithObserver(a.observeTokenCall),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[NewAuthorizer] token client")
	}
	return a, nil
}

// ShimKey returns the key of the shim this Authorizer serves.
func (a *Authorizer) ShimKey() string {
	return a.shim.ShimKey()
}

// Shim returns the underlying shim.
func (a *Authorizer) Shim() Shim {
	return a.shim
}

// Signer returns the signer built from the shim's client credentials.
func (a *Authorizer) Signer() *oauth1.Signer {
	return a.signer
}

// InitiateAuthorization starts a handshake for username: it obtains a request
// token, builds the authorize URL and stores the handshake under a fresh
// state key. The caller redirects the user to AuthorizationURL. Nothing is
// stored when any step fails.
func (a *Authorizer) InitiateAuthorization(ctx context.Context, username string, extra map[string]string) (*oauthmodel.AuthorizationRequestParameters, error) {
	const op = "InitiateAuthorization"

	if strings.TrimSpace(username) == "" {
		return nil, shimerrors.New(shimerrors.KindInvalidRequest, op, "username is required")
	}

	stateKey := a.newStateKey()
	if stateKey == "" {
		return nil, shimerrors.New(shimerrors.KindConfiguration, op, "state key generator returned an empty key")
	}
	h := a.startHandshake(a.logger.With().Str("state", stateKey).Logger())

	callbackURL := a.callbackURL(stateKey)

	requestParams, err := a.tokens.FetchRequestToken(ctx, a.shim.BaseRequestTokenURL(), a.shim.RequestTokenMethod(), callbackURL)
	if err != nil {
		return nil, h.fail(err)
	}
	if confirmed, ok := requestParams[oauthmodel.OAuthCallbackConfirm]; ok && confirmed != "true" {
		return nil, h.fail(shimerrors.New(shimerrors.KindProviderProtocol, op, "provider did not confirm the callback"))
	}
	h.moveTo(RequestTokenObtained)

	authorizationURL, err := a.authorizationURL(requestParams)
	if err != nil {
		return nil, h.fail(shimerrors.Wrap(shimerrors.KindSigning, op, err))
	}

	params := &oauthmodel.AuthorizationRequestParameters{
		Username:             username,
		ShimKey:              a.shim.ShimKey(),
		StateKey:             stateKey,
		RedirectURI:          callbackURL,
		HTTPMethod:           http.MethodGet,
		AuthorizationURL:     authorizationURL,
		RequestParams:        requestParams,
		AdditionalParameters: extra,
		CreatedAt:            a.nowTime(),
	}
	if err := a.repo.Put(ctx, stateKey, params); err != nil {
		return nil, h.fail(shimerrors.Wrap(shimerrors.KindStateStore, op, err))
	}
	h.moveTo(AwaitingUserAuthorization)

	return params.Clone(), nil
}

// HandleAuthorizationCallback completes a handshake from the provider's
// redirect back to the callback URL.
func (a *Authorizer) HandleAuthorizationCallback(ctx context.Context, r *http.Request) (*oauthmodel.AuthorizationResponse, error) {
	if r == nil || r.URL == nil {
		return nil, shimerrors.New(shimerrors.KindInvalidRequest, "HandleAuthorizationCallback", "callback request is required")
	}
	return a.HandleCallback(ctx, oauthmodel.CallbackParametersFromQuery(r.URL.Query()), r)
}

// HandleCallback completes a handshake from already extracted callback
// parameters. r is handed to the shim's AccessParametersLoader; when nil, a
// request carrying cb.Query is used instead.
//
// The state key is consumed before the access token call, so a failed
// callback cannot be retried and the user must start again.
func (a *Authorizer) HandleCallback(ctx context.Context, cb oauthmodel.CallbackParameters, r *http.Request) (*oauthmodel.AuthorizationResponse, error) {
	const op = "HandleCallback"

	if cb.State == "" {
		h := a.resumeHandshake(a.logger)
		return nil, h.fail(shimerrors.New(shimerrors.KindInvalidState, op, "callback is missing the state parameter"))
	}
	h := a.resumeHandshake(a.logger.With().Str("state", cb.State).Logger())

	stored, err := a.repo.Take(ctx, cb.State)
	if errors.Is(err, authstate.ErrNotFound) {
		return nil, h.fail(shimerrors.New(shimerrors.KindInvalidState, op, "could not find auth parameters for state"))
	}
	if err != nil {
		return nil, h.fail(shimerrors.Wrap(shimerrors.KindStateStore, op, err))
	}
	if stored.ShimKey != "" && stored.ShimKey != a.shim.ShimKey() {
		return nil, h.fail(shimerrors.New(shimerrors.KindInvalidState, op, "state belongs to shim %s", stored.ShimKey))
	}

	if problem := denial(cb.Query); problem != "" {
		h.moveTo(Failed)
		h.logger.Info().Str("problem", problem).Msg("user did not authorize access")
		return oauthmodel.Failed(problem), nil
	}

	requestToken := stored.RequestParams.Token()
	if cb.Token != "" && cb.Token != requestToken {
		return nil, h.fail(shimerrors.New(shimerrors.KindInvalidState, op, "oauth_token does not match the request token"))
	}
	if cb.Verifier == "" {
		return nil, h.fail(shimerrors.New(shimerrors.KindProviderProtocol, op, "callback is missing %s", oauthmodel.OAuthVerifier))
	}

	accessParams, err := a.tokens.FetchAccessToken(ctx, a.shim.BaseTokenURL(), a.shim.AccessTokenMethod(),
		requestToken, stored.RequestParams.TokenSecret(), cb.Verifier)
	if err != nil {
		return nil, h.fail(err)
	}

	params := &oauthmodel.AccessParameters{
		ClientID:     a.shim.ClientID(),
		ClientSecret: a.shim.ClientSecret(),
		StateKey:     cb.State,
		Username:     stored.Username,
		AccessToken:  accessParams.Token(),
		TokenSecret:  accessParams.TokenSecret(),
	}
	params.SetAdditional(oauthmodel.OAuthVerifier, cb.Verifier)

	if loader, ok := a.shim.(AccessParametersLoader); ok {
		if r == nil {
			r = &http.Request{Method: http.MethodGet, URL: &url.URL{RawQuery: cb.Query.Encode()}}
		}
		if err := loader.LoadAdditionalAccessParameters(r, params); err != nil {
			return nil, h.fail(&shimerrors.Error{Kind: shimerrors.KindProviderProtocol, Op: op, Err: err})
		}
	}

	h.moveTo(AccessTokenObtained)
	h.logger.Info().Str("username", stored.Username).Msg("access token obtained")
	return oauthmodel.Authorized(params), nil
}

func (a *Authorizer) callbackURL(stateKey string) string {
	return a.callbackBaseURL + "/authorize/" + url.PathEscape(a.shim.ShimKey()) + "/callback?state=" + url.QueryEscape(stateKey)
}

func (a *Authorizer) authorizationURL(requestParams oauthmodel.TokenParameters) (string, error) {
	token := requestParams.Token()

	switch authorizeSigningOf(a.shim) {
	case Unsigned:
		u, err := url.Parse(a.shim.BaseAuthorizeURL())
		if err != nil {
			return "", err
		}
		q := u.Query()
		q.Set(oauthmodel.OAuthToken, token)
		u.RawQuery = q.Encode()
		return u.String(), nil
	case SignWithTokenOnly:
		u, err := a.signer.SignURL(a.shim.BaseAuthorizeURL(), token, "", nil)
		if err != nil {
			return "", err
		}
		return u.String(), nil
	default:
		u, err := a.signer.SignURL(a.shim.BaseAuthorizeURL(), token, requestParams.TokenSecret(), nil)
		if err != nil {
			return "", err
		}
		return u.String(), nil
	}
}

// handshake tracks the state of one handshake while a call moves it along.
type handshake struct {
	a      *Authorizer
	logger zerolog.Logger
	state  HandshakeState
}

func (a *Authorizer) startHandshake(logger zerolog.Logger) *handshake {
	h := &handshake{a: a, logger: logger, state: NotStarted}
	h.emit()
	return h
}

// resumeHandshake picks up a handshake at its callback.
func (a *Authorizer) resumeHandshake(logger zerolog.Logger) *handshake {
	return &handshake{a: a, logger: logger, state: AwaitingUserAuthorization}
}

func (h *handshake) moveTo(next HandshakeState) {
	if !h.state.CanTransitionTo(next) {
		h.logger.Error().
			Str("from", h.state.String()).
			Str("to", next.String()).
			Msg("invalid handshake transition")
		return
	}
	h.state = next
	h.emit()
}

func (h *handshake) emit() {
	h.logger.Debug().Str("handshake_state", h.state.String()).Msg("handshake transition")
	if h.a.observer != nil {
		h.a.observer.HandshakeTransition(h.a.shim.ShimKey(), h.state)
	}
}

func (h *handshake) fail(err error) error {
	h.logger.Warn().
		Str("kind", string(shimerrors.KindOf(err))).
		Err(err).
		Msg("handshake failed")
	h.moveTo(Failed)
	return err
}

func (a *Authorizer) observeTokenCall(step string, d time.Duration, err error) {
	if a.observer != nil {
		a.observer.TokenCall(a.shim.ShimKey(), step, d, err)
	}
}

func denial(q url.Values) string {
	for _, name := range denialParams {
		if v := q.Get(name); v != "" {
			return name + ": " + v
		}
	}
	return ""
}
