package oauth1

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	shimerrors "github.com/ehealthMP/Omh-Schimmer/internal/errors"
	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
)

const (
	oauthVersion = "1.0"
	formMimeType = "application/x-www-form-urlencoded"
	nonceLength  = 16
)

// reserved parameters are generated by the signer and cannot be supplied as extras
var reserved = map[string]struct{}{
	oauthmodel.OAuthConsumerKey:     {},
	oauthmodel.OAuthNonce:           {},
	oauthmodel.OAuthSignature:       {},
	oauthmodel.OAuthSignatureMethod: {},
	oauthmodel.OAuthTimestamp:       {},
	oauthmodel.OAuthToken:           {},
	oauthmodel.OAuthVersion:         {},
}

// Signer signs OAuth 1.0a requests for one set of client credentials.
// It is safe for concurrent use.
type Signer struct {
	creds   oauthmodel.ClientCredentials
	method  SignatureMethod
	nonce   func() (string, error)
	nowTime func() time.Time
	realm   string
}

// SignerOption defines a function type to modify the Signer instance.
type SignerOption func(*Signer)

// WithSignatureMethod sets the signature method (default HMAC-SHA1)
func WithSignatureMethod(m SignatureMethod) SignerOption {
	return func(s *Signer) {
		if m != nil {
			s.method = m
		}
	}
}

// WithNonceFunc replaces the random nonce generator (primarily for testing)
func WithNonceFunc(f func() (string, error)) SignerOption {
	return func(s *Signer) {
		s.nonce = f
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) SignerOption {
	return func(s *Signer) {
		s.nowTime = nowFunc
	}
}

// WithRealm sets the realm sent in Authorization headers
func WithRealm(realm string) SignerOption {
	return func(s *Signer) {
		s.realm = realm
	}
}

// NewSigner creates a Signer. Both the client id and secret are required.
func NewSigner(creds oauthmodel.ClientCredentials, options ...SignerOption) (*Signer, error) {
	if creds.ClientID == "" {
		return nil, shimerrors.New(shimerrors.KindSigning, "NewSigner", "client id is required")
	}
	if creds.ClientSecret == "" {
		return nil, shimerrors.New(shimerrors.KindSigning, "NewSigner", "client secret is required")
	}

	s := &Signer{
		creds:   creds,
		method:  HMACSHA1{},
		nonce:   randomNonce,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// ClientID returns the oauth_consumer_key used by the signer.
func (s *Signer) ClientID() string {
	return s.creds.ClientID
}

// SignatureMethod returns the configured method.
func (s *Signer) SignatureMethod() SignatureMethod {
	return s.method
}

func randomNonce() (string, error) {
	b := make([]byte, nonceLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Sign computes the OAuth protocol parameters, including oauth_signature, for
// a request to rawURL with the given form body parameters. token and
// tokenSecret may both be empty (request-token step); a secret without a
// token is rejected. extra holds additional oauth parameters such as
// oauth_callback or oauth_verifier.
func (s *Signer) Sign(method, rawURL string, form url.Values, token, tokenSecret string, extra map[string]string) (url.Values, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, shimerrors.New(shimerrors.KindSigning, "Sign", "invalid url %q: %v", rawURL, err)
	}
	if !u.IsAbs() {
		return nil, shimerrors.New(shimerrors.KindSigning, "Sign", "url %q is not absolute", rawURL)
	}
	return s.sign(method, u, form, token, tokenSecret, extra)
}

func (s *Signer) sign(method string, u *url.URL, form url.Values, token, tokenSecret string, extra map[string]string) (url.Values, error) {
	if token == "" && tokenSecret != "" {
		return nil, shimerrors.New(shimerrors.KindSigning, "Sign", "token secret supplied without a token")
	}

	oauthParams, err := s.protocolParameters(token, extra)
	if err != nil {
		return nil, err
	}

	all := url.Values{}
	mergeValues(all, u.Query())
	mergeValues(all, form)
	mergeValues(all, oauthParams)

	base := BaseString(method, u, all)
	key := PercentEncode(s.creds.ClientSecret) + "&" + PercentEncode(tokenSecret)
	signature, err := s.method.Sign(base, key)
	if err != nil {
		return nil, shimerrors.Wrap(shimerrors.KindSigning, "Sign", err)
	}
	oauthParams.Set(oauthmodel.OAuthSignature, signature)
	return oauthParams, nil
}

func (s *Signer) protocolParameters(token string, extra map[string]string) (url.Values, error) {
	nonce, err := s.nonce()
	if err != nil {
		return nil, shimerrors.New(shimerrors.KindSigning, "Sign", "failed to generate nonce: %v", err)
	}

	params := url.Values{}
	params.Set(oauthmodel.OAuthConsumerKey, s.creds.ClientID)
	params.Set(oauthmodel.OAuthNonce, nonce)
	params.Set(oauthmodel.OAuthSignatureMethod, s.method.Name())
	params.Set(oauthmodel.OAuthTimestamp, strconv.FormatInt(s.nowTime().Unix(), 10))
	params.Set(oauthmodel.OAuthVersion, oauthVersion)
	if token != "" {
		params.Set(oauthmodel.OAuthToken, token)
	}
	for k, v := range extra {
		if _, ok := reserved[k]; ok {
			return nil, shimerrors.New(shimerrors.KindSigning, "Sign", "parameter %s is set by the signer", k)
		}
		params.Set(k, v)
	}
	return params, nil
}

// SignURL signs a GET to rawURL and returns the URL with the oauth parameters
// and signature added to its query.
func (s *Signer) SignURL(rawURL, token, tokenSecret string, extra map[string]string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return nil, shimerrors.New(shimerrors.KindSigning, "SignURL", "invalid url %q", rawURL)
	}
	oauthParams, err := s.sign(http.MethodGet, u, nil, token, tokenSecret, extra)
	if err != nil {
		return nil, err
	}

	signed := *u
	q := u.Query()
	mergeValues(q, oauthParams)
	signed.RawQuery = q.Encode()
	return &signed, nil
}

// SignedGetRequest returns a GET request whose URL carries the signature.
func (s *Signer) SignedGetRequest(ctx context.Context, rawURL, token, tokenSecret string, extra map[string]string) (*http.Request, error) {
	u, err := s.SignURL(rawURL, token, tokenSecret, extra)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, shimerrors.Wrap(shimerrors.KindSigning, "SignedGetRequest", err)
	}
	return req, nil
}

// SignedPostRequest returns a POST request with the oauth parameters and the
// signature in a form-encoded body. Query parameters stay on the URL and are
// part of the signature.
func (s *Signer) SignedPostRequest(ctx context.Context, rawURL, token, tokenSecret string, extra map[string]string) (*http.Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return nil, shimerrors.New(shimerrors.KindSigning, "SignedPostRequest", "invalid url %q", rawURL)
	}
	oauthParams, err := s.sign(http.MethodPost, u, nil, token, tokenSecret, extra)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(oauthParams.Encode()))
	if err != nil {
		return nil, shimerrors.Wrap(shimerrors.KindSigning, "SignedPostRequest", err)
	}
	req.Header.Set("Content-Type", formMimeType)
	return req, nil
}

// SignedRequest dispatches on method: GET signs the URL, POST signs the body.
func (s *Signer) SignedRequest(ctx context.Context, method, rawURL, token, tokenSecret string, extra map[string]string) (*http.Request, error) {
	switch strings.ToUpper(method) {
	case "", http.MethodGet:
		return s.SignedGetRequest(ctx, rawURL, token, tokenSecret, extra)
	case http.MethodPost:
		return s.SignedPostRequest(ctx, rawURL, token, tokenSecret, extra)
	default:
		return nil, shimerrors.New(shimerrors.KindConfiguration, "SignedRequest", "unsupported token request method %s", method)
	}
}

// AuthorizeRequest signs an arbitrary request in place using the
// Authorization header. A form-encoded body is read, included in the
// signature and restored.
func (s *Signer) AuthorizeRequest(req *http.Request, token, tokenSecret string) error {
	if req.URL == nil || !req.URL.IsAbs() {
		return shimerrors.New(shimerrors.KindSigning, "AuthorizeRequest", "request url must be absolute")
	}

	form, err := readForm(req)
	if err != nil {
		return shimerrors.Wrap(shimerrors.KindSigning, "AuthorizeRequest", err)
	}

	oauthParams, err := s.sign(req.Method, req.URL, form, token, tokenSecret, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", authorizationHeader(s.realm, oauthParams))
	return nil
}

func readForm(req *http.Request) (url.Values, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if mediaType != formMimeType {
		return nil, nil
	}

	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.ContentLength = int64(len(body))

	return url.ParseQuery(string(body))
}

func authorizationHeader(realm string, oauthParams url.Values) string {
	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	if realm != "" {
		parts = append(parts, `realm="`+PercentEncode(realm)+`"`)
	}
	for _, k := range keys {
		parts = append(parts, PercentEncode(k)+`="`+PercentEncode(oauthParams.Get(k))+`"`)
	}
	return "OAuth " + strings.Join(parts, ", ")
}
