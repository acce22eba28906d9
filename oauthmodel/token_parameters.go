package oauthmodel

// OAuth 1.0a protocol parameter names.
const (
	OAuthCallback        = "oauth_callback"
	OAuthCallbackConfirm = "oauth_callback_confirmed"
	OAuthConsumerKey     = "oauth_consumer_key"
	OAuthNonce           = "oauth_nonce"
	OAuthSignature       = "oauth_signature"
	OAuthSignatureMethod = "oauth_signature_method"
	OAuthTimestamp       = "oauth_timestamp"
	OAuthToken           = "oauth_token"
	OAuthTokenSecret     = "oauth_token_secret"
	OAuthVerifier        = "oauth_verifier"
	OAuthVersion         = "oauth_version"
)

// ClientCredentials identifies an integration to its provider.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// TokenParameters holds the decoded key/value pairs returned by a provider's
// request-token or access-token endpoint.
type TokenParameters map[string]string

// Token returns the oauth_token value.
func (p TokenParameters) Token() string {
	return p[OAuthToken]
}

// TokenSecret returns the oauth_token_secret value.
func (p TokenParameters) TokenSecret() string {
	return p[OAuthTokenSecret]
}

// Has reports whether key is present with a non-empty value.
func (p TokenParameters) Has(key string) bool {
	return p[key] != ""
}

// Clone returns a copy that shares no storage with p.
func (p TokenParameters) Clone() TokenParameters {
	if p == nil {
		return nil
	}
	c := make(TokenParameters, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Public returns a copy without the token secret, suitable for a browser.
func (p TokenParameters) Public() TokenParameters {
	c := p.Clone()
	delete(c, OAuthTokenSecret)
	return c
}
