package oauthmodel

import (
	"net/url"
	"time"
)

// AuthorizationRequestParameters is the in-flight state of one handshake.
// It is created by initiation, stored under StateKey and consumed once by the
// callback.
type AuthorizationRequestParameters struct {
	// Username is the platform user the handshake is performed for.
	Username string `json:"username"`

	// ShimKey names the provider integration that started the handshake.
	ShimKey string `json:"shimKey"`

	// StateKey is the unguessable correlation id carried through the
	// provider redirect as the "state" query parameter.
	StateKey string `json:"stateKey"`

	// RedirectURI is the callback URL registered with the request token.
	RedirectURI string `json:"redirectUri"`

	// HTTPMethod is the method the caller must use to send the user to
	// AuthorizationURL. Always GET for OAuth1 authorize pages.
	HTTPMethod string `json:"httpMethod"`

	// AuthorizationURL is the provider's authorize page, carrying the
	// request token. The caller redirects the user here.
	AuthorizationURL string `json:"authorizationUrl"`

	// RequestParams is the request-token response. It contains the token
	// secret and must never reach the browser; see Public.
	RequestParams TokenParameters `json:"requestParams"`

	// AdditionalParameters are caller supplied values kept with the handshake.
	AdditionalParameters map[string]string `json:"additionalParameters,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a deep copy of p.
func (p *AuthorizationRequestParameters) Clone() *AuthorizationRequestParameters {
	if p == nil {
		return nil
	}
	c := *p
	c.RequestParams = p.RequestParams.Clone()
	if p.AdditionalParameters != nil {
		c.AdditionalParameters = make(map[string]string, len(p.AdditionalParameters))
		for k, v := range p.AdditionalParameters {
			c.AdditionalParameters[k] = v
		}
	}
	return &c
}

// Public returns a copy with the request token secret removed.
func (p *AuthorizationRequestParameters) Public() *AuthorizationRequestParameters {
	c := p.Clone()
	if c != nil {
		c.RequestParams = c.RequestParams.Public()
	}
	return c
}

// AccessParameters is the credential bundle produced by a completed
// handshake. A shim signs its API calls with it.
type AccessParameters struct {
	ClientID             string         `json:"clientId"`
	ClientSecret         string         `json:"clientSecret"`
	StateKey             string         `json:"stateKey"`
	Username             string         `json:"username"`
	AccessToken          string         `json:"accessToken"`
	TokenSecret          string         `json:"tokenSecret"`
	AdditionalParameters map[string]any `json:"additionalParameters,omitempty"`
}

// SetAdditional stores an extra value, allocating the map on first use.
func (p *AccessParameters) SetAdditional(key string, value any) {
	if p.AdditionalParameters == nil {
		p.AdditionalParameters = make(map[string]any)
	}
	p.AdditionalParameters[key] = value
}

// CallbackParameters are the values a provider sends back to the callback URL.
type CallbackParameters struct {
	State    string
	Token    string
	Verifier string

	// Query holds every parameter of the callback for provider hooks.
	Query url.Values
}

// CallbackParametersFromQuery extracts the OAuth1 callback fields.
func CallbackParametersFromQuery(q url.Values) CallbackParameters {
	return CallbackParameters{
		State:    q.Get("state"),
		Token:    q.Get(OAuthToken),
		Verifier: q.Get(OAuthVerifier),
		Query:    q,
	}
}
