package oauth1

import (
	"net/http"

	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
)

// Transport is an http.RoundTripper that signs every outgoing request with
// the Authorization header using an access token pair.
type Transport struct {
	Signer      *Signer
	Token       string
	TokenSecret string

	// Base is the underlying RoundTripper; http.DefaultTransport when nil.
	Base http.RoundTripper
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip signs a clone of req and sends it.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	signed := req.Clone(req.Context())
	if err := t.Signer.AuthorizeRequest(signed, t.Token, t.TokenSecret); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	return t.base().RoundTrip(signed)
}

// NewClient returns an *http.Client that signs requests with token and tokenSecret.
func NewClient(signer *Signer, token, tokenSecret string) *http.Client {
	return &http.Client{
		Transport: &Transport{
			Signer:      signer,
			Token:       token,
			TokenSecret: tokenSecret,
		},
	}
}

// NewClientForAccess returns an *http.Client for API calls on behalf of the
// user a completed handshake produced params for.
func NewClientForAccess(params *oauthmodel.AccessParameters, options ...SignerOption) (*http.Client, error) {
	signer, err := NewSigner(oauthmodel.ClientCredentials{
		ClientID:     params.ClientID,
		ClientSecret: params.ClientSecret,
	}, options...)
	if err != nil {
		return nil, err
	}
	return NewClient(signer, params.AccessToken, params.TokenSecret), nil
}
