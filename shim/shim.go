// Package shim defines the contract a provider integration implements and the
// Authorizer that drives the OAuth 1.0a handshake for it.
package shim

import (
	"net/http"

	shimerrors "github.com/ehealthMP/Omh-Schimmer/internal/errors"
	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
)

// Errors returned by the Authorizer, matched with errors.Is.
var (
	ErrSigning          = shimerrors.ErrSigning
	ErrTokenExchange    = shimerrors.ErrTokenExchange
	ErrInvalidState     = shimerrors.ErrInvalidState
	ErrProviderProtocol = shimerrors.ErrProviderProtocol
	ErrInvalidRequest   = shimerrors.ErrInvalidRequest
	ErrConfiguration    = shimerrors.ErrConfiguration
	ErrStateStore       = shimerrors.ErrStateStore
)

// Shim describes one OAuth1 provider integration.
type Shim interface {
	// ShimKey is the unique, URL-safe name of the integration, e.g. "withings"
	ShimKey() string

	BaseRequestTokenURL() string
	BaseAuthorizeURL() string
	BaseTokenURL() string

	ClientID() string
	ClientSecret() string

	// RequestTokenMethod is http.MethodGet or http.MethodPost
	RequestTokenMethod() string

	// AccessTokenMethod is http.MethodGet or http.MethodPost
	AccessTokenMethod() string
}

// AccessParametersLoader is implemented by shims that need to copy extra
// values from the callback request into the access parameters, e.g. a
// provider user id. Returning an error fails the callback.
type AccessParametersLoader interface {
	LoadAdditionalAccessParameters(r *http.Request, params *oauthmodel.AccessParameters) error
}

// AuthorizeURLSigner is implemented by shims whose provider expects the
// authorize URL to be signed differently from the default.
type AuthorizeURLSigner interface {
	AuthorizeURLSigning() AuthorizeSigning
}

// AuthorizeSigning selects how the user-facing authorize URL is built.
type AuthorizeSigning string

const (
	// SignWithTokenAndSecret signs the authorize URL with the request token
	// and its secret.
	SignWithTokenAndSecret AuthorizeSigning = "token_and_secret"

	// SignWithTokenOnly signs with the request token and an empty secret.
	SignWithTokenOnly AuthorizeSigning = "token_only"

	// Unsigned appends only oauth_token, as RFC 5849 section 2.2 describes.
	Unsigned AuthorizeSigning = "unsigned"
)

// Valid reports whether s is a known mode. The zero value is valid and means
// SignWithTokenAndSecret.
func (s AuthorizeSigning) Valid() bool {
	switch s {
	case "", SignWithTokenAndSecret, SignWithTokenOnly, Unsigned:
		return true
	}
	return false
}

func authorizeSigningOf(s Shim) AuthorizeSigning {
	if signer, ok := s.(AuthorizeURLSigner); ok {
		if mode := signer.AuthorizeURLSigning(); mode != "" {
			return mode
		}
	}
	return SignWithTokenAndSecret
}
