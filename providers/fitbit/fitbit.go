// Package fitbit is the Fitbit OAuth1 integration.
package fitbit

import (
	"net/http"

	"github.com/ehealthMP/Omh-Schimmer/shim"
)

const (
	ShimKey = "fitbit"

	DefaultRequestTokenURL = "https://api.fitbit.com/oauth/request_token"
	DefaultAuthorizeURL    = "https://www.fitbit.com/oauth/authorize"
	DefaultAccessTokenURL  = "https://api.fitbit.com/oauth/access_token"
)

// Shim talks to Fitbit, which requires POST for both token calls and takes
// the request token unsigned on its authorize page.
type Shim struct {
	*shim.ConfiguredShim
}

// New creates the Fitbit shim. The token methods are always POST; endpoints
// and authorize signing left empty in cfg use the Fitbit defaults.
func New(cfg shim.ProviderConfig) (*Shim, error) {
	if cfg.Key == "" {
		cfg.Key = ShimKey
	}
	if cfg.RequestTokenURL == "" {
		cfg.RequestTokenURL = DefaultRequestTokenURL
	}
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = DefaultAuthorizeURL
	}
	if cfg.AccessTokenURL == "" {
		cfg.AccessTokenURL = DefaultAccessTokenURL
	}
	if cfg.AuthorizeSigning == "" {
		cfg.AuthorizeSigning = shim.Unsigned
	}
	cfg.RequestTokenMethod = http.MethodPost
	cfg.AccessTokenMethod = http.MethodPost

	configured, err := shim.NewConfiguredShim(cfg)
	if err != nil {
		return nil, err
	}
	return &Shim{ConfiguredShim: configured}, nil
}
