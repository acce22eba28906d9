// Package withings is the Withings OAuth1 integration.
package withings

import (
	"net/http"

	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
	"github.com/ehealthMP/Omh-Schimmer/shim"
	"github.com/pkg/errors"
)

const (
	ShimKey = "withings"

	DefaultRequestTokenURL = "https://oauth.withings.com/account/request_token"
	DefaultAuthorizeURL    = "https://oauth.withings.com/account/authorize"
	DefaultAccessTokenURL  = "https://oauth.withings.com/account/access_token"

	// UserIDParam is the callback parameter carrying the Withings user id;
	// every Withings API call needs it alongside the access token.
	UserIDParam = "userid"
)

// Shim talks to Withings with GET token calls and a signed authorize URL.
type Shim struct {
	*shim.ConfiguredShim
}

var _ shim.AccessParametersLoader = (*Shim)(nil)

// New creates the Withings shim. Endpoints left empty in cfg use the
// Withings defaults.
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

	configured, err := shim.NewConfiguredShim(cfg)
	if err != nil {
		return nil, err
	}
	return &Shim{ConfiguredShim: configured}, nil
}

// LoadAdditionalAccessParameters copies the Withings user id from the
// callback into the access parameters.
func (s *Shim) LoadAdditionalAccessParameters(r *http.Request, params *oauthmodel.AccessParameters) error {
	userID := r.URL.Query().Get(UserIDParam)
	if userID == "" {
		return errors.New("[LoadAdditionalAccessParameters] withings callback is missing userid")
	}
	params.SetAdditional(UserIDParam, userID)
	return nil
}
