package oauthmodel_test

import (
	"net/url"
	"testing"

	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationRequestParameters_PublicHidesSecret(t *testing.T) {
	params := &oauthmodel.AuthorizationRequestParameters{
		Username: "alice",
		StateKey: "state-1",
		RequestParams: oauthmodel.TokenParameters{
			oauthmodel.OAuthToken:       "rt1",
			oauthmodel.OAuthTokenSecret: "rts1",
		},
		AdditionalParameters: map[string]string{"origin": "app"},
	}

	public := params.Public()

	require.Equal(t, "rt1", public.RequestParams.Token())
	require.False(t, public.RequestParams.Has(oauthmodel.OAuthTokenSecret))
	require.Equal(t, "rts1", params.RequestParams.TokenSecret(), "original must be untouched")
}

func TestAuthorizationRequestParameters_CloneIsDeep(t *testing.T) {
	params := &oauthmodel.AuthorizationRequestParameters{
		RequestParams:        oauthmodel.TokenParameters{oauthmodel.OAuthToken: "rt1"},
		AdditionalParameters: map[string]string{"k": "v"},
	}

	c := params.Clone()
	c.RequestParams[oauthmodel.OAuthToken] = "changed"
	c.AdditionalParameters["k"] = "changed"

	require.Equal(t, "rt1", params.RequestParams.Token())
	require.Equal(t, "v", params.AdditionalParameters["k"])

	var nilParams *oauthmodel.AuthorizationRequestParameters
	require.Nil(t, nilParams.Clone())
}

func TestCallbackParametersFromQuery(t *testing.T) {
	q, err := url.ParseQuery("state=s1&oauth_token=rt1&oauth_verifier=v1&userid=42")
	require.NoError(t, err)

	cb := oauthmodel.CallbackParametersFromQuery(q)

	require.Equal(t, "s1", cb.State)
	require.Equal(t, "rt1", cb.Token)
	require.Equal(t, "v1", cb.Verifier)
	require.Equal(t, "42", cb.Query.Get("userid"))
}

func TestAuthorizationResponse(t *testing.T) {
	require.True(t, oauthmodel.Authorized(&oauthmodel.AccessParameters{}).IsAuthorized())
	require.False(t, oauthmodel.Authorized(nil).IsAuthorized())
	require.False(t, oauthmodel.Pending("confirm email").IsAuthorized())
	require.Equal(t, oauthmodel.ErrorResponse, oauthmodel.Failed("denied").Type)
}
