package oauthmodel

// ResponseType tags the outcome of a callback.
type ResponseType string

const (
	// AuthorizedResponse carries AccessParameters.
	AuthorizedResponse ResponseType = "authorized"

	// PendingResponse is for providers that need another step before access
	// is granted.
	PendingResponse ResponseType = "pending"

	// ErrorResponse reports a provider-declared failure, e.g. the user
	// denied access on the authorize page.
	ErrorResponse ResponseType = "error"
)

// AuthorizationResponse is the result of handling a callback.
type AuthorizationResponse struct {
	Type             ResponseType      `json:"type"`
	AccessParameters *AccessParameters `json:"accessParameters,omitempty"`
	Details          string            `json:"details,omitempty"`
}

func Authorized(params *AccessParameters) *AuthorizationResponse {
	return &AuthorizationResponse{Type: AuthorizedResponse, AccessParameters: params}
}

func Pending(details string) *AuthorizationResponse {
	return &AuthorizationResponse{Type: PendingResponse, Details: details}
}

func Failed(details string) *AuthorizationResponse {
	return &AuthorizationResponse{Type: ErrorResponse, Details: details}
}

// IsAuthorized reports whether r carries usable access parameters.
func (r *AuthorizationResponse) IsAuthorized() bool {
	return r != nil && r.Type == AuthorizedResponse && r.AccessParameters != nil
}
