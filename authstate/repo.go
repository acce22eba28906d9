// Package authstate stores the in-flight parameters of OAuth1 handshakes
// between initiation and callback, keyed by state key.
package authstate

import (
	"context"
	"errors"
	"time"

	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
)

// DefaultTTL is how long an abandoned handshake stays reachable.
const DefaultTTL = 10 * time.Minute

var (
	// ErrNotFound is returned for unknown, expired or consumed state keys.
	ErrNotFound = errors.New("handshake state not found")

	errEmptyState = errors.New("state cannot be empty")
	errNilParams  = errors.New("authorization parameters cannot be nil")
)

// Repo is the handshake state store. Implementations must be safe for
// concurrent use and must copy values in and out.
type Repo interface {
	// Put stores params under stateKey for the repo's time-to-live
	Put(ctx context.Context, stateKey string, params *oauthmodel.AuthorizationRequestParameters) error

	// Get returns the live entry for stateKey without consuming it
	Get(ctx context.Context, stateKey string) (*oauthmodel.AuthorizationRequestParameters, error)

	// Take atomically returns and removes the entry, so a state key can be
	// consumed at most once
	Take(ctx context.Context, stateKey string) (*oauthmodel.AuthorizationRequestParameters, error)

	// Delete removes the entry; deleting a missing key is not an error
	Delete(ctx context.Context, stateKey string) error

	// Close releases background resources
	Close() error
}

func validate(stateKey string, params *oauthmodel.AuthorizationRequestParameters) error {
	if stateKey == "" {
		return errEmptyState
	}
	if params == nil {
		return errNilParams
	}
	return nil
}
