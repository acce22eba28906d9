package server

import (
	"context"

	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
	"github.com/rs/zerolog"
)

// AuthorizedSink receives the access parameters of every completed
// handshake. Persisting them is up to the implementation.
type AuthorizedSink interface {
	Authorized(ctx context.Context, shimKey string, params *oauthmodel.AccessParameters) error
}

// SinkFunc adapts a function to AuthorizedSink.
type SinkFunc func(ctx context.Context, shimKey string, params *oauthmodel.AccessParameters) error

func (f SinkFunc) Authorized(ctx context.Context, shimKey string, params *oauthmodel.AccessParameters) error {
	return f(ctx, shimKey, params)
}

// LogSink only logs that an authorization completed; credentials are
// discarded.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Authorized(_ context.Context, shimKey string, params *oauthmodel.AccessParameters) error {
	s.Logger.Info().
		Str("shim", shimKey).
		Str("username", params.Username).
		Msg("authorization completed")
	return nil
}
