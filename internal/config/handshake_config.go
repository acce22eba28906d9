package config

import (
	"time"

	"github.com/ehealthMP/Omh-Schimmer/authstate"
	"github.com/ehealthMP/Omh-Schimmer/oauth1/tokenexchange"
)

type HandshakeConfig interface {
	GetStateTTL() time.Duration
	GetTokenHTTPTimeout() time.Duration
}

type Handshake struct{}

var _ HandshakeConfig = Handshake{}

// GetStateTTL is how long a started handshake waits for its callback.
func (Handshake) GetStateTTL() time.Duration {
	return GetDuration("STATE_TTL", authstate.DefaultTTL)
}

func (Handshake) GetTokenHTTPTimeout() time.Duration {
	return GetDuration("TOKEN_HTTP_TIMEOUT", tokenexchange.DefaultTimeout)
}
