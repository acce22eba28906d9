package shim

// HandshakeState is the position of one handshake in its lifecycle.
type HandshakeState int

const (
	NotStarted HandshakeState = iota
	RequestTokenObtained
	AwaitingUserAuthorization
	AccessTokenObtained
	Failed
)

var handshakeStateNames = map[HandshakeState]string{
	NotStarted:                "not_started",
	RequestTokenObtained:      "request_token_obtained",
	AwaitingUserAuthorization: "awaiting_user_authorization",
	AccessTokenObtained:       "access_token_obtained",
	Failed:                    "failed",
}

func (s HandshakeState) String() string {
	if name, ok := handshakeStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition can follow s.
func (s HandshakeState) Terminal() bool {
	return s == AccessTokenObtained || s == Failed
}

// CanTransitionTo reports whether next may follow s. Any non-terminal state
// can fail.
func (s HandshakeState) CanTransitionTo(next HandshakeState) bool {
	if s.Terminal() {
		return false
	}
	if next == Failed {
		return true
	}
	return next == s+1
}
