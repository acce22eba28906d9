package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of the authorization workflow so callers can
// branch on it without inspecting message strings.
type Kind string

const (
	KindUnknown          Kind = "unknown"
	KindSigning          Kind = "signing"
	KindTokenExchange    Kind = "token_exchange"
	KindInvalidState     Kind = "invalid_state"
	KindProviderProtocol Kind = "provider_protocol"
	KindInvalidRequest   Kind = "invalid_request"
	KindConfiguration    Kind = "configuration"
	KindStateStore       Kind = "state_store"
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	// Missing or invalid client / token credentials while signing.
	ErrSigning = errors.New("signing error")

	// Network failure, timeout, non-2xx response or undecodable body from a token endpoint.
	ErrTokenExchange = errors.New("token exchange error")

	// Unknown, expired or already consumed state key on callback.
	ErrInvalidState = errors.New("invalid state")

	// Provider response or callback missing required OAuth fields.
	ErrProviderProtocol = errors.New("provider protocol error")

	// Caller supplied unusable input, such as an empty username.
	ErrInvalidRequest = errors.New("invalid request")

	// Integration is misconfigured (missing endpoint, unknown signature method).
	ErrConfiguration = errors.New("configuration error")

	// Handshake state store unavailable (not a miss, which is ErrInvalidState).
	ErrStateStore = errors.New("state store error")
)

var sentinels = map[Kind]error{
	KindSigning:          ErrSigning,
	KindTokenExchange:    ErrTokenExchange,
	KindInvalidState:     ErrInvalidState,
	KindProviderProtocol: ErrProviderProtocol,
	KindInvalidRequest:   ErrInvalidRequest,
	KindConfiguration:    ErrConfiguration,
	KindStateStore:       ErrStateStore,
}

// Error is the single reportable failure type of the shim layer. It carries
// the failure kind, the operation that failed and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := sentinels[e.Kind]
	return ok && sentinel == target
}

// New creates an *Error of the given kind with a formatted cause.
func New(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap wraps err as an *Error of the given kind. An existing *Error in err's
// chain keeps its kind so the most specific classification wins.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		kind = existing.Kind
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
