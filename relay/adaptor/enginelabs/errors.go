package enginelabs

import (
	"github.com/Laisky/errors/v2"
)

// ErrorKind classifies bridge failures. Only KindConfiguration is process-fatal;
// every other kind is request scoped and ends the stream with an error chunk.
type ErrorKind string

const (
	KindConfiguration         ErrorKind = "ConfigurationError"
	KindAuthenticationFailed  ErrorKind = "AuthenticationFailed"
	KindUpstreamTriggerFailed ErrorKind = "UpstreamTriggerFailed"
	KindChannel               ErrorKind = "ChannelError"
	KindDecode                ErrorKind = "DecodeError"
)

// Error carries a kind and the underlying cause.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// IsKind reports whether any error in err's chain is a bridge *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
