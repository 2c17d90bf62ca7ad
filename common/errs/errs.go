// Package errs defines the closed set of failure kinds surfaced by key
// derivation, detection and broadcasting. Callers switch on Kind instead of
// matching messages.
package errs

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindDerivation
	KindAccountNotFound
	KindNoCredential
	KindUserDeclined
	KindBroadcastRejected
	KindAuthExpired
	KindUnavailable
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindDerivation:        "derivation",
	KindAccountNotFound:   "account_not_found",
	KindNoCredential:      "no_credential",
	KindUserDeclined:      "user_declined",
	KindBroadcastRejected: "broadcast_rejected",
	KindAuthExpired:       "auth_expired",
	KindUnavailable:       "unavailable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Sentinels usable with errors.Is. Any *Error of the same kind matches.
var (
	ErrDerivation        = &Error{Kind: KindDerivation}
	ErrAccountNotFound   = &Error{Kind: KindAccountNotFound}
	ErrNoCredential      = &Error{Kind: KindNoCredential}
	ErrUserDeclined      = &Error{Kind: KindUserDeclined}
	ErrBroadcastRejected = &Error{Kind: KindBroadcastRejected}
	ErrAuthExpired       = &Error{Kind: KindAuthExpired}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
)

// Error carries a kind, the operation that failed and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Ef(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
