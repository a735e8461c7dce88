package core

import "fmt"

// ErrorKind classifies a CoreError.
type ErrorKind uint8

const (
	// KindPathExists: a route with the same method and path is registered.
	KindPathExists ErrorKind = iota + 1
	// KindListenError: the listening socket could not be set up.
	KindListenError
	// KindRoutesSealed: routes were added after Register.
	KindRoutesSealed
	// KindInvalidRoute: the route itself is malformed.
	KindInvalidRoute
)

func (k ErrorKind) String() string {
	switch k {
	case KindPathExists:
		return "path exists"
	case KindListenError:
		return "listen error"
	case KindRoutesSealed:
		return "routes sealed"
	case KindInvalidRoute:
		return "invalid route"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// CoreError is returned by the setup API (AddRoute, Register).
type CoreError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err == nil {
		return e.Kind.String() + ": " + e.Message
	}
	return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
}

func (e *CoreError) Unwrap() error { return e.Err }
