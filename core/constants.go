package core

import "errors"

const (
	// ListenBacklog is the pending-connection queue length of the listener.
	ListenBacklog = 10

	// BindAddress is the address the listener binds to.
	BindAddress = "0.0.0.0"
)

var (
	ErrNoPort       = errors.New("no port configured")
	ErrRegistered   = errors.New("core already registered with an event loop")
	ErrShutdown     = errors.New("core has been shut down")
	ErrInvalidRoute = errors.New("invalid route")
)
