// Package core is the HTTP runtime of the identity provider: it owns the
// listening socket, the routing table and the live connections, and drives
// them from a single event loop goroutine.
package core

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/libreidp/libreidp/core/eventloop"
	"github.com/libreidp/libreidp/core/http"
	"github.com/libreidp/libreidp/core/pools"
	"github.com/libreidp/libreidp/core/router"
	"github.com/libreidp/libreidp/core/vector"
	"github.com/libreidp/libreidp/logging"
)

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger. Per-connection lines carry a "conn" attribute.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Core) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithParserConfig sets the request size limits.
func WithParserConfig(cfg http.ParserConfig) Option {
	return func(c *Core) { c.parserCfg = cfg }
}

// WithObserver installs an observer for connection and request events.
func WithObserver(o Observer) Option {
	return func(c *Core) {
		if o != nil {
			c.observer = o
		}
	}
}

// Core owns the listener, the routing table and the live connections.
//
// Lifecycle: New, AddPort, AddRoute..., Register (last), then the event loop
// runs; Shutdown once the loop has stopped. Everything after Register runs
// on the loop goroutine, so nothing here is locked.
type Core struct {
	logger    *slog.Logger
	parserCfg http.ParserConfig
	observer  Observer

	routes      *router.Table
	connections *vector.Vector[*Connection]
	buffers     *pools.BytePool

	port         int
	listenFd     int
	acceptPaused bool
	loop         *eventloop.Loop
	shutdown     bool
}

// New creates a Core with an empty routing table and no connections.
func New(opts ...Option) *Core {
	c := &Core{
		logger:    logging.Nop(),
		parserCfg: http.DefaultParserConfig(),
		observer:  nopObserver{},
		routes:    router.NewTable(),
		buffers:   pools.NewBytePool(),
		listenFd:  -1,
	}
	c.connections = vector.New(func(conn **Connection) {
		(*conn).teardown()
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddPort records the port to listen on. Only one port is supported; the
// last call before Register wins.
func (c *Core) AddPort(port int) {
	if c.loop != nil {
		c.logger.Warn("port change after register ignored", "port", port)
		return
	}
	c.port = port
}

// Port returns the configured port.
func (c *Core) Port() int { return c.port }

// AddRoute registers handler for an exact method and path. Any state the
// handler needs travels in its closure.
func (c *Core) AddRoute(method http.Method, path string, handler http.HandlerFunc) error {
	err := c.routes.Add(method, path, handler)
	switch {
	case err == nil:
		c.logger.Debug("route added", "method", method, "path", path)
		return nil
	case errors.Is(err, router.ErrPathExists):
		return &CoreError{Kind: KindPathExists, Message: method.String() + " " + path, Err: err}
	case errors.Is(err, router.ErrSealed):
		return &CoreError{Kind: KindRoutesSealed, Message: method.String() + " " + path, Err: err}
	default:
		return &CoreError{Kind: KindInvalidRoute, Message: method.String() + " " + path, Err: errors.Join(ErrInvalidRoute, err)}
	}
}

// Register binds 0.0.0.0:port, starts listening and installs the accept
// callback on loop. It must be the last setup call: the routing table is
// sealed and connections may be accepted as soon as the loop runs.
//
// On failure the Core stays fully constructed and Shutdown is still safe.
func (c *Core) Register(loop *eventloop.Loop) error {
	switch {
	case c.shutdown:
		return &CoreError{Kind: KindListenError, Message: "register", Err: ErrShutdown}
	case c.loop != nil:
		return &CoreError{Kind: KindListenError, Message: "register", Err: ErrRegistered}
	case c.port <= 0 || c.port > 65535:
		return &CoreError{Kind: KindListenError, Message: fmt.Sprintf("port %d", c.port), Err: ErrNoPort}
	}

	fd, err := listen(c.port)
	if err != nil {
		return &CoreError{Kind: KindListenError, Message: fmt.Sprintf("%s:%d", BindAddress, c.port), Err: err}
	}
	if err := loop.Watch(fd, acceptor{core: c}); err != nil {
		unix.Close(fd)
		return &CoreError{Kind: KindListenError, Message: "watch listener", Err: err}
	}

	c.listenFd = fd
	c.loop = loop
	c.routes.Seal()
	c.logger.Info("listening", "addr", fmt.Sprintf("%s:%d", BindAddress, c.port),
		"backlog", ListenBacklog, "routes", c.routes.Len())
	return nil
}

// Shutdown closes the listener and every live connection and drops all
// routes. It is safe to call on a Core that never registered, and more than once.
func (c *Core) Shutdown() {
	if c.shutdown {
		return
	}
	c.shutdown = true

	if c.listenFd >= 0 {
		if c.loop != nil {
			c.loop.Unwatch(c.listenFd)
		}
		unix.Close(c.listenFd)
		c.listenFd = -1
	}
	open := c.connections.Len()
	c.connections.Clear()
	c.routes.Clear()
	c.logger.Info("core shut down", "closed_connections", open)
}

// openConnection allocates a Context for an accepted socket and starts
// reading. If the socket cannot be watched it is closed and nothing is kept.
func (c *Core) openConnection(fd int) {
	conn := newConnection(c, fd)
	if err := c.loop.Watch(fd, conn); err != nil {
		c.logger.Warn("dropping accepted connection", "error", err)
		unix.Close(fd)
		conn.release()
		return
	}

	conn.slot = c.connections.Len()
	*c.connections.Reserve() = conn
	conn.state = StateReading
	c.observer.ConnectionOpened()
	c.logger.Debug("connection accepted", "conn", conn.id, "fd", fd)
}

// closeConnection removes conn from the live set; the vector's destructor
// tears it down. A freed descriptor re-arms a paused listener.
func (c *Core) closeConnection(conn *Connection) {
	if conn.state == StateClosed {
		return
	}
	slot := conn.slot
	c.connections.Remove(slot)
	if moved, ok := c.connections.Get(slot); ok {
		(*moved).slot = slot
	}
	c.resumeAccept()
}

// dispatch routes a completed request and starts writing the response.
func (c *Core) dispatch(conn *Connection) {
	conn.state = StateRouting
	if err := c.routes.Dispatch(conn.request, conn); err != nil {
		c.observer.HandlerFailed()
		c.logger.Error("handler failed",
			"conn", conn.id,
			"method", conn.request.Method().String(),
			"path", conn.request.Path(),
			"error", err)
		c.closeConnection(conn)
		return
	}
	c.observer.RequestServed(conn.request.Method(), conn.response.Status())
	conn.startWrite()
}

// Stats is a point-in-time view of the core.
type Stats struct {
	Connections int
	Routes      int
	Buffers     pools.BytePoolStats
}

// Stats returns current counters. Call it from the loop goroutine or after
// the loop has stopped.
func (c *Core) Stats() Stats {
	return Stats{
		Connections: c.connections.Len(),
		Routes:      c.routes.Len(),
		Buffers:     c.buffers.Stats(),
	}
}
