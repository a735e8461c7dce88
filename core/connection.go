package core

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/libreidp/libreidp/core/http"
)

// ConnState is the position of a connection in its lifecycle.
type ConnState uint8

// Connection states
const (
	StateAccepted ConnState = iota
	StateReading
	StateParsing
	StateComplete
	StateRouting
	StateWriting
	StateClosed
)

var stateNames = [...]string{
	StateAccepted: "accepted",
	StateReading:  "reading",
	StateParsing:  "parsing",
	StateComplete: "complete",
	StateRouting:  "routing",
	StateWriting:  "writing",
	StateClosed:   "closed",
}

func (s ConnState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// writeRequest is a serialized response waiting to reach the socket.
type writeRequest struct {
	buf []byte
	off int
}

var writeRequestPool = sync.Pool{
	New: func() any { return &writeRequest{} },
}

// Connection is the per-connection context: it owns the parser, the request
// being assembled and the pending response. It implements http.Context for
// handlers, http.ParserHooks for the parser and eventloop.Watcher for the loop.
type Connection struct {
	id    string
	fd    int
	slot  int
	state ConnState
	core  *Core

	parser    *http.Parser
	request   *http.Request
	response  *http.Response
	ownership http.Ownership
	write     *writeRequest
}

func newConnection(core *Core, fd int) *Connection {
	c := &Connection{
		id:      uuid.NewString(),
		fd:      fd,
		slot:    -1,
		state:   StateAccepted,
		core:    core,
		request: http.AcquireRequest(),
	}
	c.parser = http.NewParser(c, core.parserCfg)
	return c
}

// ID returns the connection id used in logs.
func (c *Connection) ID() string { return c.id }

// State returns the lifecycle state.
func (c *Connection) State() ConnState { return c.state }

// SetResponse attaches resp. A previously attached response owned by the
// core is released.
func (c *Connection) SetResponse(resp *http.Response, ownership http.Ownership) {
	if c.response != nil && c.response != resp && c.ownership == http.Owning {
		c.response.Release()
	}
	c.response = resp
	c.ownership = ownership
}

// SetResponseOwnership changes who releases the attached response.
func (c *Connection) SetResponseOwnership(ownership http.Ownership) {
	c.ownership = ownership
}

// Response returns the attached response.
func (c *Connection) Response() *http.Response { return c.response }

// Parser hooks

func (c *Connection) OnURL(data []byte) error {
	c.request.AppendURL(data)
	return nil
}

func (c *Connection) OnHeaderField(data []byte) error {
	c.request.AppendHeaderField(data)
	return nil
}

func (c *Connection) OnHeaderValue(data []byte) error {
	c.request.AppendHeaderValue(data)
	return nil
}

func (c *Connection) OnHeadersComplete() error {
	c.request.EndHeaders()
	c.request.SetMethod(c.parser.Method())
	return nil
}

func (c *Connection) OnBody(data []byte) error {
	c.request.AppendBody(data)
	return nil
}

// OnMessageComplete routes the request and queues the response, all within
// the current read callback.
func (c *Connection) OnMessageComplete() error {
	c.state = StateComplete
	c.core.dispatch(c)
	return nil
}

// OnReadable reads one chunk into a transient buffer and feeds it to the parser.
func (c *Connection) OnReadable() {
	if c.state != StateReading {
		return
	}

	buf := c.core.buffers.Get(c.core.loop.SuggestedBufferSize())
	defer c.core.buffers.Put(buf)

	n, err := unix.Read(c.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return
		}
		c.core.logger.Debug("read failed", "conn", c.id, "error", err)
		c.core.closeConnection(c)
		return
	}
	if n == 0 {
		c.core.logger.Debug("peer closed", "conn", c.id)
		c.core.closeConnection(c)
		return
	}

	c.state = StateParsing
	if _, err := c.parser.Execute(buf[:n]); err != nil {
		c.core.observer.ParseFailed()
		c.core.logger.Debug("malformed request", "conn", c.id, "error", err)
		c.core.closeConnection(c)
		return
	}
	if c.state == StateParsing {
		c.state = StateReading
	}
}

// OnWritable resumes a write that hit a full socket buffer.
func (c *Connection) OnWritable() {
	if c.state == StateWriting && c.write != nil {
		c.flush()
	}
}

// startWrite serializes the attached response into a write request and
// releases the response if the core owns it.
func (c *Connection) startWrite() {
	resp := c.response
	c.state = StateWriting

	wr := writeRequestPool.Get().(*writeRequest)
	wr.buf = resp.AppendTo(c.core.buffers.Get(resp.StringLength())[:0])
	wr.off = 0
	c.write = wr

	if c.ownership == http.Owning {
		resp.Release()
	}
	c.response = nil

	c.flush()
}

func (c *Connection) flush() {
	wr := c.write
	for wr.off < len(wr.buf) {
		n, err := unix.Write(c.fd, wr.buf[wr.off:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN {
				if err := c.core.loop.Interest(c.fd, false, true); err != nil {
					c.core.closeConnection(c)
				}
				return
			}
			c.core.logger.Debug("write failed", "conn", c.id, "error", err)
			c.core.closeConnection(c)
			return
		}
		wr.off += n
	}
	c.writeDone()
}

// writeDone releases the write request. Responses carry Connection: close,
// so the connection ends here; a keep-alive variant would reset the parser
// and request and go back to StateReading.
func (c *Connection) writeDone() {
	c.releaseWrite()
	c.core.closeConnection(c)
}

func (c *Connection) releaseWrite() {
	if c.write == nil {
		return
	}
	c.core.buffers.Put(c.write.buf)
	c.write.buf = nil
	c.write.off = 0
	writeRequestPool.Put(c.write)
	c.write = nil
}

// teardown closes the socket and releases everything the connection holds.
// It runs as the live-connection vector's element destructor.
func (c *Connection) teardown() {
	if c.state == StateClosed {
		return
	}
	if c.core.loop != nil {
		c.core.loop.Unwatch(c.fd)
	}
	unix.Close(c.fd)
	c.release()
	c.core.observer.ConnectionClosed()
	c.core.logger.Debug("connection closed", "conn", c.id)
}

// release frees the request, any owned response and any pending write.
func (c *Connection) release() {
	c.releaseWrite()
	if c.response != nil && c.ownership == http.Owning {
		c.response.Release()
	}
	c.response = nil
	if c.request != nil {
		http.ReleaseRequest(c.request)
		c.request = nil
	}
	c.state = StateClosed
}
