package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/libreidp/libreidp/core/eventloop"
	"github.com/libreidp/libreidp/core/http"
	"github.com/libreidp/libreidp/core/poller"
)

// stubPoller records interest changes instead of touching the kernel.
type stubPoller struct {
	interest map[int][2]bool
}

func (p *stubPoller) Add(int) error    { return nil }
func (p *stubPoller) Remove(int) error { return nil }
func (p *stubPoller) Modify(fd int, r, w bool) error {
	if p.interest == nil {
		p.interest = map[int][2]bool{}
	}
	p.interest[fd] = [2]bool{r, w}
	return nil
}
func (p *stubPoller) Wait(int) ([]poller.Event, error) { return nil, nil }
func (p *stubPoller) Close() error                     { return nil }

const stubListenFd = 1000

// stubCore returns a core wired to a stub poller, as if registered on
// stubListenFd.
func stubCore(t *testing.T) (*Core, *stubPoller) {
	t.Helper()
	sp := &stubPoller{}
	c := New()
	c.loop = eventloop.NewWithPoller(sp, nil)
	c.listenFd = stubListenFd
	t.Cleanup(func() { c.connections.Clear() })
	return c, sp
}

// socketConn opens a connection on one end of a socket pair.
func socketConn(t *testing.T, c *Core) *Connection {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() { unix.Close(fds[1]) })

	c.openConnection(fds[0])
	p, ok := c.connections.Get(c.connections.Len() - 1)
	require.True(t, ok)
	return *p
}

func TestAcceptFailedRetries(t *testing.T) {
	c, sp := stubCore(t)
	assert.True(t, c.acceptFailed(unix.EINTR))
	assert.True(t, c.acceptFailed(unix.ECONNABORTED))
	assert.False(t, c.acceptFailed(unix.EAGAIN))
	assert.False(t, c.acceptFailed(unix.EINVAL))
	assert.False(t, c.acceptPaused)
	assert.Empty(t, sp.interest)
}

func TestAcceptPausedUntilConnectionCloses(t *testing.T) {
	for _, errno := range []unix.Errno{unix.EMFILE, unix.ENFILE} {
		t.Run(errno.Error(), func(t *testing.T) {
			c, sp := stubCore(t)
			conn := socketConn(t, c)

			assert.False(t, c.acceptFailed(errno))
			assert.True(t, c.acceptPaused)
			assert.Equal(t, [2]bool{false, false}, sp.interest[stubListenFd])

			// A second failure while paused changes nothing.
			delete(sp.interest, stubListenFd)
			assert.False(t, c.acceptFailed(errno))
			assert.NotContains(t, sp.interest, stubListenFd)

			c.closeConnection(conn)
			assert.Zero(t, c.connections.Len())
			assert.False(t, c.acceptPaused)
			assert.Equal(t, [2]bool{true, false}, sp.interest[stubListenFd])
		})
	}
}

func TestAcceptNotPausedWithoutConnections(t *testing.T) {
	c, sp := stubCore(t)
	assert.False(t, c.acceptFailed(unix.EMFILE))
	assert.False(t, c.acceptPaused)
	assert.NotContains(t, sp.interest, stubListenFd)
}

func TestReleaseHonoursOwnershipChange(t *testing.T) {
	c, _ := stubCore(t)

	owned := http.NewResponse(http.StatusOK)
	conn := socketConn(t, c)
	conn.SetResponse(owned, http.Borrowing)
	conn.SetResponseOwnership(http.Owning)
	c.closeConnection(conn)
	assert.Equal(t, StateClosed, conn.State())
	assert.Zero(t, owned.Status(), "owned response is released with the connection")

	borrowed := http.NewResponse(http.StatusOK)
	t.Cleanup(borrowed.Release)
	conn = socketConn(t, c)
	conn.SetResponse(borrowed, http.Owning)
	conn.SetResponseOwnership(http.Borrowing)
	c.closeConnection(conn)
	assert.Equal(t, http.StatusOK, borrowed.Status(), "borrowed response outlives the connection")
}
