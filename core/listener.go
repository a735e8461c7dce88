package core

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// listen opens a non-blocking TCP socket bound to 0.0.0.0:port.
func listen(port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}
	unix.CloseOnExec(fd)

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("setsockopt: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("set nonblock: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind %s:%d: %w", BindAddress, port, err)
	}
	if err := unix.Listen(fd, ListenBacklog); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen: %w", err)
	}
	return fd, nil
}

// acceptor is the listener's watcher.
type acceptor struct {
	core *Core
}

func (a acceptor) OnReadable() { a.core.acceptConnections() }
func (a acceptor) OnWritable() {}

// acceptConnections accepts every pending connection.
func (c *Core) acceptConnections() {
	for {
		nfd, _, err := unix.Accept(c.listenFd)
		if err != nil {
			if c.acceptFailed(err) {
				continue
			}
			return
		}

		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			continue
		}
		unix.CloseOnExec(nfd)

		// TCP_NODELAY: Disable Nagle's algorithm
		unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)

		c.openConnection(nfd)
	}
}

// acceptFailed reports whether accept should be retried after err.
func (c *Core) acceptFailed(err error) bool {
	switch err {
	case unix.EINTR, unix.ECONNABORTED:
		return true
	case unix.EAGAIN:
		return false
	case unix.EMFILE, unix.ENFILE:
		c.pauseAccept(err)
		return false
	}
	c.logger.Warn("accept failed", "error", err)
	return false
}

// pauseAccept drops read interest on the listener while the process is out
// of descriptors, so a level-triggered poller does not spin on the pending
// backlog. The next closed connection resumes accepting. With no live
// connections there is nothing to wait for and the listener stays armed.
func (c *Core) pauseAccept(err error) {
	if c.acceptPaused {
		return
	}
	open := c.connections.Len()
	if open == 0 {
		c.logger.Warn("accept failed", "error", err)
		return
	}
	if ierr := c.loop.Interest(c.listenFd, false, false); ierr != nil {
		c.logger.Warn("accept pause failed", "error", ierr)
		return
	}
	c.acceptPaused = true
	c.logger.Warn("accept paused", "error", err, "connections", open)
}

// resumeAccept re-arms the listener after pauseAccept.
func (c *Core) resumeAccept() {
	if !c.acceptPaused || c.listenFd < 0 {
		return
	}
	if err := c.loop.Interest(c.listenFd, true, false); err != nil {
		c.logger.Warn("accept resume failed", "error", err)
		return
	}
	c.acceptPaused = false
	c.logger.Info("accept resumed", "connections", c.connections.Len())
}
