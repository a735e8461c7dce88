//go:build linux

package poller

import (
	"golang.org/x/sys/unix"
)

// EpollPoller is an epoll-based I/O multiplexer
type EpollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

// NewPoller creates a new Poller (Linux)
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	return &EpollPoller{
		epfd:   epfd,
		events: make([]unix.EpollEvent, 1024),
	}, nil
}

// Level-triggered: EPOLLIN for reads, EPOLLRDHUP to detect peer shutdown.
const readEvents = unix.EPOLLIN | unix.EPOLLRDHUP

// Add adds a file descriptor to the watch list
func (p *EpollPoller) Add(fd int) error {
	ev := unix.EpollEvent{Events: readEvents, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// Modify replaces the interest set of fd
func (p *EpollPoller) Modify(fd int, readable, writable bool) error {
	ev := unix.EpollEvent{Fd: int32(fd)}
	if readable {
		ev.Events |= readEvents
	}
	if writable {
		ev.Events |= unix.EPOLLOUT
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Remove removes a file descriptor from the watch list
func (p *EpollPoller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait waits for I/O events
func (p *EpollPoller) Wait(timeout int) ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeout)
	if err != nil && err != unix.EINTR {
		return nil, err
	}

	if n <= 0 {
		return nil, nil
	}

	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		ev := p.events[i]
		out = append(out, Event{
			Fd:       int(ev.Fd),
			Readable: ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0,
			Writable: ev.Events&unix.EPOLLOUT != 0,
			Hangup:   ev.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0,
		})
	}

	return out, nil
}

// Close closes the Poller
func (p *EpollPoller) Close() error {
	return unix.Close(p.epfd)
}
