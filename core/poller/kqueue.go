//go:build darwin

package poller

import (
	"golang.org/x/sys/unix"
)

// KqueuePoller is a kqueue-based I/O multiplexer
type KqueuePoller struct {
	kqfd   int
	events []unix.Kevent_t
}

// NewPoller creates a new Poller (macOS)
func NewPoller() (Poller, error) {
	kqfd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kqfd)

	return &KqueuePoller{
		kqfd:   kqfd,
		events: make([]unix.Kevent_t, 1024),
	}, nil
}

func (p *KqueuePoller) change(fd int, filter int16, flags uint16) error {
	var ev unix.Kevent_t
	// Level-triggered (no EV_CLEAR).
	unix.SetKevent(&ev, fd, int(filter), int(flags))
	_, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// Add adds a file descriptor to the watch list
func (p *KqueuePoller) Add(fd int) error {
	return p.change(fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE)
}

// Modify replaces the interest set of fd
func (p *KqueuePoller) Modify(fd int, readable, writable bool) error {
	if err := p.toggle(fd, unix.EVFILT_READ, readable); err != nil {
		return err
	}
	return p.toggle(fd, unix.EVFILT_WRITE, writable)
}

func (p *KqueuePoller) toggle(fd int, filter int16, on bool) error {
	if on {
		return p.change(fd, filter, unix.EV_ADD|unix.EV_ENABLE)
	}
	err := p.change(fd, filter, unix.EV_DELETE)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

// Remove removes a file descriptor from the watch list
func (p *KqueuePoller) Remove(fd int) error {
	err := p.change(fd, unix.EVFILT_READ, unix.EV_DELETE)
	// A write filter may or may not be installed.
	_ = p.change(fd, unix.EVFILT_WRITE, unix.EV_DELETE)
	return err
}

// Wait waits for I/O events
func (p *KqueuePoller) Wait(timeout int) ([]Event, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout) * 1e6)
		ts = &t
	}

	n, err := unix.Kevent(p.kqfd, nil, p.events, ts)
	if err != nil && err != unix.EINTR {
		return nil, err
	}

	if n <= 0 {
		return nil, nil
	}

	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		ev := p.events[i]
		e := Event{
			Fd:     int(ev.Ident),
			Hangup: ev.Flags&(unix.EV_EOF|unix.EV_ERROR) != 0,
		}
		switch ev.Filter {
		case unix.EVFILT_READ:
			e.Readable = true
		case unix.EVFILT_WRITE:
			e.Writable = true
		}
		out = append(out, e)
	}

	return out, nil
}

// Close closes the Poller
func (p *KqueuePoller) Close() error {
	return unix.Close(p.kqfd)
}
