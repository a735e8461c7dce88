// Package eventloop is a single-threaded reactor: one goroutine waits on the
// poller and invokes the watcher registered for each ready descriptor.
//
// Watch, Interest and Unwatch must be called before Run or from inside a
// watcher callback; the loop takes no locks.
package eventloop

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/libreidp/libreidp/core/poller"
	"github.com/libreidp/libreidp/logging"
)

// SuggestedBufferSize is the read size offered to watchers.
const SuggestedBufferSize = 64 * 1024

// waitTimeout bounds how long Run blocks before re-checking its context.
const waitTimeout = 100 // ms

// Watcher receives readiness callbacks for one descriptor.
type Watcher interface {
	OnReadable()
	OnWritable()
}

// Loop multiplexes watchers over a poller.
type Loop struct {
	poller   poller.Poller
	watchers map[int]Watcher
	logger   *slog.Logger
}

// New creates a loop backed by the platform poller.
func New(logger *slog.Logger) (*Loop, error) {
	p, err := poller.NewPoller()
	if err != nil {
		return nil, fmt.Errorf("eventloop: create poller: %w", err)
	}
	return NewWithPoller(p, logger), nil
}

// NewWithPoller creates a loop around an existing poller.
func NewWithPoller(p poller.Poller, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Loop{
		poller:   p,
		watchers: make(map[int]Watcher, 64),
		logger:   logger,
	}
}

// Watch registers w for read readiness on fd.
func (l *Loop) Watch(fd int, w Watcher) error {
	if err := l.poller.Add(fd); err != nil {
		return err
	}
	l.watchers[fd] = w
	return nil
}

// Interest replaces the read/write interest of a watched fd.
func (l *Loop) Interest(fd int, readable, writable bool) error {
	return l.poller.Modify(fd, readable, writable)
}

// Unwatch stops all callbacks for fd. Events already collected for fd in
// the current iteration are dropped.
func (l *Loop) Unwatch(fd int) error {
	if _, ok := l.watchers[fd]; !ok {
		return nil
	}
	delete(l.watchers, fd)
	return l.poller.Remove(fd)
}

// Len returns the number of watched descriptors.
func (l *Loop) Len() int { return len(l.watchers) }

// SuggestedBufferSize returns the receive buffer size watchers should use.
func (l *Loop) SuggestedBufferSize() int { return SuggestedBufferSize }

// RunOnce waits up to timeout milliseconds and dispatches ready events.
func (l *Loop) RunOnce(timeout int) error {
	events, err := l.poller.Wait(timeout)
	if err != nil {
		return fmt.Errorf("eventloop: wait: %w", err)
	}
	for _, ev := range events {
		if ev.Writable || ev.Hangup {
			if w, ok := l.watchers[ev.Fd]; ok {
				w.OnWritable()
			}
		}
		// The write callback may have unwatched the descriptor.
		if ev.Readable || ev.Hangup {
			if w, ok := l.watchers[ev.Fd]; ok {
				w.OnReadable()
			}
		}
	}
	return nil
}

// Run dispatches events until ctx is cancelled or the poller fails.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("event loop started")
	defer l.logger.Debug("event loop stopped")
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := l.RunOnce(waitTimeout); err != nil {
			return err
		}
	}
}

// Close releases the poller. Watched descriptors are not closed.
func (l *Loop) Close() error {
	l.watchers = nil
	return l.poller.Close()
}
