package poller

// Event reports readiness of one file descriptor.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	// Hangup is set when the peer closed or the descriptor errored.
	Hangup bool
}

// Poller is the I/O multiplexing interface. Add watches a descriptor for
// reads; Modify replaces its read/write interest.
type Poller interface {
	Add(fd int) error
	Modify(fd int, readable, writable bool) error
	Remove(fd int) error
	// Wait blocks for at most timeout milliseconds (-1 waits forever).
	Wait(timeout int) ([]Event, error)
	Close() error
}
