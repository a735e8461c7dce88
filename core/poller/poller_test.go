//go:build linux || darwin

package poller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestPollerReadable(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	a, b := socketPair(t)
	require.NoError(t, p.Add(a))

	events, err := p.Wait(0)
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = unix.Write(b, []byte("ping"))
	require.NoError(t, err)

	events, err = p.Wait(1000)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, a, events[0].Fd)
	assert.True(t, events[0].Readable)
}

func TestPollerWritableToggle(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	a, _ := socketPair(t)
	require.NoError(t, p.Add(a))
	require.NoError(t, p.Modify(a, true, true))

	events, err := p.Wait(1000)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.True(t, events[0].Writable)

	require.NoError(t, p.Modify(a, true, false))
	events, err = p.Wait(0)
	require.NoError(t, err)
	assert.Empty(t, events)

	require.NoError(t, p.Remove(a))
}

func TestPollerReadInterestOff(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	a, b := socketPair(t)
	require.NoError(t, p.Add(a))
	_, err = unix.Write(b, []byte("ping"))
	require.NoError(t, err)

	require.NoError(t, p.Modify(a, false, false))
	events, err := p.Wait(0)
	require.NoError(t, err)
	assert.Empty(t, events)
}
