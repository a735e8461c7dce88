package pools

import (
	"sync"
	"sync/atomic"
)

// BytePool is a multi-tiered byte slice pool for different size classes.
// Every Get must be matched by exactly one Put; the counters make leaks and
// double releases visible.
type BytePool struct {
	pools []*sync.Pool
	sizes []int

	gets atomic.Uint64
	puts atomic.Uint64
}

// Common buffer sizes for request heads, bodies and serialized responses
var defaultSizes = []int{
	512,
	2048,
	8192,
	32768,
	65536, // suggested read size
}

// NewBytePool creates a new byte pool with standard size tiers
func NewBytePool() *BytePool {
	return NewBytePoolWithSizes(defaultSizes)
}

// NewBytePoolWithSizes creates a byte pool with custom size tiers (ascending)
func NewBytePoolWithSizes(sizes []int) *BytePool {
	bp := &BytePool{
		pools: make([]*sync.Pool, len(sizes)),
		sizes: sizes,
	}

	for i, size := range sizes {
		sz := size
		bp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, sz)
				return &buf
			},
		}
	}

	return bp
}

// Get returns a byte slice of length size
func (bp *BytePool) Get(size int) []byte {
	bp.gets.Add(1)
	for i, poolSize := range bp.sizes {
		if size <= poolSize {
			bufPtr := bp.pools[i].Get().(*[]byte)
			return (*bufPtr)[:size]
		}
	}

	// Size too large, allocate directly
	return make([]byte, size)
}

// Put returns a byte slice obtained from Get
func (bp *BytePool) Put(buf []byte) {
	bp.puts.Add(1)
	capacity := cap(buf)
	for i, poolSize := range bp.sizes {
		if capacity == poolSize {
			buf = buf[:capacity]
			bp.pools[i].Put(&buf)
			return
		}
	}

	// Not from a tier, let GC handle it
}

// BytePoolStats counts buffers handed out and returned.
type BytePoolStats struct {
	Gets        uint64
	Puts        uint64
	Outstanding int64
}

// Stats returns pool statistics
func (bp *BytePool) Stats() BytePoolStats {
	gets := bp.gets.Load()
	puts := bp.puts.Load()
	return BytePoolStats{
		Gets:        gets,
		Puts:        puts,
		Outstanding: int64(gets) - int64(puts),
	}
}
