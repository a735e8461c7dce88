package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, v *Vector[int], n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		*v.Reserve() = i
	}
	require.Equal(t, n, v.Len())
}

func TestReserveZeroesAndGrows(t *testing.T) {
	v := New[int](nil)
	assert.Equal(t, 0, v.Cap())

	p := v.Reserve()
	assert.Equal(t, 0, *p)
	assert.Equal(t, initialCapacity, v.Cap())

	for i := 1; i < initialCapacity; i++ {
		v.Reserve()
	}
	assert.Equal(t, initialCapacity, v.Cap())

	v.Reserve()
	assert.Equal(t, 2*initialCapacity, v.Cap())
	assert.Equal(t, initialCapacity+1, v.Len())
}

func TestGetOutOfRange(t *testing.T) {
	v := New[string](nil)
	v.Append("a")

	_, ok := v.Get(-1)
	assert.False(t, ok)
	_, ok = v.Get(1)
	assert.False(t, ok)

	got, ok := v.Get(0)
	require.True(t, ok)
	assert.Equal(t, "a", *got)
}

func TestRemoveSwapsLastIntoSlot(t *testing.T) {
	const n = 20
	for k := 0; k < n-1; k++ {
		v := New[int](nil)
		fill(t, v, n)

		require.True(t, v.Remove(k))
		assert.Equal(t, n-1, v.Len())
		got, ok := v.Get(k)
		require.True(t, ok)
		assert.Equal(t, n-1, *got, "element previously at %d should move to %d", n-1, k)
	}
}

func TestRemoveLastDoesNotSwap(t *testing.T) {
	const n = 5
	v := New[int](nil)
	fill(t, v, n)

	require.True(t, v.Remove(n-1))
	assert.Equal(t, n-1, v.Len())
	for i := 0; i < n-1; i++ {
		got, _ := v.Get(i)
		assert.Equal(t, i, *got)
	}
	assert.False(t, v.Remove(n-1))
}

func TestDestructorCalledOnRemoveAndClear(t *testing.T) {
	var destroyed []int
	v := New(func(p *int) { destroyed = append(destroyed, *p) })
	fill(t, v, 4)

	v.Remove(1)
	assert.Equal(t, []int{1}, destroyed)

	v.Clear()
	assert.ElementsMatch(t, []int{1, 0, 3, 2}, destroyed)
	assert.Equal(t, 0, v.Len())
}

func TestIteratorIsNotRestartable(t *testing.T) {
	v := New[int](nil)
	fill(t, v, 3)

	it := v.Iter()
	var seen []int
	for p, ok := it.Next(); ok; p, ok = it.Next() {
		seen = append(seen, *p)
	}
	assert.Equal(t, []int{0, 1, 2}, seen)

	_, ok := it.Next()
	assert.False(t, ok)
}
