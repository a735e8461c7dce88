package vector

// initialCapacity is the capacity allocated on the first Reserve.
const initialCapacity = 16

// Destructor releases whatever an element holds. It is called with a pointer
// into the vector's storage right before the slot is vacated.
type Destructor[T any] func(elem *T)

// Vector is a growable, indexable container with amortized O(1) append and
// O(1) swap-remove. Removal does not preserve ordering.
//
// Pointers returned by Reserve and Get stay valid only until the next call
// that may grow or shrink the vector.
type Vector[T any] struct {
	data       []T
	length     int
	destructor Destructor[T]
}

// New creates an empty vector. destructor may be nil.
func New[T any](destructor Destructor[T]) *Vector[T] {
	return &Vector[T]{destructor: destructor}
}

// Reserve appends a zero-valued element and returns a pointer to it,
// doubling the capacity when the vector is full.
func (v *Vector[T]) Reserve() *T {
	if v.length == len(v.data) {
		v.grow()
	}
	v.length++
	return &v.data[v.length-1]
}

// Append copies elem into a newly reserved slot and returns its index.
func (v *Vector[T]) Append(elem T) int {
	*v.Reserve() = elem
	return v.length - 1
}

func (v *Vector[T]) grow() {
	newCap := len(v.data) * 2
	if newCap == 0 {
		newCap = initialCapacity
	}
	data := make([]T, newCap)
	copy(data, v.data[:v.length])
	v.data = data
}

// Get returns a pointer to element i, or false when i is out of range.
func (v *Vector[T]) Get(i int) (*T, bool) {
	if i < 0 || i >= v.length {
		return nil, false
	}
	return &v.data[i], true
}

// Remove destroys element i and moves the last element into its slot.
// It reports false when i is out of range.
func (v *Vector[T]) Remove(i int) bool {
	if i < 0 || i >= v.length {
		return false
	}
	if v.destructor != nil {
		v.destructor(&v.data[i])
	}
	last := v.length - 1
	if i != last {
		v.data[i] = v.data[last]
	}
	var zero T
	v.data[last] = zero
	v.length--
	return true
}

// Len returns the number of live elements.
func (v *Vector[T]) Len() int { return v.length }

// Cap returns the number of slots currently allocated.
func (v *Vector[T]) Cap() int { return len(v.data) }

// Clear destroys every live element and empties the vector, keeping its storage.
func (v *Vector[T]) Clear() {
	var zero T
	for i := 0; i < v.length; i++ {
		if v.destructor != nil {
			v.destructor(&v.data[i])
		}
		v.data[i] = zero
	}
	v.length = 0
}

// Iter returns a forward iterator over the elements live at the time of the
// call. Mutating the vector while iterating is undefined.
func (v *Vector[T]) Iter() *Iterator[T] {
	return &Iterator[T]{v: v, end: v.length}
}

// Iterator walks a Vector once; it cannot be rewound.
type Iterator[T any] struct {
	v   *Vector[T]
	pos int
	end int
}

// Next returns the next element, or false once the sequence is exhausted.
func (it *Iterator[T]) Next() (*T, bool) {
	if it.pos >= it.end {
		return nil, false
	}
	elem := &it.v.data[it.pos]
	it.pos++
	return elem, true
}
