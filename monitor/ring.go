package monitor

// Ring is a bounded FIFO history buffer. Pushing beyond capacity evicts the
// oldest element. The zero value is not usable, use NewRing.
type Ring[T any] struct {
	buf   []T
	start int
	size  int
}

// NewRing returns a Ring holding at most capacity elements. capacity must
// be positive.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("monitor: ring capacity must be positive")
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when full.
func (r *Ring[T]) Push(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Values returns the elements oldest first. The slice is freshly allocated.
func (r *Ring[T]) Values() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Last returns the most recently pushed element.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the maximum number of stored elements.
func (r *Ring[T]) Cap() int { return len(r.buf) }
