// Package buffer provides a byte container with guaranteed sentinel bytes
// around its logical content. Scanners that read a fixed-width window may run
// slightly past the logical end (or one byte before the start) and still land
// on allocated, deterministic memory.
package buffer

const (
	// headPad gives one valid byte before the content: At(-1) == '\n'.
	headPad = 1

	// tailPad gives zero bytes after the content: At(Len()) through
	// At(Len()+tailPad-1) are '\0'. 31 is enough for a 32-byte block load
	// starting at the last content byte, including a +5 shifted view.
	tailPad = 31
)

// Buffer is a memory buffer with some special properties:
//   - There is one valid byte before the content: At(-1) == '\n'
//   - There are valid zero bytes after the content, so reading a 32-byte
//     block starting anywhere in [0, Len()) stays inside allocated memory.
//
// A Buffer is exclusively owned by its creator and is not safe for
// concurrent mutation.
type Buffer struct {
	size     int
	capacity int
	store    []byte // headPad + capacity + tailPad bytes
}

// New returns a buffer with the given capacity and size 0.
func New(capacity int) *Buffer {
	b := &Buffer{}
	b.SetCapacity(capacity)
	return b
}

// Len returns the logical size of the buffer.
func (b *Buffer) Len() int {
	return b.size
}

// Cap returns the allocated capacity of the buffer.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Ok reports whether the buffer has a nonzero capacity.
func (b *Buffer) Ok() bool {
	return b.capacity > 0
}

// Reset sets the capacity (and size) to 0.
func (b *Buffer) Reset() {
	b.SetCapacity(0)
}

// SetSize sets how much of the buffer is used. n must be <= Cap; violating
// that is a programming error. The tail sentinel is rewritten at the new
// logical end.
func (b *Buffer) SetSize(n int) {
	if n > b.capacity {
		panic("buffer: size exceeds capacity")
	}
	b.size = n
	tail := b.store[headPad+n : headPad+n+tailPad]
	for i := range tail {
		tail[i] = 0
	}
}

// SetCapacity resizes the backing storage. If the new capacity is less than
// the current size, the size is clamped down. Both sentinels are
// re-established.
func (b *Buffer) SetCapacity(n int) {
	store := make([]byte, headPad+n+tailPad)
	if b.store != nil {
		copy(store[headPad:], b.Bytes())
	}
	b.store = store
	b.capacity = n
	b.store[0] = '\n'
	if b.size > n {
		b.size = n
	}
	b.SetSize(b.size)
}

// At returns the byte at logical offset i. i may be -1 (the head sentinel)
// or in [0, Len()+tailPad) — reads past the logical end land in the zeroed
// tail.
func (b *Buffer) At(i int) byte {
	return b.store[headPad+i]
}

// Bytes returns the logical content [0, Len()).
func (b *Buffer) Bytes() []byte {
	return b.store[headPad : headPad+b.size]
}

// Data returns the full-capacity writable view. Callers that fill it must
// follow up with SetSize.
func (b *Buffer) Data() []byte {
	return b.store[headPad : headPad+b.capacity]
}

// Padded returns the logical content followed by the zeroed tail pad. Block
// scanners use it to load fixed-width windows that may cross the logical
// end.
func (b *Buffer) Padded() []byte {
	return b.store[headPad : headPad+b.size+tailPad]
}

// TailPad is the number of guaranteed zero bytes after the logical content.
const TailPad = tailPad
