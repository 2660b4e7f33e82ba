// Package pool provides sync.Pool wrappers for reducing GC pressure.
package pool

import (
	"strconv"
	"sync"
)

// PathBuilder builds positional HL7 paths such as "OBX[2]-5[3].1.2".
// It uses a byte buffer that grows as needed and can be reused via sync.Pool.
type PathBuilder struct {
	buf []byte
}

// pathBuilderPool holds reusable PathBuilder instances.
var pathBuilderPool = sync.Pool{
	New: func() any {
		return &PathBuilder{
			buf: make([]byte, 0, 32),
		}
	},
}

// AcquirePathBuilder gets a PathBuilder from the pool.
// Call Release() when done to return it to the pool.
func AcquirePathBuilder() *PathBuilder {
	pb := pathBuilderPool.Get().(*PathBuilder)
	pb.Reset()
	return pb
}

// Release returns the PathBuilder to the pool.
func (b *PathBuilder) Release() {
	if b == nil {
		return
	}
	// Don't return oversized buffers to the pool
	if cap(b.buf) <= 1024 {
		pathBuilderPool.Put(b)
	}
}

// Reset clears the buffer without deallocating.
func (b *PathBuilder) Reset() {
	b.buf = b.buf[:0]
}

// Len returns the current length of the path.
func (b *PathBuilder) Len() int {
	return len(b.buf)
}

// WriteString appends a string to the path.
func (b *PathBuilder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a byte to the path.
func (b *PathBuilder) WriteByte(c byte) {
	b.buf = append(b.buf, c)
}

// AppendIndex appends a segment sequence or field repetition as [n].
func (b *PathBuilder) AppendIndex(index int) {
	b.buf = append(b.buf, '[')
	b.buf = strconv.AppendInt(b.buf, int64(index), 10)
	b.buf = append(b.buf, ']')
}

// AppendField appends a field position as -n.
func (b *PathBuilder) AppendField(position int) {
	b.buf = append(b.buf, '-')
	b.buf = strconv.AppendInt(b.buf, int64(position), 10)
}

// AppendComponent appends a component or sub-component number as .n.
func (b *PathBuilder) AppendComponent(number int) {
	b.buf = append(b.buf, '.')
	b.buf = strconv.AppendInt(b.buf, int64(number), 10)
}

// String returns the built path as a string.
// This creates a single allocation for the final string.
func (b *PathBuilder) String() string {
	return string(b.buf)
}

// Bytes returns the underlying byte slice (no copy).
// The returned slice is only valid until the next modification.
func (b *PathBuilder) Bytes() []byte {
	return b.buf
}

// BuildPath is a convenience function that builds a path using a callback.
// The PathBuilder is automatically returned to the pool after the callback.
//
// Example:
//
//	path := pool.BuildPath(func(b *pool.PathBuilder) {
//	    b.WriteString("OBX")
//	    b.AppendIndex(2)
//	    b.AppendField(5)
//	    b.AppendComponent(1)
//	})
func BuildPath(fn func(*PathBuilder)) string {
	pb := AcquirePathBuilder()
	defer pb.Release()
	fn(pb)
	return pb.String()
}
