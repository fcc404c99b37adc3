// Package scan provides a lane vectorized comparison scanner over
// immutable in-memory buffers of fixed width integer elements.
//
// The scanner visits the buffer one lane at a time, computing a per
// lane bitmask of elements satisfying the comparison, and drains each
// mask lowest bit first. The delivered index sequence is identical to
// what a naive left to right scalar scan would produce: the lane path
// is purely a throughput optimization.
package scan

import (
	"math/bits"
	"unsafe"
)

// Op is a comparison operator applied between a buffer element and the
// scan value.
type Op uint8

const (
	Lt Op = iota // element < value
	Le           // element <= value
	Eq           // element == value
	Ne           // element != value
	Gt           // element > value
	Ge           // element >= value
)

func (op Op) String() string {
	switch op {
	case Lt:
		return "<"
	case Le:
		return "<="
	case Eq:
		return "=="
	case Ne:
		return "!="
	case Gt:
		return ">"
	case Ge:
		return ">="
	}
	return "scan.Op(?)"
}

// Element enumerates the fixed width integer types a buffer can hold.
type Element interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// laneBytes is the width of one comparison lane. The scalar tail path
// defines the observable behavior, so the exact width only affects
// throughput.
const laneBytes = 16

// Iterator scans one immutable buffer for elements satisfying op
// against value. It is bound to buffer, operator and value at
// construction; position and the buffered mask of found but
// undelivered matches are the only mutable state.
type Iterator[T Element] struct {
	buf   []T
	op    Op
	value T

	lane     int // elements per lane, 0 when only the scalar path is usable
	pos      int // index of the next element to examine
	mask     uint32
	maskBase int // buffer index of bit 0 of mask
	last     int // last delivered index, -1 before the first delivery
	started  bool
}

// New returns an iterator scanning buf for elements matching op
// against value. The buffer must not be mutated while the iterator is
// in use.
func New[T Element](buf []T, op Op, value T) *Iterator[T] {
	if op > Ge {
		panic("scan: unknown comparison operator")
	}
	it := &Iterator[T]{buf: buf, op: op, value: value, last: -1}
	if w := int(unsafe.Sizeof(value)); w&(w-1) == 0 && w <= laneBytes {
		it.lane = laneBytes / w
	}
	return it
}

// First begins the scan and delivers the first matching index. It must
// be the first call on a freshly constructed or freshly Reset
// iterator, and the buffer must start on the natural alignment of the
// element type. Both are caller contract obligations: violating them
// is a bug in the caller, not a runtime condition, and panics.
func (it *Iterator[T]) First() (int, bool) {
	if it.started {
		panic("scan: First called on a running iterator")
	}
	if len(it.buf) > 0 && uintptr(unsafe.Pointer(&it.buf[0]))%unsafe.Alignof(it.buf[0]) != 0 {
		panic("scan: buffer is not aligned to the element type")
	}
	it.started = true
	return it.advance()
}

// Next delivers the next matching index, in strictly ascending order,
// until the buffer is exhausted. Calling Next before First is a caller
// bug and panics.
func (it *Iterator[T]) Next() (int, bool) {
	if !it.started {
		panic("scan: Next called before First")
	}
	return it.advance()
}

// Rest returns the unconsumed tail of the buffer, starting immediately
// after the last delivered index. Matches already found in the current
// lane but not yet delivered are part of the tail.
func (it *Iterator[T]) Rest() []T {
	return it.buf[it.last+1:]
}

// Reset rewinds the iterator to its initial state so the identical
// scan can be replayed from the start of the same buffer.
func (it *Iterator[T]) Reset() {
	it.pos = 0
	it.mask = 0
	it.maskBase = 0
	it.last = -1
	it.started = false
}

func (it *Iterator[T]) advance() (int, bool) {
	if it.mask != 0 {
		return it.deliver()
	}
	if it.lane > 0 {
		for it.pos+it.lane <= len(it.buf) {
			lane := it.buf[it.pos : it.pos+it.lane]
			var mask uint32
			for i := 0; i < len(lane); i++ {
				if it.match(lane[i]) {
					mask |= 1 << uint(i)
				}
			}
			base := it.pos
			it.pos += it.lane
			if mask != 0 {
				it.mask = mask
				it.maskBase = base
				return it.deliver()
			}
		}
	}
	// Scalar fallback: tail shorter than one lane, or an element type
	// with no usable lane width.
	for it.pos < len(it.buf) {
		i := it.pos
		it.pos++
		if it.match(it.buf[i]) {
			it.last = i
			return i, true
		}
	}
	return 0, false
}

// deliver consumes the lowest set bit of the buffered mask.
func (it *Iterator[T]) deliver() (int, bool) {
	b := bits.TrailingZeros32(it.mask)
	it.mask &= it.mask - 1
	it.last = it.maskBase + b
	return it.last, true
}

func (it *Iterator[T]) match(v T) bool {
	switch it.op {
	case Lt:
		return v < it.value
	case Le:
		return v <= it.value
	case Eq:
		return v == it.value
	case Ne:
		return v != it.value
	case Gt:
		return v > it.value
	case Ge:
		return v >= it.value
	}
	panic("scan: unknown comparison operator")
}
