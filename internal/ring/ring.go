// Package ring implements the bounded sample FIFO shared by the sensor
// tick and its readers. Capacity is a power of two; one slot is kept
// free so head==tail always means empty. When the producer laps the
// consumers the oldest unread record is dropped.
package ring

import (
	"sync"
	"sync/atomic"

	"github.com/luki/simtemp/internal/sample"
)

// DefaultCapacity is the slot count used when the caller passes 0.
const DefaultCapacity = 64

// Buffer is a fixed-capacity FIFO of samples safe for one producer and
// any number of consumers. Put never blocks and never fails; a full
// buffer advances the tail first, discarding the oldest record.
type Buffer struct {
	mu   sync.Mutex
	buf  []sample.Sample
	mask uint32
	head uint32 // next write slot
	tail uint32 // next read slot

	overflows atomic.Uint64
}

// New creates a buffer with the given slot count, which must be a power
// of two (0 selects DefaultCapacity). It stores up to capacity−1
// records.
func New(capacity uint32) *Buffer {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if capacity&(capacity-1) != 0 {
		panic("ring: capacity must be a power of two")
	}
	return &Buffer{
		buf:  make([]sample.Sample, capacity),
		mask: capacity - 1,
	}
}

// Capacity returns the slot count.
func (b *Buffer) Capacity() int { return len(b.buf) }

// Put appends s, dropping the oldest record if the buffer is full. The
// drop happens under the same lock as the write so consumers never see
// a head that has moved past an untouched tail.
func (b *Buffer) Put(s sample.Sample) {
	b.mu.Lock()
	if (b.head+1)&b.mask == b.tail {
		b.tail = (b.tail + 1) & b.mask
		b.overflows.Add(1)
	}
	b.buf[b.head] = s
	b.head = (b.head + 1) & b.mask
	b.mu.Unlock()
}

// Get removes and returns the oldest record. ok is false if the buffer
// is empty.
func (b *Buffer) Get() (s sample.Sample, ok bool) {
	b.mu.Lock()
	if b.head == b.tail {
		b.mu.Unlock()
		return sample.Sample{}, false
	}
	s = b.buf[b.tail]
	b.tail = (b.tail + 1) & b.mask
	b.mu.Unlock()
	return s, true
}

// Len returns the number of unread records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	n := (b.head - b.tail) & b.mask
	b.mu.Unlock()
	return int(n)
}

// HasData reports whether at least one record is readable.
func (b *Buffer) HasData() bool {
	b.mu.Lock()
	empty := b.head == b.tail
	b.mu.Unlock()
	return !empty
}

// Overflows returns the number of records dropped by Put since creation.
func (b *Buffer) Overflows() uint64 {
	return b.overflows.Load()
}
