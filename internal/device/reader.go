package device

import (
	"context"
	"sync/atomic"

	"github.com/luki/simtemp/internal/sample"
)

// Reader is an open handle onto a device, analogous to an open file
// descriptor on a character device. Readers hold no cursor: all handles
// drain the same FIFO, and concurrent readers race for records.
type Reader struct {
	dev         *Device
	nonblocking bool
	closed      atomic.Bool
}

// Open returns a reader handle. A non-blocking reader fails reads with
// ErrWouldBlock instead of suspending. Any number of readers may be
// open at once; closing one does not affect the device.
func (d *Device) Open(nonblocking bool) *Reader {
	return &Reader{dev: d, nonblocking: nonblocking}
}

// Read copies the oldest unread record into p and returns sample.Size.
// p must hold at least one full record; partial records are never
// written. A blocking reader suspends on an empty buffer until a record
// arrives, ctx is cancelled (ErrInterrupted), or the device stops
// (ErrDeviceGone).
func (r *Reader) Read(ctx context.Context, p []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrDeviceGone
	}
	if len(p) < sample.Size {
		return 0, ErrBufferTooSmall
	}

	for {
		// Register before checking emptiness. A record published after
		// this point closes ready, so the wait below cannot miss it.
		ready := r.dev.wset.register()

		if r.dev.stopped() {
			return 0, ErrDeviceGone
		}
		if s, ok := r.dev.buf.Get(); ok {
			s.Encode(p[:sample.Size])
			return sample.Size, nil
		}
		if r.nonblocking {
			return 0, ErrWouldBlock
		}

		select {
		case <-ready:
			// Re-check; another reader may have won the race.
		case <-ctx.Done():
			return 0, ErrInterrupted
		case <-r.dev.done:
			return 0, ErrDeviceGone
		}
	}
}

// Next is a convenience wrapper around Read returning a decoded record.
func (r *Reader) Next(ctx context.Context) (sample.Sample, error) {
	var buf [sample.Size]byte
	if _, err := r.Read(ctx, buf[:]); err != nil {
		return sample.Sample{}, err
	}
	return sample.Decode(buf[:])
}

// Poll registers the caller with the readiness wait-set and then tests
// the buffer. ready reports whether a read would currently succeed;
// wait is closed by the next readiness signal (or device stop) and is
// what the caller's own select loop suspends on. Registration precedes
// the emptiness test, so a record published in between still closes
// wait.
func (r *Reader) Poll() (ready bool, wait <-chan struct{}, err error) {
	if r.closed.Load() || r.dev.stopped() {
		return false, nil, ErrDeviceGone
	}
	wait = r.dev.wset.register()
	return r.dev.buf.HasData(), wait, nil
}

// Close releases the handle. Idempotent; the device keeps running.
func (r *Reader) Close() {
	r.closed.Store(true)
}
