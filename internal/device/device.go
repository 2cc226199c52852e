// Package device implements the simulated temperature sensor: a
// periodic sampler feeding a bounded drop-oldest ring buffer, exposed
// to consumers through file-descriptor-like reader handles with
// blocking reads, non-blocking reads, and poll-style readiness.
package device

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/luki/simtemp/internal/ring"
	"github.com/luki/simtemp/internal/sample"
)

// Device is one running simulated sensor. Start creates it, Stop tears
// it down; any number of readers may be open in between. Multiple
// devices can run side by side.
type Device struct {
	cfg  Config
	buf  *ring.Buffer
	wset *waitSet

	epoch time.Time // monotonic base for sample timestamps

	stop chan struct{} // closed by Stop to halt the sampler
	done chan struct{} // closed once the device is fully down
	wg   sync.WaitGroup

	stopOnce sync.Once
}

// Start validates cfg, creates the device and begins sampling. The
// first record is emitted one interval after the call returns. A zero
// Config selects the defaults.
func Start(cfg Config) (*Device, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if int64(cfg.Capacity) > 1<<20 {
		return nil, fmt.Errorf("%w: capacity %d too large", ErrResourceUnavailable, cfg.Capacity)
	}

	d := &Device{
		cfg:   cfg,
		buf:   ring.New(cfg.Capacity),
		wset:  newWaitSet(),
		epoch: time.Now(),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()
	return d, nil
}

// run is the periodic driver. Ticks are scheduled against the ideal
// timeline, not the previous firing time, so a late tick does not push
// every later one back. Each tick is generate → enqueue → signal; the
// signal happens after the enqueue so a woken reader finds a record.
func (d *Device) run() {
	defer d.wg.Done()

	params := d.cfg.params()
	rng := rand.Uint32

	next := time.Now().Add(d.cfg.Interval)
	timer := time.NewTimer(d.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-timer.C:
			d.buf.Put(sample.Generate(params, d.nowNS(), rng))
			d.wset.signal()

			next = next.Add(d.cfg.Interval)
			wait := time.Until(next)
			if wait < 0 {
				wait = 0
			}
			timer.Reset(wait)
		}
	}
}

// nowNS returns nanoseconds since the device epoch. time.Since reads
// the monotonic clock, so timestamps never go backwards across ticks.
func (d *Device) nowNS() uint64 {
	return uint64(time.Since(d.epoch))
}

// Stop halts the sampler, waits for an in-flight tick, and wakes every
// blocked reader; their reads fail with ErrDeviceGone. Safe to call
// more than once and with readers still open.
func (d *Device) Stop() {
	d.stopOnce.Do(func() {
		close(d.stop)
		d.wg.Wait()
		close(d.done)
		d.wset.signal()
	})
}

// Config returns the device's configuration snapshot.
func (d *Device) Config() Config { return d.cfg }

// HasData reports whether at least one record is readable.
func (d *Device) HasData() bool { return d.buf.HasData() }

// Overflows returns the number of records dropped because the buffer
// was full when the sampler ticked.
func (d *Device) Overflows() uint64 { return d.buf.Overflows() }

// stopped reports whether Stop has completed.
func (d *Device) stopped() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}
