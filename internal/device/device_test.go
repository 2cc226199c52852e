package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/luki/simtemp/internal/sample"
)

func startDefault(t *testing.T) *Device {
	t.Helper()
	d, err := Start(Config{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestBasicRead(t *testing.T) {
	d := startDefault(t)
	r := d.Open(false)
	defer r.Close()

	time.Sleep(350 * time.Millisecond)

	ctx := context.Background()
	var prev uint64
	for i := 0; i < 3; i++ {
		s, err := r.Next(ctx)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if s.TempMC < 25000 || s.TempMC > 45000 {
			t.Errorf("read %d: temp %dmC out of [25000, 45000]", i, s.TempMC)
		}
		if s.Flags&sample.FlagNewSample == 0 {
			t.Errorf("read %d: NEW_SAMPLE not set", i)
		}
		// Default threshold is 45000 and max temp is 45000; strict
		// comparison means the flag can never be set here.
		if s.Exceeded() {
			t.Errorf("read %d: threshold flag set at default config", i)
		}
		if s.TimestampNS < prev {
			t.Errorf("read %d: timestamp went backwards: %d < %d", i, s.TimestampNS, prev)
		}
		prev = s.TimestampNS
	}
}

func TestRecordFraming(t *testing.T) {
	d := startDefault(t)
	r := d.Open(false)
	defer r.Close()

	buf := make([]byte, 64)
	n, err := r.Read(context.Background(), buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != sample.Size {
		t.Errorf("Read returned %d bytes, want %d", n, sample.Size)
	}
}

func TestBufferTooSmall(t *testing.T) {
	d := startDefault(t)
	r := d.Open(false)
	defer r.Close()

	_, err := r.Read(context.Background(), make([]byte, 15))
	if !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("got %v, want ErrBufferTooSmall", err)
	}
}

func TestThresholdFlag(t *testing.T) {
	d, err := Start(Config{
		Interval:    5 * time.Millisecond,
		ThresholdMC: 30000,
		BaseMC:      35000,
		VariationMC: 10000,
		Capacity:    256,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	r := d.Open(false)
	defer r.Close()

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		s, err := r.Next(ctx)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if (s.TempMC > 30000) != s.Exceeded() {
			t.Errorf("temp %dmC: flag %v, threshold 30000", s.TempMC, s.Exceeded())
		}
	}
}

func TestOverflowKeepsNewest(t *testing.T) {
	d, err := Start(Config{
		Interval: 5 * time.Millisecond,
		BaseMC:   35000,
		Capacity: 64,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	// Roughly 200 records produced, buffer holds 63.
	time.Sleep(time.Second)

	r := d.Open(true)
	defer r.Close()

	var drained []sample.Sample
	for {
		s, err := r.Next(context.Background())
		if errors.Is(err, ErrWouldBlock) {
			break
		}
		if err != nil {
			t.Fatalf("drain: %v", err)
		}
		drained = append(drained, s)
	}

	if len(drained) > 63 {
		t.Errorf("drained %d records, buffer holds at most 63", len(drained))
	}
	for i := 1; i < len(drained); i++ {
		if drained[i].TimestampNS < drained[i-1].TimestampNS {
			t.Errorf("drained records out of order at %d", i)
		}
	}
	if d.Overflows() == 0 {
		t.Error("expected overflow drops after a 1s burst into 64 slots")
	}
}

func TestNonBlockingRead(t *testing.T) {
	d := startDefault(t)
	r := d.Open(true)
	defer r.Close()

	// Immediately after start the buffer is empty.
	_, err := r.Next(context.Background())
	if !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("got %v, want ErrWouldBlock", err)
	}

	time.Sleep(150 * time.Millisecond)

	n, err := r.Read(context.Background(), make([]byte, sample.Size))
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if n != sample.Size {
		t.Errorf("second read: %d bytes, want %d", n, sample.Size)
	}
}

func TestBlockingWakeup(t *testing.T) {
	d := startDefault(t)
	r := d.Open(false)
	defer r.Close()

	start := time.Now()
	if _, err := r.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed > 2*time.Second {
		t.Errorf("blocking read took %v, want about one interval", elapsed)
	}
}

func TestPollReadiness(t *testing.T) {
	d := startDefault(t)
	r := d.Open(true)
	defer r.Close()

	ready, wait, err := r.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if ready {
		t.Error("poll on fresh device reported readable")
	}

	select {
	case <-wait:
	case <-time.After(2 * time.Second):
		t.Fatal("no readiness signal within 2s")
	}

	ready, _, err = r.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !ready {
		t.Error("poll after signal reported not readable")
	}

	// Fast drain: the buffer is empty again until the next tick.
	for {
		if _, err := r.Next(context.Background()); errors.Is(err, ErrWouldBlock) {
			break
		} else if err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	ready, _, err = r.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if ready {
		t.Error("poll after drain reported readable")
	}
}

func TestMultiReader(t *testing.T) {
	d, err := Start(Config{
		Interval: 2 * time.Millisecond,
		BaseMC:   35000,
		Capacity: 256,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	const want = 100
	var mu sync.Mutex
	seen := make(map[uint64]int)
	streams := make([][]uint64, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r := d.Open(false)
			defer r.Close()
			for {
				mu.Lock()
				if len(seen) >= want {
					mu.Unlock()
					return
				}
				mu.Unlock()

				s, err := r.Next(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				seen[s.TimestampNS]++
				streams[id] = append(streams[id], s.TimestampNS)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if len(seen) < want {
		t.Fatalf("received %d distinct records, want at least %d", len(seen), want)
	}
	for ts, n := range seen {
		if n != 1 {
			t.Errorf("record %d delivered to %d readers", ts, n)
		}
	}
	for id, stream := range streams {
		for i := 1; i < len(stream); i++ {
			if stream[i] < stream[i-1] {
				t.Errorf("reader %d: stream out of order at %d", id, i)
			}
		}
	}
}

func TestInterrupted(t *testing.T) {
	d, err := Start(Config{Interval: time.Hour, BaseMC: 35000})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()
	r := d.Open(false)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Next(ctx)
	if !errors.Is(err, ErrInterrupted) {
		t.Errorf("got %v, want ErrInterrupted", err)
	}
}

func TestStopWakesBlockedReaders(t *testing.T) {
	d, err := Start(Config{Interval: time.Hour, BaseMC: 35000})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	r := d.Open(false)
	defer r.Close()

	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := r.Next(context.Background())
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond) // let the readers block
	d.Stop()

	for i := 0; i < 3; i++ {
		select {
		case err := <-errs:
			if !errors.Is(err, ErrDeviceGone) {
				t.Errorf("blocked reader got %v, want ErrDeviceGone", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("blocked reader not woken by Stop")
		}
	}
}

func TestStopIdempotent(t *testing.T) {
	d, err := Start(Config{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()
	d.Stop()

	r := d.Open(false)
	if _, err := r.Next(context.Background()); !errors.Is(err, ErrDeviceGone) {
		t.Errorf("read after stop: got %v, want ErrDeviceGone", err)
	}

	ready, _, err := r.Poll()
	if !errors.Is(err, ErrDeviceGone) {
		t.Errorf("poll after stop: got ready=%v err=%v, want ErrDeviceGone", ready, err)
	}
}

func TestClosedReader(t *testing.T) {
	d := startDefault(t)
	r := d.Open(false)
	r.Close()
	r.Close()

	if _, err := r.Next(context.Background()); !errors.Is(err, ErrDeviceGone) {
		t.Errorf("read on closed handle: got %v, want ErrDeviceGone", err)
	}

	// The device itself keeps running for other handles.
	r2 := d.Open(false)
	defer r2.Close()
	if _, err := r2.Next(context.Background()); err != nil {
		t.Errorf("fresh handle after close: %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"negative interval", Config{Interval: -time.Second}},
		{"negative variation", Config{Interval: time.Second, BaseMC: 1000, VariationMC: -1}},
		{"capacity not power of two", Config{Interval: time.Second, BaseMC: 1000, Capacity: 48}},
		{"overflowing range", Config{Interval: time.Second, BaseMC: 2147480000, VariationMC: 10000}},
	}
	for _, tc := range cases {
		if _, err := Start(tc.cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: got %v, want ErrInvalidConfig", tc.name, err)
		}
	}
}

func TestTwoDevices(t *testing.T) {
	a := startDefault(t)
	b, err := Start(Config{Interval: 10 * time.Millisecond, BaseMC: 20000, VariationMC: 0, ThresholdMC: 25000})
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	defer b.Stop()

	ra := a.Open(false)
	defer ra.Close()
	rb := b.Open(false)
	defer rb.Close()

	sa, err := ra.Next(context.Background())
	if err != nil {
		t.Fatalf("device a: %v", err)
	}
	sb, err := rb.Next(context.Background())
	if err != nil {
		t.Fatalf("device b: %v", err)
	}
	if sa.TempMC < 25000 {
		t.Errorf("device a temp %dmC below its range", sa.TempMC)
	}
	if sb.TempMC != 20000 {
		t.Errorf("device b temp %dmC, want exactly 20000", sb.TempMC)
	}
}

// TestNoLostWakeup hammers the register-check-wait path with a short
// interval: 200 blocking reads must all complete within the deadline.
// The sampler keeps ticking, so a missed wakeup would only delay a read
// by one interval rather than hang it.
func TestNoLostWakeup(t *testing.T) {
	d, err := Start(Config{Interval: time.Millisecond, BaseMC: 35000, Capacity: 1024})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	r := d.Open(false)
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := 0; i < 200; i++ {
		if _, err := r.Next(ctx); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
	}
}
