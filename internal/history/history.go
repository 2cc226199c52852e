// Package history tracks a bounded window of recent samples together
// with lifetime min/peak/avg statistics and a threshold-exceeded count.
// Temperatures stay in integer milli-Celsius throughout.
package history

import (
	"math"
	"time"

	"github.com/luki/simtemp/internal/sample"
)

// Point is a single recorded sample with its arrival time.
type Point struct {
	TempMC int32
	Flags  uint32
	Time   time.Time
}

// Buffer keeps the last Max points of a run plus running statistics
// over every sample ever recorded, not just the retained window.
type Buffer struct {
	Points []Point
	Max    int // capacity of the window

	MinMC          int32
	PeakMC         int32
	Count          uint64
	ThresholdCount uint64

	sumMC int64
}

// NewBuffer creates a history window with the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		Points: make([]Point, 0, capacity),
		Max:    capacity,
		MinMC:  math.MaxInt32,
		PeakMC: math.MinInt32,
	}
}

// Record adds a sample, evicting the oldest point once the window is
// full.
func (b *Buffer) Record(s sample.Sample, t time.Time) {
	p := Point{TempMC: s.TempMC, Flags: s.Flags, Time: t}
	if len(b.Points) >= b.Max {
		copy(b.Points, b.Points[1:])
		b.Points[len(b.Points)-1] = p
	} else {
		b.Points = append(b.Points, p)
	}

	if s.TempMC < b.MinMC {
		b.MinMC = s.TempMC
	}
	if s.TempMC > b.PeakMC {
		b.PeakMC = s.TempMC
	}
	b.sumMC += int64(s.TempMC)
	b.Count++
	if s.Exceeded() {
		b.ThresholdCount++
	}
}

// Last returns the most recent temperature in milli-Celsius, or 0 if
// nothing has been recorded.
func (b *Buffer) Last() int32 {
	if len(b.Points) == 0 {
		return 0
	}
	return b.Points[len(b.Points)-1].TempMC
}

// AvgMC returns the lifetime average temperature in milli-Celsius.
func (b *Buffer) AvgMC() int32 {
	if b.Count == 0 {
		return 0
	}
	return int32(b.sumMC / int64(b.Count))
}

// LastNPoints returns up to the n most recent points.
func (b *Buffer) LastNPoints(n int) []Point {
	if n <= 0 || len(b.Points) == 0 {
		return nil
	}
	start := len(b.Points) - n
	if start < 0 {
		start = 0
	}
	out := make([]Point, len(b.Points[start:]))
	copy(out, b.Points[start:])
	return out
}
