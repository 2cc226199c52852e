package device

import (
	"fmt"
	"math"
	"time"

	"github.com/luki/simtemp/internal/ring"
	"github.com/luki/simtemp/internal/sample"
)

// Defaults used when a Config field is left zero.
const (
	DefaultInterval    = 100 * time.Millisecond
	DefaultThresholdMC = 45000
	DefaultBaseMC      = 35000
	DefaultVariationMC = 10000
)

// Config describes one simulated sensor. It is immutable after Start.
// A zero Interval or Capacity takes its default; ThresholdMC, BaseMC and
// VariationMC take their defaults only when all three are zero.
type Config struct {
	// Interval is the sampling period.
	Interval time.Duration

	// ThresholdMC sets the alert threshold in milli-Celsius. A reading
	// strictly above it carries the threshold flag.
	ThresholdMC int32

	// BaseMC and VariationMC define the generated distribution: uniform
	// over [BaseMC−VariationMC, BaseMC+VariationMC].
	BaseMC      int32
	VariationMC int32

	// Capacity is the ring buffer slot count, a power of two. The
	// buffer holds Capacity−1 records before dropping the oldest.
	Capacity uint32
}

// DefaultConfig returns the configuration used when none is supplied:
// 100ms sampling, 35.0°C base, ±10.0°C variation, 45.0°C threshold,
// 64 slots.
func DefaultConfig() Config {
	return Config{
		Interval:    DefaultInterval,
		ThresholdMC: DefaultThresholdMC,
		BaseMC:      DefaultBaseMC,
		VariationMC: DefaultVariationMC,
		Capacity:    ring.DefaultCapacity,
	}
}

// withDefaults fills zero fields. ThresholdMC, BaseMC and VariationMC
// are defaulted as a group only when the whole triple is zero, so an
// explicit 0mC threshold is representable alongside custom base values.
func (c Config) withDefaults() Config {
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.Capacity == 0 {
		c.Capacity = ring.DefaultCapacity
	}
	if c.ThresholdMC == 0 && c.BaseMC == 0 && c.VariationMC == 0 {
		c.ThresholdMC = DefaultThresholdMC
		c.BaseMC = DefaultBaseMC
		c.VariationMC = DefaultVariationMC
	}
	return c
}

// validate rejects configurations the generator cannot serve: the
// sampling interval must be positive, variation non-negative, capacity
// a power of two, and base±variation must stay inside int32 so the
// temperature arithmetic cannot overflow.
func (c Config) validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval %v not positive", ErrInvalidConfig, c.Interval)
	}
	if c.VariationMC < 0 {
		return fmt.Errorf("%w: variation %dmC negative", ErrInvalidConfig, c.VariationMC)
	}
	if c.Capacity&(c.Capacity-1) != 0 || c.Capacity < 2 {
		return fmt.Errorf("%w: capacity %d not a power of two ≥ 2", ErrInvalidConfig, c.Capacity)
	}
	if int64(c.BaseMC)+int64(c.VariationMC) > math.MaxInt32 ||
		int64(c.BaseMC)-int64(c.VariationMC) < math.MinInt32 {
		return fmt.Errorf("%w: base %dmC ± variation %dmC overflows int32",
			ErrInvalidConfig, c.BaseMC, c.VariationMC)
	}
	return nil
}

func (c Config) params() sample.Params {
	return sample.Params{
		BaseMC:      c.BaseMC,
		VariationMC: c.VariationMC,
		ThresholdMC: c.ThresholdMC,
	}
}
