// Package sample defines the fixed-layout temperature sample record
// produced by the simulated sensor, its 16-byte wire encoding, and the
// generator that synthesizes readings from a configured distribution.
package sample

import (
	"encoding/binary"
	"fmt"
)

// Size is the wire size of an encoded Sample in bytes.
const Size = 16

// Flag bits carried in Sample.Flags. All other bits are reserved and
// always zero.
const (
	FlagNewSample         uint32 = 0x01
	FlagThresholdExceeded uint32 = 0x02
)

// Sample is a single temperature reading. TimestampNS is monotonic
// nanoseconds; TempMC is milli-Celsius (°C × 1000).
type Sample struct {
	TimestampNS uint64
	TempMC      int32
	Flags       uint32
}

// Params is the generator configuration: the mean, half-width of the
// uniform variation, and the alert threshold, all in milli-Celsius.
type Params struct {
	BaseMC      int32
	VariationMC int32
	ThresholdMC int32
}

// Generate produces the next sample from p using nowNS as the timestamp
// and rng as the entropy source. The temperature is uniform over
// [base−variation, base+variation]; the threshold flag is set on strict
// excess only, so a reading equal to the threshold does not alert.
func Generate(p Params, nowNS uint64, rng func() uint32) Sample {
	span := uint32(2*p.VariationMC + 1)
	v := int32(rng()%span) - p.VariationMC
	temp := p.BaseMC + v

	flags := FlagNewSample
	if temp > p.ThresholdMC {
		flags |= FlagThresholdExceeded
	}

	return Sample{TimestampNS: nowNS, TempMC: temp, Flags: flags}
}

// AppendBinary appends the 16-byte little-endian encoding of s to dst.
func (s Sample) AppendBinary(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, s.TimestampNS)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(s.TempMC))
	dst = binary.LittleEndian.AppendUint32(dst, s.Flags)
	return dst
}

// Encode writes the 16-byte encoding of s into p, which must hold at
// least Size bytes.
func (s Sample) Encode(p []byte) {
	binary.LittleEndian.PutUint64(p[0:8], s.TimestampNS)
	binary.LittleEndian.PutUint32(p[8:12], uint32(s.TempMC))
	binary.LittleEndian.PutUint32(p[12:16], s.Flags)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Sample) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(make([]byte, 0, Size)), nil
}

// Decode parses the first 16 bytes of p into a Sample.
func Decode(p []byte) (Sample, error) {
	if len(p) < Size {
		return Sample{}, fmt.Errorf("sample: short record: %d bytes", len(p))
	}
	return Sample{
		TimestampNS: binary.LittleEndian.Uint64(p[0:8]),
		TempMC:      int32(binary.LittleEndian.Uint32(p[8:12])),
		Flags:       binary.LittleEndian.Uint32(p[12:16]),
	}, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Sample) UnmarshalBinary(p []byte) error {
	dec, err := Decode(p)
	if err != nil {
		return err
	}
	*s = dec
	return nil
}

// Exceeded reports whether the threshold flag is set.
func (s Sample) Exceeded() bool {
	return s.Flags&FlagThresholdExceeded != 0
}

// String formats the sample as "42.000°C" style text with flag tags.
func (s Sample) String() string {
	tags := ""
	if s.Flags&FlagNewSample != 0 {
		tags += " NEW"
	}
	if s.Exceeded() {
		tags += " THRESH"
	}
	return fmt.Sprintf("%d.%03d°C%s", s.TempMC/1000, abs32(s.TempMC%1000), tags)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
