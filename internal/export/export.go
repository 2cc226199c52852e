// Package export renders the sample stream in the CLI output formats:
// a box-drawn table, a JSON array, or CSV rows. Encoders are streaming;
// headers are emitted with the first sample and footers on Close.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/luki/simtemp/internal/history"
	"github.com/luki/simtemp/internal/sample"
)

// Encoder writes samples one at a time to an output stream.
type Encoder interface {
	// Sample writes one record. index is 1-based.
	Sample(index uint32, s sample.Sample) error
	// Close writes any trailing output and flushes.
	Close() error
}

// NewEncoder returns the encoder for format ("table", "json" or "csv").
// verbose switches the table timestamp column from relative
// milliseconds to absolute nanoseconds.
func NewEncoder(format string, w io.Writer, verbose bool) (Encoder, error) {
	switch format {
	case "table":
		return &tableEncoder{w: w, verbose: verbose}, nil
	case "json":
		return &jsonEncoder{w: w}, nil
	case "csv":
		return &csvEncoder{w: csv.NewWriter(w)}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (use table, json or csv)", format)
	}
}

// ── Table ────────────────────────────────────────────────────────────

type tableEncoder struct {
	w       io.Writer
	verbose bool
	started bool
	firstNS uint64
}

func (e *tableEncoder) Sample(index uint32, s sample.Sample) error {
	if !e.started {
		e.started = true
		e.firstNS = s.TimestampNS
		fmt.Fprintln(e.w)
		fmt.Fprintln(e.w, "╔═══════╦════════════════╦═══════════════════╦══════════════════════════╗")
		fmt.Fprintln(e.w, "║ Index ║  Temperature   ║      Flags        ║        Timestamp         ║")
		fmt.Fprintln(e.w, "╠═══════╬════════════════╬═══════════════════╬══════════════════════════╣")
	}

	temp := fmt.Sprintf("%6d.%03d°C", s.TempMC/1000, abs32(s.TempMC%1000))

	flags := ""
	if s.Flags&sample.FlagNewSample != 0 {
		flags += "NEW "
	}
	if s.Exceeded() {
		flags += "⚠ THRESH"
	}

	var ts string
	if e.verbose {
		ts = fmt.Sprintf("%20d ns", s.TimestampNS)
	} else {
		ts = fmt.Sprintf("+%-18d ms", (s.TimestampNS-e.firstNS)/1_000_000)
	}

	if s.Exceeded() {
		_, err := fmt.Fprintf(e.w, "║ %5d ║ \033[1;31m%-14s\033[0m ║ %-17s ║ %s ║\n", index, temp, flags, ts)
		return err
	}
	_, err := fmt.Fprintf(e.w, "║ %5d ║ %-14s ║ %-17s ║ %s ║\n", index, temp, flags, ts)
	return err
}

func (e *tableEncoder) Close() error {
	if !e.started {
		return nil
	}
	_, err := fmt.Fprintln(e.w, "╚═══════╩════════════════╩═══════════════════╩══════════════════════════╝")
	return err
}

// ── JSON ─────────────────────────────────────────────────────────────

type jsonEncoder struct {
	w       io.Writer
	started bool
}

type jsonSample struct {
	Index         uint32    `json:"index"`
	TemperatureC  float64   `json:"temperature_C"`
	TemperatureMC int32     `json:"temperature_mC"`
	TimestampNS   uint64    `json:"timestamp_ns"`
	Flags         jsonFlags `json:"flags"`
}

type jsonFlags struct {
	NewSample         bool `json:"new_sample"`
	ThresholdExceeded bool `json:"threshold_exceeded"`
}

func (e *jsonEncoder) Sample(index uint32, s sample.Sample) error {
	sep := ",\n"
	if !e.started {
		e.started = true
		sep = "[\n"
	}
	b, err := json.MarshalIndent(jsonSample{
		Index:         index,
		TemperatureC:  float64(s.TempMC) / 1000,
		TemperatureMC: s.TempMC,
		TimestampNS:   s.TimestampNS,
		Flags: jsonFlags{
			NewSample:         s.Flags&sample.FlagNewSample != 0,
			ThresholdExceeded: s.Exceeded(),
		},
	}, "  ", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.w, "%s  %s", sep, b)
	return err
}

func (e *jsonEncoder) Close() error {
	if !e.started {
		_, err := fmt.Fprintln(e.w, "[]")
		return err
	}
	_, err := fmt.Fprintln(e.w, "\n]")
	return err
}

// ── CSV ──────────────────────────────────────────────────────────────

type csvEncoder struct {
	w       *csv.Writer
	started bool
}

func (e *csvEncoder) Sample(index uint32, s sample.Sample) error {
	if !e.started {
		e.started = true
		if err := e.w.Write([]string{"Index", "Temperature_C", "Temperature_mC", "Timestamp_ns", "New_Sample", "Threshold_Exceeded"}); err != nil {
			return err
		}
	}
	return e.w.Write([]string{
		strconv.FormatUint(uint64(index), 10),
		fmt.Sprintf("%d.%03d", s.TempMC/1000, abs32(s.TempMC%1000)),
		strconv.FormatInt(int64(s.TempMC), 10),
		strconv.FormatUint(s.TimestampNS, 10),
		boolBit(s.Flags&sample.FlagNewSample != 0),
		boolBit(s.Exceeded()),
	})
}

func (e *csvEncoder) Close() error {
	e.w.Flush()
	return e.w.Error()
}

// ── Statistics ───────────────────────────────────────────────────────

// RenderStats formats the end-of-run statistics box the -s flag
// prints, mirroring the live monitor's summary line.
func RenderStats(w io.Writer, h *history.Buffer) {
	if h.Count == 0 {
		fmt.Fprintln(w, "\nNo samples collected.")
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔════════════════════════════════════════╗")
	fmt.Fprintln(w, "║         Temperature Statistics         ║")
	fmt.Fprintln(w, "╠════════════════════════════════════════╣")
	fmt.Fprintf(w, "║ Total Samples:      %-18d ║\n", h.Count)
	fmt.Fprintf(w, "║ Min Temperature:    %6d.%03d°C       ║\n", h.MinMC/1000, abs32(h.MinMC%1000))
	fmt.Fprintf(w, "║ Max Temperature:    %6d.%03d°C       ║\n", h.PeakMC/1000, abs32(h.PeakMC%1000))
	fmt.Fprintf(w, "║ Avg Temperature:    %6d.%03d°C       ║\n", h.AvgMC()/1000, abs32(h.AvgMC()%1000))
	fmt.Fprintf(w, "║ Threshold Exceeded: %-18d ║\n", h.ThresholdCount)
	fmt.Fprintln(w, "╚════════════════════════════════════════╝")
}

func boolBit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
