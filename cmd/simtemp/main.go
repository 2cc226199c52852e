// Command simtemp runs a simulated temperature sensor in-process and
// reads its sample stream, either as a one-shot/continuous dump in
// table, JSON or CSV form, or as a live monitor TUI.
//
// Usage:
//
//	simtemp [flags]            read samples and print them
//	simtemp monitor [flags]    live monitor
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/simtemp/internal/device"
	"github.com/luki/simtemp/internal/export"
	"github.com/luki/simtemp/internal/history"
	"github.com/luki/simtemp/internal/monitor"
)

type cliConfig struct {
	continuous bool
	samples    int
	interval   time.Duration
	format     string
	showStats  bool
	verbose    bool

	sampleEvery time.Duration
	thresholdMC int
	baseMC      int
	variationMC int
	capacity    uint
}

func main() {
	args := os.Args[1:]
	monitorMode := len(args) > 0 && args[0] == "monitor"
	if monitorMode {
		args = args[1:]
	}

	var cfg cliConfig
	fs := flag.NewFlagSet("simtemp", flag.ExitOnError)
	fs.BoolVar(&cfg.continuous, "c", false, "run in continuous mode (until Ctrl+C)")
	fs.IntVar(&cfg.samples, "n", 10, "number of samples to read")
	fs.DurationVar(&cfg.interval, "i", 0, "delay between reads")
	fs.StringVar(&cfg.format, "f", "table", "output format: table, json, csv")
	fs.BoolVar(&cfg.showStats, "s", false, "show statistics at the end")
	fs.BoolVar(&cfg.verbose, "v", false, "verbose output")
	fs.DurationVar(&cfg.sampleEvery, "sample-every", device.DefaultInterval, "sensor sampling period")
	fs.IntVar(&cfg.thresholdMC, "threshold", device.DefaultThresholdMC, "alert threshold in milli-Celsius")
	fs.IntVar(&cfg.baseMC, "base", device.DefaultBaseMC, "base temperature in milli-Celsius")
	fs.IntVar(&cfg.variationMC, "variation", device.DefaultVariationMC, "uniform variation half-width in milli-Celsius")
	fs.UintVar(&cfg.capacity, "capacity", 64, "sample buffer slots (power of two)")
	fs.Parse(args)

	if cfg.samples <= 0 && !cfg.continuous {
		fmt.Fprintln(os.Stderr, "Error: invalid sample count")
		os.Exit(1)
	}

	dev, err := device.Start(device.Config{
		Interval:    cfg.sampleEvery,
		ThresholdMC: int32(cfg.thresholdMC),
		BaseMC:      int32(cfg.baseMC),
		VariationMC: int32(cfg.variationMC),
		Capacity:    uint32(cfg.capacity),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer dev.Stop()

	if monitorMode {
		if err := runMonitor(dev); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runDump(dev, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runMonitor(dev *device.Device) error {
	p := tea.NewProgram(monitor.New(dev), tea.WithAltScreen())

	// Ctrl+C is handled by the model; SIGTERM stops the device, which
	// the model surfaces as DEVICE STOPPED.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		<-sig
		dev.Stop()
	}()

	_, err := p.Run()
	return err
}

func runDump(dev *device.Device, cfg cliConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reader := dev.Open(false)
	defer reader.Close()

	enc, err := export.NewEncoder(cfg.format, os.Stdout, cfg.verbose)
	if err != nil {
		return err
	}

	hist := history.NewBuffer(1)
	if cfg.verbose {
		fmt.Printf("Sampling every %s, threshold %dmC\n", dev.Config().Interval, dev.Config().ThresholdMC)
		if cfg.continuous {
			fmt.Println("Mode: continuous")
		} else {
			fmt.Printf("Samples: %d\n", cfg.samples)
		}
	}

	var index uint32
	for cfg.continuous || index < uint32(cfg.samples) {
		s, err := reader.Next(ctx)
		if errors.Is(err, device.ErrInterrupted) {
			fmt.Println("\n\nReceived interrupt signal. Exiting...")
			break
		}
		if err != nil {
			return err
		}

		index++
		hist.Record(s, time.Now())
		if err := enc.Sample(index, s); err != nil {
			return err
		}

		if cfg.interval > 0 {
			select {
			case <-time.After(cfg.interval):
			case <-ctx.Done():
			}
		}
	}

	if err := enc.Close(); err != nil {
		return err
	}
	if cfg.showStats {
		export.RenderStats(os.Stdout, hist)
	}
	if cfg.verbose {
		fmt.Printf("\nTotal samples read: %d\n", index)
	}
	return nil
}
