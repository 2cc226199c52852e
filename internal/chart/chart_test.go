package chart

import (
	"strings"
	"testing"
	"time"

	"github.com/luki/simtemp/internal/history"
)

func TestSparkline(t *testing.T) {
	var pts []history.Point
	for _, mc := range []int32{30000, 35000, 40000, 45000, 50000} {
		pts = append(pts, history.Point{TempMC: mc})
	}
	result := RenderSparklinePoints(pts, 20, 25000, 55000, 45000)
	if len(result) == 0 {
		t.Error("sparkline should not be empty")
	}
	t.Logf("Sparkline: %s", result)
}

func TestSparklineSecondTicks(t *testing.T) {
	base := time.Date(2026, 8, 6, 14, 0, 0, 900*int(time.Millisecond), time.Local)
	var pts []history.Point
	for i := 0; i < 20; i++ {
		pts = append(pts, history.Point{
			TempMC: int32(35000 + (i%5)*500),
			Time:   base.Add(time.Duration(i) * 100 * time.Millisecond),
		})
	}

	result := RenderSparklinePoints(pts, 20, 30000, 40000, 45000)
	if !strings.Contains(result, "│") {
		t.Error("expected second tick mark in sparkline")
	}
	t.Logf("Sparkline with ticks: %s", result)
}

func TestSparklineEmpty(t *testing.T) {
	result := RenderSparklinePoints(nil, 10, 0, 1000, 500)
	if len(result) == 0 {
		t.Error("empty sparkline should render placeholder")
	}
}

func TestTempColor(t *testing.T) {
	if TempColor(50000, 45000) != "196" {
		t.Error("above threshold should be red")
	}
	if TempColor(45000, 45000) == "196" {
		t.Error("at threshold must not be red; excess is strict")
	}
	if TempColor(44000, 45000) != "220" {
		t.Error("within 15% of threshold should be yellow")
	}
	if TempColor(20000, 45000) != "78" {
		t.Error("well below threshold should be green")
	}
}

func TestThresholdScale(t *testing.T) {
	out := RenderThresholdScale(40000, 25000, 50000, 45000, 30)
	if !strings.Contains(out, "◆") {
		t.Error("missing current marker")
	}
	if !strings.Contains(out, "▪") {
		t.Error("missing threshold marker")
	}
}

func TestRenderTempValue(t *testing.T) {
	out := RenderTempValue(-1500, 45000)
	if !strings.Contains(out, "-1.500°C") {
		t.Errorf("got %q", out)
	}
}
