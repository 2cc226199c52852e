// Package chart provides sparkline rendering for the live monitor:
// threshold-colored blocks, second tick marks and a threshold scale
// bar. All temperatures are integer milli-Celsius.
package chart

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/simtemp/internal/history"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// TempColor returns the color for a temperature given the alert
// threshold. Readings in the top 15% below the threshold render as a
// warning.
func TempColor(mc, thresholdMC int32) lipgloss.Color {
	switch {
	case mc > thresholdMC:
		return lipgloss.Color("196") // red
	case int64(mc)*100 >= int64(thresholdMC)*85:
		return lipgloss.Color("220") // yellow
	default:
		return lipgloss.Color("78") // soft green
	}
}

// RenderSparklinePoints renders the recent sample window as a
// sparkline. A subtle pipe is drawn where the wall clock crosses a
// second boundary, matching the timeline labels below.
func RenderSparklinePoints(points []history.Point, width int, rangeMinMC, rangeMaxMC, thresholdMC int32) string {
	if width <= 0 {
		return ""
	}

	if len(points) == 0 {
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
		return dim.Render(strings.Repeat("╌", width))
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)
	span := int64(rangeMaxMC) - int64(rangeMinMC)
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	for i := 0; i < padLen; i++ {
		sb.WriteString(dim.Render("╌"))
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i, p := range points {
		if isSecondTick(points, i) {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}

		norm := (int64(p.TempMC) - int64(rangeMinMC)) * 7 / span
		if norm < 0 {
			norm = 0
		}
		if norm > 7 {
			norm = 7
		}

		style := lipgloss.NewStyle().Foreground(TempColor(p.TempMC, thresholdMC))
		if p.TempMC > thresholdMC {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[norm])))
	}

	return sb.String()
}

// isSecondTick reports whether point i starts a new wall-clock second.
// Samples arrive several times per second, so seconds are the natural
// tick unit.
func isSecondTick(points []history.Point, i int) bool {
	p := points[i]
	if p.Time.IsZero() || i == 0 {
		return false
	}
	prev := points[i-1]
	return !prev.Time.IsZero() && p.Time.Truncate(time.Second) != prev.Time.Truncate(time.Second)
}

// RenderTimeline renders HH:MM:SS labels under the sparkline at each
// second tick position.
func RenderTimeline(points []history.Point, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}
	padLen := width - len(points)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	lastEnd := -1
	for i := range points {
		if !isSecondTick(points, i) {
			continue
		}
		label := points[i].Time.Format("15:04:05")
		start := padLen + i - 2
		if start < 0 {
			start = 0
		}
		end := start + len(label)
		if end > width || start <= lastEnd+1 {
			continue
		}
		for j, ch := range label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	return tickStyle.Render(string(line))
}

// RenderThresholdScale renders a scale bar marking the threshold and
// the current reading's position within [rangeMin, rangeMax].
func RenderThresholdScale(currentMC, rangeMinMC, rangeMaxMC, thresholdMC int32, width int) string {
	if width <= 0 {
		return ""
	}

	span := int64(rangeMaxMC) - int64(rangeMinMC)
	if span <= 0 {
		span = 1
	}
	pos := func(mc int32) int {
		p := int(int64(width-1) * (int64(mc) - int64(rangeMinMC)) / span)
		if p < 0 {
			p = 0
		}
		if p >= width {
			p = width - 1
		}
		return p
	}

	threshPos := -1
	if thresholdMC > rangeMinMC && thresholdMC <= rangeMaxMC {
		threshPos = pos(thresholdMC)
	}
	curPos := pos(currentMC)

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch i {
		case curPos:
			style := lipgloss.NewStyle().Foreground(TempColor(currentMC, thresholdMC)).Bold(true)
			sb.WriteString(style.Render("◆"))
		case threshPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("▪"))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("236")).Render("·"))
		}
	}
	return sb.String()
}

// RenderTempValue renders a temperature value with threshold coloring.
func RenderTempValue(mc, thresholdMC int32) string {
	frac := mc % 1000
	if frac < 0 {
		frac = -frac
	}
	s := fmt.Sprintf("%3d.%03d°C", mc/1000, frac)
	style := lipgloss.NewStyle().Foreground(TempColor(mc, thresholdMC))
	if mc > thresholdMC {
		style = style.Bold(true)
	}
	return style.Render(s)
}
