// Package monitor implements the live BubbleTea view of a running
// simulated sensor: current reading, sparkline, running statistics and
// threshold scale.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/simtemp/internal/chart"
	"github.com/luki/simtemp/internal/device"
	"github.com/luki/simtemp/internal/history"
	"github.com/luki/simtemp/internal/sample"
)

const historySize = 600

// ── Messages ─────────────────────────────────────────────────────────

type sampleMsg struct {
	s    sample.Sample
	time time.Time
}

type stoppedMsg struct{}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the live monitor. It owns one
// blocking reader on the device; the device itself belongs to the
// caller.
type Model struct {
	dev    *device.Device
	reader *device.Reader

	history   *history.Buffer
	err       error
	width     int
	height    int
	lastRecv  time.Time
	startTime time.Time
	paused    bool
	inflight  bool
	gone      bool
}

// New creates the initial model for a running device.
func New(dev *device.Device) Model {
	return Model{
		dev:       dev,
		reader:    dev.Open(false),
		history:   history.NewBuffer(historySize),
		startTime: time.Now(),
		inflight:  true, // Init issues the first read
	}
}

// ── Commands ─────────────────────────────────────────────────────────

// waitForSample blocks on the reader until the next record arrives.
// Device teardown surfaces as stoppedMsg rather than an error.
func waitForSample(r *device.Reader) tea.Cmd {
	return func() tea.Msg {
		s, err := r.Next(context.Background())
		if errors.Is(err, device.ErrDeviceGone) {
			return stoppedMsg{}
		}
		if err != nil {
			return errMsg{err}
		}
		return sampleMsg{s: s, time: time.Now()}
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return waitForSample(m.reader)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.reader.Close()
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
			if !m.paused && !m.gone && !m.inflight {
				m.inflight = true
				return m, waitForSample(m.reader)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case sampleMsg:
		m.lastRecv = msg.time
		m.inflight = false
		if !m.paused {
			m.history.Record(msg.s, msg.time)
			m.inflight = true
			return m, waitForSample(m.reader)
		}

	case stoppedMsg:
		m.inflight = false
		m.gone = true

	case errMsg:
		m.err = msg.err
	}

	return m, nil
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorCrit     = lipgloss.Color("196")
	colorPaused   = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string
	sections = append(sections, m.renderTitleBar(contentWidth))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Width(contentWidth).
			Padding(0, 1).
			Render(fmt.Sprintf(" ERROR: %v", m.err))
		sections = append(sections, errBox)
	}

	if m.history.Count == 0 {
		waiting := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("Waiting for samples...")
		sections = append(sections, waiting)
	} else {
		sections = append(sections, m.renderPanel(contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("SIMTEMP MONITOR")

	var statusParts []string

	cfg := m.dev.Config()
	rate := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("every %s", cfg.Interval))
	statusParts = append(statusParts, rate)

	uptime := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.startTime))))
	statusParts = append(statusParts, uptime)

	if !m.lastRecv.IsZero() {
		ts := lipgloss.NewStyle().
			Foreground(colorDim).
			Render(m.lastRecv.Format("15:04:05"))
		statusParts = append(statusParts, ts)
	}

	if m.paused {
		p := lipgloss.NewStyle().
			Foreground(colorPaused).
			Bold(true).
			Render("PAUSED")
		statusParts = append(statusParts, p)
	}
	if m.gone {
		p := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Render("DEVICE STOPPED")
		statusParts = append(statusParts, p)
	}

	sep := lipgloss.NewStyle().Foreground(colorDim).Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + filler + right)
}

func (m Model) renderPanel(totalWidth int) string {
	cfg := m.dev.Config()

	chartWidth := totalWidth - 30
	if chartWidth < 15 {
		chartWidth = 15
	}
	if chartWidth > 140 {
		chartWidth = 140
	}

	rangeMin := cfg.BaseMC - cfg.VariationMC - 2000
	rangeMax := cfg.BaseMC + cfg.VariationMC + 2000
	if cfg.ThresholdMC+2000 > rangeMax {
		rangeMax = cfg.ThresholdMC + 2000
	}

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var rows []string

	label := lipgloss.NewStyle().
		Foreground(colorLabel).
		Width(10).
		Render("sensor0")
	temp := chart.RenderTempValue(m.history.Last(), cfg.ThresholdMC)

	pts := m.history.LastNPoints(chartWidth)
	spark := chart.RenderSparklinePoints(pts, chartWidth, rangeMin, rangeMax, cfg.ThresholdMC)

	stats := dimS.Render(" avg") + valS.Render(fmtMC(m.history.AvgMC())) +
		dimS.Render(" lo") + valS.Render(fmtMC(m.history.MinMC)) +
		dimS.Render(" pk") + valS.Render(fmtMC(m.history.PeakMC))

	thresh := dimS.Render(" T") +
		lipgloss.NewStyle().Foreground(colorCrit).Render(fmtMC(cfg.ThresholdMC))

	rows = append(rows, label+" "+temp+" "+frameL+spark+frameR+stats+thresh)

	scalePad := strings.Repeat(" ", 10+1+lipgloss.Width(temp)+1)
	scale := chart.RenderThresholdScale(m.history.Last(), rangeMin, rangeMax, cfg.ThresholdMC, chartWidth)
	rows = append(rows, scalePad+" "+scale)

	timeline := chart.RenderTimeline(pts, chartWidth)
	if strings.TrimSpace(timeline) != "" {
		rows = append(rows, scalePad+" "+timeline)
	}

	counters := dimS.Render(fmt.Sprintf("samples %d   threshold hits %d   dropped %d",
		m.history.Count, m.history.ThresholdCount, m.dev.Overflows()))
	rows = append(rows, counters)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	okS := lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Render("██")
	warnS := lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Render("██")
	critS := lipgloss.NewStyle().Foreground(colorCrit).Render("██")
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render("│")

	legend := okS + dimS.Render(" ok ") +
		warnS + dimS.Render(" near ") +
		critS + dimS.Render(" over ") +
		tickS + dimS.Render(" 1s")

	keys := dimS.Render("q") + lipgloss.NewStyle().Foreground(colorLabel).Render(":quit") +
		dimS.Render("  p") + lipgloss.NewStyle().Foreground(colorLabel).Render(":pause")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + filler + keys)
}

func fmtMC(mc int32) string {
	frac := mc % 1000
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%01d", mc/1000, frac/100)
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	min := d / time.Minute
	d -= min * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, min, s)
	}
	return fmt.Sprintf("%dm%02ds", min, s)
}
