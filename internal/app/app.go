package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"proxigesture.klederson.com/internal/clock"
	"proxigesture.klederson.com/internal/config"
	"proxigesture.klederson.com/internal/graph"
	"proxigesture.klederson.com/internal/monitor"
	"proxigesture.klederson.com/internal/sensor"
	"proxigesture.klederson.com/internal/ui"
)

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	ctx   context.Context
	mon   *monitor.Monitor
	clock clock.Clock
	flash *graph.Flash
}

// AppModel is the root Bubble Tea model for proxigesture.
type AppModel struct {
	width  int
	height int

	graphWindow time.Duration
	errMsg      string

	shared *shared

	// Cached snapshot, refreshed every tick
	status   monitor.Status
	readings []sensor.Reading
	now      int64
	lastSeq  int
}

// New creates a new AppModel. Monitoring starts from Init.
func New(ctx context.Context, mon *monitor.Monitor, c clock.Clock) AppModel {
	return AppModel{
		graphWindow: config.GraphWindow,
		shared: &shared{
			ctx:   ctx,
			mon:   mon,
			clock: c,
			flash: graph.NewFlash(config.GestureFlash),
		},
	}
}

// Listener forwards session events, except per-reading ones, into p. The
// graph is redrawn from the log on every tick instead.
func Listener(p *tea.Program) monitor.Listener {
	return func(event any) {
		if _, ok := event.(monitor.ReadingEvent); ok {
			return
		}
		p.Send(event)
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.startCmd(),
	)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.refresh()
		return m, tickCmd()

	case SessionStartedMsg:
		m.errMsg = ""
		if msg.Err != nil {
			if errors.Is(msg.Err, sensor.ErrNoSensorAvailable) {
				m.errMsg = "NO SENSOR AVAILABLE"
			} else if !errors.Is(msg.Err, monitor.ErrAlreadyRunning) {
				m.errMsg = "START FAILED"
			}
		}
		m.refresh()
		return m, nil

	case SessionStoppedMsg:
		m.refresh()
		return m, nil

	case monitor.GestureEvent:
		m.shared.flash.Trigger(time.Now())
		m.lastSeq = msg.Gesture.Seq
		return m, nil
	}

	return m, nil
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "s", "S":
		if !m.shared.mon.Running() {
			return m, m.startCmd()
		}

	case "p", "P":
		if m.shared.mon.Running() {
			return m, m.stopCmd()
		}

	case "c", "C":
		m.shared.mon.Log().Clear()
		m.readings = nil
	}

	return m, nil
}

// refresh snapshots the monitor for the next View.
func (m *AppModel) refresh() {
	m.status = m.shared.mon.Status()
	m.now = m.shared.clock.NowMillis()
	m.readings = m.shared.mon.Log().Recent(m.graphWindow)
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing proxigesture..."
	}

	menuH := 1
	statusH := 1
	banner := ui.RenderGestureBanner(m.width, m.shared.flash.Intensity(time.Now()), m.lastSeq)
	bannerH := 0
	if banner != "" {
		bannerH = 1
	}
	bodyH := m.height - menuH - statusH - bannerH
	if bodyH < 5 {
		bodyH = 5
	}

	graphW := m.width * 2 / 3
	if graphW < 30 {
		graphW = 30
	}
	detW := m.width - graphW
	if detW < 30 {
		detW = 30
		graphW = m.width - detW
	}

	menuBar := ui.RenderMenuBar(m.width, m.status.Provider, m.status.Running)

	innerW := graphW - 4
	innerH := bodyH - 4
	if innerW < 5 {
		innerW = 5
	}
	if innerH < 3 {
		innerH = 3
	}
	graphContent := graph.Render(innerW, innerH, m.readings, graph.Frame{
		Now:      m.now,
		Window:   m.graphWindow,
		MaxRange: m.status.MaxRange,
		NearLine: sensor.NearLine(m.status.Modality),
	})
	legend := graph.RenderLegend(innerW, m.graphWindow)
	graphPanel := ui.RenderGraphPanel(graphW, bodyH, graphContent, legend)

	history := make([]float64, len(m.readings))
	for i, r := range m.readings {
		history[i] = r.Distance
	}
	detectorPanel := ui.RenderDetectorPanel(m.status, m.now, history, detW, bodyH)

	statusBar := ui.RenderStatusBar(m.width, m.status, len(m.readings), m.errMsg)

	return ui.ComposeLayout(menuBar, banner, graphPanel, detectorPanel, statusBar)
}

func (m AppModel) startCmd() tea.Cmd {
	s := m.shared
	return func() tea.Msg {
		modality, err := s.mon.Start(s.ctx)
		return SessionStartedMsg{Modality: modality, Err: err}
	}
}

// stopCmd stops off the event loop: Stop waits for the session goroutine,
// which may itself be blocked sending to the program.
func (m AppModel) stopCmd() tea.Cmd {
	mon := m.shared.mon
	return func() tea.Msg {
		mon.Stop()
		return SessionStoppedMsg{}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(config.TickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
