package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/hmaier/armik/pkg/teleop"
)

type TeleoperateCommand struct {
	Hz         int    `long:"hz" default:"60" description:"Control loop frequency"`
	Config     string `long:"config" description:"Path to a JSON config file (optional)"`
	SaveConfig bool   `long:"save-config" description:"Write the active configuration to armik.json and exit"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	statusHeight = 2 // solver status line + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Joint colors - distinct colors for each joint trace
var jointColors = map[string]string{
	"shoulder_pan":  "196", // red
	"shoulder_lift": "208", // orange
	"elbow_flex":    "226", // yellow
	"wrist_flex":    "46",  // green
	"wrist_yaw":     "51",  // cyan
	"wrist_roll":    "201", // magenta
}

var jointOrder = []string{
	"shoulder_pan", "shoulder_lift", "elbow_flex",
	"wrist_flex", "wrist_yaw", "wrist_roll",
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type teleopModel struct {
	ctrl     *teleop.Controller
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	last     teleop.State
	quitting bool
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 16 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - statusHeight - footerHeight - borderSize
	if height < 8 {
		height = 8
	}
	return width, height
}

func (m *teleopModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialTeleopModel(ctrl *teleop.Controller) teleopModel {
	chart := streamlinechart.New(80, 16,
		streamlinechart.WithYRange(-3, 3),
	)

	// Set up data set styles for each joint
	for _, name := range jointOrder {
		color := jointColors[name]
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return teleopModel{
		ctrl:  ctrl,
		chart: &chart,
	}
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		// Translation intents: world x/y/z
		case "w":
			m.ctrl.Nudge(0, 1)
		case "s":
			m.ctrl.Nudge(0, -1)
		case "a":
			m.ctrl.Nudge(1, 1)
		case "d":
			m.ctrl.Nudge(1, -1)
		case "q":
			m.ctrl.Nudge(2, 1)
		case "e":
			m.ctrl.Nudge(2, -1)

		// Rotation intents: roll/pitch/yaw
		case "u":
			m.ctrl.Rotate(0, 1)
		case "o":
			m.ctrl.Rotate(0, -1)
		case "i":
			m.ctrl.Rotate(1, 1)
		case "k":
			m.ctrl.Rotate(1, -1)
		case "j":
			m.ctrl.Rotate(2, 1)
		case "l":
			m.ctrl.Rotate(2, -1)

		case " ", "space":
			m.ctrl.TogglePause()
		case "0":
			m.ctrl.ResetPose()
		}

	case stateMsg:
		state := teleop.State(msg)
		if state.Positions != nil {
			for name, pos := range state.Positions {
				if _, ok := jointColors[name]; ok {
					m.chart.PushDataSet(name, pos)
				}
			}
			m.chart.DrawAll()
			m.last = state
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("armik teleoperate"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Solver status
	sb.WriteString(renderStatus(m.last))
	sb.WriteString("\n\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9"))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("wasd/qe translate - uiojkl rotate - space pause - 0 reset - esc quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderStatus(st teleop.State) string {
	d := st.Diag
	mode := "running"
	if st.Paused {
		mode = "paused"
	}
	parts := []string{
		fmt.Sprintf("err %.4f", d.LastError),
		fmt.Sprintf("lambda %.2g", d.Lambda),
		mode,
	}
	if d.Fallbacks > 0 {
		parts = append(parts, alertStyle.Render(fmt.Sprintf("fallback x%d", d.Fallbacks)))
	}
	if d.Stalled {
		parts = append(parts, alertStyle.Render("stalled"))
	}
	if d.Converged {
		parts = append(parts, "converged")
	}
	if d.Disabled {
		parts = append(parts, alertStyle.Render("DISABLED"))
	}
	return statusStyle.Render(strings.Join(parts, "  "))
}

func renderLegend() string {
	var items []string
	for _, name := range jointOrder {
		color := jointColors[name]
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
		item := colorStyle.Render("━━") + " " + name
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg := teleop.DefaultConfig()
	switch {
	case c.Config != "":
		loaded, err := teleop.LoadConfigFrom(c.Config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	case teleop.ConfigExists():
		loaded, err := teleop.LoadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if c.Hz > 0 {
		cfg.Hz = c.Hz
	}
	if c.SaveConfig {
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("Wrote %s\n", teleop.DefaultConfigFile)
		return nil
	}

	ctrl, err := teleop.NewController(cfg)
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := ctrl.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Controller error: %v", err)
		}
	}()

	p := tea.NewProgram(initialTeleopModel(ctrl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	return nil
}
