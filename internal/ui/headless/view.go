package headless

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	panelFrameInset  = 4
	minLogViewWidth  = 20
	minLogViewHeight = 3
	headerReserve    = 8
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	readingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	helpTextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func (m *dashboardModel) View() string {
	if m.width == 0 || !m.ready {
		return "initializing..."
	}

	sections := []string{
		titleStyle.Render("Enviro Uploader (" + m.buildVersion + ")"),
		m.renderStatusLine(),
		m.renderReadingLine(),
	}
	if m.errorText != "" {
		sections = append(sections, errorTextStyle.Render(clipLine(m.errorText, m.width)))
	}
	sections = append(sections,
		panelStyle.Width(m.logView.Width+2).Render(m.logView.View()),
		helpTextStyle.Render(m.help.ShortHelpView(m.keys.bindings())),
	)
	return strings.Join(sections, "\n")
}

func (m *dashboardModel) renderStatusLine() string {
	status := renderStatus(m.status, m.kind)
	if m.connecting {
		status = m.spin.View() + status
	}
	return labelStyle.Render("Status: ") + status
}

func (m *dashboardModel) renderReadingLine() string {
	if m.lastReading == nil {
		return labelStyle.Render("Last reading: ") + "none yet"
	}
	r := m.lastReading
	line := fmt.Sprintf("%.1f°C  %.1f%% RH  at %s",
		r.Temperature, r.Humidity, r.Time.Format("15:04:05"))
	return labelStyle.Render("Last reading: ") + readingStyle.Render(clipLine(line, m.width))
}

func renderStatus(status string, kind statusKind) string {
	switch kind {
	case statusRunning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(status)
	case statusConnecting:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Render(status)
	case statusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(status)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(status)
	}
}

func (m *dashboardModel) logViewSize() (int, int) {
	width := max(m.width-panelFrameInset, minLogViewWidth)
	height := max(m.height-headerReserve, minLogViewHeight)
	return width, height
}

func (m *dashboardModel) logContent() string {
	if len(m.logLines) == 0 {
		return labelStyle.Render("waiting for log output...")
	}
	width := max(m.logView.Width, minLogViewWidth)
	lines := make([]string, 0, len(m.logLines))
	for _, line := range m.logLines {
		lines = append(lines, clipLine(line, width))
	}
	return strings.Join(lines, "\n")
}

func clipLine(line string, width int) string {
	if width <= 0 || ansi.StringWidth(line) <= width {
		return line
	}
	return ansi.Cut(line, 0, width)
}
