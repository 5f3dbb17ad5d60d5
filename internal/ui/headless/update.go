package headless

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"enviro-uploader/internal/runstatus"
	"enviro-uploader/internal/sensors"
)

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLogView()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case logMsg:
		m.appendLogLine(string(msg))
		return m, waitForLog(m.logCh)

	case statusMsg:
		m.applyRuntimeStatus(string(msg))
		return m, waitForStatus(m.statusCh)

	case readingMsg:
		reading := sensors.Reading(msg)
		m.lastReading = &reading
		return m, waitForReading(m.readingCh)

	case startResultMsg:
		if msg.err != nil {
			m.connecting = false
			m.running = false
			m.status = "Start failed"
			m.kind = statusError
			m.errorText = msg.err.Error()
		}
		return m, nil

	case runDoneMsg:
		m.running = false
		m.connecting = false
		if m.quitting {
			return m, tea.Quit
		}
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.status = "Stopped (error)"
			m.kind = statusError
			m.errorText = msg.err.Error()
		} else {
			m.status = runstatus.Stopped
			m.kind = statusIdle
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m *dashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.runner.IsRunning() {
			m.status = "Stopping..."
			m.runner.Stop()
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		if m.runner.IsRunning() {
			m.status = "Stopping..."
			m.kind = statusConnecting
			m.runner.Stop()
			return m, nil
		}
		return m, m.startUploaderCmd()

	case key.Matches(msg, m.keys.Debug):
		m.opts.Debug = !m.opts.Debug
		m.logger.SetDebugEnabled(m.opts.Debug)
		return m, nil
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m *dashboardModel) applyRuntimeStatus(status string) {
	switch runstatus.Key(status) {
	case runstatus.KeyAuthenticated:
		m.status = runstatus.Authenticated
		m.kind = statusConnecting
	case runstatus.KeyVerified:
		m.status = runstatus.Verified
		m.kind = statusConnecting
	case runstatus.KeyUploading:
		m.status = runstatus.Uploading
		m.kind = statusRunning
		m.running = true
		m.connecting = false
	case runstatus.KeyDegraded:
		m.status = runstatus.Degraded
		m.kind = statusConnecting
	case runstatus.KeyStopped:
		m.status = runstatus.Stopped
		m.kind = statusIdle
		m.running = false
		m.connecting = false
	case runstatus.KeyAuthExpired:
		m.status = runstatus.AuthExpired
		m.kind = statusError
		m.running = false
		m.connecting = false
	default:
		m.status = status
	}
}

func (m *dashboardModel) appendLogLine(line string) {
	m.logLines = append(m.logLines, strings.TrimRight(line, "\n"))
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
	if !m.ready {
		return
	}
	atBottom := m.logView.AtBottom()
	m.logView.SetContent(m.logContent())
	if atBottom {
		m.logView.GotoBottom()
	}
}

func (m *dashboardModel) resizeLogView() {
	width, height := m.logViewSize()
	if !m.ready {
		m.logView = viewport.New(width, height)
		m.ready = true
	} else {
		m.logView.Width = width
		m.logView.Height = height
	}
	m.logView.SetContent(m.logContent())
	m.logView.GotoBottom()
}
