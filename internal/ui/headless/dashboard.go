package headless

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"enviro-uploader/internal/config"
	"enviro-uploader/internal/logging"
	"enviro-uploader/internal/runtime"
	"enviro-uploader/internal/sensors"
)

const (
	logChannelBufferSize     = 512
	statusChannelBufferSize  = 16
	readingChannelBufferSize = 8
	runErrorExitCode         = 1
)

// Run starts the interactive dashboard and blocks until the user quits.
func Run(rootCtx context.Context, buildVersion string, opts config.Options, logger *logging.Logger) {
	logger.SetTerminalOutputEnabled(false)
	logger.Info("starting uploader dashboard", logging.Field("version", buildVersion))

	m := newDashboardModel(rootCtx, buildVersion, opts, logger)
	program := tea.NewProgram(m, tea.WithAltScreen())
	m.program = program
	result, runErr := program.Run()
	if model, ok := result.(*dashboardModel); ok && model != nil {
		model.cleanup()
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(runErrorExitCode)
	}
}

func newDashboardModel(rootCtx context.Context, buildVersion string, opts config.Options, logger *logging.Logger) *dashboardModel {
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	runCtx, runCancel := context.WithCancel(rootCtx)

	m := &dashboardModel{
		buildVersion: buildVersion,
		opts:         opts,
		runner:       runtime.NewController(runCtx),
		logger:       logger,
		rootCancel:   runCancel,
		logCh:        make(chan string, logChannelBufferSize),
		statusCh:     make(chan string, statusChannelBufferSize),
		readingCh:    make(chan sensors.Reading, readingChannelBufferSize),
		status:       "Idle",
		kind:         statusIdle,
		keys:         newKeyMap(),
		help:         help.New(),
		spin:         spinner.New(spinner.WithSpinner(spinner.Dot)),
	}

	m.unsubscribe = logger.Subscribe(func(event logging.Event) {
		line := logging.FormatEventANSI(event)
		select {
		case m.logCh <- line:
		default:
			// Full buffer: drop the oldest line rather than block the logger.
			select {
			case <-m.logCh:
			default:
			}
			m.logCh <- line
		}
	})

	return m
}

func (m *dashboardModel) Init() tea.Cmd {
	return tea.Batch(
		waitForLog(m.logCh),
		waitForStatus(m.statusCh),
		waitForReading(m.readingCh),
		m.spin.Tick,
		m.startUploaderCmd(),
	)
}

func (m *dashboardModel) startUploaderCmd() tea.Cmd {
	if err := config.ValidateRequired(m.opts); err != nil {
		m.errorText = err.Error()
		return nil
	}
	m.connecting = true
	m.status = "Connecting..."
	m.kind = statusConnecting
	m.errorText = ""

	opts := m.opts
	return func() tea.Msg {
		err := m.runner.Start(opts, m.logger, runtime.StartHooks{
			OnReading: m.onRuntimeReading,
			OnStatus:  m.onRuntimeStatus,
			OnExit:    m.onRuntimeExit,
		})
		return startResultMsg{err: err}
	}
}

func (m *dashboardModel) onRuntimeReading(reading sensors.Reading) {
	select {
	case m.readingCh <- reading:
	default:
		select {
		case <-m.readingCh:
		default:
		}
		m.readingCh <- reading
	}
}

func (m *dashboardModel) onRuntimeStatus(status string) {
	select {
	case m.statusCh <- status:
	default:
		select {
		case <-m.statusCh:
		default:
		}
		m.statusCh <- status
	}
}

func (m *dashboardModel) onRuntimeExit(runErr error) {
	if m.program == nil {
		return
	}
	m.program.Send(runDoneMsg{err: runErr})
}

func (m *dashboardModel) cleanup() {
	m.cleanupOnce.Do(func() {
		m.logger.Debug("dashboard cleanup started")
		if m.rootCancel != nil {
			m.rootCancel()
		}
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		m.runner.Stop()
		m.logger.Debug("dashboard cleanup complete")
	})
}

func waitForLog(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return nil
		}
		return logMsg(line)
	}
}

func waitForStatus(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		status, ok := <-ch
		if !ok {
			return nil
		}
		return statusMsg(status)
	}
}

func waitForReading(ch <-chan sensors.Reading) tea.Cmd {
	return func() tea.Msg {
		reading, ok := <-ch
		if !ok {
			return nil
		}
		return readingMsg(reading)
	}
}
