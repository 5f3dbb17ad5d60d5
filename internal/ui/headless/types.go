package headless

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"enviro-uploader/internal/config"
	"enviro-uploader/internal/logging"
	"enviro-uploader/internal/runtime"
	"enviro-uploader/internal/sensors"
)

const maxLogLines = 500

type logMsg string
type statusMsg string
type readingMsg sensors.Reading

type runDoneMsg struct {
	err error
}

type startResultMsg struct {
	err error
}

type statusKind int

const (
	statusIdle statusKind = iota
	statusConnecting
	statusRunning
	statusError
)

type dashboardModel struct {
	buildVersion string
	opts         config.Options

	runner      *runtime.Controller
	logger      *logging.Logger
	unsubscribe func()
	rootCancel  context.CancelFunc
	program     *tea.Program
	cleanupOnce sync.Once

	logCh     chan string
	statusCh  chan string
	readingCh chan sensors.Reading

	running     bool
	connecting  bool
	quitting    bool
	status      string
	kind        statusKind
	lastReading *sensors.Reading
	errorText   string

	width    int
	height   int
	ready    bool
	logLines []string
	logView  viewport.Model
	keys     keyMap
	help     help.Model
	spin     spinner.Model
}
