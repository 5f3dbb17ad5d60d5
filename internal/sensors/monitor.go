package sensors

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"enviro-uploader/internal/logging"
)

const defaultSampleInterval = time.Minute

type MonitorOptions struct {
	// ReadingsFile enables fsnotify wakeups on top of the interval tick.
	ReadingsFile string
	Interval     time.Duration
}

type MonitorCallbacks struct {
	OnReading func(Reading) error
	OnError   func(error)
}

// Monitor drives a Source: it samples on a fixed interval and, when tailing a
// readings file, additionally wakes on file writes so fresh samples upload
// without waiting out the tick.
type Monitor struct {
	source    Source
	opts      MonitorOptions
	logger    *logging.Logger
	callbacks MonitorCallbacks
}

func NewMonitor(source Source, opts MonitorOptions, logger *logging.Logger, callbacks MonitorCallbacks) *Monitor {
	if source == nil {
		panic("sensors.NewMonitor: source must not be nil")
	}
	if logger == nil {
		panic("sensors.NewMonitor: logger must not be nil")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultSampleInterval
	}
	return &Monitor{source: source, opts: opts, logger: logger, callbacks: callbacks}
}

func (m *Monitor) RunContext(ctx context.Context) error {
	m.logger.Debug("starting sensor monitor",
		logging.Field("readings_file", m.opts.ReadingsFile),
		logging.Field("interval", m.opts.Interval.String()),
	)

	var watchEvents chan fsnotify.Event
	var watchErrors chan error
	if m.opts.ReadingsFile != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to initialize fsnotify watcher: %w", err)
		}
		defer watcher.Close()

		watchDir := filepath.Dir(m.opts.ReadingsFile)
		if err := watcher.Add(watchDir); err != nil {
			return fmt.Errorf("failed to watch readings directory %s: %w", watchDir, err)
		}
		m.logger.Debugf("watching directory: %s", watchDir)
		watchEvents = make(chan fsnotify.Event)
		watchErrors = make(chan error)
		go forwardWatcher(ctx, watcher, watchEvents, watchErrors)
	}

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	// First sample up front; the ticker only paces the follow-ups.
	m.sample(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("stopping sensor monitor: context canceled")
			return nil
		case event := <-watchEvents:
			if !m.matchesReadingsFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			m.sample(ctx)
		case err := <-watchErrors:
			if err != nil {
				m.logger.Warn("readings watcher error", logging.Field("error", err))
			}
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

func (m *Monitor) sample(ctx context.Context) {
	reading, err := m.source.Read(ctx)
	if errors.Is(err, ErrNoNewReading) {
		return
	}
	if err != nil {
		m.logger.Warn("sensor read failed", logging.Field("error", err))
		if m.callbacks.OnError != nil {
			m.callbacks.OnError(err)
		}
		return
	}
	m.logger.Debug("reading sampled",
		logging.Field("temperature", reading.Temperature),
		logging.Field("humidity", reading.Humidity),
	)
	if m.callbacks.OnReading == nil {
		return
	}
	if err := m.callbacks.OnReading(reading); err != nil && m.callbacks.OnError != nil {
		m.callbacks.OnError(err)
	}
}

func (m *Monitor) matchesReadingsFile(name string) bool {
	return filepath.Clean(name) == filepath.Clean(m.opts.ReadingsFile)
}

func forwardWatcher(ctx context.Context, watcher *fsnotify.Watcher, events chan<- fsnotify.Event, errs chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			select {
			case errs <- err:
			case <-ctx.Done():
				return
			}
		}
	}
}
