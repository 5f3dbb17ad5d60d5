package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"enviro-uploader/internal/client"
	"enviro-uploader/internal/config"
	"enviro-uploader/internal/logging"
	"enviro-uploader/internal/runctx"
	"enviro-uploader/internal/runstatus"
	"enviro-uploader/internal/sensors"
)

const readingBufferSize = 16

type UploaderApp struct {
	opts   config.Options
	client *client.SensorClient
	source sensors.Source
	logger *logging.Logger
	hooks  Callbacks
	status runtimeStatusState
}

type Callbacks struct {
	OnReading      func(sensors.Reading)
	OnStatusChange func(string)
}

func New(opts config.Options, sensorClient *client.SensorClient, source sensors.Source, logger *logging.Logger, hooks Callbacks) *UploaderApp {
	if sensorClient == nil {
		panic("app.New: client must not be nil")
	}
	if source == nil {
		panic("app.New: source must not be nil")
	}
	if logger == nil {
		panic("app.New: logger must not be nil")
	}
	return &UploaderApp{opts: opts, client: sensorClient, source: source, logger: logger, hooks: hooks}
}

func (a *UploaderApp) Run() error {
	return a.RunContext(context.Background())
}

func (a *UploaderApp) RunContext(ctx context.Context) error {
	a.logger.Info("uploader agent starting",
		logging.Field("readings_file", a.opts.ReadingsFile),
		logging.Field("simulate", a.opts.Simulate),
		logging.Field("interval", a.opts.Interval().String()),
	)

	if err := a.prepareSource(); err != nil {
		return fmt.Errorf("%w: %v", ErrReadingsUnavailable, err)
	}

	if err := a.client.Authenticate(ctx, a.opts.Username, a.opts.Password); err != nil {
		a.setRuntimeStatus(runstatus.AuthExpired)
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	a.setRuntimeStatus(runstatus.Authenticated)

	account, err := a.client.Whoami(ctx)
	if err != nil {
		a.setRuntimeStatus(runstatus.AuthExpired)
		return fmt.Errorf("%w: %v", ErrSessionVerifyFailed, err)
	}
	a.setRuntimeStatus(runstatus.Verified)
	a.logger.Info("session verified",
		logging.Field("username", account.Username),
		logging.Field("name", account.Name),
	)

	readings := make(chan sensors.Reading, readingBufferSize)
	monitor := sensors.NewMonitor(a.source, sensors.MonitorOptions{
		ReadingsFile: a.readingsFile(),
		Interval:     a.opts.Interval(),
	}, a.logger, sensors.MonitorCallbacks{
		OnReading: func(reading sensors.Reading) error {
			if !runctx.SendOrDone(ctx, "reading forwarder", a.logger, readings, reading) {
				return ctx.Err()
			}
			return nil
		},
		OnError: func(err error) {
			a.logger.Warn("sensor monitor callback error", logging.Field("error", err))
		},
	})

	var submitters sync.WaitGroup
	submitters.Add(1)
	go func() {
		defer submitters.Done()
		a.runSubmitLoop(ctx, readings)
	}()

	runErr := monitor.RunContext(ctx)
	close(readings)
	submitters.Wait()

	a.setRuntimeStatus(runstatus.Stopped)
	if runErr != nil {
		a.logger.Warn("uploader agent stopped with error", logging.Field("error", runErr))
		return runErr
	}
	a.logger.Info("uploader agent stopped")
	return nil
}

func (a *UploaderApp) runSubmitLoop(ctx context.Context, readings <-chan sensors.Reading) {
	for {
		reading, ok := runctx.RecvOrDone(ctx, "measurement submitter", a.logger, readings)
		if !ok {
			return
		}
		a.submit(ctx, reading)
	}
}

func (a *UploaderApp) submit(ctx context.Context, reading sensors.Reading) {
	err := a.client.SendMeasurement(ctx, reading.Temperature, reading.Humidity)
	switch {
	case err == nil && a.client.Authenticated():
		a.setRuntimeStatus(runstatus.Uploading)
		a.logger.Info("measurement submitted",
			logging.Field("temperature", reading.Temperature),
			logging.Field("humidity", reading.Humidity),
		)
		a.notifyReading(reading)
	case errors.Is(err, client.ErrNotAuthenticated), err == nil:
		// The session died and the refresh path could not revive it.
		a.setRuntimeStatus(runstatus.AuthExpired)
		a.logger.Warn("measurement submit refused, session expired")
	default:
		if ctx.Err() != nil {
			return
		}
		a.setRuntimeStatus(runstatus.Degraded)
		a.logger.Warn("measurement submit failed", logging.Field("error", err))
	}
}

func (a *UploaderApp) prepareSource() error {
	if primer, ok := a.source.(interface{ Prime() error }); ok {
		return primer.Prime()
	}
	return nil
}

func (a *UploaderApp) readingsFile() string {
	if a.opts.Simulate {
		return ""
	}
	return strings.TrimSpace(a.opts.ReadingsFile)
}

type runtimeStatusState struct {
	mu      sync.Mutex
	current string
}

func (s *runtimeStatusState) update(status string) (string, string, bool) {
	trimmed := strings.TrimSpace(status)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == trimmed {
		return s.current, trimmed, false
	}
	previous := s.current
	s.current = trimmed
	return previous, trimmed, true
}

func (a *UploaderApp) notifyReading(reading sensors.Reading) {
	if a.hooks.OnReading == nil {
		return
	}
	a.hooks.OnReading(reading)
}

func (a *UploaderApp) setRuntimeStatus(status string) {
	previous, next, changed := a.status.update(status)
	if !changed {
		return
	}
	a.logger.Debug("runtime status transition",
		logging.Field("from", previous),
		logging.Field("to", next),
	)
	if a.hooks.OnStatusChange != nil {
		a.hooks.OnStatusChange(status)
	}
}
