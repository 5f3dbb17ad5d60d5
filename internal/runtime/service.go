package runtime

import (
	"context"
	"net/http"
	"strings"
	"time"

	"enviro-uploader/internal/app"
	"enviro-uploader/internal/client"
	"enviro-uploader/internal/config"
	"enviro-uploader/internal/logging"
	"enviro-uploader/internal/sensors"
)

const defaultHTTPTimeout = 10 * time.Second

type Service interface {
	RunContext(ctx context.Context) error
}

func NewService(opts config.Options, logger *logging.Logger) (Service, error) {
	return NewServiceWithHooks(opts, logger, StartHooks{})
}

func NewServiceWithHooks(opts config.Options, logger *logging.Logger, hooks StartHooks) (Service, error) {
	if logger == nil {
		panic("runtime.NewServiceWithHooks: logger must not be nil")
	}
	if err := config.ValidateRequired(opts); err != nil {
		return nil, err
	}

	endpoints, err := config.BuildEndpoints(opts.ServerURL)
	if err != nil {
		return nil, err
	}
	logger.Debug("constructed API endpoints",
		logging.Field("login_url", endpoints.LoginURL),
		logging.Field("refresh_url", endpoints.RefreshURL),
		logging.Field("me_url", endpoints.MeURL),
		logging.Field("measurements_url", endpoints.MeasurementsURL),
	)

	httpClient := &http.Client{Timeout: defaultHTTPTimeout}
	sensorClient := client.New(httpClient, endpoints, logger, opts.AutoRefresh)
	return app.New(opts, sensorClient, buildSource(opts), logger, app.Callbacks{
		OnReading:      hooks.OnReading,
		OnStatusChange: hooks.OnStatus,
	}), nil
}

func buildSource(opts config.Options) sensors.Source {
	if opts.Simulate {
		return sensors.NewSimulatedSource(0)
	}
	return sensors.NewFileSource(strings.TrimSpace(opts.ReadingsFile))
}
