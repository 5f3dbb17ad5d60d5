package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

type Options struct {
	ServerURL       string `long:"server-url" env:"ENVIRO_SERVER_URL" description:"Sensor API base URL (e.g. http://sensor-hub.local:8000)"`
	Username        string `long:"username" env:"ENVIRO_USERNAME" description:"Account username for /auth/login"`
	Password        string `long:"password" env:"ENVIRO_PASSWORD" description:"Account password for /auth/login"`
	ReadingsFile    string `long:"readings-file" env:"ENVIRO_READINGS_FILE" description:"JSONL file a sensor process appends readings to"`
	Simulate        bool   `long:"simulate" env:"ENVIRO_SIMULATE" description:"Generate simulated readings instead of reading a file"`
	IntervalSeconds int    `long:"interval" env:"ENVIRO_INTERVAL" description:"Upload interval in seconds (default 60)"`
	AutoRefresh     bool   `long:"auto-refresh" env:"ENVIRO_AUTO_REFRESH" description:"Refresh the access token once on a 401 and resend"`
	TUI             bool   `long:"tui" env:"ENVIRO_TUI" description:"Run the interactive terminal dashboard"`
	Debug           bool   `long:"debug" env:"ENVIRO_DEBUG" description:"Enable verbose debug output"`
}

type APIEndpoints struct {
	BaseURL         string
	LoginURL        string
	RefreshURL      string
	MeURL           string
	MeasurementsURL string
}

const (
	loginPath        = "/auth/login"
	refreshPath      = "/auth/refresh"
	mePath           = "/auth/me"
	measurementsPath = "/measurements/"
)

func ParseOptions() (Options, error) {
	_ = godotenv.Load()
	opts := Options{}
	if _, err := flags.Parse(&opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func ValidateRequired(opts Options) error {
	if strings.TrimSpace(opts.ServerURL) == "" {
		return errors.New("server URL is required")
	}
	if strings.TrimSpace(opts.Username) == "" {
		return errors.New("username is required")
	}
	if strings.TrimSpace(opts.Password) == "" {
		return errors.New("password is required")
	}
	if !opts.Simulate && strings.TrimSpace(opts.ReadingsFile) == "" {
		return errors.New("set a readings file or enable simulated readings")
	}
	return nil
}

func (o Options) Interval() time.Duration {
	if o.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(o.IntervalSeconds) * time.Second
}

func BuildEndpoints(rawBaseURL string) (APIEndpoints, error) {
	base, err := buildAPIBaseURL(rawBaseURL)
	if err != nil {
		return APIEndpoints{}, err
	}
	return APIEndpoints{
		BaseURL:         base,
		LoginURL:        base + loginPath,
		RefreshURL:      base + refreshPath,
		MeURL:           base + mePath,
		MeasurementsURL: base + measurementsPath,
	}, nil
}

func buildAPIBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	parsed, err := url.Parse(value)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errors.New("expected absolute URL like http://sensor-hub.local:8000")
	}
	if !strings.EqualFold(parsed.Scheme, "http") && !strings.EqualFold(parsed.Scheme, "https") {
		return "", errors.New("server URL scheme must be http or https")
	}

	// Normalize any pasted endpoint path back to the host base.
	parsed.Path = ""
	parsed.RawPath = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""

	return strings.TrimRight(parsed.String(), "/"), nil
}
