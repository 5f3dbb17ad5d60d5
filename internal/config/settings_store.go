package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// AgentSettings is the JSON-persisted subset of Options. Credentials for the
// login call are stored; issued tokens never are.
type AgentSettings struct {
	ServerURL       string `json:"server_url"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ReadingsFile    string `json:"readings_file"`
	Simulate        bool   `json:"simulate"`
	IntervalSeconds int    `json:"interval_seconds"`
	AutoRefresh     bool   `json:"auto_refresh"`
	Debug           bool   `json:"debug"`
}

func SettingsPath() (string, error) {
	root, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "enviro", "uploader-settings.json"), nil
}

func LoadSettings() (AgentSettings, error) {
	path, err := SettingsPath()
	if err != nil {
		return AgentSettings{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return AgentSettings{}, err
	}
	var settings AgentSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return AgentSettings{}, err
	}
	return settings, nil
}

func SaveSettings(settings AgentSettings) error {
	path, err := SettingsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// MergeOptionsWithSettings fills unset CLI options from saved settings.
// Explicit flags always win.
func MergeOptionsWithSettings(cli Options, saved AgentSettings) Options {
	if strings.TrimSpace(cli.ServerURL) == "" {
		cli.ServerURL = saved.ServerURL
	}
	if strings.TrimSpace(cli.Username) == "" {
		cli.Username = saved.Username
	}
	if strings.TrimSpace(cli.Password) == "" {
		cli.Password = saved.Password
	}
	if strings.TrimSpace(cli.ReadingsFile) == "" {
		cli.ReadingsFile = saved.ReadingsFile
	}
	if !cli.Simulate {
		cli.Simulate = saved.Simulate
	}
	if cli.IntervalSeconds <= 0 && saved.IntervalSeconds > 0 {
		cli.IntervalSeconds = saved.IntervalSeconds
	}
	if !cli.AutoRefresh {
		cli.AutoRefresh = saved.AutoRefresh
	}
	if !cli.Debug {
		cli.Debug = saved.Debug
	}
	return cli
}

func SettingsFromOptions(opts Options) AgentSettings {
	return AgentSettings{
		ServerURL:       strings.TrimSpace(opts.ServerURL),
		Username:        strings.TrimSpace(opts.Username),
		Password:        strings.TrimSpace(opts.Password),
		ReadingsFile:    strings.TrimSpace(opts.ReadingsFile),
		Simulate:        opts.Simulate,
		IntervalSeconds: opts.IntervalSeconds,
		AutoRefresh:     opts.AutoRefresh,
		Debug:           opts.Debug,
	}
}
