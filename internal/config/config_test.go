package config

import (
	"testing"
	"time"
)

func TestBuildEndpoints_NormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{name: "root host", base: "http://192.168.1.40:8000", want: "http://192.168.1.40:8000"},
		{name: "trailing slash", base: "http://192.168.1.40:8000/", want: "http://192.168.1.40:8000"},
		{name: "pasted login endpoint", base: "http://192.168.1.40:8000/auth/login", want: "http://192.168.1.40:8000"},
		{name: "pasted measurements endpoint", base: "https://hub.example.com/measurements/", want: "https://hub.example.com"},
		{name: "query fragment dropped", base: "https://hub.example.com/anything?x=1#y", want: "https://hub.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoints, err := BuildEndpoints(tt.base)
			if err != nil {
				t.Fatalf("BuildEndpoints failed: %v", err)
			}
			if endpoints.BaseURL != tt.want {
				t.Fatalf("BaseURL = %q, want %q", endpoints.BaseURL, tt.want)
			}
			if endpoints.LoginURL != tt.want+"/auth/login" {
				t.Fatalf("LoginURL = %q", endpoints.LoginURL)
			}
			if endpoints.RefreshURL != tt.want+"/auth/refresh" {
				t.Fatalf("RefreshURL = %q", endpoints.RefreshURL)
			}
			if endpoints.MeURL != tt.want+"/auth/me" {
				t.Fatalf("MeURL = %q", endpoints.MeURL)
			}
			if endpoints.MeasurementsURL != tt.want+"/measurements/" {
				t.Fatalf("MeasurementsURL = %q", endpoints.MeasurementsURL)
			}
		})
	}
}

func TestBuildEndpoints_InvalidInput(t *testing.T) {
	tests := []string{
		"ftp://example.com",
		"ws://example.com",
		"file:///tmp/enviro",
		"sensor-hub.local:8000",
		"",
	}
	for _, base := range tests {
		t.Run(base, func(t *testing.T) {
			if _, err := BuildEndpoints(base); err == nil {
				t.Fatalf("expected error for %q", base)
			}
		})
	}
}

func TestValidateRequired(t *testing.T) {
	valid := Options{
		ServerURL: "http://192.168.1.40:8000",
		Username:  "pi",
		Password:  "secret",
		Simulate:  true,
	}
	if err := ValidateRequired(valid); err != nil {
		t.Fatalf("ValidateRequired() error = %v", err)
	}

	missingSource := valid
	missingSource.Simulate = false
	if err := ValidateRequired(missingSource); err == nil {
		t.Fatalf("expected error without readings file or simulate")
	}

	missingUser := valid
	missingUser.Username = " "
	if err := ValidateRequired(missingUser); err == nil {
		t.Fatalf("expected error for blank username")
	}
}

func TestOptionsInterval_Default(t *testing.T) {
	if got := (Options{}).Interval(); got != time.Minute {
		t.Fatalf("Interval() = %v, want 1m", got)
	}
	if got := (Options{IntervalSeconds: 15}).Interval(); got != 15*time.Second {
		t.Fatalf("Interval() = %v, want 15s", got)
	}
}

func TestMergeOptionsWithSettings_CLIWins(t *testing.T) {
	saved := AgentSettings{
		ServerURL:       "http://saved.example.com",
		Username:        "saved-user",
		Password:        "saved-pass",
		ReadingsFile:    "/var/lib/enviro/readings.jsonl",
		IntervalSeconds: 30,
		AutoRefresh:     true,
	}
	cli := Options{ServerURL: "http://cli.example.com"}

	merged := MergeOptionsWithSettings(cli, saved)
	if merged.ServerURL != "http://cli.example.com" {
		t.Fatalf("ServerURL = %q, CLI value should win", merged.ServerURL)
	}
	if merged.Username != "saved-user" || merged.Password != "saved-pass" {
		t.Fatalf("credentials not filled from settings: %+v", merged)
	}
	if merged.ReadingsFile != "/var/lib/enviro/readings.jsonl" {
		t.Fatalf("ReadingsFile = %q", merged.ReadingsFile)
	}
	if merged.IntervalSeconds != 30 || !merged.AutoRefresh {
		t.Fatalf("merge dropped saved fields: %+v", merged)
	}
}
