package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"enviro-uploader/internal/client"
	"enviro-uploader/internal/config"
	"enviro-uploader/internal/logging"
	"enviro-uploader/internal/runstatus"
	"enviro-uploader/internal/sensors"
)

type hubState struct {
	loginCalls   atomic.Int32
	refreshCalls atomic.Int32
	submitCalls  atomic.Int32
	submitted    chan struct{}
	acceptToken  atomic.Value
}

func newHub(t *testing.T, rejectFirstSubmit bool) (*httptest.Server, *hubState) {
	t.Helper()
	state := &hubState{submitted: make(chan struct{}, 8)}
	state.acceptToken.Store("access-1")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			state.loginCalls.Add(1)
			var payload struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				http.Error(w, "bad payload", http.StatusBadRequest)
				return
			}
			if payload.Username != "pi" || payload.Password != "secret" {
				http.Error(w, `{"detail":"Incorrect username or password"}`, http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-1",
				"token_type":    "bearer",
				"refresh_token": "refresh-1",
			})
		case "/auth/me":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": "Pi Agent", "username": "pi"})
		case "/auth/refresh":
			state.refreshCalls.Add(1)
			state.acceptToken.Store("access-2")
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "access-2", "token_type": "bearer"})
		case "/measurements/":
			calls := state.submitCalls.Add(1)
			auth := strings.TrimSpace(r.Header.Get("Authorization"))
			if rejectFirstSubmit && calls == 1 {
				http.Error(w, `{"detail":"expired"}`, http.StatusUnauthorized)
				return
			}
			if auth != "Bearer "+state.acceptToken.Load().(string) {
				http.Error(w, `{"detail":"expired"}`, http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": calls, "temperature": 21.5, "humidity": 44.0,
				"timestamp": "2026-08-29T10:00:00Z",
			})
			select {
			case state.submitted <- struct{}{}:
			default:
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, state
}

func testApp(t *testing.T, serverURL string, autoRefresh bool, hooks Callbacks) *UploaderApp {
	t.Helper()
	endpoints, err := config.BuildEndpoints(serverURL)
	if err != nil {
		t.Fatalf("BuildEndpoints() error = %v", err)
	}
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)

	opts := config.Options{
		ServerURL:       serverURL,
		Username:        "pi",
		Password:        "secret",
		Simulate:        true,
		IntervalSeconds: 1,
		AutoRefresh:     autoRefresh,
	}
	sensorClient := client.New(http.DefaultClient, endpoints, logger, autoRefresh)
	return New(opts, sensorClient, sensors.NewSimulatedSource(1), logger, hooks)
}

func TestRunContext_SubmitsReadings(t *testing.T) {
	server, state := newHub(t, false)

	var mu sync.Mutex
	statuses := []string{}
	readings := 0
	// Cancellation must wait for the app-side callback, not the hub handler:
	// the handler signals before its response reaches the client, so a cancel
	// keyed on it can kill the exchange mid-flight.
	readingSeen := make(chan struct{}, 8)
	uploaderApp := testApp(t, server.URL, false, Callbacks{
		OnStatusChange: func(status string) {
			mu.Lock()
			statuses = append(statuses, status)
			mu.Unlock()
		},
		OnReading: func(sensors.Reading) {
			mu.Lock()
			readings++
			mu.Unlock()
			select {
			case readingSeen <- struct{}{}:
			default:
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- uploaderApp.RunContext(ctx) }()

	select {
	case <-readingSeen:
	case <-time.After(10 * time.Second):
		t.Fatalf("no measurement delivered to OnReading")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("RunContext() error = %v", err)
	}

	if got := state.loginCalls.Load(); got != 1 {
		t.Fatalf("login calls = %d, want 1", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if readings == 0 {
		t.Fatalf("OnReading never fired")
	}
	wantOrder := []string{runstatus.Authenticated, runstatus.Verified, runstatus.Uploading}
	for i, want := range wantOrder {
		if i >= len(statuses) || statuses[i] != want {
			t.Fatalf("statuses = %v, want prefix %v", statuses, wantOrder)
		}
	}
	if statuses[len(statuses)-1] != runstatus.Stopped {
		t.Fatalf("final status = %q, want %q", statuses[len(statuses)-1], runstatus.Stopped)
	}
}

func TestRunContext_AuthFailureIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			http.Error(w, `{"detail":"Incorrect username or password"}`, http.StatusUnauthorized)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	var statuses []string
	uploaderApp := testApp(t, server.URL, false, Callbacks{
		OnStatusChange: func(status string) { statuses = append(statuses, status) },
	})

	err := uploaderApp.RunContext(context.Background())
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("RunContext() error = %v, want ErrAuthenticationFailed", err)
	}
	if len(statuses) == 0 || statuses[len(statuses)-1] != runstatus.AuthExpired {
		t.Fatalf("statuses = %v, want trailing %q", statuses, runstatus.AuthExpired)
	}
}

func TestRunContext_RefreshesOnceOn401(t *testing.T) {
	server, state := newHub(t, true)

	uploaderApp := testApp(t, server.URL, true, Callbacks{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- uploaderApp.RunContext(ctx) }()

	select {
	case <-state.submitted:
	case <-time.After(10 * time.Second):
		t.Fatalf("no measurement accepted after refresh")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("RunContext() error = %v", err)
	}

	if got := state.refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want exactly 1", got)
	}
	if got := state.submitCalls.Load(); got < 2 {
		t.Fatalf("submit calls = %d, want at least 2 (reject + resend)", got)
	}
}
