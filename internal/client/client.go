package client

import (
	"net/http"
	"sync"

	"enviro-uploader/internal/config"
	"enviro-uploader/internal/logging"
)

// SensorClient talks to the sensor hub API. Token state lives in memory only
// and is mutated by Authenticate, Refresh, and the auto-refresh submit path.
type SensorClient struct {
	http        *http.Client
	endpoints   config.APIEndpoints
	logger      *logging.Logger
	autoRefresh bool

	mu            sync.Mutex
	accessToken   string
	refreshToken  string
	authenticated bool
}

// New builds a SensorClient. With autoRefresh enabled the client stores the
// refresh token issued at login and retries a rejected submit once after
// refreshing the access token.
func New(httpClient *http.Client, endpoints config.APIEndpoints, logger *logging.Logger, autoRefresh bool) *SensorClient {
	if logger == nil {
		panic("client.New: logger must not be nil")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SensorClient{http: httpClient, endpoints: endpoints, logger: logger, autoRefresh: autoRefresh}
}

// Authenticated reports whether the last login or refresh call was accepted.
// The flag is never invalidated on token expiry, only corrected after a
// request the server rejects.
func (c *SensorClient) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

func (c *SensorClient) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *SensorClient) bearerToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.authenticated
}

func (c *SensorClient) storeSession(accessToken, refreshToken string) {
	c.mu.Lock()
	c.accessToken = accessToken
	if refreshToken != "" {
		c.refreshToken = refreshToken
	}
	c.authenticated = true
	c.mu.Unlock()
}

func (c *SensorClient) storeAccessToken(accessToken string) {
	c.mu.Lock()
	c.accessToken = accessToken
	c.authenticated = true
	c.mu.Unlock()
}

// clearSession wipes all token state after a failed login.
func (c *SensorClient) clearSession() {
	c.mu.Lock()
	c.accessToken = ""
	c.refreshToken = ""
	c.authenticated = false
	c.mu.Unlock()
}

// markUnauthenticated drops the flag but keeps stored tokens, the reactive
// correction applied when a refresh attempt fails.
func (c *SensorClient) markUnauthenticated() {
	c.mu.Lock()
	c.authenticated = false
	c.mu.Unlock()
}
