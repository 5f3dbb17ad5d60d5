package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"enviro-uploader/internal/logging"
)

// Authenticate exchanges credentials for an access token at /auth/login.
// Any failure leaves the client unauthenticated with no token state.
func (c *SensorClient) Authenticate(ctx context.Context, username, password string) error {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.LoginURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.clearSession()
		return err
	}
	defer resp.Body.Close()
	c.logger.Debugf("POST %s -> %s", c.endpoints.LoginURL, resp.Status)

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= http.StatusBadRequest {
		c.clearSession()
		c.logger.Warn("login rejected",
			logging.Field("status", resp.Status),
			logging.Field("username", username),
			logging.Field("response", logging.FormatHTTPPayload(data)),
		)
		return &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var token tokenResponse
	if unmarshalErr := json.Unmarshal(data, &token); unmarshalErr != nil {
		c.clearSession()
		c.logger.Warn("invalid login JSON",
			logging.Field("error", unmarshalErr),
			logging.Field("response", logging.FormatHTTPPayload(data)),
		)
		return unmarshalErr
	}
	if token.AccessToken == "" {
		c.clearSession()
		return errors.New("login response missing access_token")
	}

	refreshToken := ""
	if c.autoRefresh {
		refreshToken = token.RefreshToken
	}
	c.storeSession(token.AccessToken, refreshToken)
	c.logger.Info("authenticated",
		logging.Field("username", username),
		logging.Field("refresh_token_stored", refreshToken != ""),
	)
	return nil
}
