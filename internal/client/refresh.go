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

// Refresh trades the stored refresh token for a new access token. The refresh
// token itself is never rotated; the hub keeps issuing against the original.
func (c *SensorClient) Refresh(ctx context.Context) error {
	c.mu.Lock()
	refreshToken := c.refreshToken
	c.mu.Unlock()
	if refreshToken == "" {
		return ErrNoRefreshToken
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.RefreshURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.markUnauthenticated()
		return err
	}
	defer resp.Body.Close()
	c.logger.Debugf("POST %s -> %s", c.endpoints.RefreshURL, resp.Status)

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= http.StatusBadRequest {
		c.markUnauthenticated()
		c.logger.Warn("token refresh rejected",
			logging.Field("status", resp.Status),
			logging.Field("response", logging.FormatHTTPPayload(data)),
		)
		return &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var token tokenResponse
	if unmarshalErr := json.Unmarshal(data, &token); unmarshalErr != nil {
		c.markUnauthenticated()
		return unmarshalErr
	}
	if token.AccessToken == "" {
		c.markUnauthenticated()
		return errors.New("refresh response missing access_token")
	}

	c.storeAccessToken(token.AccessToken)
	c.logger.Debug("access token refreshed")
	return nil
}
