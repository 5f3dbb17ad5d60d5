package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"enviro-uploader/internal/logging"
)

// Whoami returns the account behind the current access token. The app uses it
// after login to verify the issued token actually works.
func (c *SensorClient) Whoami(ctx context.Context) (UserInfo, error) {
	token, authenticated := c.bearerToken()
	if !authenticated {
		return UserInfo{}, ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.MeURL, nil)
	if err != nil {
		return UserInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return UserInfo{}, err
	}
	defer resp.Body.Close()
	c.logger.Debugf("GET %s -> %s", c.endpoints.MeURL, resp.Status)

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Warn("whoami request failed",
			logging.Field("status", resp.Status),
			logging.Field("response", logging.FormatHTTPPayload(data)),
		)
		return UserInfo{}, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var info UserInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return UserInfo{}, err
	}
	return info, nil
}
