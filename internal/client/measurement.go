package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"enviro-uploader/internal/logging"
)

// SendMeasurement posts one temperature/humidity pair. It fails fast when the
// client is not authenticated, otherwise any completed HTTP exchange counts
// as delivered regardless of status code; the hub firmware this mirrors never
// distinguished transport success from application success, and callers
// depend on that.
//
// With auto-refresh enabled a 401 triggers exactly one Refresh plus one
// resend. A failed refresh or resend is logged but does not change the
// result: the original exchange completed.
func (c *SensorClient) SendMeasurement(ctx context.Context, temperature, humidity float64) error {
	token, authenticated := c.bearerToken()
	if !authenticated {
		return ErrNotAuthenticated
	}

	status, err := c.postMeasurement(ctx, token, temperature, humidity)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && c.autoRefresh {
		if refreshErr := c.Refresh(ctx); refreshErr != nil {
			c.logger.Warn("measurement resend skipped, refresh failed",
				logging.Field("error", refreshErr),
			)
			return nil
		}
		token, _ = c.bearerToken()
		if _, resendErr := c.postMeasurement(ctx, token, temperature, humidity); resendErr != nil {
			c.logger.Warn("measurement resend failed",
				logging.Field("error", resendErr),
			)
		}
	}
	return nil
}

func (c *SensorClient) postMeasurement(ctx context.Context, token string, temperature, humidity float64) (int, error) {
	body, err := json.Marshal(measurementPayload{Temperature: temperature, Humidity: humidity})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.MeasurementsURL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	c.logger.Debugf("POST %s -> %s", c.endpoints.MeasurementsURL, resp.Status)

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Warn("measurement rejected",
			logging.Field("status", resp.Status),
			logging.Field("response", logging.FormatHTTPPayload(data)),
		)
	}
	return resp.StatusCode, nil
}

// Measurements lists stored records, optionally windowed. Zero times are
// omitted from the query.
func (c *SensorClient) Measurements(ctx context.Context, start, end time.Time) ([]MeasurementRecord, error) {
	token, authenticated := c.bearerToken()
	if !authenticated {
		return nil, ErrNotAuthenticated
	}

	target := c.endpoints.MeasurementsURL
	query := url.Values{}
	if !start.IsZero() {
		query.Set("start_time", start.Format(time.RFC3339))
	}
	if !end.IsZero() {
		query.Set("end_time", end.Format(time.RFC3339))
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	c.logger.Debugf("GET %s -> %s", target, resp.Status)

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Warn("measurement list request failed",
			logging.Field("status", resp.Status),
			logging.Field("response", logging.FormatHTTPPayload(data)),
		)
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	records := []MeasurementRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}
