package sensors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Reading is one temperature/humidity sample. Samples are transient: sent
// upstream once and discarded.
type Reading struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Time        time.Time `json:"time,omitempty"`
}

// DHT22 measurement envelope.
const (
	minTemperature = -40.0
	maxTemperature = 85.0
	minHumidity    = 0.0
	maxHumidity    = 100.0
)

// ErrNoNewReading reports that a source has nothing newer than the last call.
var ErrNoNewReading = errors.New("no new reading")

func (r Reading) Validate() error {
	if r.Temperature < minTemperature || r.Temperature > maxTemperature {
		return fmt.Errorf("temperature %.1f out of range [%.0f, %.0f]", r.Temperature, minTemperature, maxTemperature)
	}
	if r.Humidity < minHumidity || r.Humidity > maxHumidity {
		return fmt.Errorf("humidity %.1f out of range [%.0f, %.0f]", r.Humidity, minHumidity, maxHumidity)
	}
	return nil
}

// Source yields sensor readings. Read returns ErrNoNewReading when nothing
// new arrived since the previous call.
type Source interface {
	Read(ctx context.Context) (Reading, error)
}
