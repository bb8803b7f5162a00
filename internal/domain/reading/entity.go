// Package reading contains the history side of StressSense: room environment
// snapshots pushed by the IoT sensor, phone usage pushes and the stress
// readings derived from them. This is a pure domain layer with zero external
// dependencies.
package reading

import (
	"errors"
	"strings"
	"time"

	"github.com/stresssense/stress-sense/internal/domain/stress"
)

// Domain errors for reading package.
var (
	ErrReadingNotFound       = errors.New("reading: not found")
	ErrNoAnalysis            = errors.New("reading: no analysis recorded yet")
	ErrNegativeForegroundSec = errors.New("reading: foreground time cannot be negative")
)

const (
	// UnknownDevice is used when a push carries no device id.
	UnknownDevice DeviceID = "unknown_device"

	// UnknownApp is used when an app usage entry carries no app name.
	UnknownApp = "unknown"
)

// Environment defaults before the first sensor push.
const (
	DefaultTemperature = 25.0
	DefaultHumidity    = 60.0
	DefaultAirQuality  = 0.25
)

// Fallbacks for fields missing from a sensor push.
const (
	FallbackTemperature = 25.0
	FallbackHumidity    = 50.0
	FallbackAirQuality  = 0.1
)

// DeviceID identifies a phone that pushes usage data.
type DeviceID string

// NormalizeDeviceID trims the id and falls back to UnknownDevice.
func NormalizeDeviceID(raw string) DeviceID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UnknownDevice
	}
	return DeviceID(raw)
}

// String returns the string representation of DeviceID.
func (d DeviceID) String() string {
	return string(d)
}

// Environment is the latest room snapshot from the IoT sensor.
type Environment struct {
	Temperature float64
	Humidity    float64
	AirQuality  float64
	UpdatedAt   time.Time
}

// DefaultEnvironment returns the snapshot used before any sensor push.
func DefaultEnvironment(now time.Time) Environment {
	return Environment{
		Temperature: DefaultTemperature,
		Humidity:    DefaultHumidity,
		AirQuality:  DefaultAirQuality,
		UpdatedAt:   now,
	}
}

// AppUsage is the foreground time of one app in a usage push.
type AppUsage struct {
	AppName           string
	ForegroundSeconds int64
}

// NewAppUsage validates a usage entry. An empty name becomes UnknownApp.
func NewAppUsage(name string, foregroundSeconds int64) (AppUsage, error) {
	if foregroundSeconds < 0 {
		return AppUsage{}, ErrNegativeForegroundSec
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = UnknownApp
	}
	return AppUsage{AppName: name, ForegroundSeconds: foregroundSeconds}, nil
}

// ScreenHours converts a total screen time in seconds to hours.
func ScreenHours(totalSeconds float64) float64 {
	return totalSeconds / 3600
}

// Reading is one stress assessment for a device. Screen time is stored as
// received; clamping happens only inside the stress model.
type Reading struct {
	ID              string
	DeviceID        DeviceID
	ScreenTimeHours float64
	Environment     Environment
	StressValue     float64
	Category        stress.Category
	Message         string
	Apps            []AppUsage
	RecordedAt      time.Time
}

// NewReadingParams contains parameters for creating a Reading.
type NewReadingParams struct {
	ID              string
	DeviceID        DeviceID
	ScreenTimeHours float64
	Environment     Environment
	Result          stress.Result
	Apps            []AppUsage
	RecordedAt      time.Time
}

// NewReading builds a reading from a stress result.
func NewReading(p NewReadingParams) *Reading {
	if p.DeviceID == "" {
		p.DeviceID = UnknownDevice
	}
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now().UTC()
	}
	return &Reading{
		ID:              p.ID,
		DeviceID:        p.DeviceID,
		ScreenTimeHours: p.ScreenTimeHours,
		Environment:     p.Environment,
		StressValue:     p.Result.StressValue,
		Category:        p.Result.Category,
		Message:         p.Result.Message,
		Apps:            append([]AppUsage(nil), p.Apps...),
		RecordedAt:      p.RecordedAt,
	}
}

// TotalForegroundSeconds sums the app usage entries.
func (r *Reading) TotalForegroundSeconds() int64 {
	var total int64
	for _, a := range r.Apps {
		total += a.ForegroundSeconds
	}
	return total
}

// Analysis is the latest assessment per device, shown on the dashboard.
type Analysis struct {
	DeviceID        DeviceID
	StressValue     float64
	Category        stress.Category
	Message         string
	ScreenTimeHours float64
	UpdatedAt       time.Time
}

// AnalysisOf projects a reading into its dashboard analysis.
func AnalysisOf(r *Reading) Analysis {
	return Analysis{
		DeviceID:        r.DeviceID,
		StressValue:     r.StressValue,
		Category:        r.Category,
		Message:         r.Message,
		ScreenTimeHours: r.ScreenTimeHours,
		UpdatedAt:       r.RecordedAt,
	}
}
