package reading

import (
	"context"
)

// History limits for ListByDevice.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// NormalizeLimit applies the default and the upper bound to a page size.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

// Repository defines the interface for reading history persistence.
// This interface is implemented by the infrastructure layer.
type Repository interface {
	// Save persists a reading together with its app usage entries.
	Save(ctx context.Context, r *Reading) error

	// ListByDevice returns readings for a device, newest first.
	ListByDevice(ctx context.Context, deviceID DeviceID, limit int) ([]*Reading, error)

	// Devices returns every device that has at least one reading.
	Devices(ctx context.Context) ([]DeviceID, error)
}

// StateStore keeps the live dashboard state: the latest environment
// snapshot, the latest analysis per device and the last screen time.
// This is typically implemented using Redis or an in-memory map.
type StateStore interface {
	// SetEnvironment replaces the current environment snapshot.
	SetEnvironment(ctx context.Context, env Environment) error

	// Environment returns the current snapshot, or ok=false if none was pushed.
	Environment(ctx context.Context) (env Environment, ok bool, err error)

	// SetAnalysis stores the latest analysis for a device.
	SetAnalysis(ctx context.Context, a Analysis) error

	// LatestAnalysis returns the most recently updated analysis across devices.
	// Returns ErrNoAnalysis if no device has pushed yet.
	LatestAnalysis(ctx context.Context) (Analysis, error)

	// SetScreenTime stores the screen time of the last usage push.
	SetScreenTime(ctx context.Context, hours float64) error

	// LastScreenTime returns the screen time of the last usage push (0 if none).
	LastScreenTime(ctx context.Context) (float64, error)
}
