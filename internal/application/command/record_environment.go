// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/stresssense/stress-sense/internal/domain/reading"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ENVIRONMENT COMMAND
// Stores the latest room snapshot pushed by the IoT sensor. Every later
// stress assessment is computed against this snapshot.
// ══════════════════════════════════════════════════════════════════════════════

// RecordEnvironmentCommand contains one sensor push. Nil fields fall back to
// the sensor defaults (25 C, 50 %, 0.1).
type RecordEnvironmentCommand struct {
	Temperature *float64
	Humidity    *float64
	AirQuality  *float64

	// Timestamp is when the push was received (defaults to now if zero).
	Timestamp time.Time
}

// Validate rejects non-finite readings. Out-of-range values are accepted
// and clamped later by the stress model.
func (c RecordEnvironmentCommand) Validate() error {
	for name, v := range map[string]*float64{
		"temperature": c.Temperature,
		"humidity":    c.Humidity,
		"air_quality": c.AirQuality,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("record_environment: %s must be a finite number", name)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordEnvironmentHandler handles the RecordEnvironmentCommand.
type RecordEnvironmentHandler struct {
	state  reading.StateStore
	logger *slog.Logger
	now    func() time.Time
}

// NewRecordEnvironmentHandler creates a new RecordEnvironmentHandler.
func NewRecordEnvironmentHandler(state reading.StateStore, logger *slog.Logger) *RecordEnvironmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordEnvironmentHandler{
		state:  state,
		logger: logger.With("handler", "record_environment"),
		now:    time.Now,
	}
}

// Handle executes the record environment command.
func (h *RecordEnvironmentHandler) Handle(ctx context.Context, cmd RecordEnvironmentCommand) (reading.Environment, error) {
	if err := cmd.Validate(); err != nil {
		return reading.Environment{}, fmt.Errorf("record_environment: validation failed: %w", err)
	}

	env := reading.Environment{
		Temperature: valueOr(cmd.Temperature, reading.FallbackTemperature),
		Humidity:    valueOr(cmd.Humidity, reading.FallbackHumidity),
		AirQuality:  valueOr(cmd.AirQuality, reading.FallbackAirQuality),
		UpdatedAt:   cmd.Timestamp,
	}
	if env.UpdatedAt.IsZero() {
		env.UpdatedAt = h.now()
	}

	if err := h.state.SetEnvironment(ctx, env); err != nil {
		return reading.Environment{}, fmt.Errorf("record_environment: failed to store snapshot: %w", err)
	}

	h.logger.Info("environment updated",
		"temperature", env.Temperature,
		"humidity", env.Humidity,
		"air_quality", env.AirQuality,
	)
	return env, nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
