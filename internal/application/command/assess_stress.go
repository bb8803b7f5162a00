package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/stresssense/stress-sense/internal/domain/reading"
	"github.com/stresssense/stress-sense/internal/domain/stress"
	"github.com/stresssense/stress-sense/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSESS STRESS COMMAND
// Takes a phone usage push, combines it with the latest room snapshot,
// runs the stress model and records the result for history and dashboard.
// ══════════════════════════════════════════════════════════════════════════════

// Calculator computes a stress result. Implemented by *stress.Model and by
// the memoizing wrapper in infrastructure/memo.
type Calculator interface {
	Compute(in stress.Inputs) stress.Result
}

// AppUsageInput is one entry of the usage list in a push.
type AppUsageInput struct {
	AppName           string
	ForegroundSeconds int64
}

// AssessStressCommand contains one phone usage push.
type AssessStressCommand struct {
	// DeviceID identifies the phone (defaults to "unknown_device").
	DeviceID string

	// TotalScreenTimeSeconds is the screen time reported for the day.
	TotalScreenTimeSeconds float64

	// Usage is the optional per-app breakdown.
	Usage []AppUsageInput

	// Timestamp is when the push was received (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c AssessStressCommand) Validate() error {
	if math.IsNaN(c.TotalScreenTimeSeconds) || math.IsInf(c.TotalScreenTimeSeconds, 0) {
		return errors.New("assess_stress: total_screen_time_s must be a finite number")
	}
	for i, u := range c.Usage {
		if u.ForegroundSeconds < 0 {
			return fmt.Errorf("assess_stress: usage_data[%d]: %w", i, reading.ErrNegativeForegroundSec)
		}
	}
	return nil
}

// AssessStressResult contains the outcome of an assessment.
type AssessStressResult struct {
	DeviceID    reading.DeviceID
	Reading     *reading.Reading
	Result      stress.Result
	Environment reading.Environment
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AssessStressHandler handles the AssessStressCommand.
type AssessStressHandler struct {
	calculator Calculator
	readings   reading.Repository
	state      reading.StateStore
	logger     *slog.Logger

	newID func() string
	now   func() time.Time
}

// NewAssessStressHandler creates a new AssessStressHandler.
func NewAssessStressHandler(
	calculator Calculator,
	readings reading.Repository,
	state reading.StateStore,
	log *slog.Logger,
) *AssessStressHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AssessStressHandler{
		calculator: calculator,
		readings:   readings,
		state:      state,
		logger:     log.With("handler", "assess_stress"),
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// Handle executes the assess stress command.
func (h *AssessStressHandler) Handle(ctx context.Context, cmd AssessStressCommand) (*AssessStressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("assess_stress: validation failed: %w", err)
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = h.now()
	}
	deviceID := reading.NormalizeDeviceID(cmd.DeviceID)
	hours := reading.ScreenHours(cmd.TotalScreenTimeSeconds)

	env, ok, err := h.state.Environment(ctx)
	if err != nil {
		return nil, fmt.Errorf("assess_stress: failed to load environment: %w", err)
	}
	if !ok {
		env = reading.DefaultEnvironment(timestamp)
	}

	result := h.calculator.Compute(stress.Inputs{
		ScreenTimeHours: hours,
		Temperature:     env.Temperature,
		Humidity:        env.Humidity,
		AirQuality:      env.AirQuality,
	})

	apps := make([]reading.AppUsage, 0, len(cmd.Usage))
	for _, u := range cmd.Usage {
		app, err := reading.NewAppUsage(u.AppName, u.ForegroundSeconds)
		if err != nil {
			return nil, fmt.Errorf("assess_stress: %w", err)
		}
		apps = append(apps, app)
	}

	rec := reading.NewReading(reading.NewReadingParams{
		ID:              h.newID(),
		DeviceID:        deviceID,
		ScreenTimeHours: hours,
		Environment:     env,
		Result:          result,
		Apps:            apps,
		RecordedAt:      timestamp,
	})

	if err := h.readings.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("assess_stress: failed to save reading: %w", err)
	}

	// Dashboard state is best effort once the reading is persisted.
	if err := h.state.SetScreenTime(ctx, hours); err != nil {
		h.logger.Warn("failed to update screen time", logger.DeviceID(deviceID.String()), logger.Err(err))
	}
	if err := h.state.SetAnalysis(ctx, reading.AnalysisOf(rec)); err != nil {
		h.logger.Warn("failed to update analysis", logger.DeviceID(deviceID.String()), logger.Err(err))
	}

	h.logger.Info("stress assessed",
		logger.DeviceID(deviceID.String()),
		"screen_hours", math.Round(hours*10)/10,
		logger.StressValue(result.StressValue),
		logger.Category(string(result.Category)),
		"activated_rules", result.Diagnostics.ActivatedRules,
		"temperature", env.Temperature,
		"humidity", env.Humidity,
		"air_quality", env.AirQuality,
	)

	return &AssessStressResult{
		DeviceID:    deviceID,
		Reading:     rec,
		Result:      result,
		Environment: env,
	}, nil
}
