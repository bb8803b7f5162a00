package simulator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stresssense/stress-sense/pkg/circuitbreaker"
)

// Pusher sends a sample somewhere.
type Pusher interface {
	Push(ctx context.Context, s Sample) error
}

// Runner drives a Sensor and pushes every sample.
type Runner struct {
	sensor   *Sensor
	pusher   Pusher
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewRunner creates a runner. interval <= 0 falls back to 10s.
func NewRunner(sensor *Sensor, pusher Pusher, interval time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		sensor:   sensor,
		pusher:   pusher,
		interval: interval,
		now:      time.Now,
		logger:   logger.With("component", "simulator"),
	}
}

// Tick produces and pushes one sample.
func (r *Runner) Tick(ctx context.Context) (Sample, error) {
	s := r.sensor.Next(r.now())
	err := r.pusher.Push(ctx, s)
	switch {
	case err == nil:
		r.logger.Info("sensor sample sent",
			"temperature", s.Temperature,
			"humidity", s.Humidity,
			"air_quality", s.AirQuality,
		)
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		r.logger.Warn("sensor sample dropped, ingest circuit open")
	default:
		r.logger.Error("sensor push failed", "error", err)
	}
	return s, err
}

// Run pushes immediately and then on every interval until ctx is done.
// Push failures are logged and never stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		_, _ = r.Tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
