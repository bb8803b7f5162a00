package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stresssense/stress-sense/pkg/circuitbreaker"
	"github.com/stresssense/stress-sense/pkg/retry"
)

type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noon() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local) }

func TestDiurnalPhaseAndActivity(t *testing.T) {
	assert.InDelta(t, 0, DiurnalPhase(6), 1e-12)
	assert.InDelta(t, 1, DiurnalPhase(12), 1e-12)
	assert.InDelta(t, -1, DiurnalPhase(0), 1e-12)

	assert.Equal(t, 2.0, ActivityLevel(7.5))
	assert.Equal(t, 0.3, ActivityLevel(9))
	assert.Equal(t, 2.5, ActivityLevel(22.9))
	assert.Equal(t, 0.5, ActivityLevel(23))
	assert.Equal(t, 0.5, ActivityLevel(3))
}

func TestSensor_StepWithoutNoise(t *testing.T) {
	s := NewSensor(DefaultSensorConfig(), constRand(0.5))
	got := s.Next(noon())

	assert.Equal(t, Sample{Temperature: 23.6, Humidity: 64, AirQuality: 0.38}, got)
	assert.Equal(t, got, s.Current())
}

func TestSensor_Zone(t *testing.T) {
	cfg := DefaultSensorConfig()
	cfg.Zone = time.FixedZone("WIB", 7*60*60)
	s := NewSensor(cfg, constRand(0.5))

	got := s.Next(time.Date(2024, 5, 1, 5, 0, 0, 0, time.UTC))
	assert.Equal(t, Sample{Temperature: 23.6, Humidity: 64, AirQuality: 0.38}, got)
}

func TestSensor_StaysInRange(t *testing.T) {
	s := NewSensor(DefaultSensorConfig(), rand.New(rand.NewPCG(1, 2)))
	at := noon()
	for i := 0; i < 5000; i++ {
		got := s.Next(at)
		require.GreaterOrEqual(t, got.Humidity, 30.0)
		require.LessOrEqual(t, got.Humidity, 85.0)
		require.GreaterOrEqual(t, got.AirQuality, 0.0)
		require.LessOrEqual(t, got.AirQuality, 5.0)
		at = at.Add(10 * time.Second)
	}
}

func TestSensor_SpikeRaisesAirQuality(t *testing.T) {
	cfg := DefaultSensorConfig()
	cfg.SpikeChance = 1
	spiky := NewSensor(cfg, constRand(0.5)).Next(noon())
	calm := NewSensor(DefaultSensorConfig(), constRand(0.5)).Next(noon())
	assert.Greater(t, spiky.AirQuality, calm.AirQuality)
}

func fastRetrier() *retry.Retrier {
	return retry.SensorPushRetrier(retry.WithInitialDelay(time.Millisecond), retry.WithMaxDelay(time.Millisecond), retry.WithJitter(0))
}

func TestClient_PushRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var last Sample
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, SensorPath, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get(DeviceKeyHeader))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&last))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL + "/", DeviceKey: "secret", Logger: quietLogger()}, fastRetrier(), nil)
	want := Sample{Temperature: 24.1, Humidity: 61.5, AirQuality: 0.31}
	require.NoError(t, c.Push(context.Background(), want))

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, want, last)
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Logger: quietLogger()}, fastRetrier(), nil)
	err := c.Push(context.Background(), Sample{})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.Equal(t, "bad key", statusErr.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_BreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	breaker := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2))
	c := NewClient(ClientConfig{BaseURL: srv.URL, Logger: quietLogger()}, fastRetrier(), breaker)
	ctx := context.Background()

	require.Error(t, c.Push(ctx, Sample{}))
	require.Error(t, c.Push(ctx, Sample{}))
	assert.ErrorIs(t, c.Push(ctx, Sample{}), circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, circuitbreaker.StateOpen, c.Breaker().State())
}

type recordingPusher struct {
	samples []Sample
	err     error
}

func (p *recordingPusher) Push(_ context.Context, s Sample) error {
	p.samples = append(p.samples, s)
	return p.err
}

func TestRunner_Tick(t *testing.T) {
	p := &recordingPusher{}
	r := NewRunner(NewSensor(DefaultSensorConfig(), constRand(0.5)), p, 0, quietLogger())
	r.now = noon

	s, err := r.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Sample{s}, p.samples)
	assert.Equal(t, 10*time.Second, r.interval)

	p.err = errors.New("down")
	_, err = r.Tick(context.Background())
	assert.Error(t, err)
	assert.Len(t, p.samples, 2)
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	p := &recordingPusher{}
	r := NewRunner(NewSensor(DefaultSensorConfig(), constRand(0.5)), p, time.Hour, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
	assert.Len(t, p.samples, 1)
}
