// Package simulator stands in for the room's IoT board: it produces a
// drifting temperature, humidity and air quality signal and pushes it to
// the ingestion server on a fixed interval.
package simulator

import (
	"math"
	"time"

	"github.com/stresssense/stress-sense/pkg/timeutil"
)

// Rand is the random source. *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Sample is one sensor push.
type Sample struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	AirQuality  float64 `json:"air_quality"`
}

// SensorConfig describes the room climate.
type SensorConfig struct {
	TempBase      float64
	TempAmplitude float64
	HumBase       float64
	HumAmplitude  float64
	AQBase        float64
	// AQActivityGain scales the occupancy level into air quality.
	AQActivityGain float64
	// SpikeChance is the per-sample probability of a pollution spike.
	SpikeChance float64
	Start       Sample
	// Zone drives the day cycle. Nil uses the location of the timestamps.
	Zone *time.Location
}

// DefaultSensorConfig returns a temperate bedroom.
func DefaultSensorConfig() SensorConfig {
	return SensorConfig{
		TempBase:       23.5,
		TempAmplitude:  3.5,
		HumBase:        65,
		HumAmplitude:   10,
		AQBase:         0.25,
		AQActivityGain: 0.12,
		SpikeChance:    0.03,
		Start:          Sample{Temperature: 23, Humidity: 65, AirQuality: 0.4},
	}
}

// Sensor is a stateful signal generator. It is not safe for concurrent use.
type Sensor struct {
	cfg  SensorConfig
	rand Rand
	cur  Sample
}

// NewSensor creates a sensor at cfg.Start.
func NewSensor(cfg SensorConfig, src Rand) *Sensor {
	return &Sensor{cfg: cfg, rand: src, cur: cfg.Start}
}

// Current returns the last produced sample.
func (s *Sensor) Current() Sample { return s.cur }

// Next advances every channel one step toward its target for the local
// time of now and returns the new sample.
func (s *Sensor) Next(now time.Time) Sample {
	hour := timeutil.HourOfDay(now, s.cfg.Zone)
	phase := DiurnalPhase(hour)

	target := s.cfg.TempBase + s.cfg.TempAmplitude*phase
	t := s.cur.Temperature + (target-s.cur.Temperature)*0.15 + s.uniform(-0.2, 0.2)
	s.cur.Temperature = round(t, 2)

	target = s.cfg.HumBase - s.cfg.HumAmplitude*phase
	h := s.cur.Humidity + (target-s.cur.Humidity)*0.1 + s.uniform(-0.5, 0.5)
	s.cur.Humidity = round(clamp(h, 30, 85), 1)

	target = s.cfg.AQBase + ActivityLevel(hour)*s.cfg.AQActivityGain
	aq := s.cur.AirQuality + (target-s.cur.AirQuality)*0.15
	if s.rand.Float64() < s.cfg.SpikeChance {
		aq += s.uniform(0.05, 0.12)
	}
	aq += s.uniform(-0.01, 0.01)
	s.cur.AirQuality = round(clamp(aq, 0, 5), 2)

	return s.cur
}

func (s *Sensor) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rand.Float64()
}

// DiurnalPhase is a sine over the day, zero at 06:00 and peaking at 12:00.
func DiurnalPhase(hour float64) float64 {
	return math.Sin(2 * math.Pi * (hour - 6) / 24)
}

// ActivityLevel is the occupancy factor for an hour of day.
func ActivityLevel(hour float64) float64 {
	switch {
	case hour >= 6 && hour < 9:
		return 2.0
	case hour >= 9 && hour < 17:
		return 0.3
	case hour >= 17 && hour < 23:
		return 2.5
	default:
		return 0.5
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
