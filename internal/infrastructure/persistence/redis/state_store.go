package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stresssense/stress-sense/internal/domain/reading"
	"github.com/stresssense/stress-sense/internal/domain/stress"
)

// StateStore implements reading.StateStore on Redis.
//
//	stresssense:env                      hash   temperature humidity air_quality updated_at
//	stresssense:analysis:device:<id>     hash   stress_value category message screen_hours updated_at
//	stresssense:analysis:index           zset   device id scored by updated_at (unix ms)
//	stresssense:screen_time              string JSON number
type StateStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewStateStore creates a state store on top of an open cache.
func NewStateStore(cache *Cache) *StateStore {
	return &StateStore{cache: cache, ttl: cache.config.StateTTL}
}

var _ reading.StateStore = (*StateStore)(nil)

// SetEnvironment replaces the environment hash.
func (s *StateStore) SetEnvironment(ctx context.Context, env reading.Environment) error {
	_, err := s.cache.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, KeyEnvironment, environmentFields(env))
		if s.ttl > 0 {
			pipe.Expire(ctx, KeyEnvironment, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: set environment: %w", err)
	}
	return nil
}

// Environment reads the environment hash. ok is false when it was never set.
func (s *StateStore) Environment(ctx context.Context) (reading.Environment, bool, error) {
	fields, err := s.cache.client.HGetAll(ctx, KeyEnvironment).Result()
	if err != nil {
		return reading.Environment{}, false, fmt.Errorf("redis: get environment: %w", err)
	}
	if len(fields) == 0 {
		return reading.Environment{}, false, nil
	}
	env, err := environmentFromFields(fields)
	if err != nil {
		return reading.Environment{}, false, err
	}
	return env, true, nil
}

// SetAnalysis writes the device hash, bumps the device in the index and
// drops index entries whose hash has already expired.
func (s *StateStore) SetAnalysis(ctx context.Context, a reading.Analysis) error {
	key := AnalysisKey(a.DeviceID.String())
	_, err := s.cache.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, analysisFields(a))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
			pipe.ZRemRangeByScore(ctx, KeyAnalysisIndex, "-inf", staleBefore(a.UpdatedAt, s.ttl))
		}
		pipe.ZAdd(ctx, KeyAnalysisIndex, redis.Z{
			Score:  float64(a.UpdatedAt.UnixMilli()),
			Member: a.DeviceID.String(),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: set analysis: %w", err)
	}
	return nil
}

// LatestAnalysis returns the analysis of the device with the newest update,
// not the device that pushed first. Index entries whose hash expired are
// removed and skipped.
func (s *StateStore) LatestAnalysis(ctx context.Context) (reading.Analysis, error) {
	devices, err := s.cache.client.ZRevRange(ctx, KeyAnalysisIndex, 0, 9).Result()
	if err != nil {
		return reading.Analysis{}, fmt.Errorf("redis: read analysis index: %w", err)
	}
	for _, id := range devices {
		fields, err := s.cache.client.HGetAll(ctx, AnalysisKey(id)).Result()
		if err != nil {
			return reading.Analysis{}, fmt.Errorf("redis: get analysis: %w", err)
		}
		if len(fields) == 0 {
			if err := s.cache.client.ZRem(ctx, KeyAnalysisIndex, id).Err(); err != nil {
				return reading.Analysis{}, fmt.Errorf("redis: prune analysis index: %w", err)
			}
			continue
		}
		return analysisFromFields(reading.DeviceID(id), fields)
	}
	return reading.Analysis{}, reading.ErrNoAnalysis
}

// SetScreenTime stores the last screen time.
func (s *StateStore) SetScreenTime(ctx context.Context, hours float64) error {
	return s.cache.Set(ctx, KeyScreenTime, hours, s.ttl)
}

// LastScreenTime returns the last screen time, 0 if none was stored.
func (s *StateStore) LastScreenTime(ctx context.Context) (float64, error) {
	var hours float64
	err := s.cache.Get(ctx, KeyScreenTime, &hours)
	if errors.Is(err, ErrCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis: get screen time: %w", err)
	}
	return hours, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Hash mapping
// ─────────────────────────────────────────────────────────────────────────────

// staleBefore is the exclusive upper score bound of index entries older than
// ttl relative to now.
func staleBefore(now time.Time, ttl time.Duration) string {
	return "(" + strconv.FormatInt(now.Add(-ttl).UnixMilli(), 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

func environmentFields(env reading.Environment) map[string]any {
	return map[string]any{
		"temperature": formatFloat(env.Temperature),
		"humidity":    formatFloat(env.Humidity),
		"air_quality": formatFloat(env.AirQuality),
		"updated_at":  formatTime(env.UpdatedAt),
	}
}

func environmentFromFields(f map[string]string) (reading.Environment, error) {
	var (
		env reading.Environment
		err error
	)
	if env.Temperature, err = strconv.ParseFloat(f["temperature"], 64); err != nil {
		return env, fmt.Errorf("%w: temperature: %v", ErrCacheSerialization, err)
	}
	if env.Humidity, err = strconv.ParseFloat(f["humidity"], 64); err != nil {
		return env, fmt.Errorf("%w: humidity: %v", ErrCacheSerialization, err)
	}
	if env.AirQuality, err = strconv.ParseFloat(f["air_quality"], 64); err != nil {
		return env, fmt.Errorf("%w: air_quality: %v", ErrCacheSerialization, err)
	}
	if env.UpdatedAt, err = parseTime(f["updated_at"]); err != nil {
		return env, fmt.Errorf("%w: updated_at: %v", ErrCacheSerialization, err)
	}
	return env, nil
}

func analysisFields(a reading.Analysis) map[string]any {
	return map[string]any{
		"stress_value": formatFloat(a.StressValue),
		"category":     string(a.Category),
		"message":      a.Message,
		"screen_hours": formatFloat(a.ScreenTimeHours),
		"updated_at":   formatTime(a.UpdatedAt),
	}
}

func analysisFromFields(deviceID reading.DeviceID, f map[string]string) (reading.Analysis, error) {
	a := reading.Analysis{
		DeviceID: deviceID,
		Category: stress.Category(f["category"]),
		Message:  f["message"],
	}
	var err error
	if a.StressValue, err = strconv.ParseFloat(f["stress_value"], 64); err != nil {
		return a, fmt.Errorf("%w: stress_value: %v", ErrCacheSerialization, err)
	}
	if a.ScreenTimeHours, err = strconv.ParseFloat(f["screen_hours"], 64); err != nil {
		return a, fmt.Errorf("%w: screen_hours: %v", ErrCacheSerialization, err)
	}
	if a.UpdatedAt, err = parseTime(f["updated_at"]); err != nil {
		return a, fmt.Errorf("%w: updated_at: %v", ErrCacheSerialization, err)
	}
	return a, nil
}
