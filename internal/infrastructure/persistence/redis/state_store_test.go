package redis

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stresssense/stress-sense/internal/domain/reading"
	"github.com/stresssense/stress-sense/internal/domain/stress"
)

// toStrings mimics what HGETALL returns for fields written with HSET.
func toStrings(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.(string)
	}
	return out
}

func TestConfig_Addr(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr())
	assert.Equal(t, 24*time.Hour, cfg.StateTTL)
}

func TestAnalysisKey(t *testing.T) {
	assert.Equal(t, "stresssense:analysis:device:pixel-7", AnalysisKey("pixel-7"))
	assert.NotEqual(t, KeyAnalysisIndex, AnalysisKey("index"))
}

func TestEnvironmentFields_RoundTrip(t *testing.T) {
	env := reading.Environment{
		Temperature: 27.35,
		Humidity:    61,
		AirQuality:  0.125,
		UpdatedAt:   time.Date(2024, 5, 1, 10, 30, 0, 123, time.UTC),
	}
	got, err := environmentFromFields(toStrings(environmentFields(env)))
	require.NoError(t, err)
	assert.Equal(t, env, got)
}

func TestEnvironmentFields_Corrupt(t *testing.T) {
	f := toStrings(environmentFields(reading.DefaultEnvironment(time.Now())))
	f["humidity"] = "wet"
	_, err := environmentFromFields(f)
	assert.ErrorIs(t, err, ErrCacheSerialization)
}

func TestAnalysisFields_RoundTrip(t *testing.T) {
	a := reading.Analysis{
		DeviceID:        "pixel-7",
		StressValue:     89.82,
		Category:        stress.CategoryVeryHigh,
		Message:         stress.CategoryVeryHigh.Message(),
		ScreenTimeHours: 18,
		UpdatedAt:       time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
	}
	got, err := analysisFromFields("pixel-7", toStrings(analysisFields(a)))
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestAnalysisFields_ZeroTime(t *testing.T) {
	f := toStrings(analysisFields(reading.Analysis{StressValue: 1}))
	assert.Equal(t, "", f["updated_at"])

	got, err := analysisFromFields("x", f)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.IsZero())
}

func TestStaleBefore(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	got := staleBefore(now, time.Hour)

	want := "(" + strconv.FormatInt(now.Add(-time.Hour).UnixMilli(), 10)
	assert.Equal(t, want, got)
}
