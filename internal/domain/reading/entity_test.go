package reading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stresssense/stress-sense/internal/domain/stress"
)

func TestNormalizeDeviceID(t *testing.T) {
	assert.Equal(t, UnknownDevice, NormalizeDeviceID(""))
	assert.Equal(t, UnknownDevice, NormalizeDeviceID("   "))
	assert.Equal(t, DeviceID("pixel-7"), NormalizeDeviceID(" pixel-7 "))
}

func TestNewAppUsage(t *testing.T) {
	u, err := NewAppUsage("", 30)
	require.NoError(t, err)
	assert.Equal(t, UnknownApp, u.AppName)

	_, err = NewAppUsage("tiktok", -1)
	assert.ErrorIs(t, err, ErrNegativeForegroundSec)
}

func TestNewReading(t *testing.T) {
	res := stress.MustDefault().Calculate(6, 25, 60, 1.5)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	r := NewReading(NewReadingParams{
		ID:              "r1",
		ScreenTimeHours: ScreenHours(21600),
		Environment:     DefaultEnvironment(at),
		Result:          res,
		Apps:            []AppUsage{{"youtube", 3600}, {"chrome", 1800}},
		RecordedAt:      at,
	})

	assert.Equal(t, UnknownDevice, r.DeviceID)
	assert.Equal(t, 6.0, r.ScreenTimeHours)
	assert.Equal(t, stress.CategoryMedium, r.Category)
	assert.Equal(t, int64(5400), r.TotalForegroundSeconds())

	a := AnalysisOf(r)
	assert.Equal(t, r.StressValue, a.StressValue)
	assert.Equal(t, at, a.UpdatedAt)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultHistoryLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultHistoryLimit, NormalizeLimit(-4))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxHistoryLimit, NormalizeLimit(10_000))
}
