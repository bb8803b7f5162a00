package memo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stresssense/stress-sense/internal/domain/stress"
)

func TestCalculator_HitsOnClampedInputs(t *testing.T) {
	c, err := New(stress.MustDefault(), 8)
	require.NoError(t, err)

	first := c.Compute(stress.Inputs{ScreenTimeHours: 30, Temperature: 50, Humidity: 95, AirQuality: 9})
	second := c.Compute(stress.Inputs{ScreenTimeHours: 24, Temperature: 35, Humidity: 90, AirQuality: 5})

	assert.Equal(t, first.StressValue, second.StressValue)
	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, 1, s.Size)
}

func TestCalculator_MatchesModel(t *testing.T) {
	m := stress.MustDefault()
	c, err := New(m, 4)
	require.NoError(t, err)

	in := stress.Inputs{ScreenTimeHours: 12, Temperature: 21, Humidity: 72, AirQuality: 1.25}
	assert.Equal(t, m.Compute(in), c.Compute(in))
	assert.Equal(t, m.Compute(in), c.Compute(in))
}

func TestCalculator_ReturnsCopies(t *testing.T) {
	c, err := New(stress.MustDefault(), 4)
	require.NoError(t, err)
	in := stress.Inputs{ScreenTimeHours: 6, Temperature: 25, Humidity: 60, AirQuality: 1.5}

	res := c.Compute(in)
	res.Diagnostics.ScreenTime["medium"] = -1
	res.StressValue = -1

	again := c.Compute(in)
	assert.Equal(t, 1.0, again.Diagnostics.ScreenTime["medium"])
	assert.InDelta(t, 50.0, again.StressValue, 0.011)
}

func TestCalculator_Eviction(t *testing.T) {
	c, err := New(stress.MustDefault(), 2)
	require.NoError(t, err)

	for _, s := range []float64{1, 2, 3, 4} {
		c.Compute(stress.Inputs{ScreenTimeHours: s, Temperature: 25, Humidity: 60, AirQuality: 0.2})
	}
	assert.Equal(t, 2, c.Stats().Size)

	c.Purge()
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCalculator_Disabled(t *testing.T) {
	c, err := New(stress.MustDefault(), 0)
	require.NoError(t, err)

	c.Compute(stress.Inputs{ScreenTimeHours: 1})
	c.Compute(stress.Inputs{ScreenTimeHours: 1})
	assert.Equal(t, Stats{}, c.Stats())
}

func TestCalculator_NearbyInputsKeepOwnResult(t *testing.T) {
	m := stress.MustDefault()
	c, err := New(m, 8)
	require.NoError(t, err)

	base := stress.Inputs{ScreenTimeHours: 3.5, Temperature: 21, Humidity: 72, AirQuality: 1.25}
	near := base
	near.ScreenTimeHours = 3.5000004

	c.Compute(base)
	got := c.Compute(near)

	assert.Equal(t, m.Compute(near), got)
	assert.Equal(t, 3.5000004, got.Diagnostics.Inputs.ScreenTimeHours)
	assert.Equal(t, uint64(2), c.Stats().Misses)
	assert.Equal(t, 2, c.Stats().Size)
}
