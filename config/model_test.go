package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stresssense/stress-sense/internal/domain/stress"
)

func parse(t *testing.T, doc string) ModelOverride {
	t.Helper()
	o, err := ParseModelOverride(strings.NewReader(doc))
	require.NoError(t, err)
	return o
}

func TestModelOverride_TermsAndRules(t *testing.T) {
	o := parse(t, `
inputs:
  screen:
    terms:
      medium: [2, 4, 7, 9]
output:
  terms:
    high: [50, 65, 75, 85]
rules:
  - {screen: low, temperature: normal, humidity: medium, air_quality: good, stress: very_high}
`)
	base := stress.DefaultSpec()
	spec, err := o.Apply(base)
	require.NoError(t, err)

	assert.Equal(t, [4]float64{2, 4, 7, 9}, spec.Screen.Term("medium").Points)
	assert.Equal(t, [4]float64{50, 65, 75, 85}, spec.Stress.Term("high").Points)
	assert.Equal(t, stress.LevelVeryHigh, spec.Rule("low", "normal", "medium", "good").Stress)

	// base untouched
	assert.Equal(t, [4]float64{3, 5, 7, 9}, base.Screen.Term("medium").Points)
	assert.Equal(t, stress.DefaultSpec().Rules, base.Rules)
}

func TestModelOverride_ChangesResult(t *testing.T) {
	o := parse(t, `
rules:
  - {screen: low, temperature: normal, humidity: medium, air_quality: good, stress: very_high}
`)
	spec, err := o.Apply(stress.DefaultSpec())
	require.NoError(t, err)
	m, err := stress.NewModel(spec)
	require.NoError(t, err)

	res := m.Calculate(1.5, 24, 55, 0.2)
	assert.Greater(t, res.StressValue, 85.0)
	assert.Equal(t, stress.CategoryVeryHigh, res.Category)
}

func TestModelOverride_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown input", "inputs:\n  noise:\n    terms:\n      low: [0, 0, 1, 2]\n"},
		{"output as input", "inputs:\n  stress:\n    terms:\n      low: [0, 0, 1, 2]\n"},
		{"unknown term", "inputs:\n  screen:\n    terms:\n      extreme: [0, 0, 1, 2]\n"},
		{"unknown combination", "rules:\n  - {screen: low, temperature: arctic, humidity: low, air_quality: good, stress: low}\n"},
		{"unknown level", "rules:\n  - {screen: low, temperature: cold, humidity: low, air_quality: good, stress: panic}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.doc).Apply(stress.DefaultSpec())
			assert.ErrorIs(t, err, ErrInvalidOverride)
		})
	}
}

func TestParseModelOverride_StrictFields(t *testing.T) {
	_, err := ParseModelOverride(strings.NewReader("universes: {}\n"))
	assert.ErrorIs(t, err, ErrInvalidOverride)

	_, err = ParseModelOverride(strings.NewReader("inputs:\n  screen:\n    terms:\n      low: [0, 1]\n"))
	assert.ErrorIs(t, err, ErrInvalidOverride)

	o, err := ParseModelOverride(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, o.Rules)
}

func TestLoadModel(t *testing.T) {
	m, err := LoadModel("")
	require.NoError(t, err)
	assert.Equal(t, 81, m.RuleCount())

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("inputs:\n  screen:\n    terms:\n      low: [4, 2, 1, 0]\n"), 0o600))
	_, err = LoadModel(bad)
	assert.ErrorIs(t, err, ErrInvalidOverride)

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("output:\n  terms:\n    very_low: [0, 0, 5, 20]\n"), 0o600))
	m, err = LoadModel(good)
	require.NoError(t, err)
	spec := m.Spec()
	assert.Equal(t, [4]float64{0, 0, 5, 20}, spec.Stress.Term("very_low").Points)

	_, err = LoadModel(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
