package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stresssense/stress-sense/internal/domain/stress"
)

// ErrInvalidOverride is returned for an override that names unknown
// variables, terms or rule combinations.
var ErrInvalidOverride = errors.New("config: invalid stress model override")

// ModelOverride is the YAML shape of STRESS_MODEL_FILE:
//
//	inputs:
//	  screen:
//	    terms:
//	      medium: [3, 5, 7, 9]
//	output:
//	  terms:
//	    high: [55, 65, 75, 85]
//	rules:
//	  - {screen: low, temperature: cold, humidity: low, air_quality: good, stress: low}
//
// Only the listed terms and rules change. Universes, the variable set and
// term names stay fixed.
type ModelOverride struct {
	Inputs map[string]VariableOverride `yaml:"inputs"`
	Output VariableOverride            `yaml:"output"`
	Rules  []RuleOverride              `yaml:"rules"`
}

// VariableOverride replaces term breakpoints by term name.
type VariableOverride struct {
	Terms map[string][4]float64 `yaml:"terms"`
}

// RuleOverride replaces the consequent of one input combination.
type RuleOverride struct {
	Screen      string `yaml:"screen"`
	Temperature string `yaml:"temperature"`
	Humidity    string `yaml:"humidity"`
	AirQuality  string `yaml:"air_quality"`
	Stress      string `yaml:"stress"`
}

// ParseModelOverride decodes an override document. Unknown keys are errors.
func ParseModelOverride(r io.Reader) (ModelOverride, error) {
	var o ModelOverride
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		return ModelOverride{}, fmt.Errorf("%w: %v", ErrInvalidOverride, err)
	}
	return o, nil
}

// Apply returns a copy of base with the override applied. The result still
// has to pass stress.NewModel.
func (o ModelOverride) Apply(base stress.ModelSpec) (stress.ModelSpec, error) {
	spec := base.Clone()

	for name, vo := range o.Inputs {
		v := spec.Variable(name)
		if v == nil || v.Name == stress.VarStress {
			return spec, fmt.Errorf("%w: unknown input %q", ErrInvalidOverride, name)
		}
		if err := applyTerms(v, vo.Terms); err != nil {
			return spec, err
		}
	}
	if err := applyTerms(&spec.Stress, o.Output.Terms); err != nil {
		return spec, err
	}

	for i, ro := range o.Rules {
		rule := spec.Rule(ro.Screen, ro.Temperature, ro.Humidity, ro.AirQuality)
		if rule == nil {
			return spec, fmt.Errorf("%w: rule %d: no combination %s/%s/%s/%s",
				ErrInvalidOverride, i, ro.Screen, ro.Temperature, ro.Humidity, ro.AirQuality)
		}
		if spec.Stress.Term(ro.Stress) == nil {
			return spec, fmt.Errorf("%w: rule %d: unknown stress level %q", ErrInvalidOverride, i, ro.Stress)
		}
		rule.Stress = stress.Level(ro.Stress)
	}
	return spec, nil
}

func applyTerms(v *stress.VariableSpec, terms map[string][4]float64) error {
	for name, points := range terms {
		t := v.Term(name)
		if t == nil {
			return fmt.Errorf("%w: unknown term %s.%s", ErrInvalidOverride, v.Name, name)
		}
		t.Points = points
	}
	return nil
}

// LoadModel builds the stress model: the built-in one when path is empty,
// otherwise the built-in one with the file's override applied.
func LoadModel(path string) (*stress.Model, error) {
	if path == "" {
		return stress.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stress model file: %w", err)
	}
	o, err := ParseModelOverride(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	spec, err := o.Apply(stress.DefaultSpec())
	if err != nil {
		return nil, err
	}
	m, err := stress.NewModel(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOverride, err)
	}
	return m, nil
}
