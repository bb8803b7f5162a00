package stress

import (
	"math"
	"sync"

	"github.com/stresssense/stress-sense/internal/domain/fuzzy"
)

// ══════════════════════════════════════════════════════════════════════════════
// ВХОД И РЕЗУЛЬТАТ
// ══════════════════════════════════════════════════════════════════════════════

// Inputs - четыре чётких значения для оценки.
type Inputs struct {
	ScreenTimeHours float64 `json:"screen_time_hours"`
	Temperature     float64 `json:"temperature"`
	Humidity        float64 `json:"humidity"`
	AirQuality      float64 `json:"air_quality"`
}

func (in Inputs) values() []float64 {
	return []float64{in.ScreenTimeHours, in.Temperature, in.Humidity, in.AirQuality}
}

// Diagnostics - степени принадлежности входов термам. Только для
// наблюдения, на оценку не влияют.
type Diagnostics struct {
	TotalRules     int              `json:"total_rules"`
	ActivatedRules int              `json:"activated_rules"`
	Inputs         Inputs           `json:"clamped_inputs"`
	ScreenTime     fuzzy.Membership `json:"screen_membership"`
	Temperature    fuzzy.Membership `json:"temp_membership"`
	Humidity       fuzzy.Membership `json:"humid_membership"`
	AirQuality     fuzzy.Membership `json:"aq_membership"`
}

// Result - итог одной оценки.
type Result struct {
	StressValue float64     `json:"stress_value"`
	Category    Category    `json:"category"`
	Message     string      `json:"message"`
	Diagnostics Diagnostics `json:"fuzzy_details"`
}

// Clone возвращает глубокую копию результата.
func (r Result) Clone() Result {
	out := r
	out.Diagnostics.ScreenTime = cloneMembership(r.Diagnostics.ScreenTime)
	out.Diagnostics.Temperature = cloneMembership(r.Diagnostics.Temperature)
	out.Diagnostics.Humidity = cloneMembership(r.Diagnostics.Humidity)
	out.Diagnostics.AirQuality = cloneMembership(r.Diagnostics.AirQuality)
	return out
}

func cloneMembership(m fuzzy.Membership) fuzzy.Membership {
	if m == nil {
		return nil
	}
	out := make(fuzzy.Membership, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// МОДЕЛЬ
// ══════════════════════════════════════════════════════════════════════════════

// Model - неизменяемая модель оценки стресса.
type Model struct {
	spec   ModelSpec
	engine *fuzzy.Engine
}

// NewModel проверяет описание и строит модель. Любая ошибка описания
// возвращается с видом shared.ErrInvalidModel.
func NewModel(spec ModelSpec) (*Model, error) {
	spec = spec.Clone()

	inputs := make([]*fuzzy.Variable, 0, 4)
	for _, vs := range spec.Inputs() {
		v, err := buildVariable(vs)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, v)
	}
	output, err := buildVariable(&spec.Stress)
	if err != nil {
		return nil, err
	}

	rb, err := fuzzy.NewRuleBase(inputs, output, buildRules(spec.Rules))
	if err != nil {
		return nil, err
	}
	engine, err := fuzzy.NewEngine(rb)
	if err != nil {
		return nil, err
	}

	return &Model{spec: spec, engine: engine}, nil
}

var (
	defaultOnce  sync.Once
	defaultModel *Model
	defaultErr   error
)

// Default возвращает встроенную модель. Строится один раз на процесс.
func Default() (*Model, error) {
	defaultOnce.Do(func() {
		defaultModel, defaultErr = NewModel(DefaultSpec())
	})
	return defaultModel, defaultErr
}

// MustDefault как Default, но паникует при ошибке. Для старта приложения.
func MustDefault() *Model {
	m, err := Default()
	if err != nil {
		panic(err)
	}
	return m
}

// Spec возвращает копию описания, из которого построена модель.
func (m *Model) Spec() ModelSpec { return m.spec.Clone() }

// RuleCount возвращает число правил.
func (m *Model) RuleCount() int { return m.engine.RuleBase().Len() }

// Clamp приводит входы к границам универсумов.
func (m *Model) Clamp(in Inputs) Inputs {
	vars := m.engine.RuleBase().Inputs()
	return Inputs{
		ScreenTimeHours: vars[0].Clamp(in.ScreenTimeHours),
		Temperature:     vars[1].Clamp(in.Temperature),
		Humidity:        vars[2].Clamp(in.Humidity),
		AirQuality:      vars[3].Clamp(in.AirQuality),
	}
}

// Compute выполняет полный цикл: ограничение входов, вывод Мамдани,
// центроид, категоризацию и округление до 2 знаков. Значения вне диапазона
// не считаются ошибкой.
func (m *Model) Compute(in Inputs) Result {
	raw, ev := m.engine.Evaluate(in.values()...)
	score, band := scoreAndBand(raw)

	return Result{
		StressValue: score,
		Category:    band.Category,
		Message:     band.Message,
		Diagnostics: Diagnostics{
			TotalRules:     m.RuleCount(),
			ActivatedRules: ev.Activated,
			Inputs: Inputs{
				ScreenTimeHours: ev.Inputs[0],
				Temperature:     ev.Inputs[1],
				Humidity:        ev.Inputs[2],
				AirQuality:      ev.Inputs[3],
			},
			ScreenTime:  m.engine.Membership(ev, 0),
			Temperature: m.engine.Membership(ev, 1),
			Humidity:    m.engine.Membership(ev, 2),
			AirQuality:  m.engine.Membership(ev, 3),
		},
	}
}

// Calculate - позиционная форма Compute.
func (m *Model) Calculate(screenTimeHours, temperature, humidity, airQuality float64) Result {
	return m.Compute(Inputs{
		ScreenTimeHours: screenTimeHours,
		Temperature:     temperature,
		Humidity:        humidity,
		AirQuality:      airQuality,
	})
}

// scoreAndBand категоризует сырой центроид и только потом округляет его:
// 19.996 даёт 20.0 и "Very Low Stress".
func scoreAndBand(raw float64) (float64, Band) {
	return round2(raw), Categorize(raw)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
