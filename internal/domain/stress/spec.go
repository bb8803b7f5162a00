package stress

import (
	"github.com/stresssense/stress-sense/internal/domain/fuzzy"
	"github.com/stresssense/stress-sense/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ИМЕНА ПЕРЕМЕННЫХ И ТЕРМОВ
// ══════════════════════════════════════════════════════════════════════════════

// Имена нечётких переменных. Набор переменных фиксирован.
const (
	VarScreen      = "screen"
	VarTemperature = "temperature"
	VarHumidity    = "humidity"
	VarAirQuality  = "air_quality"
	VarStress      = "stress"
)

// Level - терм выходной переменной stress.
type Level string

const (
	LevelVeryLow  Level = "very_low"
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very_high"
)

// ══════════════════════════════════════════════════════════════════════════════
// ОПИСАНИЕ МОДЕЛИ
// ══════════════════════════════════════════════════════════════════════════════

// TermSpec - терм с точками трапеции (a, b, c, d).
type TermSpec struct {
	Name   string
	Points [4]float64
}

// VariableSpec - описание одной переменной: универсум и термы по порядку.
type VariableSpec struct {
	Name       string
	Lo, Hi     float64
	Resolution float64
	Terms      []TermSpec
}

// Term ищет терм по имени. Возвращает nil, если терма нет.
func (v *VariableSpec) Term(name string) *TermSpec {
	for i := range v.Terms {
		if v.Terms[i].Name == name {
			return &v.Terms[i]
		}
	}
	return nil
}

// RuleSpec - одно правило таблицы: по терму на каждый вход и следствие.
type RuleSpec struct {
	Screen      string
	Temperature string
	Humidity    string
	AirQuality  string
	Stress      Level
}

// ModelSpec - полное декларативное описание модели. Из него NewModel
// строит неизменяемую Model. Переопределение из YAML меняет только точки
// термов и следствия правил.
type ModelSpec struct {
	Screen      VariableSpec
	Temperature VariableSpec
	Humidity    VariableSpec
	AirQuality  VariableSpec
	Stress      VariableSpec
	Rules       []RuleSpec
}

// Inputs возвращает описания входов в порядке вычисления.
func (s *ModelSpec) Inputs() []*VariableSpec {
	return []*VariableSpec{&s.Screen, &s.Temperature, &s.Humidity, &s.AirQuality}
}

// Variable ищет переменную (вход или выход) по имени.
func (s *ModelSpec) Variable(name string) *VariableSpec {
	for _, v := range append(s.Inputs(), &s.Stress) {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Rule ищет правило по комбинации входных термов.
func (s *ModelSpec) Rule(screen, temperature, humidity, airQuality string) *RuleSpec {
	for i := range s.Rules {
		r := &s.Rules[i]
		if r.Screen == screen && r.Temperature == temperature &&
			r.Humidity == humidity && r.AirQuality == airQuality {
			return r
		}
	}
	return nil
}

// Clone возвращает глубокую копию описания.
func (s ModelSpec) Clone() ModelSpec {
	out := s
	for _, v := range []*VariableSpec{&out.Screen, &out.Temperature, &out.Humidity, &out.AirQuality, &out.Stress} {
		v.Terms = append([]TermSpec(nil), v.Terms...)
	}
	out.Rules = append([]RuleSpec(nil), s.Rules...)
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// МОДЕЛЬ ПО УМОЛЧАНИЮ
// ══════════════════════════════════════════════════════════════════════════════

// DefaultSpec возвращает встроенную модель. Каждый вызов даёт новую копию.
func DefaultSpec() ModelSpec {
	return ModelSpec{
		Screen: VariableSpec{
			Name: VarScreen, Lo: 0, Hi: 24, Resolution: 0.1,
			Terms: []TermSpec{
				{"low", [4]float64{0, 0, 2, 4}},
				{"medium", [4]float64{3, 5, 7, 9}},
				{"high", [4]float64{8, 12, 24, 24}},
			},
		},
		Temperature: VariableSpec{
			Name: VarTemperature, Lo: 15, Hi: 35, Resolution: 0.1,
			Terms: []TermSpec{
				{"cold", [4]float64{15, 15, 18, 22}},
				{"normal", [4]float64{20, 24, 26, 28}},
				{"hot", [4]float64{26, 30, 35, 35}},
			},
		},
		Humidity: VariableSpec{
			Name: VarHumidity, Lo: 30, Hi: 90, Resolution: 0.1,
			Terms: []TermSpec{
				{"low", [4]float64{30, 30, 40, 50}},
				{"medium", [4]float64{45, 55, 65, 75}},
				{"high", [4]float64{70, 80, 90, 90}},
			},
		},
		AirQuality: VariableSpec{
			Name: VarAirQuality, Lo: 0, Hi: 5, Resolution: 0.1,
			Terms: []TermSpec{
				{"good", [4]float64{0, 0, 0.5, 1.5}},
				{"moderate", [4]float64{1, 2, 3, 3.5}},
				{"poor", [4]float64{3, 4, 5, 5}},
			},
		},
		Stress: VariableSpec{
			Name: VarStress, Lo: 0, Hi: 100, Resolution: 0.1,
			Terms: []TermSpec{
				{string(LevelVeryLow), [4]float64{0, 0, 10, 25}},
				{string(LevelLow), [4]float64{15, 25, 35, 45}},
				{string(LevelMedium), [4]float64{35, 45, 55, 65}},
				{string(LevelHigh), [4]float64{55, 65, 75, 85}},
				{string(LevelVeryHigh), [4]float64{75, 85, 100, 100}},
			},
		},
		Rules: defaultRules(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// СБОРКА
// ══════════════════════════════════════════════════════════════════════════════

func buildVariable(spec *VariableSpec) (*fuzzy.Variable, error) {
	u, err := fuzzy.NewUniverse(spec.Lo, spec.Hi, spec.Resolution)
	if err != nil {
		return nil, shared.WrapError("stress", "buildVariable", shared.ErrInvalidModel,
			"universe of "+spec.Name, err)
	}
	terms := make([]fuzzy.Term, len(spec.Terms))
	for i, t := range spec.Terms {
		mf, err := fuzzy.NewTrapezoid(t.Points[0], t.Points[1], t.Points[2], t.Points[3])
		if err != nil {
			return nil, shared.WrapError("stress", "buildVariable", shared.ErrInvalidModel,
				spec.Name+"."+t.Name, err)
		}
		terms[i] = fuzzy.Term{Name: t.Name, MF: mf}
	}
	return fuzzy.NewVariable(spec.Name, u, terms...)
}

func buildRules(rules []RuleSpec) []fuzzy.Rule {
	out := make([]fuzzy.Rule, len(rules))
	for i, r := range rules {
		out[i] = fuzzy.Rule{
			If: []fuzzy.Clause{
				{Variable: VarScreen, Term: r.Screen},
				{Variable: VarTemperature, Term: r.Temperature},
				{Variable: VarHumidity, Term: r.Humidity},
				{Variable: VarAirQuality, Term: r.AirQuality},
			},
			Then: string(r.Stress),
		}
	}
	return out
}
