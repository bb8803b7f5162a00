package stress

// Порядок термов в таблице правил.
var (
	screenTerms      = [3]string{"low", "medium", "high"}
	temperatureTerms = [3]string{"cold", "normal", "hot"}
	humidityTerms    = [3]string{"low", "medium", "high"}
	airQualityTerms  = [3]string{"good", "moderate", "poor"}
)

const (
	vl = LevelVeryLow
	lo = LevelLow
	md = LevelMedium
	hi = LevelHigh
	vh = LevelVeryHigh
)

// consequents[screen][temperature][humidity][air_quality] - следствие правила.
// Индексы соответствуют порядку термов выше.
var consequents = [3][3][3][3]Level{
	// screen: low
	{
		{{lo, lo, md}, {vl, lo, lo}, {lo, lo, md}}, // cold
		{{vl, vl, lo}, {vl, vl, lo}, {vl, lo, lo}}, // normal
		{{lo, lo, md}, {lo, lo, md}, {lo, md, md}}, // hot
	},
	// screen: medium
	{
		{{lo, md, md}, {lo, lo, md}, {md, md, hi}},
		{{lo, lo, md}, {lo, md, md}, {md, md, hi}},
		{{md, md, hi}, {md, md, hi}, {md, hi, hi}},
	},
	// screen: high
	{
		{{md, hi, hi}, {md, hi, hi}, {hi, hi, vh}},
		{{md, hi, hi}, {hi, hi, vh}, {hi, hi, vh}},
		{{hi, hi, vh}, {hi, vh, vh}, {hi, vh, vh}},
	},
}

// defaultRules разворачивает таблицу следствий в 81 правило.
func defaultRules() []RuleSpec {
	rules := make([]RuleSpec, 0, 81)
	for s, screen := range screenTerms {
		for t, temp := range temperatureTerms {
			for h, hum := range humidityTerms {
				for a, aq := range airQualityTerms {
					rules = append(rules, RuleSpec{
						Screen:      screen,
						Temperature: temp,
						Humidity:    hum,
						AirQuality:  aq,
						Stress:      consequents[s][t][h][a],
					})
				}
			}
		}
	}
	return rules
}
