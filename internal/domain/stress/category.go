package stress

// Category - категория стресса для отображения пользователю.
type Category string

const (
	CategoryVeryLow  Category = "Very Low Stress"
	CategoryLow      Category = "Low Stress"
	CategoryMedium   Category = "Medium Stress"
	CategoryHigh     Category = "High Stress"
	CategoryVeryHigh Category = "Very High Stress"
)

// Band - полоса шкалы [From, Until). Until у последней полосы не учитывается.
type Band struct {
	Until    float64
	Category Category
	Message  string
}

// bands отсортированы по возрастанию. Граничное значение относится к
// верхней полосе: 20 -> Low Stress.
var bands = []Band{
	{Until: 20, Category: CategoryVeryLow, Message: "Kondisi sangat baik! Tetap jaga pola hidup sehat."},
	{Until: 40, Category: CategoryLow, Message: "Kondisi baik. Pertahankan keseimbangan aktivitas digital."},
	{Until: 60, Category: CategoryMedium, Message: "Perlu perhatian. Kurangi screen time dan perbaiki lingkungan."},
	{Until: 80, Category: CategoryHigh, Message: "Kondisi tidak ideal. Segera istirahat dan perbaiki lingkungan sekitar."},
	{Until: 100, Category: CategoryVeryHigh, Message: "PERINGATAN! Segera kurangi penggunaan HP dan perbaiki kondisi ruangan!"},
}

// Categorize возвращает полосу для оценки. Значения ниже 0 попадают в
// первую полосу, выше 100 - в последнюю.
func Categorize(score float64) Band {
	for _, b := range bands[:len(bands)-1] {
		if score < b.Until {
			return b
		}
	}
	return bands[len(bands)-1]
}

// Bands возвращает копию таблицы полос.
func Bands() []Band {
	return append([]Band(nil), bands...)
}

// Message возвращает рекомендацию для категории.
func (c Category) Message() string {
	for _, b := range bands {
		if b.Category == c {
			return b.Message
		}
	}
	return ""
}

// IsValid проверяет, что категория из фиксированного списка.
func (c Category) IsValid() bool {
	return c.Message() != ""
}
