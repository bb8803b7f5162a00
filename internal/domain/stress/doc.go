// Package stress содержит конкретную модель оценки стресса StressSense.
//
// Модель переводит четыре чётких значения (экранное время, температура,
// влажность, качество воздуха) в оценку стресса 0..100, категорию и
// рекомендацию. Вычисления выполняет обобщённый движок из пакета fuzzy.
//
// # Состав модели
//
//   - Входы: screen [0,24] ч, temperature [15,35] °C, humidity [30,90] %,
//     air_quality [0,5] индекс, по три трапециевидных терма на каждый
//   - Выход: stress [0,100], пять термов от very_low до very_high
//   - База правил: 81 правило, ровно одно на каждую комбинацию термов
//   - Категории: пять полос с левой замкнутой границей
//
// # Потокобезопасность
//
// Model неизменяема после NewModel. Compute не хранит состояние между
// вызовами и может вызываться из любого числа горутин без блокировок.
//
// # Пример использования
//
//	model := stress.MustDefault()
//	res := model.Compute(stress.Inputs{
//	    ScreenTimeHours: 6,
//	    Temperature:     25,
//	    Humidity:        60,
//	    AirQuality:      1.5,
//	})
//	fmt.Println(res.StressValue, res.Category, res.Message)
package stress
