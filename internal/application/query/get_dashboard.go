// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stresssense/stress-sense/internal/domain/reading"
	"github.com/stresssense/stress-sense/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// Текущее состояние для дашборда: последний снимок комнаты с IoT-датчика
// и последний анализ стресса по любому устройству.
// ══════════════════════════════════════════════════════════════════════════════

// Значения по умолчанию, пока ни один телефон не прислал данные.
const (
	WaitingDeviceID = "Menunggu Data..."
	NoCategory      = "-"
	IdleMessage     = "Sistem Siap"
)

// IoTDTO - DTO снимка комнаты.
type IoTDTO struct {
	// Temperature - температура, °C.
	Temperature float64 `json:"temp"`

	// Humidity - влажность, %.
	Humidity float64 `json:"humid"`

	// AirQuality - индекс качества воздуха.
	AirQuality float64 `json:"aq"`

	// ScreenTime - экранное время последней отправки, ч.
	ScreenTime float64 `json:"screen_time"`

	// LastUpdate - время последнего снимка в формате ЧЧ:ММ:СС.
	LastUpdate string `json:"last_update"`

	// LastUpdateAt - время последнего снимка.
	LastUpdateAt time.Time `json:"last_update_at"`
}

// AnalysisDTO - DTO последнего анализа.
type AnalysisDTO struct {
	// DeviceID - устройство, от которого пришёл анализ.
	DeviceID string `json:"device_id"`

	// StressScore - оценка стресса 0..100.
	StressScore float64 `json:"stress_score"`

	// Category - категория стресса или "-".
	Category string `json:"category"`

	// Message - рекомендация.
	Message string `json:"message"`
}

// DashboardDTO - ответ запроса дашборда.
type DashboardDTO struct {
	IoT      IoTDTO      `json:"iot"`
	Analysis AnalysisDTO `json:"analysis"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardHandler обрабатывает запрос дашборда.
type GetDashboardHandler struct {
	state     reading.StateStore
	startedAt time.Time
	zone      *time.Location
}

// NewGetDashboardHandler создаёт обработчик. Время создания используется как
// время снимка по умолчанию до первой отправки датчика.
func NewGetDashboardHandler(state reading.StateStore) *GetDashboardHandler {
	return &GetDashboardHandler{
		state:     state,
		startedAt: time.Now(),
	}
}

// InZone задаёт часовой пояс для last_update. По умолчанию время
// выводится в поясе, в котором его вернуло хранилище.
func (h *GetDashboardHandler) InZone(zone *time.Location) *GetDashboardHandler {
	h.zone = zone
	return h
}

// Handle выполняет запрос.
func (h *GetDashboardHandler) Handle(ctx context.Context) (*DashboardDTO, error) {
	env, ok, err := h.state.Environment(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_dashboard: failed to load environment: %w", err)
	}
	if !ok {
		env = reading.DefaultEnvironment(h.startedAt)
	}

	screen, err := h.state.LastScreenTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_dashboard: failed to load screen time: %w", err)
	}

	dto := &DashboardDTO{
		IoT: IoTDTO{
			Temperature:  env.Temperature,
			Humidity:     env.Humidity,
			AirQuality:   env.AirQuality,
			ScreenTime:   screen,
			LastUpdate:   timeutil.Clock(env.UpdatedAt, h.zone),
			LastUpdateAt: env.UpdatedAt,
		},
		Analysis: AnalysisDTO{
			DeviceID: WaitingDeviceID,
			Category: NoCategory,
			Message:  IdleMessage,
		},
	}

	analysis, err := h.state.LatestAnalysis(ctx)
	switch {
	case errors.Is(err, reading.ErrNoAnalysis):
		// ещё никто не присылал данные
	case err != nil:
		return nil, fmt.Errorf("get_dashboard: failed to load analysis: %w", err)
	default:
		dto.Analysis = AnalysisDTO{
			DeviceID:    analysis.DeviceID.String(),
			StressScore: analysis.StressValue,
			Category:    string(analysis.Category),
			Message:     analysis.Message,
		}
	}

	return dto, nil
}
