package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stresssense/stress-sense/internal/domain/reading"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DEVICE HISTORY QUERY
// История оценок одного устройства, новые первыми.
// ══════════════════════════════════════════════════════════════════════════════

// GetDeviceHistoryQuery содержит параметры запроса истории.
type GetDeviceHistoryQuery struct {
	// DeviceID - устройство.
	DeviceID string

	// Limit - максимальное количество (по умолчанию 50, не более 500).
	Limit int
}

// Validate проверяет корректность параметров.
func (q *GetDeviceHistoryQuery) Validate() error {
	if q.DeviceID == "" {
		return errors.New("device_id is required")
	}
	q.Limit = reading.NormalizeLimit(q.Limit)
	return nil
}

// AppUsageDTO - DTO использования приложения.
type AppUsageDTO struct {
	AppName           string `json:"app_name"`
	ForegroundSeconds int64  `json:"foreground_time_s"`
}

// ReadingDTO - DTO одной оценки.
type ReadingDTO struct {
	ID              string        `json:"id"`
	RecordedAt      time.Time     `json:"recorded_at"`
	ScreenTimeHours float64       `json:"screen_hours"`
	Temperature     float64       `json:"temp"`
	Humidity        float64       `json:"humid"`
	AirQuality      float64       `json:"aq"`
	StressValue     float64       `json:"stress_val"`
	Category        string        `json:"category"`
	Message         string        `json:"message"`
	Apps            []AppUsageDTO `json:"apps,omitempty"`
}

// DeviceHistoryDTO - ответ запроса истории.
type DeviceHistoryDTO struct {
	DeviceID string       `json:"device_id"`
	Readings []ReadingDTO `json:"readings"`
	Count    int          `json:"count"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetDeviceHistoryHandler обрабатывает запрос истории.
type GetDeviceHistoryHandler struct {
	readings reading.Repository
}

// NewGetDeviceHistoryHandler создаёт обработчик.
func NewGetDeviceHistoryHandler(readings reading.Repository) *GetDeviceHistoryHandler {
	return &GetDeviceHistoryHandler{readings: readings}
}

// Handle выполняет запрос.
func (h *GetDeviceHistoryHandler) Handle(ctx context.Context, q GetDeviceHistoryQuery) (*DeviceHistoryDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_device_history: invalid query: %w", err)
	}

	deviceID := reading.DeviceID(q.DeviceID)
	list, err := h.readings.ListByDevice(ctx, deviceID, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("get_device_history: %w", err)
	}

	dto := &DeviceHistoryDTO{
		DeviceID: q.DeviceID,
		Readings: make([]ReadingDTO, 0, len(list)),
	}
	for _, r := range list {
		dto.Readings = append(dto.Readings, toReadingDTO(r))
	}
	dto.Count = len(dto.Readings)
	return dto, nil
}

func toReadingDTO(r *reading.Reading) ReadingDTO {
	out := ReadingDTO{
		ID:              r.ID,
		RecordedAt:      r.RecordedAt,
		ScreenTimeHours: r.ScreenTimeHours,
		Temperature:     r.Environment.Temperature,
		Humidity:        r.Environment.Humidity,
		AirQuality:      r.Environment.AirQuality,
		StressValue:     r.StressValue,
		Category:        string(r.Category),
		Message:         r.Message,
	}
	for _, a := range r.Apps {
		out.Apps = append(out.Apps, AppUsageDTO{AppName: a.AppName, ForegroundSeconds: a.ForegroundSeconds})
	}
	return out
}
