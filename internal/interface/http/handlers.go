package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/stresssense/stress-sense/internal/application/command"
	"github.com/stresssense/stress-sense/internal/application/query"
	"github.com/stresssense/stress-sense/internal/domain/reading"
	"github.com/stresssense/stress-sense/internal/domain/shared"
	"github.com/stresssense/stress-sense/internal/domain/stress"
	"github.com/stresssense/stress-sense/internal/infrastructure/memo"
	"github.com/stresssense/stress-sense/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST AND RESPONSE SHAPES
// ══════════════════════════════════════════════════════════════════════════════

var (
	errEmptyBody = errors.New("empty request body")
	errNoData    = errors.New("No data")
)

// sensorRequest is the IoT sensor push. Missing fields take sensor defaults.
type sensorRequest struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	AirQuality  *float64 `json:"air_quality"`
}

func (req sensorRequest) command() command.RecordEnvironmentCommand {
	return command.RecordEnvironmentCommand{
		Temperature: req.Temperature,
		Humidity:    req.Humidity,
		AirQuality:  req.AirQuality,
	}
}

type usageItem struct {
	AppName         string  `json:"app_name"`
	ForegroundTimeS float64 `json:"foreground_time_s"`
}

// usageRequest is the phone usage push.
type usageRequest struct {
	DeviceID         string      `json:"device_id"`
	TotalScreenTimeS float64     `json:"total_screen_time_s"`
	UsageData        []usageItem `json:"usage_data"`
}

func (req usageRequest) command() command.AssessStressCommand {
	usage := make([]command.AppUsageInput, len(req.UsageData))
	for i, u := range req.UsageData {
		usage[i] = command.AppUsageInput{
			AppName:           u.AppName,
			ForegroundSeconds: int64(math.Round(u.ForegroundTimeS)),
		}
	}
	return command.AssessStressCommand{
		DeviceID:               req.DeviceID,
		TotalScreenTimeSeconds: req.TotalScreenTimeS,
		Usage:                  usage,
	}
}

// computeRequest requires all four inputs.
type computeRequest struct {
	ScreenTimeHours *float64 `json:"screen_time_hours"`
	Temperature     *float64 `json:"temperature"`
	Humidity        *float64 `json:"humidity"`
	AirQuality      *float64 `json:"air_quality"`
}

// inputs returns the missing field names when the request is incomplete.
func (req computeRequest) inputs() (stress.Inputs, []string) {
	var missing []string
	get := func(name string, v *float64) float64 {
		if v == nil {
			missing = append(missing, name)
			return 0
		}
		return *v
	}
	in := stress.Inputs{
		ScreenTimeHours: get("screen_time_hours", req.ScreenTimeHours),
		Temperature:     get("temperature", req.Temperature),
		Humidity:        get("humidity", req.Humidity),
		AirQuality:      get("air_quality", req.AirQuality),
	}
	return in, missing
}

type environmentDTO struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	AirQuality  float64   `json:"air_quality"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toEnvironmentDTO(env reading.Environment) environmentDTO {
	return environmentDTO{
		Temperature: env.Temperature,
		Humidity:    env.Humidity,
		AirQuality:  env.AirQuality,
		UpdatedAt:   env.UpdatedAt,
	}
}

type fuzzyAnalysisDTO struct {
	StressValue    float64         `json:"stress_value"`
	Category       stress.Category `json:"category"`
	Message        string          `json:"message"`
	ActivatedRules int             `json:"activated_rules"`
}

// usageResponse is the legacy /receive_usage reply.
type usageResponse struct {
	Status        string           `json:"status"`
	DeviceID      string           `json:"device_id"`
	Level         stress.Category  `json:"level"`
	Message       string           `json:"message"`
	FuzzyAnalysis fuzzyAnalysisDTO `json:"fuzzy_analysis"`
}

// assessmentDTO is the /api/v1/usage reply.
type assessmentDTO struct {
	DeviceID    string         `json:"device_id"`
	ReadingID   string         `json:"reading_id"`
	RecordedAt  time.Time      `json:"recorded_at"`
	Environment environmentDTO `json:"environment"`
	Result      stress.Result  `json:"result"`
}

type termDTO struct {
	Name   string     `json:"name"`
	Points [4]float64 `json:"points"`
}

type variableDTO struct {
	Name       string    `json:"name"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	Resolution float64   `json:"resolution"`
	Terms      []termDTO `json:"terms"`
}

type bandDTO struct {
	Until    float64         `json:"until"`
	Category stress.Category `json:"category"`
	Message  string          `json:"message"`
}

type modelDTO struct {
	Inputs    []variableDTO `json:"inputs"`
	Output    variableDTO   `json:"output"`
	RuleCount int           `json:"rule_count"`
	Bands     []bandDTO     `json:"bands"`
	Cache     memo.Stats    `json:"cache"`
}

func toVariableDTO(v *stress.VariableSpec) variableDTO {
	terms := make([]termDTO, len(v.Terms))
	for i, t := range v.Terms {
		terms[i] = termDTO{Name: t.Name, Points: t.Points}
	}
	return variableDTO{Name: v.Name, Min: v.Lo, Max: v.Hi, Resolution: v.Resolution, Terms: terms}
}

// decodeJSON decodes a non-empty JSON body.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errEmptyBody
	}
	return json.Unmarshal(body, v)
}

// decodeUsage rejects an empty body or an empty object with errNoData.
func decodeUsage(r *http.Request) (usageRequest, error) {
	var req usageRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return req, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, errNoData
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return req, err
	}
	if len(probe) == 0 {
		return req, errNoData
	}
	err = json.Unmarshal(body, &req)
	return req, err
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    "StressSense API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":    "/health",
			"dashboard": "/api/v1/dashboard",
			"devices":   "/api/v1/devices",
			"compute":   "/api/v1/stress/compute",
			"model":     "/api/v1/stress/model",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"status":  "healthy",
			"uptime":  s.Uptime().String(),
			"version": s.config.Version,
		})
		return
	}
	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// handleTest is the connectivity probe used by the phone app.
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	writeRaw(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"message":   "Server is running!",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEGACY DEVICE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleLegacySensor handles POST /receive_sensor.
func (s *Server) handleLegacySensor(w http.ResponseWriter, r *http.Request) {
	var req sensorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeLegacyError(w, http.StatusBadRequest, err.Error())
		return
	}
	cmd := req.command()
	if err := cmd.Validate(); err != nil {
		writeLegacyError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.deps.RecordEnvironment.Handle(r.Context(), cmd); err != nil {
		logger.FromContext(r.Context()).Error("record environment failed", logger.Err(err))
		writeLegacyError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeRaw(w, http.StatusOK, map[string]string{"status": "updated"})
}

// handleLegacyUsage handles POST /receive_usage.
func (s *Server) handleLegacyUsage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeUsage(r)
	if err != nil {
		writeLegacyError(w, http.StatusBadRequest, err.Error())
		return
	}
	cmd := req.command()
	if err := cmd.Validate(); err != nil {
		writeLegacyError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.deps.AssessStress.Handle(r.Context(), cmd)
	if err != nil {
		logger.FromContext(r.Context()).Error("assess stress failed", logger.Err(err))
		writeLegacyError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeRaw(w, http.StatusOK, usageResponse{
		Status:   "success",
		DeviceID: res.DeviceID.String(),
		Level:    res.Result.Category,
		Message:  res.Result.Message,
		FuzzyAnalysis: fuzzyAnalysisDTO{
			StressValue:    res.Result.StressValue,
			Category:       res.Result.Category,
			Message:        res.Result.Message,
			ActivatedRules: res.Result.Diagnostics.ActivatedRules,
		},
	})
}

// handleLegacyDashboard handles GET /api/dashboard_data.
func (s *Server) handleLegacyDashboard(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.GetDashboard.Handle(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("dashboard failed", logger.Err(err))
		writeLegacyError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeRaw(w, http.StatusOK, dto)
}

// ══════════════════════════════════════════════════════════════════════════════
// API V1 HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRecordSensor handles POST /api/v1/sensor.
func (s *Server) handleRecordSensor(w http.ResponseWriter, r *http.Request) {
	var req sensorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_json", "Request body must be a JSON object", err.Error())
		return
	}
	cmd := req.command()
	if err := cmd.Validate(); err != nil {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "validation_error", "Invalid sensor reading", err.Error())
		return
	}
	env, err := s.deps.RecordEnvironment.Handle(r.Context(), cmd)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toEnvironmentDTO(env))
}

// handleAssessUsage handles POST /api/v1/usage.
func (s *Server) handleAssessUsage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeUsage(r)
	if err != nil {
		if errors.Is(err, errNoData) {
			writeJSONError(w, r, http.StatusBadRequest, "no_data", "No data")
			return
		}
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_json", "Request body must be a JSON object", err.Error())
		return
	}
	cmd := req.command()
	if err := cmd.Validate(); err != nil {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "validation_error", "Invalid usage push", err.Error())
		return
	}
	res, err := s.deps.AssessStress.Handle(r.Context(), cmd)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, assessmentDTO{
		DeviceID:    res.DeviceID.String(),
		ReadingID:   res.Reading.ID,
		RecordedAt:  res.Reading.RecordedAt,
		Environment: toEnvironmentDTO(res.Environment),
		Result:      res.Result,
	})
}

// handleGetDashboard handles GET /api/v1/dashboard.
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.GetDashboard.Handle(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto)
}

// handleListDevices handles GET /api/v1/devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ids, err := s.deps.Readings.Devices(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	writeJSONWithMeta(w, r, http.StatusOK, out, &ResponseMeta{TotalCount: len(out)})
}

// handleGetDeviceReadings handles GET /api/v1/devices/{id}/readings.
func (s *Server) handleGetDeviceReadings(w http.ResponseWriter, r *http.Request) {
	q := query.GetDeviceHistoryQuery{
		DeviceID: strings.TrimSpace(r.PathValue("id")),
		Limit:    getQueryParamInt(r, "limit", reading.DefaultHistoryLimit),
	}
	if err := q.Validate(); err != nil {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "validation_error", "Invalid history query", err.Error())
		return
	}
	dto, err := s.deps.GetDeviceHistory.Handle(r.Context(), q)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, dto, &ResponseMeta{TotalCount: dto.Count})
}

// handleComputeStress handles POST /api/v1/stress/compute. Nothing is stored.
func (s *Server) handleComputeStress(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.bodyLimit())

	var req computeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_json", "Request body must be a JSON object", err.Error())
		return
	}
	in, missing := req.inputs()
	if len(missing) > 0 {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "validation_error",
			"All four inputs are required", "missing: "+strings.Join(missing, ", "))
		return
	}
	for _, v := range []float64{in.ScreenTimeHours, in.Temperature, in.Humidity, in.AirQuality} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			writeJSONError(w, r, http.StatusBadRequest, "validation_error", "Inputs must be finite numbers")
			return
		}
	}
	writeJSON(w, r, http.StatusOK, s.deps.Engine.Compute(in))
}

// handleGetModel handles GET /api/v1/stress/model.
func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	model := s.deps.Engine.Model()
	spec := model.Spec()

	inputs := spec.Inputs()
	dto := modelDTO{
		Inputs:    make([]variableDTO, len(inputs)),
		Output:    toVariableDTO(&spec.Stress),
		RuleCount: model.RuleCount(),
		Cache:     s.deps.Engine.Stats(),
	}
	for i, v := range inputs {
		dto.Inputs[i] = toVariableDTO(v)
	}
	for _, b := range stress.Bands() {
		dto.Bands = append(dto.Bands, bandDTO{Until: b.Until, Category: b.Category, Message: b.Message})
	}
	writeJSON(w, r, http.StatusOK, dto)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// handleError maps application errors to envelope responses.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "validation_error", "Invalid request", err.Error())
	case shared.IsNotFound(err), errors.Is(err, reading.ErrReadingNotFound):
		writeJSONError(w, r, http.StatusNotFound, "not_found", "Resource not found")
	default:
		logger.FromContext(r.Context()).Error("request failed", logger.Err(err))
		writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
