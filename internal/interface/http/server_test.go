package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stresssense/stress-sense/internal/application/command"
	"github.com/stresssense/stress-sense/internal/application/query"
	"github.com/stresssense/stress-sense/internal/domain/stress"
	"github.com/stresssense/stress-sense/internal/infrastructure/memo"
	"github.com/stresssense/stress-sense/internal/infrastructure/persistence/memory"
	"github.com/stresssense/stress-sense/internal/interface/http/handlers"
	"github.com/stresssense/stress-sense/pkg/logger"
)

type testEnv struct {
	server   *Server
	handler  http.Handler
	readings *memory.ReadingRepository
}

func newTestEnv(t *testing.T, mutate func(*Config, *Dependencies)) *testEnv {
	t.Helper()

	engine, err := memo.New(stress.MustDefault(), 16)
	require.NoError(t, err)

	readings := memory.NewReadingRepository()
	state := memory.NewStateStore()
	log := logger.Discard()

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	deps := Dependencies{
		RecordEnvironment: command.NewRecordEnvironmentHandler(state, log),
		AssessStress:      command.NewAssessStressHandler(engine, readings, state, log),
		GetDashboard:      query.NewGetDashboardHandler(state),
		GetDeviceHistory:  query.NewGetDeviceHistoryHandler(readings),
		Engine:            engine,
		Readings:          readings,
		Logger:            log,
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}

	s := NewServer(cfg, deps)
	t.Cleanup(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
	})
	return &testEnv{server: s, handler: s.Handler(), readings: readings}
}

func (e *testEnv) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLegacyFlow_SensorUsageDashboard(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/receive_sensor", `{"temperature":33,"humidity":85,"air_quality":4.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"updated"}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/receive_usage", `{
		"device_id": "phone-1",
		"total_screen_time_s": 64800,
		"usage_data": [{"app_name": "chat", "foreground_time_s": 3600}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "phone-1", body["device_id"])
	assert.Equal(t, string(stress.CategoryVeryHigh), body["level"])
	fa := body["fuzzy_analysis"].(map[string]any)
	assert.InDelta(t, 89.82, fa["stress_value"], 0.011)
	assert.Greater(t, fa["activated_rules"], 0.0)

	rec = env.do(http.MethodGet, "/api/dashboard_data", "")
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode(t, rec)
	iot := dash["iot"].(map[string]any)
	assert.Equal(t, 33.0, iot["temp"])
	assert.InDelta(t, 18.0, iot["screen_time"], 1e-9)
	analysis := dash["analysis"].(map[string]any)
	assert.Equal(t, "phone-1", analysis["device_id"])
	assert.InDelta(t, 89.82, analysis["stress_score"], 0.011)
}

func TestLegacyDashboard_BeforeAnyPush(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/dashboard_data", "")
	require.Equal(t, http.StatusOK, rec.Code)
	analysis := decode(t, rec)["analysis"].(map[string]any)
	assert.Equal(t, query.WaitingDeviceID, analysis["device_id"])
	assert.Equal(t, query.NoCategory, analysis["category"])
	assert.Equal(t, query.IdleMessage, analysis["message"])
}

func TestLegacyUsage_NoData(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, body := range []string{"", "{}", "  "} {
		rec := env.do(http.MethodPost, "/receive_usage", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"No data"}`, rec.Body.String())
	}
}

func TestLegacyUsage_NegativeForeground(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/receive_usage",
		`{"device_id":"p","total_screen_time_s":10,"usage_data":[{"app_name":"x","foreground_time_s":-1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "foreground")
}

func TestLegacySensor_DefaultsAndBadJSON(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/receive_sensor", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/receive_sensor", `{"temperature":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLegacyTest(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "Server is running!", body["message"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestLegacyRoutesDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *Dependencies) { c.LegacyRoutes = false })

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/test", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/dashboard", "").Code)
}

func TestV1_UsageAndHistory(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/api/v1/sensor", `{"temperature":24,"humidity":55,"air_quality":0.2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = env.do(http.MethodPost, "/api/v1/usage", `{"device_id":"phone-2","total_screen_time_s":5400}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "phone-2", data["device_id"])
	assert.NotEmpty(t, data["reading_id"])
	result := data["result"].(map[string]any)
	assert.InDelta(t, 9.26, result["stress_value"], 0.011)
	assert.Equal(t, string(stress.CategoryVeryLow), result["category"])

	rec = env.do(http.MethodGet, "/api/v1/devices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"phone-2"}, decode(t, rec)["data"])

	rec = env.do(http.MethodGet, "/api/v1/devices/phone-2/readings?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, 1.0, history["count"])

	rec = env.do(http.MethodPost, "/api/v1/usage", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no_data", decode(t, rec)["error"].(map[string]any)["code"])
}

func TestV1_ComputeStress(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/api/v1/stress/compute",
		`{"screen_time_hours":6,"temperature":25,"humidity":60,"air_quality":1.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.InDelta(t, 50.0, data["stress_value"], 0.011)
	details := data["fuzzy_details"].(map[string]any)
	assert.Equal(t, 81.0, details["total_rules"])

	rec = env.do(http.MethodPost, "/api/v1/stress/compute", `{"screen_time_hours":6,"temperature":25}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decode(t, rec)["error"].(map[string]any)
	assert.Equal(t, "validation_error", apiErr["code"])
	assert.Contains(t, apiErr["details"], "humidity")
	assert.Contains(t, apiErr["details"], "air_quality")

	assert.Empty(t, mustDevices(t, env))
}

func mustDevices(t *testing.T, env *testEnv) []string {
	t.Helper()
	ids, err := env.readings.Devices(context.Background())
	require.NoError(t, err)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func TestV1_Model(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/v1/stress/model", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, 81.0, data["rule_count"])
	assert.Len(t, data["inputs"], 4)
	assert.Len(t, data["bands"], 5)
	assert.Contains(t, data, "cache")
}

func TestDeviceKeyAuth_OnIngestOnly(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sensor-key"), bcrypt.MinCost)
	require.NoError(t, err)
	auth, err := handlers.NewDeviceKeyAuth([]string{string(hash)})
	require.NoError(t, err)

	env := newTestEnv(t, func(_ *Config, d *Dependencies) { d.DeviceAuth = auth })

	rec := env.do(http.MethodPost, "/receive_sensor", `{"temperature":22}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/receive_sensor", `{"temperature":22}`, handlers.DeviceKeyHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/receive_sensor", `{"temperature":22}`, handlers.DeviceKeyHeader, "sensor-key")
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/dashboard_data", "").Code)
}

func TestHealth(t *testing.T) {
	checker := handlers.NewCompositeHealthChecker("test")
	checker.AddCheck("database", func(context.Context) error { return errors.New("down") })
	env := newTestEnv(t, func(_ *Config, d *Dependencies) { d.HealthChecker = checker })

	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/live", "").Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *Dependencies) { c.RateLimitPerMinute = 1 })

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/live", "").Code)
	rec := env.do(http.MethodGet, "/live", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRequestIDAndCORS(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/live", "", "X-Request-ID", "abc", "Origin", "http://dash.local")
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "http://dash.local", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "abc", decode(t, rec)["request_id"])

	rec = env.do(http.MethodGet, "/live", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(http.MethodOptions, "/receive_sensor", "", "Origin", "http://dash.local")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", getClientIP(req))
}
