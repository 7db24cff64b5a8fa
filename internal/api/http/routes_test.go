package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/greenhouse-monitor/internal/greenhouse"
	"github.com/i474232898/greenhouse-monitor/internal/metrics"
	"github.com/i474232898/greenhouse-monitor/internal/scheduler"
	"github.com/i474232898/greenhouse-monitor/internal/store"
)

var clock = time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

func newTestApp(t *testing.T) (*fiber.App, *greenhouse.Simulator) {
	t.Helper()
	mem := store.NewMemoryStore(0, 0)
	m := metrics.NewMetrics()
	sim := greenhouse.NewSimulator(mem, mem,
		greenhouse.WithRandSource(greenhouse.NewRandSource(1)),
		greenhouse.WithLocation(time.UTC),
		greenhouse.WithClock(func() time.Time { return clock }),
		greenhouse.WithObservers(m),
	)
	sched := scheduler.New(sim, scheduler.Config{NormalInterval: time.Hour, FastInterval: time.Minute})
	t.Cleanup(sched.Shutdown)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, sched, sim, m.Handler())
	return app, sim
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestSimulationStatus(t *testing.T) {
	app, _ := newTestApp(t)

	code, body := do(t, app, http.MethodGet, "/api/v1/simulation", "")
	require.Equal(t, http.StatusOK, code)

	cfg := body["simulationConfig"].(map[string]any)
	assert.Equal(t, "STOPPED", cfg["state"])
	assert.Equal(t, false, cfg["isRunning"])
	weather := body["weatherState"].(map[string]any)
	assert.Equal(t, "normal", weather["season"])
	for _, key := range []string{"deviceMirror", "timeInfo", "baseline", "expectedValues"} {
		assert.Contains(t, body, key)
	}
}

func TestSimulationControl(t *testing.T) {
	app, _ := newTestApp(t)

	code, body := do(t, app, http.MethodPost, "/api/v1/simulation/control", `{"action":"start"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "RUNNING_NORMAL", body["simulationConfig"].(map[string]any)["state"])

	code, body = do(t, app, http.MethodPost, "/api/v1/simulation/control", `{"action":"set_fast_mode","fastMode":true}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "RUNNING_FAST", body["simulationConfig"].(map[string]any)["state"])

	code, body = do(t, app, http.MethodPost, "/api/v1/simulation/control", `{"action":"set_weather","weather":{"season":"dry","cloudCover":0.9}}`)
	require.Equal(t, http.StatusOK, code)
	weather := body["weatherState"].(map[string]any)
	assert.Equal(t, "dry", weather["season"])
	assert.Equal(t, 0.9, weather["cloudCover"])

	code, _ = do(t, app, http.MethodPost, "/api/v1/simulation/control", `{"action":"stop"}`)
	assert.Equal(t, http.StatusOK, code)
}

func TestSimulationControlRejectsInvalidCommands(t *testing.T) {
	app, _ := newTestApp(t)

	for _, body := range []string{
		`{"action":"explode"}`,
		`{}`,
		`{"action":"set_fast_mode"}`,
		`{"action":"set_fast_mode","fastMode":"yes"}`,
		`{"action":"set_weather"}`,
		`{"action":"set_weather","weather":{}}`,
		`{"action":"set_weather","weather":{"season":"monsoon"}}`,
		`not json`,
	} {
		code, resp := do(t, app, http.MethodPost, "/api/v1/simulation/control", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, true, resp["error"], body)
	}

	_, status := do(t, app, http.MethodGet, "/api/v1/simulation", "")
	assert.Equal(t, "normal", status["weatherState"].(map[string]any)["season"])
}

func TestSensorEndpoints(t *testing.T) {
	app, sim := newTestApp(t)

	code, _ := do(t, app, http.MethodGet, "/api/v1/sensors/latest", "")
	assert.Equal(t, http.StatusNotFound, code)

	sim.Tick(context.Background(), false)
	sim.Tick(context.Background(), false)

	code, body := do(t, app, http.MethodGet, "/api/v1/sensors/latest", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "suhu")
	assert.Contains(t, body, "kelembapan_tanah")

	from := clock.Add(-time.Minute).Format(time.RFC3339)
	to := clock.Add(time.Minute).Format(time.RFC3339)
	code, body = do(t, app, http.MethodGet, "/api/v1/sensors?from="+from+"&to="+to, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["count"])

	code, body = do(t, app, http.MethodGet, "/api/v1/sensors?from=0&to=60", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.0, body["count"])
	assert.Equal(t, []any{}, body["samples"])

	code, _ = do(t, app, http.MethodGet, "/api/v1/sensors?from="+to+"&to="+from, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, http.MethodGet, "/api/v1/sensors?from=yesterday&to="+to, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

// TestDailyStats verifies that empty days are reported as 404 rather than zeros.
func TestDailyStats(t *testing.T) {
	app, sim := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors/stats/daily?date=2025-06-01", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/sensors/stats/daily?date=June", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	res := sim.Tick(context.Background(), false)
	code, body := do(t, app, http.MethodGet, "/api/v1/sensors/stats/daily?date=2025-06-01", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2025-06-01", body["date"])
	assert.Equal(t, 1.0, body["totalRecords"])
	suhu := body["stats"].(map[string]any)["suhu"].(map[string]any)
	assert.Equal(t, res.Sample.Suhu, suhu["avg"])
}

func TestDeviceEndpoints(t *testing.T) {
	app, sim := newTestApp(t)

	code, _ := do(t, app, http.MethodGet, "/api/v1/devices/latest", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, app, http.MethodPost, "/api/v1/devices", `{"ventilasi":"setengah"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := do(t, app, http.MethodPost, "/api/v1/devices", `{"lampu":true,"ventilasi":"buka"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.NotEmpty(t, body["id"])

	code, body = do(t, app, http.MethodGet, "/api/v1/devices/latest", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["lampu"])
	assert.Equal(t, "buka", body["ventilasi"])

	sim.Tick(context.Background(), false)
	_, status := do(t, app, http.MethodGet, "/api/v1/simulation", "")
	mirror := status["deviceMirror"].(map[string]any)
	assert.Equal(t, true, mirror["lampu"])
	assert.Equal(t, "buka", mirror["ventilasi"])
}

func TestMetricsEndpoint(t *testing.T) {
	app, sim := newTestApp(t)
	sim.Tick(context.Background(), false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `greenhouse_ticks_total{persisted="true"} 1`)
}
