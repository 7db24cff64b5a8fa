package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/greenhouse-monitor/internal/greenhouse"
)

func TestOnTick(t *testing.T) {
	m := NewMetrics()

	m.OnTick(context.Background(), greenhouse.TickResult{
		Persisted: true,
		Sample:    greenhouse.SensorSample{Suhu: 30.5, Cahaya: 900, KelembapanUdara: 60, KelembapanTanah: 50, Waktu: time.Unix(1700000000, 0)},
	})
	m.OnTick(context.Background(), greenhouse.TickResult{
		Errors: []*greenhouse.StageError{{Stage: greenhouse.StagePersist, Err: errors.New("disk full")}},
		Sample: greenhouse.SensorSample{Suhu: 31},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticksTotal.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticksTotal.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageErrors.WithLabelValues(string(greenhouse.StagePersist))))
	assert.Equal(t, 31.0, testutil.ToFloat64(m.sensor.WithLabelValues(greenhouse.ChannelSuhu)))
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.OnTick(context.Background(), greenhouse.TickResult{Sample: greenhouse.SensorSample{Cahaya: 450}})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `greenhouse_sensor_value{channel="cahaya"} 450`)
}

var _ greenhouse.Observer = (*Metrics)(nil)
