package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/greenhouse-monitor/internal/greenhouse"
)

// Metrics exports tick outcomes and the latest sensor values.
// It implements greenhouse.Observer.
type Metrics struct {
	registry    *prometheus.Registry
	ticksTotal  *prometheus.CounterVec
	stageErrors *prometheus.CounterVec
	sensor      *prometheus.GaugeVec
	lastTick    prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_ticks_total",
			Help: "Simulation ticks by persistence outcome.",
		}, []string{"persisted"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_tick_stage_errors_total",
			Help: "Tick stage failures by stage.",
		}, []string{"stage"}),
		sensor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "greenhouse_sensor_value",
			Help: "Latest simulated value per channel.",
		}, []string{"channel"}),
		lastTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhouse_last_tick_timestamp_seconds",
			Help: "Unix time of the latest sample.",
		}),
	}

	m.registry.MustRegister(
		m.ticksTotal,
		m.stageErrors,
		m.sensor,
		m.lastTick,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) OnTick(_ context.Context, r greenhouse.TickResult) {
	persisted := "false"
	if r.Persisted {
		persisted = "true"
	}
	m.ticksTotal.WithLabelValues(persisted).Inc()

	for _, e := range r.Errors {
		m.stageErrors.WithLabelValues(string(e.Stage)).Inc()
	}

	m.sensor.WithLabelValues(greenhouse.ChannelSuhu).Set(r.Sample.Suhu)
	m.sensor.WithLabelValues(greenhouse.ChannelCahaya).Set(r.Sample.Cahaya)
	m.sensor.WithLabelValues(greenhouse.ChannelKelembapanUdara).Set(r.Sample.KelembapanUdara)
	m.sensor.WithLabelValues(greenhouse.ChannelKelembapanTanah).Set(r.Sample.KelembapanTanah)
	m.lastTick.Set(float64(r.Sample.Waktu.Unix()))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
