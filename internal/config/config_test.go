package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"PORT", "WS_ADDR", "STREAM_MAX_CLIENTS",
	"SIM_NORMAL_INTERVAL", "SIM_FAST_INTERVAL", "SIM_AUTOSTART_DELAY", "SIM_TIMEZONE", "SIM_SEED", "SIM_CONFIG_FILE",
	"STORE_DRIVER", "SQLITE_PATH", "STORE_MAX_HISTORY", "STORE_MAX_AGE",
	"MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_SENSOR_TOPIC", "MQTT_DEVICE_TOPIC", "MQTT_ENCODING",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "DAILY_ROLLUP_AT",
}

// clearEnv blanks every variable Load reads so a developer's environment
// cannot leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8081", cfg.WSAddr)
	assert.Equal(t, 64, cfg.StreamMaxClients)
	assert.Equal(t, 30*time.Second, cfg.Simulation.NormalInterval)
	assert.Equal(t, 5*time.Second, cfg.Simulation.FastInterval)
	assert.Equal(t, 2*time.Second, *cfg.Simulation.AutoStartDelay)
	assert.Equal(t, "Asia/Jakarta", cfg.Simulation.Location.String())
	assert.Equal(t, "00:05", cfg.Simulation.RollupAt)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 20160, cfg.StoreMaxHistory)
	assert.Equal(t, 168*time.Hour, cfg.StoreMaxAge)
	assert.Empty(t, cfg.MQTT.Broker)
	assert.Equal(t, "json", cfg.MQTT.Encoding)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIM_FAST_INTERVAL", "1s")
	t.Setenv("SIM_AUTOSTART_DELAY", "0s")
	t.Setenv("SIM_TIMEZONE", "UTC")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("MQTT_ENCODING", "cbor")
	t.Setenv("STREAM_MAX_CLIENTS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Simulation.FastInterval)
	assert.Zero(t, *cfg.Simulation.AutoStartDelay)
	assert.Equal(t, time.UTC, cfg.Simulation.Location)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "cbor", cfg.MQTT.Encoding)
	assert.Equal(t, 3, cfg.StreamMaxClients)
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "greenhouse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
simulation:
  normal_interval: 1m
  autostart_delay: 0s
  timezone: UTC
  seed: 42
`), 0o600))
	t.Setenv("SIM_CONFIG_FILE", path)
	t.Setenv("SIM_NORMAL_INTERVAL", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Simulation.NormalInterval, "env wins over file")
	assert.Equal(t, 5*time.Second, cfg.Simulation.FastInterval)
	assert.Zero(t, *cfg.Simulation.AutoStartDelay)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, time.UTC, cfg.Simulation.Location)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	for key, value := range map[string]string{
		"SIM_NORMAL_INTERVAL": "soon",
		"SIM_FAST_INTERVAL":   "-1s",
		"SIM_TIMEZONE":        "Mars/Olympus",
		"STORE_DRIVER":        "postgres",
		"STORE_MAX_AGE":       "forever",
		"MQTT_ENCODING":       "xml",
		"DAILY_ROLLUP_AT":     "midnight",
		"STREAM_MAX_CLIENTS":  "0",
		"SIM_CONFIG_FILE":     "/does/not/exist.yaml",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
