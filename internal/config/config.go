package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port   string
	WSAddr string // empty disables the websocket feed

	StreamMaxClients int // websocket dashboards accepted at once

	Simulation SimulationConfig

	// Storage backend: "memory" or "sqlite".
	StoreDriver string
	SQLitePath  string

	// In-memory store retention.
	StoreMaxHistory int           // max number of samples kept (0 = unlimited)
	StoreMaxAge     time.Duration // max age of samples (0 = unlimited)

	MQTT  MQTTConfig
	Kafka KafkaConfig
}

// SimulationConfig can also be supplied as the `simulation` section of a YAML
// file named by SIM_CONFIG_FILE. Environment variables take precedence.
type SimulationConfig struct {
	NormalInterval time.Duration  `yaml:"normal_interval"`
	FastInterval   time.Duration  `yaml:"fast_interval"`
	AutoStartDelay *time.Duration `yaml:"autostart_delay"` // 0 disables auto-start
	Timezone       string         `yaml:"timezone"`
	Seed           int64          `yaml:"seed"`
	RollupAt       string         `yaml:"rollup_at"`

	Location *time.Location `yaml:"-"`
}

type MQTTConfig struct {
	Broker      string // empty disables MQTT
	ClientID    string
	SensorTopic string
	DeviceTopic string
	Encoding    string
}

type KafkaConfig struct {
	Brokers []string // empty disables Kafka
	Topic   string
}

type fileConfig struct {
	Simulation SimulationConfig `yaml:"simulation"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	autoStart := 2 * time.Second
	cfg := &AppConfig{
		Simulation: SimulationConfig{
			NormalInterval: 30 * time.Second,
			FastInterval:   5 * time.Second,
			AutoStartDelay: &autoStart,
			Timezone:       "Asia/Jakarta",
			RollupAt:       "00:05",
		},
	}

	if path := os.Getenv("SIM_CONFIG_FILE"); path != "" {
		if err := overlayFile(&cfg.Simulation, path); err != nil {
			return nil, err
		}
	}

	var err error
	sim := &cfg.Simulation
	if sim.NormalInterval, err = getenvDuration("SIM_NORMAL_INTERVAL", sim.NormalInterval); err != nil {
		return nil, err
	}
	if sim.FastInterval, err = getenvDuration("SIM_FAST_INTERVAL", sim.FastInterval); err != nil {
		return nil, err
	}
	delay, err := getenvDuration("SIM_AUTOSTART_DELAY", *sim.AutoStartDelay)
	if err != nil {
		return nil, err
	}
	sim.AutoStartDelay = &delay
	sim.Timezone = getenvDefault("SIM_TIMEZONE", sim.Timezone)
	sim.Seed = int64(getenvInt("SIM_SEED", int(sim.Seed)))
	sim.RollupAt = getenvDefault("DAILY_ROLLUP_AT", sim.RollupAt)

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.WSAddr = getenvDefault("WS_ADDR", ":8081")
	cfg.StreamMaxClients = getenvInt("STREAM_MAX_CLIENTS", 64)

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", "memory"))
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "greenhouse.db")
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 20160) // one week at 30-second ticks
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", 7*24*time.Hour); err != nil {
		return nil, err
	}

	cfg.MQTT = MQTTConfig{
		Broker:      os.Getenv("MQTT_BROKER"),
		ClientID:    getenvDefault("MQTT_CLIENT_ID", "greenhouse-monitor"),
		SensorTopic: getenvDefault("MQTT_SENSOR_TOPIC", "greenhouse/sensors"),
		DeviceTopic: getenvDefault("MQTT_DEVICE_TOPIC", "greenhouse/devices"),
		Encoding:    strings.ToLower(getenvDefault("MQTT_ENCODING", "json")),
	}
	cfg.Kafka = KafkaConfig{
		Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
		Topic:   getenvDefault("KAFKA_TOPIC", "greenhouse.sensors"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlayFile(sim *SimulationConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	f := fc.Simulation
	if f.NormalInterval != 0 {
		sim.NormalInterval = f.NormalInterval
	}
	if f.FastInterval != 0 {
		sim.FastInterval = f.FastInterval
	}
	if f.AutoStartDelay != nil {
		sim.AutoStartDelay = f.AutoStartDelay
	}
	if f.Timezone != "" {
		sim.Timezone = f.Timezone
	}
	if f.Seed != 0 {
		sim.Seed = f.Seed
	}
	if f.RollupAt != "" {
		sim.RollupAt = f.RollupAt
	}
	return nil
}

func (c *AppConfig) validate() error {
	sim := &c.Simulation
	if sim.NormalInterval <= 0 || sim.FastInterval <= 0 {
		return fmt.Errorf("tick intervals must be positive (normal %s, fast %s)", sim.NormalInterval, sim.FastInterval)
	}
	if *sim.AutoStartDelay < 0 {
		return fmt.Errorf("invalid SIM_AUTOSTART_DELAY: %s", *sim.AutoStartDelay)
	}
	loc, err := time.LoadLocation(sim.Timezone)
	if err != nil {
		return fmt.Errorf("invalid SIM_TIMEZONE: %w", err)
	}
	sim.Location = loc
	if _, err := time.Parse("15:04", sim.RollupAt); err != nil {
		return fmt.Errorf("invalid DAILY_ROLLUP_AT %q: want HH:MM", sim.RollupAt)
	}

	if c.StreamMaxClients < 1 {
		return fmt.Errorf("invalid STREAM_MAX_CLIENTS %d: want at least 1", c.StreamMaxClients)
	}

	switch c.StoreDriver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: want memory or sqlite", c.StoreDriver)
	}
	switch c.MQTT.Encoding {
	case "json", "cbor":
	default:
		return fmt.Errorf("invalid MQTT_ENCODING %q: want json or cbor", c.MQTT.Encoding)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
