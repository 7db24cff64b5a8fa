package greenhouse

import (
	"time"
)

// Season is a manual weather-override preset.
type Season string

const (
	SeasonDry    Season = "dry"
	SeasonNormal Season = "normal"
	SeasonWet    Season = "wet"
)

// Valid reports whether s is one of the known seasons.
func (s Season) Valid() bool {
	switch s {
	case SeasonDry, SeasonNormal, SeasonWet:
		return true
	}
	return false
}

// Vent is the position of the greenhouse ventilation flap.
type Vent string

const (
	VentOpen   Vent = "buka"
	VentClosed Vent = "tutup"
)

// SensorSample is one simulated reading, persisted by the SensorStore.
type SensorSample struct {
	ID              string    `json:"id,omitempty"`
	Suhu            float64   `json:"suhu"`             // temperature, °C
	Cahaya          float64   `json:"cahaya"`           // light, lux
	KelembapanUdara float64   `json:"kelembapan_udara"` // air humidity, %
	KelembapanTanah float64   `json:"kelembapan_tanah"` // soil humidity, %
	Waktu           time.Time `json:"waktu"`
}

// DeviceState is one persisted actuation record.
type DeviceState struct {
	ID         string    `json:"id,omitempty"`
	Lampu      bool      `json:"lampu"`
	Ventilasi  Vent      `json:"ventilasi"`
	Humidifier bool      `json:"humidifier"`
	Kipas      bool      `json:"kipas"`
	Pemanas    bool      `json:"pemanas"`
	CreatedAt  time.Time `json:"created_at"`
}

// DeviceMirror is the simulator's read cache of the latest DeviceState.
type DeviceMirror struct {
	Lampu      bool      `json:"lampu"`
	Ventilasi  Vent      `json:"ventilasi"`
	Humidifier bool      `json:"humidifier"`
	Kipas      bool      `json:"kipas"`
	Pemanas    bool      `json:"pemanas"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// VentOpen reports whether the vent is open.
func (d DeviceMirror) VentOpen() bool {
	return d.Ventilasi == VentOpen
}

// TimeInfo classifies a wall-clock instant into day phases.
// The early-morning, mid-day and evening facets overlap and are independent.
type TimeInfo struct {
	Hour           int     `json:"hour"`
	Minute         int     `json:"minute"`
	TimeDecimal    float64 `json:"timeDecimal"`
	IsDayTime      bool    `json:"isDayTime"`
	IsNight        bool    `json:"isNight"`
	IsTwilight     bool    `json:"isTwilight"`
	DayProgress    float64 `json:"dayProgress"`
	IsEarlyMorning bool    `json:"isEarlyMorning"`
	IsMidDay       bool    `json:"isMidDay"`
	IsEvening      bool    `json:"isEvening"`
}

// WeatherState is the outside weather driving the greenhouse model.
type WeatherState struct {
	IsRaining    bool    `json:"isRaining"`
	RainDuration int     `json:"rainDuration"` // ticks
	CloudCover   float64 `json:"cloudCover"`
	Season       Season  `json:"season"`
	OutsideTemp  float64 `json:"outsideTemp"`
}

// Baseline anchors the next tick. Only KelembapanTanah is carried forward per tick.
type Baseline struct {
	Suhu            float64 `json:"suhu"`
	Cahaya          float64 `json:"cahaya"`
	KelembapanUdara float64 `json:"kelembapan_udara"`
	KelembapanTanah float64 `json:"kelembapan_tanah"`
}

// Targets are the pre-noise channel values computed for a tick.
type Targets struct {
	Suhu            float64 `json:"suhu"`
	Cahaya          float64 `json:"cahaya"`
	KelembapanUdara float64 `json:"kelembapan_udara"`
	KelembapanTanah float64 `json:"kelembapan_tanah"`
}

// DefaultWeather is the weather a new simulator starts with.
func DefaultWeather() WeatherState {
	return WeatherState{
		CloudCover:  0.3,
		Season:      SeasonNormal,
		OutsideTemp: baseOutsideTemp,
	}
}

// DefaultBaseline is the baseline a new simulator starts with.
func DefaultBaseline() Baseline {
	return Baseline{
		Suhu:            28,
		Cahaya:          500,
		KelembapanUdara: 65,
		KelembapanTanah: 55,
	}
}

// DefaultMirror is the device mirror before any record has been read.
func DefaultMirror() DeviceMirror {
	return DeviceMirror{Ventilasi: VentClosed}
}
