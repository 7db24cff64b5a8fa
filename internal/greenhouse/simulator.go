package greenhouse

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Stage names the step of a tick that failed.
type Stage string

const (
	StageDeviceRefresh Stage = "device_refresh"
	StagePersist       Stage = "persist"
)

// StageError wraps a failure with the tick stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// TickResult is the outcome of one tick. The sample is always computed; it is
// only durable when Persisted is true.
type TickResult struct {
	Seq       uint64        `json:"seq"`
	Sample    SensorSample  `json:"sample"`
	Persisted bool          `json:"persisted"`
	Errors    []*StageError `json:"-"`
}

// Err joins the stage errors of the tick, or returns nil.
func (r TickResult) Err() error {
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// State is a point-in-time view of the simulator.
type State struct {
	Weather        WeatherState   `json:"weatherState"`
	Devices        DeviceMirror   `json:"deviceMirror"`
	TimeInfo       TimeInfo       `json:"timeInfo"`
	Baseline       Baseline       `json:"baseline"`
	ExpectedValues ExpectedValues `json:"expectedValues"`
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRandSource replaces the random source.
func WithRandSource(src RandSource) Option {
	return func(s *Simulator) { s.src = src }
}

// WithLocation sets the reference timezone for day phases and daily windows.
func WithLocation(loc *time.Location) Option {
	return func(s *Simulator) { s.loc = loc }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithObservers appends tick observers.
func WithObservers(obs ...Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, obs...) }
}

// Simulator owns the weather, baseline and device mirror and produces one
// sample per tick.
type Simulator struct {
	sensors   SensorStore
	devices   DeviceStore
	observers []Observer
	src       RandSource
	loc       *time.Location
	now       func() time.Time

	mu       sync.Mutex
	weather  WeatherState
	baseline Baseline
	mirror   DeviceMirror
	seq      uint64
}

// NewSimulator creates a Simulator with default weather, baseline and mirror.
func NewSimulator(sensors SensorStore, devices DeviceStore, opts ...Option) *Simulator {
	s := &Simulator{
		sensors:  sensors,
		devices:  devices,
		src:      NewRandSource(0),
		loc:      time.Local,
		now:      time.Now,
		weather:  DefaultWeather(),
		baseline: DefaultBaseline(),
		mirror:   DefaultMirror(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the reference timezone.
func (s *Simulator) Location() *time.Location {
	return s.loc
}

// Tick refreshes the device mirror, advances the weather, computes a sample and
// persists it. Collaborator failures are recorded in the result and never abort
// the tick.
func (s *Simulator) Tick(ctx context.Context, fastMode bool) TickResult {
	var res TickResult

	latest, devErr := s.devices.GetLatest(ctx)
	now := s.now().In(s.loc)

	s.mu.Lock()
	if devErr != nil {
		res.Errors = append(res.Errors, &StageError{Stage: StageDeviceRefresh, Err: devErr})
	} else if latest != nil {
		s.mirror = mirrorOf(*latest)
	}
	ti := ComputeTimeInfo(now)
	AdvanceWeather(&s.weather, ti, s.src)
	sample := ComputeSample(ti, s.weather, s.mirror, &s.baseline, fastMode, s.src, now)
	s.seq++
	res.Seq = s.seq
	s.mu.Unlock()

	saved, err := s.sensors.Create(ctx, sample)
	if err != nil {
		res.Errors = append(res.Errors, &StageError{Stage: StagePersist, Err: err})
	} else {
		sample = saved
		res.Persisted = true
	}
	res.Sample = sample

	for _, o := range s.observers {
		o.OnTick(ctx, res)
	}
	return res
}

func mirrorOf(d DeviceState) DeviceMirror {
	vent := d.Ventilasi
	if vent != VentOpen {
		vent = VentClosed
	}
	return DeviceMirror{
		Lampu:      d.Lampu,
		Ventilasi:  vent,
		Humidifier: d.Humidifier,
		Kipas:      d.Kipas,
		Pemanas:    d.Pemanas,
		LastUpdate: d.CreatedAt,
	}
}

// Snapshot returns the current state together with the expected values.
func (s *Simulator) Snapshot() State {
	ti := ComputeTimeInfo(s.now().In(s.loc))

	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Weather:        s.weather,
		Devices:        s.mirror,
		TimeInfo:       ti,
		Baseline:       s.baseline,
		ExpectedValues: CalculateExpectedValues(ti, s.weather, s.mirror, s.baseline),
	}
}

// SetWeather applies a manual weather override.
func (s *Simulator) SetWeather(o WeatherOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ApplyWeatherOverride(&s.weather, &s.baseline, o); err != nil {
		return err
	}
	log.Printf("simulator: weather set raining=%t cloud=%.2f outside=%.1f season=%s",
		s.weather.IsRaining, s.weather.CloudCover, s.weather.OutsideTemp, s.weather.Season)
	return nil
}

// DailyStats reduces the samples of the calendar day containing day.
func (s *Simulator) DailyStats(ctx context.Context, day time.Time) (DailyStats, error) {
	start, end := DayWindow(day, s.loc)
	date := start.Format("2006-01-02")

	samples, err := s.sensors.FindRange(ctx, start, end)
	if err != nil {
		return DailyStats{Date: date}, fmt.Errorf("load samples for %s: %w", date, err)
	}
	return ReduceDaily(date, samples)
}

// LatestSample delegates to the sensor store.
func (s *Simulator) LatestSample(ctx context.Context) (SensorSample, error) {
	return s.sensors.Latest(ctx)
}

// SampleRange delegates to the sensor store.
func (s *Simulator) SampleRange(ctx context.Context, from, to time.Time) ([]SensorSample, error) {
	return s.sensors.FindRange(ctx, from, to)
}

// LatestDevices delegates to the device store.
func (s *Simulator) LatestDevices(ctx context.Context) (*DeviceState, error) {
	return s.devices.GetLatest(ctx)
}

// SaveDevices stores a new actuation record. The mirror picks it up on the next tick.
func (s *Simulator) SaveDevices(ctx context.Context, state DeviceState) (DeviceState, error) {
	if state.Ventilasi == "" {
		state.Ventilasi = VentClosed
	}
	if state.Ventilasi != VentOpen && state.Ventilasi != VentClosed {
		return DeviceState{}, fmt.Errorf("invalid ventilasi %q", state.Ventilasi)
	}
	return s.devices.Save(ctx, state)
}
