package greenhouse

import (
	"context"
	"errors"
	"sync"
	"time"
)

// seqSource replays vals in a loop; with no vals it always returns 0.5,
// which makes every uniform(-1, 1) draw zero.
type seqSource struct {
	vals []float64
	i    int
}

func (s *seqSource) Float64() float64 {
	if len(s.vals) == 0 {
		return 0.5
	}
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func constSource(v float64) *seqSource {
	return &seqSource{vals: []float64{v}}
}

func at(h, m int) time.Time {
	return time.Date(2025, 6, 1, h, m, 0, 0, time.UTC)
}

type fakeSensorStore struct {
	mu      sync.Mutex
	samples []SensorSample
	failErr error
}

func (f *fakeSensorStore) Create(_ context.Context, s SensorSample) (SensorSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return SensorSample{}, f.failErr
	}
	s.ID = "id"
	f.samples = append(f.samples, s)
	return s, nil
}

func (f *fakeSensorStore) FindRange(_ context.Context, start, end time.Time) ([]SensorSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SensorSample
	for _, s := range f.samples {
		if !s.Waktu.Before(start) && !s.Waktu.After(end) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSensorStore) Latest(context.Context) (SensorSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.samples) == 0 {
		return SensorSample{}, errors.New("empty")
	}
	return f.samples[len(f.samples)-1], nil
}

type fakeDeviceStore struct {
	latest  *DeviceState
	failErr error
}

func (f *fakeDeviceStore) GetLatest(context.Context) (*DeviceState, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	return f.latest, nil
}

func (f *fakeDeviceStore) Save(_ context.Context, d DeviceState) (DeviceState, error) {
	f.latest = &d
	return d, nil
}
