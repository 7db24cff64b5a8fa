package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/greenhouse-monitor/internal/greenhouse"
)

var (
	// ErrNotFound is returned when no record is available.
	ErrNotFound = errors.New("no sensor data")
)

// MemoryStore is a concurrency-safe in-memory implementation of the sensor
// and device stores.
type MemoryStore struct {
	mu sync.RWMutex

	// samples ordered by Waktu
	samples []greenhouse.SensorSample
	devices []greenhouse.DeviceState

	// retention configuration
	maxHistory int           // max number of samples kept
	maxAge     time.Duration // optional max age for samples

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Create appends a new sample and enforces retention.
func (s *MemoryStore) Create(_ context.Context, sample greenhouse.SensorSample) (greenhouse.SensorSample, error) {
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	if sample.Waktu.IsZero() {
		sample.Waktu = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = append(s.samples, sample)
	if n := len(s.samples); n > 1 && s.samples[n-1].Waktu.Before(s.samples[n-2].Waktu) {
		sort.SliceStable(s.samples, func(i, j int) bool {
			return s.samples[i].Waktu.Before(s.samples[j].Waktu)
		})
	}

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.samples) > s.maxHistory {
		over := len(s.samples) - s.maxHistory
		s.samples = s.samples[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.samples); i++ {
			if !s.samples[i].Waktu.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.samples = s.samples[i:]
		}
	}

	return sample, nil
}

// Latest returns the most recent sample.
func (s *MemoryStore) Latest(context.Context) (greenhouse.SensorSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.samples) == 0 {
		return greenhouse.SensorSample{}, ErrNotFound
	}
	return s.samples[len(s.samples)-1], nil
}

// FindRange returns all samples between start and end (inclusive).
func (s *MemoryStore) FindRange(_ context.Context, start, end time.Time) ([]greenhouse.SensorSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []greenhouse.SensorSample
	for _, snap := range s.samples {
		if !snap.Waktu.Before(start) && !snap.Waktu.After(end) {
			result = append(result, snap)
		}
	}
	return result, nil
}

// GetLatest returns the newest device record, or nil when none was saved.
func (s *MemoryStore) GetLatest(context.Context) (*greenhouse.DeviceState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.devices) == 0 {
		return nil, nil
	}
	d := s.devices[len(s.devices)-1]
	return &d, nil
}

// Save appends a device record.
func (s *MemoryStore) Save(_ context.Context, state greenhouse.DeviceState) (greenhouse.DeviceState, error) {
	if state.ID == "" {
		state.ID = uuid.NewString()
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append(s.devices, state)
	return state, nil
}
