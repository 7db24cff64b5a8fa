package greenhouse

import (
	"context"
	"time"
)

// SensorStore persists simulated samples.
type SensorStore interface {
	// Create stores sample and returns it with its assigned ID.
	Create(ctx context.Context, sample SensorSample) (SensorSample, error)
	// FindRange returns samples with start <= Waktu <= end, oldest first.
	// An empty window is not an error.
	FindRange(ctx context.Context, start, end time.Time) ([]SensorSample, error)
	Latest(ctx context.Context) (SensorSample, error)
}

// DeviceStore holds actuation records. GetLatest returns nil, nil when no record exists.
type DeviceStore interface {
	GetLatest(ctx context.Context) (*DeviceState, error)
	Save(ctx context.Context, state DeviceState) (DeviceState, error)
}

// Observer receives the outcome of every tick.
type Observer interface {
	OnTick(ctx context.Context, result TickResult)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, result TickResult)

func (f ObserverFunc) OnTick(ctx context.Context, result TickResult) {
	f(ctx, result)
}
