package greenhouse

import (
	"math/rand"
	"sync"
	"time"
)

// RandSource yields uniform values in [0, 1).
type RandSource interface {
	Float64() float64
}

// NewRandSource returns a goroutine-safe source. A zero seed picks a time-based one.
func NewRandSource(seed int64) RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// uniform draws from [lo, hi).
func uniform(src RandSource, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}
