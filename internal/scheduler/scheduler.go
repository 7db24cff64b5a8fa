package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/greenhouse-monitor/internal/greenhouse"
)

const (
	tickTag   = "tick"
	rollupTag = "daily-rollup"
)

// Mode is the scheduler's lifecycle state.
type Mode string

const (
	ModeStopped       Mode = "STOPPED"
	ModeRunningNormal Mode = "RUNNING_NORMAL"
	ModeRunningFast   Mode = "RUNNING_FAST"
)

// Config holds the two speed presets.
type Config struct {
	NormalInterval time.Duration
	FastInterval   time.Duration
}

// SimulationConfig is the externally visible scheduler state.
type SimulationConfig struct {
	State            Mode       `json:"state"`
	IsRunning        bool       `json:"isRunning"`
	IsFastMode       bool       `json:"isFastMode"`
	NormalIntervalMs int64      `json:"normalIntervalMs"`
	FastIntervalMs   int64      `json:"fastIntervalMs"`
	IntervalMs       int64      `json:"intervalMs"` // armed interval, 0 when stopped
	StartTime        *time.Time `json:"startTime,omitempty"`
}

// Status combines the scheduler state with the simulator state.
type Status struct {
	SimulationConfig SimulationConfig `json:"simulationConfig"`
	greenhouse.State
}

// Scheduler drives the simulator on a repeating gocron job.
// A tick job exists exactly while the scheduler is running.
type Scheduler struct {
	cron *gocron.Scheduler
	sim  *greenhouse.Simulator
	cfg  Config

	mu        sync.Mutex
	running   bool
	fast      bool
	job       *gocron.Job
	interval  time.Duration
	startTime time.Time
	autoStart *time.Timer
	listeners []func(Status)
}

// New creates a stopped Scheduler. The underlying gocron scheduler runs in the
// simulator's timezone so daily jobs line up with the stats windows.
func New(sim *greenhouse.Simulator, cfg Config) *Scheduler {
	s := gocron.NewScheduler(sim.Location())
	s.StartAsync()
	return &Scheduler{
		cron: s,
		sim:  sim,
		cfg:  cfg,
	}
}

// OnChange registers fn to receive the status after every control command.
func (s *Scheduler) OnChange(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Start arms the tick job at the interval of the current mode. A running
// scheduler is stopped first.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Scheduler) startLocked() error {
	s.stopLocked()
	s.cancelAutoStartLocked()

	interval := s.cfg.NormalInterval
	if s.fast {
		interval = s.cfg.FastInterval
	}

	job, err := s.cron.Every(interval).Tag(tickTag).WaitForSchedule().Do(s.tick)
	if err != nil {
		return fmt.Errorf("schedule tick every %s: %w", interval, err)
	}

	s.job = job
	s.interval = interval
	s.running = true
	s.startTime = time.Now()
	log.Printf("scheduler: simulation started (fast=%t, every %s)", s.fast, interval)
	return nil
}

// Stop cancels the tick job. In-flight ticks are not interrupted. Stop is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAutoStartLocked()
	if s.running {
		log.Println("scheduler: simulation stopped")
	}
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.job != nil {
		s.cron.RemoveByReference(s.job)
		s.job = nil
	}
	s.running = false
	s.interval = 0
}

func (s *Scheduler) cancelAutoStartLocked() {
	if s.autoStart != nil {
		s.autoStart.Stop()
		s.autoStart = nil
	}
}

// SetFastMode switches the speed preset. A running scheduler is re-armed at
// the new interval immediately.
func (s *Scheduler) SetFastMode(fast bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setFastLocked(fast)
}

// ToggleFastMode flips the speed preset.
func (s *Scheduler) ToggleFastMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setFastLocked(!s.fast)
}

func (s *Scheduler) setFastLocked(fast bool) error {
	s.fast = fast
	log.Printf("scheduler: fast mode %t", fast)
	if s.running {
		return s.startLocked()
	}
	return nil
}

// AutoStart starts the scheduler in RUNNING_NORMAL after delay unless start or
// stop gets there first. A fast-mode preset chosen during the delay is reset.
func (s *Scheduler) AutoStart(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAutoStartLocked()
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.autoStart != timer || s.running {
			return
		}
		s.autoStart = nil
		s.fast = false
		if err := s.startLocked(); err != nil {
			log.Printf("ERROR: scheduler: auto-start failed: %v", err)
		}
	})
	s.autoStart = timer
}

// Shutdown stops ticking and the underlying gocron scheduler.
func (s *Scheduler) Shutdown() {
	s.Stop()
	s.cron.Stop()
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	fast := s.fast
	s.mu.Unlock()

	s.sim.Tick(context.Background(), fast)
}

// Mode returns the lifecycle state.
func (s *Scheduler) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modeLocked()
}

func (s *Scheduler) modeLocked() Mode {
	switch {
	case !s.running:
		return ModeStopped
	case s.fast:
		return ModeRunningFast
	default:
		return ModeRunningNormal
	}
}

// Interval returns the interval of the armed tick job, or 0 when stopped.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Config returns the externally visible scheduler state.
func (s *Scheduler) Config() SimulationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := SimulationConfig{
		State:            s.modeLocked(),
		IsRunning:        s.running,
		IsFastMode:       s.fast,
		NormalIntervalMs: s.cfg.NormalInterval.Milliseconds(),
		FastIntervalMs:   s.cfg.FastInterval.Milliseconds(),
		IntervalMs:       s.interval.Milliseconds(),
	}
	if s.running {
		st := s.startTime
		c.StartTime = &st
	}
	return c
}

// Status returns the combined scheduler and simulator state.
func (s *Scheduler) Status() Status {
	return Status{
		SimulationConfig: s.Config(),
		State:            s.sim.Snapshot(),
	}
}

func (s *Scheduler) activeTickJobs() int {
	n := 0
	for _, j := range s.cron.Jobs() {
		if slices.Contains(j.Tags(), tickTag) {
			n++
		}
	}
	return n
}

// ScheduleDailyRollup logs the previous day's stats every day at hh:mm.
func (s *Scheduler) ScheduleDailyRollup(at string) error {
	_, err := s.cron.Every(1).Day().At(at).Tag(rollupTag).Do(func() {
		day := time.Now().In(s.sim.Location()).AddDate(0, 0, -1)
		stats, err := s.sim.DailyStats(context.Background(), day)
		if errors.Is(err, greenhouse.ErrNoData) {
			log.Printf("scheduler: daily rollup %s: no data", day.Format("2006-01-02"))
			return
		}
		if err != nil {
			log.Printf("ERROR: scheduler: daily rollup failed: %v", err)
			return
		}
		t := stats.Stats[greenhouse.ChannelSuhu]
		log.Printf("scheduler: daily rollup %s: %d records, suhu min=%.1f max=%.1f avg=%.1f",
			stats.Date, stats.TotalRecords, t.Min, t.Max, t.Avg)
	})
	if err != nil {
		return fmt.Errorf("schedule daily rollup at %s: %w", at, err)
	}
	return nil
}
