package scheduler

import (
	"errors"
	"fmt"
	"slices"

	"github.com/i474232898/greenhouse-monitor/internal/greenhouse"
)

// ErrInvalidCommand is returned for control commands that are rejected before
// any state changes.
var ErrInvalidCommand = errors.New("invalid simulation command")

// Action names a control command.
type Action string

const (
	ActionStart       Action = "start"
	ActionStop        Action = "stop"
	ActionToggleSpeed Action = "toggle_speed"
	ActionSetFastMode Action = "set_fast_mode"
	ActionSetWeather  Action = "set_weather"
)

// Command is a control request from the outside.
type Command struct {
	Action   Action                      `json:"action" validate:"required,oneof=start stop toggle_speed set_fast_mode set_weather"`
	FastMode *bool                       `json:"fastMode,omitempty"`
	Weather  *greenhouse.WeatherOverride `json:"weather,omitempty"`
}

// Validate checks that the command carries what its action needs.
func (c Command) Validate() error {
	switch c.Action {
	case ActionStart, ActionStop, ActionToggleSpeed:
		return nil
	case ActionSetFastMode:
		if c.FastMode == nil {
			return fmt.Errorf("%w: set_fast_mode requires a boolean fastMode", ErrInvalidCommand)
		}
		return nil
	case ActionSetWeather:
		if c.Weather == nil || c.Weather.Empty() {
			return fmt.Errorf("%w: set_weather requires a non-empty weather object", ErrInvalidCommand)
		}
		if err := c.Weather.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, c.Action)
	}
}

// Execute validates and applies cmd, then notifies listeners with the new status.
func (s *Scheduler) Execute(cmd Command) (Status, error) {
	if err := cmd.Validate(); err != nil {
		return Status{}, err
	}

	var err error
	switch cmd.Action {
	case ActionStart:
		err = s.Start()
	case ActionStop:
		s.Stop()
	case ActionToggleSpeed:
		err = s.ToggleFastMode()
	case ActionSetFastMode:
		err = s.SetFastMode(*cmd.FastMode)
	case ActionSetWeather:
		err = s.sim.SetWeather(*cmd.Weather)
	}
	if err != nil {
		return Status{}, err
	}

	st := s.Status()
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(st)
	}
	return st, nil
}
