package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/greenhouse-monitor/internal/greenhouse"
)

func ptr[T any](v T) *T { return &v }

func TestExecuteRejectsInvalidCommands(t *testing.T) {
	s, _ := newTestScheduler(t, Config{NormalInterval: time.Hour, FastInterval: time.Minute})
	before := s.Status()

	for name, cmd := range map[string]Command{
		"unknown action":         {Action: "reboot"},
		"fast mode missing":      {Action: ActionSetFastMode},
		"weather missing":        {Action: ActionSetWeather},
		"weather empty":          {Action: ActionSetWeather, Weather: &greenhouse.WeatherOverride{}},
		"weather unknown season": {Action: ActionSetWeather, Weather: &greenhouse.WeatherOverride{Season: ptr(greenhouse.Season("monsoon"))}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Execute(cmd)
			assert.ErrorIs(t, err, ErrInvalidCommand)
		})
	}

	after := s.Status()
	assert.Equal(t, before.SimulationConfig, after.SimulationConfig)
	assert.Equal(t, before.Weather, after.Weather)
	assert.Equal(t, before.Baseline, after.Baseline)
}

func TestExecuteLifecycle(t *testing.T) {
	s, _ := newTestScheduler(t, Config{NormalInterval: time.Hour, FastInterval: time.Minute})

	var notified []Mode
	s.OnChange(func(st Status) { notified = append(notified, st.SimulationConfig.State) })

	st, err := s.Execute(Command{Action: ActionStart})
	require.NoError(t, err)
	assert.True(t, st.SimulationConfig.IsRunning)

	st, err = s.Execute(Command{Action: ActionSetFastMode, FastMode: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, ModeRunningFast, st.SimulationConfig.State)
	assert.Equal(t, time.Minute, s.Interval())

	st, err = s.Execute(Command{Action: ActionToggleSpeed})
	require.NoError(t, err)
	assert.Equal(t, ModeRunningNormal, st.SimulationConfig.State)

	st, err = s.Execute(Command{Action: ActionStop})
	require.NoError(t, err)
	assert.False(t, st.SimulationConfig.IsRunning)

	assert.Equal(t, []Mode{ModeRunningNormal, ModeRunningFast, ModeRunningNormal, ModeStopped}, notified)
}

func TestExecuteSetWeather(t *testing.T) {
	s, _ := newTestScheduler(t, Config{NormalInterval: time.Hour, FastInterval: time.Minute})

	st, err := s.Execute(Command{Action: ActionSetWeather, Weather: &greenhouse.WeatherOverride{
		IsRaining:  ptr(true),
		CloudCover: ptr(1.5),
		Season:     ptr(greenhouse.SeasonWet),
	}})
	require.NoError(t, err)

	assert.True(t, st.Weather.IsRaining)
	assert.Equal(t, 1.0, st.Weather.CloudCover)
	assert.Equal(t, greenhouse.SeasonWet, st.Weather.Season)
	assert.Equal(t, 75.0, st.Baseline.KelembapanUdara)
	assert.Equal(t, 65.0, st.Baseline.KelembapanTanah)
	assert.Equal(t, ModeStopped, st.SimulationConfig.State)
}
