package simulation

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arenasim/arena/sim"
)

func TestBuilderDefaultsGiveRunnableSimulation(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.TargetFPS = 1000
	cfg.MaxIterations = 5
	cfg.MaxSimulationTime = 0

	s, err := MakeBuilder().
		WithConfig(cfg).
		WithoutMonitoring().
		Build()
	require.NoError(t, err)
	defer s.Terminate()

	require.NotEmpty(t, s.ID())
	require.NotNil(t, s.Engine())
	require.NotNil(t, s.Bus())
	require.Nil(t, s.Monitor())

	require.NoError(t, s.Run())

	status := s.Engine().Status()
	require.Equal(t, sim.StateCompleted, status.State)
	require.Equal(t, uint64(5), status.IterationCount)
}

func TestBuilderInstallsDefaultPhases(t *testing.T) {
	s, err := MakeBuilder().WithoutMonitoring().Build()
	require.NoError(t, err)
	defer s.Terminate()

	phases := s.Engine().Phases()
	require.Len(t, phases, 6)
	require.Equal(t, "input_processing", phases[0].Name())
	require.Equal(t, "event_processing", phases[5].Name())
}

func TestBuilderWithoutDefaultPhases(t *testing.T) {
	s, err := MakeBuilder().
		WithoutMonitoring().
		WithoutDefaultPhases().
		Build()
	require.NoError(t, err)
	defer s.Terminate()

	require.Empty(t, s.Engine().Phases())
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.TargetFPS = -1

	_, err := MakeBuilder().
		WithConfig(cfg).
		WithoutMonitoring().
		Build()
	require.Error(t, err)
}

func TestBuilderBusCapacityIsHonored(t *testing.T) {
	s, err := MakeBuilder().
		WithoutMonitoring().
		WithBusCapacity(2).
		Build()
	require.NoError(t, err)
	defer s.Terminate()

	bus := s.Bus()
	require.True(t, bus.Publish(sim.NewEvent(sim.EventDebugInfo, sim.PriorityLow)))
	require.True(t, bus.Publish(sim.NewEvent(sim.EventDebugInfo, sim.PriorityLow)))
	require.False(t, bus.Publish(sim.NewEvent(sim.EventDebugInfo, sim.PriorityLow)))
}

func TestBuilderPanicsOnContradictoryParameters(t *testing.T) {
	require.Panics(t, func() {
		_, _ = MakeBuilder().
			WithoutMonitoring().
			WithMonitorPort(2000).
			Build()
	})

	require.Panics(t, func() {
		_, _ = MakeBuilder().
			WithoutMonitoring().
			WithOutputFileName("trace").
			Build()
	})
}

func TestBuilderRecordsTracesToDatabase(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.TargetFPS = 1000
	cfg.MaxIterations = 3
	cfg.MaxSimulationTime = 0

	output := filepath.Join(t.TempDir(), "trace")

	s, err := MakeBuilder().
		WithConfig(cfg).
		WithoutMonitoring().
		WithDataRecording().
		WithOutputFileName(output).
		Build()
	require.NoError(t, err)

	require.NoError(t, s.Run())
	s.Terminate()

	require.FileExists(t, output+".sqlite3")
}

func TestBuilderWithMonitoringServesStatus(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.TargetFPS = 1000
	cfg.MaxSimulationTime = 0

	s, err := MakeBuilder().WithConfig(cfg).Build()
	require.NoError(t, err)
	defer s.Terminate()

	require.NotNil(t, s.Monitor())
	require.NotEmpty(t, s.Monitor().URL())
}

func TestSimulationRunInBackground(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.TargetFPS = 1000
	cfg.MaxSimulationTime = 0

	s, err := MakeBuilder().WithConfig(cfg).WithoutMonitoring().Build()
	require.NoError(t, err)

	require.NoError(t, s.RunInBackground())
	require.True(t, s.Engine().Running())

	deadline := time.Now().Add(time.Second)
	for s.Engine().Status().IterationCount == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Greater(t, s.Engine().Status().IterationCount, uint64(0))

	s.Terminate()
	require.False(t, s.Engine().Running())
	require.Equal(t, sim.StateStopped, s.Engine().State())
}
