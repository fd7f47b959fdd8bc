package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeEnvironment counts its updates and can be told to fail.
type fakeEnvironment struct {
	updates int
	err     error
	info    EnvironmentInfo
}

func (e *fakeEnvironment) Update(_ VTimeInSec) error {
	e.updates++
	return e.err
}

func (e *fakeEnvironment) Info() EnvironmentInfo {
	return e.info
}

func testContext(cfg SimulationConfig) *SimulationContext {
	ctx := newSimulationContext(cfg, NewEventBus(0))
	ctx.DeltaTime = VTimeInSec(1.0 / 60.0)

	return ctx
}

func TestDefaultPhasesAreInStandardOrder(t *testing.T) {
	phases := DefaultPhases()
	require.Len(t, phases, 6)

	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.Name()
		if i > 0 {
			require.Greater(t, p.Priority(), phases[i-1].Priority())
		}
	}

	require.Equal(t, []string{
		"input_processing",
		"agent_decision",
		"agent_action",
		"physics_update",
		"environment_update",
		"event_processing",
	}, names)
}

func TestAgentDecisionPhaseUpdatesLiveAgentsOnly(t *testing.T) {
	ctx := testContext(DefaultConfig())

	live := &fakeAgent{id: "live"}
	dead := &fakeAgent{id: "dead", dead: true}
	ctx.Agents = []Agent{live, dead}

	phase := NewAgentDecisionPhase()
	require.NoError(t, phase.Execute(ctx))

	require.Equal(t, 1, live.updates)
	require.Equal(t, 0, dead.updates)
	require.Greater(t, ctx.Metrics.DecisionsPerSecond, 0.0)
}

func TestAgentDecisionPhasePropagatesAgentError(t *testing.T) {
	ctx := testContext(DefaultConfig())
	ctx.Agents = []Agent{&erroringAgent{}}

	phase := NewAgentDecisionPhase()
	require.ErrorContains(t, phase.Execute(ctx), "agent is lost")
}

type erroringAgent struct{}

func (a *erroringAgent) ID() string  { return "lost" }
func (a *erroringAgent) Alive() bool { return true }

func (a *erroringAgent) Update(_ VTimeInSec, _ EnvironmentInfo) error {
	return errors.New("agent is lost")
}

func TestEnvironmentUpdatePhaseToleratesMissingEnvironment(t *testing.T) {
	ctx := testContext(DefaultConfig())

	phase := NewEnvironmentUpdatePhase()
	require.NoError(t, phase.Execute(ctx))
}

func TestEnvironmentUpdatePhaseAdvancesEnvironment(t *testing.T) {
	ctx := testContext(DefaultConfig())
	env := &fakeEnvironment{}
	ctx.Environment = env

	phase := NewEnvironmentUpdatePhase()
	require.NoError(t, phase.Execute(ctx))
	require.Equal(t, 1, env.updates)

	env.err = errors.New("terrain collapsed")
	require.ErrorContains(t, phase.Execute(ctx), "terrain collapsed")
}

func TestEventProcessingPhaseRespectsEventCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEventsPerLoop = 10

	ctx := testContext(cfg)
	ctx.Bus.RegisterHandler(&recordingHandler{})

	for i := 0; i < 25; i++ {
		ctx.Bus.Publish(NewEvent(EventAgentMoved, PriorityLow))
	}

	phase := NewEventProcessingPhase()
	require.NoError(t, phase.Execute(ctx))

	require.Equal(t, 10, ctx.Metrics.EventsProcessedPerLoop)
	require.Equal(t, 15, ctx.Bus.QueueDepth())
}

func TestEventProcessingPhaseDrainsEmptyBus(t *testing.T) {
	ctx := testContext(DefaultConfig())

	phase := NewEventProcessingPhase()
	require.NoError(t, phase.Execute(ctx))
	require.Equal(t, 0, ctx.Metrics.EventsProcessedPerLoop)
}

func TestPhaseBaseTracksExecutionMetrics(t *testing.T) {
	base := NewPhaseBase("sample", 10)

	require.Equal(t, "sample", base.Name())
	require.Equal(t, 10, base.Priority())
	require.True(t, base.Enabled())
	require.Equal(t, time.Duration(0), base.AverageExecutionTime())

	base.recordExecution(10 * time.Millisecond)
	base.recordExecution(20 * time.Millisecond)

	require.Equal(t, uint64(2), base.ExecutionCount())
	require.Equal(t, 15*time.Millisecond, base.AverageExecutionTime())

	base.ResetMetrics()
	require.Equal(t, uint64(0), base.ExecutionCount())

	base.SetEnabled(false)
	require.False(t, base.Enabled())
}
