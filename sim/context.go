package sim

import "time"

// SimulationContext is the mutable state bundle handed to every phase
// each iteration. Only the engine loop writes to it; the bus worker never
// touches it, which keeps the two loops decoupled.
//
// The context holds a shared, non-owning reference to the event bus: the
// bus is started and stopped independently and may outlive a single
// engine run.
type SimulationContext struct {
	Agents      []Agent
	Environment Environment
	Bus         *EventBus

	CurrentTime    time.Time
	DeltaTime      VTimeInSec
	SimulationTime VTimeInSec
	IterationCount uint64

	Config  SimulationConfig
	Metrics *SimulationMetrics

	State SimulationState

	// ShouldContinue lets a phase request loop termination. It is read
	// once per iteration by the engine.
	ShouldContinue bool

	ConsecutiveErrors int
	LastError         error
}

func newSimulationContext(cfg SimulationConfig, bus *EventBus) *SimulationContext {
	return &SimulationContext{
		Bus:            bus,
		Config:         cfg,
		Metrics:        NewSimulationMetrics(),
		State:          StateStopped,
		ShouldContinue: true,
	}
}

// updateTiming advances the context clocks by one wall-clock delta and
// bumps the iteration count.
func (c *SimulationContext) updateTiming(realDelta time.Duration) {
	c.DeltaTime = VTimeInSec(realDelta.Seconds())
	c.CurrentTime = time.Now()

	scaled := VTimeInSec(realDelta.Seconds() * c.Config.TimeScale)
	c.SimulationTime += scaled
	c.Metrics.TimeStep = scaled
	c.Metrics.SimulationTime = c.SimulationTime

	c.IterationCount++
	c.Metrics.TotalIterations = c.IterationCount
}

// EnvironmentInfo returns the battlefield summary, or a zero value when
// no environment is attached.
func (c *SimulationContext) EnvironmentInfo() EnvironmentInfo {
	if c.Environment == nil {
		return EnvironmentInfo{}
	}

	return c.Environment.Info()
}
