// Package simulation composes the event bus, the engine, and the
// optional monitoring and recording services into one runnable unit.
package simulation

import (
	"github.com/arenasim/arena/datarecording"
	"github.com/arenasim/arena/monitoring"
	"github.com/arenasim/arena/sim"
)

// A Simulation provides the services required to run a battle
// simulation.
type Simulation struct {
	id string

	engine *sim.SimulationEngine
	bus    *sim.EventBus

	monitor  *monitoring.Monitor
	recorder datarecording.DataRecorder
	tracer   *datarecording.SimTracer
}

// ID returns the unique identity of this simulation instance.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the engine driving the simulation.
func (s *Simulation) Engine() *sim.SimulationEngine {
	return s.engine
}

// Bus returns the event bus shared by the engine and the collaborators.
func (s *Simulation) Bus() *sim.EventBus {
	return s.bus
}

// Monitor returns the monitor, or nil when monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Run starts the simulation and blocks until the run ends.
func (s *Simulation) Run() error {
	return s.engine.Start(false)
}

// RunInBackground starts the simulation on its own goroutine.
func (s *Simulation) RunInBackground() error {
	return s.engine.Start(true)
}

// Terminate stops the engine and closes the recording backend.
func (s *Simulation) Terminate() {
	s.engine.Stop()

	if s.recorder != nil {
		s.recorder.Close()
	}
}
