package sim

// EnvironmentInfo is the battlefield summary handed to agents each
// iteration. A zero value stands in when no environment is attached.
type EnvironmentInfo struct {
	Width, Height float64
	Obstacles     []Vec2
}

// An Agent is an autonomous participant of the simulation. The engine
// only needs its identity, a liveness predicate, and one update per
// iteration; decision and action details belong to the phases that drive
// the agent.
type Agent interface {
	// ID returns the stable identity of the agent.
	ID() string

	// Alive tells if the agent still takes part in the simulation.
	Alive() bool

	// Update advances the agent by one iteration.
	Update(deltaTime VTimeInSec, info EnvironmentInfo) error
}

// An Environment is the battlefield the agents act on. The engine
// tolerates a nil environment; phases must too.
type Environment interface {
	// Update advances the environment by one iteration.
	Update(deltaTime VTimeInSec) error

	// Info returns the battlefield summary passed to agents.
	Info() EnvironmentInfo
}
