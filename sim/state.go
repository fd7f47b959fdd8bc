package sim

// SimulationState is the lifecycle state of the engine.
//
// The normal path is StateStopped -> StateStarting -> StateRunning, with
// StateRunning and StatePaused toggling freely, then StateStopping ->
// StateStopped. StateCompleted is reached when the loop exits on its own;
// StateError when the consecutive-error ceiling is hit.
type SimulationState int

const (
	StateStopped SimulationState = iota
	StateStarting
	StateRunning
	StatePaused
	StateStopping
	StateError
	StateCompleted
)

func (s SimulationState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	case StateCompleted:
		return "completed"
	}

	return "unknown"
}
