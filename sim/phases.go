package sim

import "time"

// Default phase priorities. The six default phases run in this order.
const (
	PriorityInputProcessing   = 10
	PriorityAgentDecision     = 20
	PriorityAgentAction       = 30
	PriorityPhysicsUpdate     = 40
	PriorityEnvironmentUpdate = 50
	PriorityEventProcessing   = 60
)

// InputProcessingPhase is the slot for external commands and user input.
// The core ships it as a no-op; embedders replace it.
type InputProcessingPhase struct {
	PhaseBase
}

func NewInputProcessingPhase() *InputProcessingPhase {
	return &InputProcessingPhase{
		PhaseBase: NewPhaseBase("input_processing", PriorityInputProcessing),
	}
}

func (p *InputProcessingPhase) Execute(_ *SimulationContext) error {
	return nil
}

// AgentDecisionPhase gives every live agent its one update of the
// iteration, passing the battlefield summary along.
type AgentDecisionPhase struct {
	PhaseBase
}

func NewAgentDecisionPhase() *AgentDecisionPhase {
	return &AgentDecisionPhase{
		PhaseBase: NewPhaseBase("agent_decision", PriorityAgentDecision),
	}
}

func (p *AgentDecisionPhase) Execute(ctx *SimulationContext) error {
	info := ctx.EnvironmentInfo()

	decisions := 0
	for _, agent := range ctx.Agents {
		if !agent.Alive() {
			continue
		}

		if err := agent.Update(ctx.DeltaTime, info); err != nil {
			return err
		}
		decisions++
	}

	if ctx.DeltaTime > 0 {
		ctx.Metrics.DecisionsPerSecond = float64(decisions) / float64(ctx.DeltaTime)
	} else {
		ctx.Metrics.DecisionsPerSecond = 0
	}

	return nil
}

// AgentActionPhase is the slot where decided actions take effect. The
// core only counts live agents; combat and movement execution belong to
// the collaborators that replace this stub.
type AgentActionPhase struct {
	PhaseBase
}

func NewAgentActionPhase() *AgentActionPhase {
	return &AgentActionPhase{
		PhaseBase: NewPhaseBase("agent_action", PriorityAgentAction),
	}
}

func (p *AgentActionPhase) Execute(ctx *SimulationContext) error {
	actions := 0
	for _, agent := range ctx.Agents {
		if agent.Alive() {
			actions++
		}
	}

	if ctx.DeltaTime > 0 {
		ctx.Metrics.ActionsPerSecond = float64(actions) / float64(ctx.DeltaTime)
	} else {
		ctx.Metrics.ActionsPerSecond = 0
	}

	return nil
}

// PhysicsUpdatePhase is the slot for movement integration and collision
// detection. The core ships it as a no-op.
type PhysicsUpdatePhase struct {
	PhaseBase
}

func NewPhysicsUpdatePhase() *PhysicsUpdatePhase {
	return &PhysicsUpdatePhase{
		PhaseBase: NewPhaseBase("physics_update", PriorityPhysicsUpdate),
	}
}

func (p *PhysicsUpdatePhase) Execute(_ *SimulationContext) error {
	return nil
}

// EnvironmentUpdatePhase advances the environment. A missing environment
// is legal and makes the phase a no-op.
type EnvironmentUpdatePhase struct {
	PhaseBase
}

func NewEnvironmentUpdatePhase() *EnvironmentUpdatePhase {
	return &EnvironmentUpdatePhase{
		PhaseBase: NewPhaseBase("environment_update", PriorityEnvironmentUpdate),
	}
}

func (p *EnvironmentUpdatePhase) Execute(ctx *SimulationContext) error {
	if ctx.Environment == nil {
		return nil
	}

	return ctx.Environment.Update(ctx.DeltaTime)
}

// EventProcessingPhase drains a slice of the event bus, bounded by both
// the per-loop event cap and the event time budget.
type EventProcessingPhase struct {
	PhaseBase
}

func NewEventProcessingPhase() *EventProcessingPhase {
	return &EventProcessingPhase{
		PhaseBase: NewPhaseBase("event_processing", PriorityEventProcessing),
	}
}

func (p *EventProcessingPhase) Execute(ctx *SimulationContext) error {
	start := time.Now()
	budget := ctx.Config.EventTimeBudget

	processed := 0
	for time.Since(start) < budget && processed < ctx.Config.MaxEventsPerLoop {
		n := ctx.Bus.ProcessEvents(10)
		if n == 0 {
			break
		}
		processed += n
	}

	ctx.Metrics.EventsProcessedPerLoop = processed

	return nil
}

// DefaultPhases returns the six standard phases in their standard order.
func DefaultPhases() []Phase {
	return []Phase{
		NewInputProcessingPhase(),
		NewAgentDecisionPhase(),
		NewAgentActionPhase(),
		NewPhysicsUpdatePhase(),
		NewEnvironmentUpdatePhase(),
		NewEventProcessingPhase(),
	}
}
