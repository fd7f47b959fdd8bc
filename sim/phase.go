package sim

import "time"

// A Phase is one named, prioritized unit of per-iteration work. The
// engine executes enabled phases in ascending priority order, once per
// iteration, against the shared context.
//
// A phase must tolerate being skipped: the engine may disable it at
// runtime. It must not assume any other phase ran first beyond what the
// documented ordering guarantees.
type Phase interface {
	// Name returns the stable identity of the phase.
	Name() string

	// Priority orders phases. Lower values run first.
	Priority() int

	// Enabled tells if the engine should execute the phase.
	Enabled() bool

	// SetEnabled toggles the phase at runtime.
	SetEnabled(enabled bool)

	// Execute runs the phase against the shared context. A non-nil error
	// counts as an iteration failure.
	Execute(ctx *SimulationContext) error

	// recordExecution and the metric getters live on PhaseBase.
	recordExecution(d time.Duration)

	// ExecutionCount returns how often the phase ran.
	ExecutionCount() uint64

	// AverageExecutionTime returns the mean run time of the phase.
	AverageExecutionTime() time.Duration
}

// PhaseBase carries the identity and timing bookkeeping shared by all
// phases. Embed it and implement Execute.
type PhaseBase struct {
	name     string
	priority int
	enabled  bool

	executionCount     uint64
	totalExecutionTime time.Duration
}

// NewPhaseBase creates the embeddable base of a phase.
func NewPhaseBase(name string, priority int) PhaseBase {
	return PhaseBase{
		name:     name,
		priority: priority,
		enabled:  true,
	}
}

func (p *PhaseBase) Name() string {
	return p.name
}

func (p *PhaseBase) Priority() int {
	return p.priority
}

func (p *PhaseBase) Enabled() bool {
	return p.enabled
}

func (p *PhaseBase) SetEnabled(enabled bool) {
	p.enabled = enabled
}

func (p *PhaseBase) recordExecution(d time.Duration) {
	p.executionCount++
	p.totalExecutionTime += d
}

func (p *PhaseBase) ExecutionCount() uint64 {
	return p.executionCount
}

// AverageExecutionTime returns the running average over all executions.
func (p *PhaseBase) AverageExecutionTime() time.Duration {
	if p.executionCount == 0 {
		return 0
	}

	return p.totalExecutionTime / time.Duration(p.executionCount)
}

// ResetMetrics clears the execution counters.
func (p *PhaseBase) ResetMetrics() {
	p.executionCount = 0
	p.totalExecutionTime = 0
}
