package sim

// phaseTimeAlpha is the smoothing factor of the per-phase exponential
// moving average.
const phaseTimeAlpha = 0.1

// SimulationMetrics is the observational data the engine collects while
// running. Phases must never read it back to alter behavior; that would
// create feedback loops between measurement and logic.
type SimulationMetrics struct {
	// Timing.
	TotalRuntime    VTimeInSec
	SimulationTime  VTimeInSec
	AverageLoopTime VTimeInSec
	TargetFPS       float64
	ActualFPS       float64
	TimeStep        VTimeInSec

	// Iterations.
	TotalIterations     uint64
	IterationsPerSecond float64

	// Per-phase execution time in milliseconds, exponentially smoothed.
	PhaseTimes map[string]float64

	// Agents.
	ActiveAgents       int
	DecisionsPerSecond float64
	ActionsPerSecond   float64

	// Events.
	EventsProcessedPerLoop int
	EventQueueDepth        int

	// System health, sampled on the metrics interval.
	MemoryUsageMB   float64
	CPUUsagePercent float64
}

// NewSimulationMetrics creates an empty metrics record.
func NewSimulationMetrics() *SimulationMetrics {
	return &SimulationMetrics{
		PhaseTimes: make(map[string]float64),
	}
}

// UpdateFPS derives the instantaneous iteration rate from the last
// wall-clock delta.
func (m *SimulationMetrics) UpdateFPS(delta VTimeInSec) {
	if delta <= 0 {
		return
	}

	m.ActualFPS = 1.0 / float64(delta)
	m.IterationsPerSecond = m.ActualFPS
}

// AddPhaseTime folds one phase execution time, in milliseconds, into the
// smoothed per-phase history.
func (m *SimulationMetrics) AddPhaseTime(phase string, timeMS float64) {
	prev := m.PhaseTimes[phase]
	m.PhaseTimes[phase] = phaseTimeAlpha*timeMS + (1-phaseTimeAlpha)*prev
}

// PerformanceSummary flattens the metrics into the payload published with
// performance-metric events.
func (m *SimulationMetrics) PerformanceSummary() Payload {
	breakdown := make(map[string]float64, len(m.PhaseTimes))
	for phase, timeMS := range m.PhaseTimes {
		breakdown[phase] = timeMS
	}

	return Payload{
		"fps":             m.ActualFPS,
		"loop_time_ms":    float64(m.AverageLoopTime) * 1000,
		"simulation_time": float64(m.SimulationTime),
		"iterations":      m.TotalIterations,
		"active_agents":   m.ActiveAgents,
		"events_per_loop": m.EventsProcessedPerLoop,
		"queue_depth":     m.EventQueueDepth,
		"memory_mb":       m.MemoryUsageMB,
		"cpu_percent":     m.CPUUsagePercent,
		"phase_breakdown": breakdown,
	}
}
