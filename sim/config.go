package sim

import (
	"fmt"
	"strings"
	"time"
)

// VTimeInSec defines the time in the simulated space in the unit of
// second. Virtual time advances by wall-clock delta times the configured
// time scale, so it is distinct from wall-clock time.
type VTimeInSec float64

// SimulationConfig carries the immutable per-run parameters of the
// engine. Build one, validate it, and hand it to NewEngine; it is not
// mutated afterwards.
type SimulationConfig struct {
	// TargetFPS is the iteration rate the pacing sleep aims for.
	TargetFPS float64

	// MaxLoopTime is the budget for one loop iteration.
	MaxLoopTime time.Duration

	// TimeScale maps wall-clock time to virtual time. 1.0 is real time.
	TimeScale float64

	// MaxSimulationTime stops the run once virtual time reaches it.
	// Zero means unlimited.
	MaxSimulationTime VTimeInSec

	// MaxIterations stops the run after that many iterations. Zero means
	// unlimited.
	MaxIterations uint64

	// MaxAgents bounds the agent collection.
	MaxAgents int

	// MaxEventsPerLoop bounds how many events the event-processing phase
	// drains in one iteration.
	MaxEventsPerLoop int

	// EventTimeBudget bounds how long the event-processing phase may
	// spend in one iteration.
	EventTimeBudget time.Duration

	// MetricsInterval is how often the engine publishes a performance
	// metric event and refreshes queue-depth metrics.
	MetricsInterval time.Duration

	// MaxConsecutiveErrors is the ceiling of back-to-back failed
	// iterations before the engine gives up.
	MaxConsecutiveErrors int

	// ErrorRecoveryDelay is slept after a failed iteration that is still
	// under the ceiling.
	ErrorRecoveryDelay time.Duration
}

// DefaultConfig returns the configuration a simulation runs with when
// the caller does not care.
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		TargetFPS:            60.0,
		MaxLoopTime:          50 * time.Millisecond,
		TimeScale:            1.0,
		MaxSimulationTime:    300.0,
		MaxIterations:        0,
		MaxAgents:            100,
		MaxEventsPerLoop:     1000,
		EventTimeBudget:      10 * time.Millisecond,
		MetricsInterval:      time.Second,
		MaxConsecutiveErrors: 5,
		ErrorRecoveryDelay:   time.Second,
	}
}

// Validate checks that every timing, scale, and ceiling field is
// positive. A config that fails validation must never reach an engine.
func (c SimulationConfig) Validate() error {
	var problems []string

	if c.TargetFPS <= 0 {
		problems = append(problems, "TargetFPS must be positive")
	}
	if c.MaxLoopTime <= 0 {
		problems = append(problems, "MaxLoopTime must be positive")
	}
	if c.TimeScale <= 0 {
		problems = append(problems, "TimeScale must be positive")
	}
	if c.MaxAgents <= 0 {
		problems = append(problems, "MaxAgents must be positive")
	}
	if c.MaxEventsPerLoop <= 0 {
		problems = append(problems, "MaxEventsPerLoop must be positive")
	}
	if c.EventTimeBudget <= 0 {
		problems = append(problems, "EventTimeBudget must be positive")
	}
	if c.MetricsInterval <= 0 {
		problems = append(problems, "MetricsInterval must be positive")
	}
	if c.MaxConsecutiveErrors <= 0 {
		problems = append(problems, "MaxConsecutiveErrors must be positive")
	}
	if c.ErrorRecoveryDelay < 0 {
		problems = append(problems, "ErrorRecoveryDelay must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("simulation config validation failed: %s",
			strings.Join(problems, "; "))
	}

	return nil
}

// targetFrameTime returns the pacing interval derived from TargetFPS.
func (c SimulationConfig) targetFrameTime() time.Duration {
	return time.Duration(float64(time.Second) / c.TargetFPS)
}
