package sim

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// engineSourceID identifies the engine as the source of the lifecycle
// events it publishes.
const engineSourceID = "simulation_engine"

// pauseSpinInterval is how long the loop sleeps between pause checks.
// Stop and resume requests are honored within one interval.
const pauseSpinInterval = 10 * time.Millisecond

// stopJoinTimeout bounds the wait for the loop goroutine on Stop. The
// wait is bounded so that Stop cannot deadlock even when called from a
// phase or handler running on the loop itself.
const stopJoinTimeout = 2 * time.Second

// A ResourceSampler reports process resource usage for the periodic
// performance metrics. The engine works without one.
type ResourceSampler interface {
	Sample() (memoryMB, cpuPercent float64, err error)
}

// Status is the snapshot returned by the status query.
type Status struct {
	State             SimulationState
	Running           bool
	Paused            bool
	SimulationTime    VTimeInSec
	IterationCount    uint64
	ActiveAgents      int
	ConsecutiveErrors int
	LastError         error
	Metrics           Payload
}

// A SimulationEngine owns the phase pipeline and the shared context and
// drives iterations at the configured pace. The loop can run inline on
// the caller (Start(false) blocks until the run ends) or on a dedicated
// goroutine (Start(true) returns immediately).
//
// The engine is the single writer of the context: only its own loop (or
// a Step call) mutates it. The bus worker runs concurrently but only ever
// touches events, never the context.
type SimulationEngine struct {
	config SimulationConfig
	bus    *EventBus

	// mu guards the context, the phase list, and the pacing clock. It is
	// held for the whole of one iteration, which also serializes Step
	// against the background loop.
	mu                sync.Mutex
	context           *SimulationContext
	phases            []Phase
	lastFrame         time.Time
	lastMetricsUpdate time.Time

	// stateMu guards the lifecycle state separately from mu so that
	// state transitions fired from inside an iteration cannot deadlock.
	stateMu sync.Mutex

	// statusMu guards the status snapshot, which is refreshed after each
	// iteration. Status never takes mu, so it is safe to call from the
	// engine's own callbacks.
	statusMu   sync.Mutex
	statusSnap Status

	running atomic.Bool
	paused  atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	sampler ResourceSampler

	// Lifecycle callbacks, all optional, all invoked synchronously on
	// the loop that triggered them.
	OnIterationComplete func(*SimulationContext)
	OnStateChanged      func(SimulationState)
	OnError             func(error)
}

// NewEngine creates an engine with a validated config. A nil bus selects
// a freshly constructed bus with the default capacity.
func NewEngine(cfg SimulationConfig, bus *EventBus) (*SimulationEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if bus == nil {
		bus = NewEventBus(0)
	}

	e := &SimulationEngine{
		config:  cfg,
		bus:     bus,
		context: newSimulationContext(cfg, bus),
	}
	e.context.Metrics.TargetFPS = cfg.TargetFPS

	return e, nil
}

// Bus returns the event bus the engine publishes on.
func (e *SimulationEngine) Bus() *EventBus {
	return e.bus
}

// SetResourceSampler attaches the sampler used for the periodic
// performance metrics.
func (e *SimulationEngine) SetResourceSampler(s ResourceSampler) {
	e.sampler = s
}

// AddPhase inserts a phase, keeping the pipeline sorted by ascending
// priority.
func (e *SimulationEngine) AddPhase(p Phase) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.phases = append(e.phases, p)
	sort.SliceStable(e.phases, func(i, j int) bool {
		return e.phases[i].Priority() < e.phases[j].Priority()
	})
}

// RemovePhase removes a phase from the pipeline.
func (e *SimulationEngine) RemovePhase(p Phase) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, registered := range e.phases {
		if registered == p {
			e.phases = append(e.phases[:i], e.phases[i+1:]...)
			return
		}
	}
}

// Phases returns the pipeline in execution order.
func (e *SimulationEngine) Phases() []Phase {
	e.mu.Lock()
	defer e.mu.Unlock()

	phases := make([]Phase, len(e.phases))
	copy(phases, e.phases)

	return phases
}

// SetEnvironment attaches the battlefield environment. A nil environment
// is legal.
func (e *SimulationEngine) SetEnvironment(env Environment) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.context.Environment = env
}

// AddAgent adds an agent, rejecting it once MaxAgents is reached. The
// agent collection is unchanged on rejection.
func (e *SimulationEngine) AddAgent(a Agent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.context.Agents) >= e.config.MaxAgents {
		return fmt.Errorf("cannot add agent %s: agent limit %d reached",
			a.ID(), e.config.MaxAgents)
	}

	e.context.Agents = append(e.context.Agents, a)
	e.updateAgentCount()

	return nil
}

// RemoveAgent removes the agent with the given ID.
func (e *SimulationEngine) RemoveAgent(agentID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, a := range e.context.Agents {
		if a.ID() == agentID {
			e.context.Agents = append(
				e.context.Agents[:i], e.context.Agents[i+1:]...)
			e.updateAgentCount()
			return
		}
	}
}

// AgentCount returns the current size of the agent collection.
func (e *SimulationEngine) AgentCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.context.Agents)
}

// updateAgentCount mirrors the agent count into the status snapshot.
// Callers must hold mu.
func (e *SimulationEngine) updateAgentCount() {
	n := len(e.context.Agents)

	e.statusMu.Lock()
	e.statusSnap.ActiveAgents = n
	e.statusMu.Unlock()
}

// Start begins the run. With background true the loop runs on its own
// goroutine and Start returns immediately; otherwise Start blocks until
// the loop exits. Starting a running engine is an error.
func (e *SimulationEngine) Start(background bool) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("simulation is already running")
	}

	e.setState(StateStarting)

	e.mu.Lock()
	now := time.Now()
	e.lastFrame = now
	e.lastMetricsUpdate = now
	e.context.CurrentTime = now
	e.context.ShouldContinue = true
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.mu.Unlock()

	e.bus.CreateAndPublish(
		EventSimulationStarted, engineSourceID, nil, nil, nil, PriorityHigh)
	e.bus.StartProcessing()

	e.setState(StateRunning)

	if background {
		go e.mainLoop()
		return nil
	}

	e.mainLoop()

	return nil
}

// Stop signals loop termination, waits for the loop with a bounded
// timeout, stops the bus worker, and publishes the end lifecycle event.
// Stop is idempotent and safe to call from any state.
func (e *SimulationEngine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}

	e.setState(StateStopping)
	close(e.stopCh)

	select {
	case <-e.doneCh:
	case <-time.After(stopJoinTimeout):
		log.Printf("simulation engine: loop did not exit within %v",
			stopJoinTimeout)
	}

	e.bus.StopProcessing()
	e.bus.CreateAndPublish(
		EventSimulationEnded, engineSourceID, nil, nil, nil, PriorityHigh)

	e.setState(StateStopped)
}

// Pause makes the loop spin without advancing simulation time. Pausing
// before Start makes the run begin paused, which is handy for driving
// iterations one Step at a time.
func (e *SimulationEngine) Pause() {
	if !e.paused.CompareAndSwap(false, true) {
		return
	}

	if !e.running.Load() {
		return
	}

	e.setState(StatePaused)
	e.bus.CreateAndPublish(
		EventSimulationPaused, engineSourceID, nil, nil, nil, PriorityNormal)
}

// Resume lifts a pause. The pacing clock is reset so the first iteration
// after the pause is not charged for the paused duration.
func (e *SimulationEngine) Resume() {
	if !e.paused.CompareAndSwap(true, false) {
		return
	}

	e.mu.Lock()
	e.lastFrame = time.Now()
	e.mu.Unlock()

	if e.running.Load() {
		e.setState(StateRunning)
	}
}

// Step executes exactly one iteration synchronously. It requires a
// running engine but not the background loop, so a paused run can be
// driven deterministically one step at a time. It returns false if the
// engine is not running or the iteration failed.
func (e *SimulationEngine) Step() bool {
	if !e.running.Load() {
		return false
	}

	return e.executeIteration()
}

// Running tells if a run is in progress.
func (e *SimulationEngine) Running() bool {
	return e.running.Load()
}

// Paused tells if the loop is currently paused.
func (e *SimulationEngine) Paused() bool {
	return e.paused.Load()
}

// State returns the current lifecycle state.
func (e *SimulationEngine) State() SimulationState {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	return e.context.State
}

// Status returns a snapshot of the run. It is safe to call from the
// engine's own callbacks.
func (e *SimulationEngine) Status() Status {
	e.statusMu.Lock()
	snap := e.statusSnap
	e.statusMu.Unlock()

	snap.State = e.State()
	snap.Running = e.running.Load()
	snap.Paused = e.paused.Load()

	return snap
}

func (e *SimulationEngine) mainLoop() {
	defer close(e.doneCh)

	e.runLoop()
	e.finishRun()
}

func (e *SimulationEngine) runLoop() {
	for e.running.Load() && e.context.ShouldContinue {
		if e.paused.Load() {
			e.sleepInterruptible(pauseSpinInterval)
			continue
		}

		frameStart := time.Now()
		e.executeIteration()
		e.pace(frameStart)

		if e.shouldTerminate() {
			return
		}
	}
}

// finishRun handles a loop that exited on its own. A loop stopped through
// Stop leaves the shutdown work to Stop instead.
func (e *SimulationEngine) finishRun() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}

	e.bus.StopProcessing()
	e.bus.CreateAndPublish(
		EventSimulationEnded, engineSourceID, nil, nil, nil, PriorityHigh)

	// A run that died on the error ceiling keeps its error state.
	if e.State() != StateError {
		e.setState(StateCompleted)
	}
}

// executeIteration runs the per-iteration algorithm: timing, phases in
// priority order, metrics, callback, periodic performance events. It
// returns false when a phase failed.
func (e *SimulationEngine) executeIteration() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	iterStart := time.Now()
	delta := iterStart.Sub(e.lastFrame)
	e.lastFrame = iterStart

	ctx := e.context
	ctx.updateTiming(delta)
	ctx.Metrics.UpdateFPS(ctx.DeltaTime)

	for _, phase := range e.phases {
		if !phase.Enabled() {
			continue
		}

		phaseStart := time.Now()
		err := safeExecutePhase(phase, ctx)
		phaseTime := time.Since(phaseStart)

		phase.recordExecution(phaseTime)
		ctx.Metrics.AddPhaseTime(
			phase.Name(), float64(phaseTime)/float64(time.Millisecond))

		if err != nil {
			log.Printf("simulation engine: phase %s failed: %v",
				phase.Name(), err)
			e.handleError(err)
			e.refreshStatus()
			return false
		}
	}

	iterTime := time.Since(iterStart)
	if iterTime > e.config.MaxLoopTime {
		log.Printf("simulation engine: iteration %d took %v, budget is %v",
			ctx.IterationCount, iterTime, e.config.MaxLoopTime)
	}

	ctx.Metrics.AverageLoopTime = VTimeInSec(iterTime.Seconds())
	ctx.Metrics.ActiveAgents = e.countAliveAgents()

	ctx.ConsecutiveErrors = 0
	e.refreshStatus()

	if e.OnIterationComplete != nil {
		e.OnIterationComplete(ctx)
	}

	if iterStart.Sub(e.lastMetricsUpdate) >= e.config.MetricsInterval {
		e.publishPerformanceMetrics()
		e.lastMetricsUpdate = iterStart
	}

	return true
}

func safeExecutePhase(p Phase, ctx *SimulationContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("phase panic: %v", r)
		}
	}()

	return p.Execute(ctx)
}

func (e *SimulationEngine) countAliveAgents() int {
	alive := 0
	for _, a := range e.context.Agents {
		if a.Alive() {
			alive++
		}
	}

	return alive
}

// handleError applies the recovery policy to one failed iteration.
// Callers must hold mu.
func (e *SimulationEngine) handleError(err error) {
	ctx := e.context
	ctx.ConsecutiveErrors++
	ctx.LastError = err

	if e.OnError != nil {
		e.OnError(err)
	}

	e.bus.CreateAndPublish(
		EventErrorOccurred,
		engineSourceID,
		nil,
		Payload{
			"error_type":    fmt.Sprintf("%T", err),
			"error_message": err.Error(),
		},
		nil,
		PriorityHigh,
	)

	if ctx.ConsecutiveErrors >= e.config.MaxConsecutiveErrors {
		e.setState(StateError)
		return
	}

	e.sleepInterruptible(e.config.ErrorRecoveryDelay)
}

// publishPerformanceMetrics refreshes the system-health and queue-depth
// metrics and publishes the summary as a background-priority event.
// Callers must hold mu.
func (e *SimulationEngine) publishPerformanceMetrics() {
	metrics := e.context.Metrics

	if e.sampler != nil {
		memMB, cpuPercent, err := e.sampler.Sample()
		if err == nil {
			metrics.MemoryUsageMB = memMB
			metrics.CPUUsagePercent = cpuPercent
		}
	}

	metrics.EventQueueDepth = e.bus.QueueDepth()

	e.bus.CreateAndPublish(
		EventPerformanceMetric,
		engineSourceID,
		nil,
		metrics.PerformanceSummary(),
		nil,
		PriorityBackground,
	)
}

// pace sleeps away the remainder of the frame budget. A frame that
// overran its budget is not slept for at all.
func (e *SimulationEngine) pace(frameStart time.Time) {
	elapsed := time.Since(frameStart)
	remaining := e.config.targetFrameTime() - elapsed

	if remaining > 0 {
		e.sleepInterruptible(remaining)
	}
}

// sleepInterruptible sleeps for the given duration, waking early when the
// run is being stopped.
func (e *SimulationEngine) sleepInterruptible(d time.Duration) {
	stopCh := e.stopCh
	if stopCh == nil {
		time.Sleep(d)
		return
	}

	select {
	case <-stopCh:
	case <-time.After(d):
	}
}

// shouldTerminate checks the termination predicates once per iteration.
func (e *SimulationEngine) shouldTerminate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx := e.context
	cfg := e.config

	if cfg.MaxSimulationTime > 0 && ctx.SimulationTime >= cfg.MaxSimulationTime {
		log.Printf("simulation engine: simulation time limit reached")
		return true
	}

	if cfg.MaxIterations > 0 && ctx.IterationCount >= cfg.MaxIterations {
		log.Printf("simulation engine: iteration limit reached")
		return true
	}

	if ctx.ConsecutiveErrors >= cfg.MaxConsecutiveErrors {
		log.Printf("simulation engine: too many consecutive errors")
		return true
	}

	return false
}

func (e *SimulationEngine) setState(s SimulationState) {
	e.stateMu.Lock()
	old := e.context.State
	e.context.State = s
	e.stateMu.Unlock()

	if old != s {
		log.Printf("simulation engine: state changed %s -> %s", old, s)

		if e.OnStateChanged != nil {
			e.OnStateChanged(s)
		}
	}
}

// refreshStatus copies the loop-owned context fields into the snapshot
// that Status reads. Callers must hold mu.
func (e *SimulationEngine) refreshStatus() {
	ctx := e.context

	e.statusMu.Lock()
	e.statusSnap.SimulationTime = ctx.SimulationTime
	e.statusSnap.IterationCount = ctx.IterationCount
	e.statusSnap.ActiveAgents = e.countAliveAgents()
	e.statusSnap.ConsecutiveErrors = ctx.ConsecutiveErrors
	e.statusSnap.LastError = ctx.LastError
	e.statusSnap.Metrics = ctx.Metrics.PerformanceSummary()
	e.statusMu.Unlock()
}
