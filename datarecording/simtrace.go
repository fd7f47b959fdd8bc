package datarecording

import (
	"sync"
	"time"

	"github.com/arenasim/arena/sim"
)

// IterationSample is one row of the iteration trace table.
type IterationSample struct {
	Iteration      uint64
	SimulationTime float64
	DeltaTime      float64
	FPS            float64
	LoopTimeMS     float64
	ActiveAgents   int
	QueueDepth     int
}

// EventRecord is one row of the dispatched-event table.
type EventRecord struct {
	ID       string
	Type     string
	Priority int
	SourceID string
	DelayMS  float64
}

// A SimTracer records iteration samples and dispatched events into a
// DataRecorder. Attach RecordIteration as the engine's
// iteration-complete callback and the tracer itself as a bus hook.
//
// The engine loop and the bus worker both write through the tracer, so
// recorder access is serialized with a mutex.
type SimTracer struct {
	mu       sync.Mutex
	recorder DataRecorder
}

// NewSimTracer creates the trace tables and returns the tracer.
func NewSimTracer(recorder DataRecorder) *SimTracer {
	recorder.CreateTable("iterations", IterationSample{})
	recorder.CreateTable("events", EventRecord{})

	return &SimTracer{recorder: recorder}
}

// RecordIteration stores one iteration sample. It reads only the context
// it is handed, on the engine's own loop.
func (t *SimTracer) RecordIteration(ctx *sim.SimulationContext) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recorder.InsertData("iterations", IterationSample{
		Iteration:      ctx.IterationCount,
		SimulationTime: float64(ctx.SimulationTime),
		DeltaTime:      float64(ctx.DeltaTime),
		FPS:            ctx.Metrics.ActualFPS,
		LoopTimeMS:     float64(ctx.Metrics.AverageLoopTime) * 1000,
		ActiveAgents:   ctx.Metrics.ActiveAgents,
		QueueDepth:     ctx.Metrics.EventQueueDepth,
	})
}

// Func records every event the bus finished dispatching.
func (t *SimTracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterDispatch {
		return
	}

	evt, ok := ctx.Item.(*sim.Event)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.recorder.InsertData("events", EventRecord{
		ID:       evt.ID,
		Type:     string(evt.Type),
		Priority: int(evt.Priority),
		SourceID: evt.SourceID,
		DelayMS:  float64(evt.ProcessingDelay()) / float64(time.Millisecond),
	})
}
