package sim

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// DefaultBusCapacity bounds the event queue when no capacity is given.
const DefaultBusCapacity = 10000

// busPollInterval is how long the background worker sleeps between
// dispatch batches. Stop requests are honored within one interval.
const busPollInterval = time.Millisecond

// busStopTimeout bounds the wait for the background worker on stop.
const busStopTimeout = time.Second

// A Handler consumes events dispatched by the bus. Handlers are consulted
// in ascending Priority order. The first handler whose Handle call
// succeeds claims the event and ends the chain; a failing handler does
// not stop the chain.
type Handler interface {
	// CanHandle tells if the handler is interested in the event.
	CanHandle(e *Event) bool

	// Handle processes the event. A nil return claims the event.
	Handle(e *Event) error

	// Priority orders handlers. Lower values are consulted first.
	Priority() int
}

// BusStatistics is a snapshot of the bus counters.
type BusStatistics struct {
	EventsPublished uint64
	EventsProcessed uint64
	EventsDropped   uint64
	QueueDepth      int
	HandlerCount    int
	FilterCount     int

	// AvgProcessingTime is the mean wall-clock time one dispatch took,
	// over the recent history window.
	AvgProcessingTime time.Duration
}

// An EventBus decouples event producers from consumers. Events are held
// in a bounded priority queue ordered by (priority, timestamp, seq) and
// dispatched to registered handlers either synchronously through
// ProcessEvents or continuously on a background worker.
//
// Publish and ProcessEvents are safe to call concurrently. The bus is
// constructed explicitly and passed by reference to whoever composes a
// simulation; there is no hidden process-wide instance.
type EventBus struct {
	HookableBase

	mu       sync.Mutex
	queue    *eventQueue
	capacity int
	handlers []Handler
	filters  []*EventFilter
	nextSeq  uint64

	eventsPublished uint64
	eventsProcessed uint64
	eventsDropped   uint64
	procTimes       []time.Duration

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewEventBus creates a bus with the given queue capacity. A
// non-positive capacity selects DefaultBusCapacity.
func NewEventBus(capacity int) *EventBus {
	if capacity <= 0 {
		capacity = DefaultBusCapacity
	}

	return &EventBus{
		queue:    newEventQueue(),
		capacity: capacity,
	}
}

// RegisterHandler adds a handler to the dispatch chain, keeping the chain
// sorted by ascending handler priority.
func (b *EventBus) RegisterHandler(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers = append(b.handlers, h)
	sort.SliceStable(b.handlers, func(i, j int) bool {
		return b.handlers[i].Priority() < b.handlers[j].Priority()
	})
}

// UnregisterHandler removes a handler from the dispatch chain.
func (b *EventBus) UnregisterHandler(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, registered := range b.handlers {
		if registered == h {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return
		}
	}
}

// AddFilter adds a publish-time filter. An event must pass every
// registered filter to be accepted, so adding a filter can only shrink
// the set of delivered events.
func (b *EventBus) AddFilter(f *EventFilter) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.filters = append(b.filters, f)
}

// RemoveFilter removes a previously added filter.
func (b *EventBus) RemoveFilter(f *EventFilter) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, registered := range b.filters {
		if registered == f {
			b.filters = append(b.filters[:i], b.filters[i+1:]...)
			return
		}
	}
}

// Publish offers an event to the bus. It returns false, and counts the
// event as dropped, if any filter rejects it or the queue is full. A full
// queue is a rejection, never a wait.
func (b *EventBus) Publish(e *Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, f := range b.filters {
		if !f.Matches(e) {
			b.eventsDropped++
			return false
		}
	}

	if b.queue.len() >= b.capacity {
		b.eventsDropped++
		return false
	}

	b.nextSeq++
	e.seq = b.nextSeq
	b.queue.push(e)
	b.eventsPublished++

	return true
}

// CreateAndPublish builds an event and publishes it in one call. It
// returns the event ID, or an empty string if the event was rejected.
func (b *EventBus) CreateAndPublish(
	t EventType,
	sourceID string,
	targetIDs []string,
	data Payload,
	position *Vec2,
	priority EventPriority,
) string {
	e := NewEvent(t, priority)
	e.SourceID = sourceID
	e.TargetIDs = targetIDs
	e.Position = position
	if data != nil {
		e.Data = data
	}

	if !b.Publish(e) {
		return ""
	}

	return e.ID
}

// ProcessEvents dequeues and dispatches up to maxEvents ready events and
// returns the number dispatched. Within one call, events are delivered
// strictly in (priority, timestamp) order. Handler failures are logged
// and do not stop the batch.
func (b *EventBus) ProcessEvents(maxEvents int) int {
	processed := 0

	for processed < maxEvents {
		evt, handlers := b.takeNext()
		if evt == nil {
			break
		}

		start := time.Now()
		b.dispatch(evt, handlers)
		evt.markProcessed(time.Now())

		b.recordDispatch(time.Since(start))
		processed++
	}

	return processed
}

// takeNext pops the next event and snapshots the handler chain under one
// lock acquisition. Dispatch happens outside the lock so that handlers
// can publish follow-up events without deadlocking.
func (b *EventBus) takeNext() (*Event, []Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queue.len() == 0 {
		return nil, nil
	}

	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)

	return b.queue.pop(), handlers
}

func (b *EventBus) dispatch(evt *Event, handlers []Handler) {
	hookCtx := HookCtx{
		Domain: b,
		Pos:    HookPosBeforeDispatch,
		Item:   evt,
	}
	b.InvokeHook(hookCtx)

	claimed := false
	for _, h := range handlers {
		if !h.CanHandle(evt) {
			continue
		}

		if err := safeHandle(h, evt); err != nil {
			log.Printf("event bus: handler error on %s event %s: %v",
				evt.Type, evt.ID, err)
			continue
		}

		claimed = true
		break
	}

	hookCtx.Pos = HookPosAfterDispatch
	hookCtx.Detail = claimed
	b.InvokeHook(hookCtx)
}

func safeHandle(h Handler, evt *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return h.Handle(evt)
}

func (b *EventBus) recordDispatch(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.eventsProcessed++
	b.procTimes = append(b.procTimes, d)

	// Keep the latency history bounded.
	if len(b.procTimes) > 1000 {
		b.procTimes = append([]time.Duration{}, b.procTimes[500:]...)
	}
}

// StartProcessing launches the background worker that drains the queue
// continuously. Starting an already running bus is a no-op.
func (b *EventBus) StartProcessing() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return
	}

	b.running = true
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})

	go b.processingLoop(b.stopCh, b.doneCh)
}

// StopProcessing asks the background worker to exit and waits for it with
// a bounded timeout. Stopping a bus that is not running is a no-op, so
// the call is idempotent and safe from any state, including from inside a
// handler.
func (b *EventBus) StopProcessing() {
	b.mu.Lock()

	if !b.running {
		b.mu.Unlock()
		return
	}

	b.running = false
	close(b.stopCh)
	doneCh := b.doneCh
	b.mu.Unlock()

	select {
	case <-doneCh:
	case <-time.After(busStopTimeout):
		log.Printf("event bus: worker did not stop within %v", busStopTimeout)
	}
}

func (b *EventBus) processingLoop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		b.ProcessEvents(50)
		time.Sleep(busPollInterval)
	}
}

// QueueDepth returns the number of events waiting in the queue.
func (b *EventBus) QueueDepth() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.queue.len()
}

// ClearQueue drops all queued events and returns how many were dropped.
func (b *EventBus) ClearQueue() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cleared := b.queue.len()
	b.queue = newEventQueue()

	return cleared
}

// Statistics returns a snapshot of the bus counters.
func (b *EventBus) Statistics() BusStatistics {
	b.mu.Lock()
	defer b.mu.Unlock()

	var avg time.Duration
	if len(b.procTimes) > 0 {
		var total time.Duration
		for _, d := range b.procTimes {
			total += d
		}
		avg = total / time.Duration(len(b.procTimes))
	}

	return BusStatistics{
		EventsPublished:   b.eventsPublished,
		EventsProcessed:   b.eventsProcessed,
		EventsDropped:     b.eventsDropped,
		QueueDepth:        b.queue.len(),
		HandlerCount:      len(b.handlers),
		FilterCount:       len(b.filters),
		AvgProcessingTime: avg,
	}
}
