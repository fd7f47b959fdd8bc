package sim

import (
	"time"
)

// An EventType tags an event with its domain meaning. The set is closed;
// handlers switch on the type to decide whether they care about an event.
type EventType string

// Combat events.
const (
	EventAgentAttacked EventType = "agent_attacked"
	EventAgentDamaged  EventType = "agent_damaged"
	EventAgentKilled   EventType = "agent_killed"
	EventAgentHealed   EventType = "agent_healed"
	EventWeaponFired   EventType = "weapon_fired"
)

// Movement events.
const (
	EventAgentMoved      EventType = "agent_moved"
	EventAgentCollided   EventType = "agent_collided"
	EventAgentStuck      EventType = "agent_stuck"
	EventPositionReached EventType = "position_reached"
)

// Perception events.
const (
	EventEnemySpotted   EventType = "enemy_spotted"
	EventEnemyLost      EventType = "enemy_lost"
	EventAllySpotted    EventType = "ally_spotted"
	EventThreatDetected EventType = "threat_detected"
)

// Communication events.
const (
	EventHelpRequested       EventType = "help_requested"
	EventStrategyShared      EventType = "strategy_shared"
	EventWarningIssued       EventType = "warning_issued"
	EventCoordinationRequest EventType = "coordination_request"
)

// Environment events.
const (
	EventTerrainChanged EventType = "terrain_changed"
	EventObstacleAdded  EventType = "obstacle_added"
	EventItemSpawned    EventType = "item_spawned"
	EventBoundaryHit    EventType = "boundary_hit"
)

// Simulation lifecycle events.
const (
	EventSimulationStarted EventType = "simulation_started"
	EventSimulationPaused  EventType = "simulation_paused"
	EventSimulationEnded   EventType = "simulation_ended"
	EventRoundStarted      EventType = "round_started"
	EventRoundEnded        EventType = "round_ended"
)

// System events.
const (
	EventErrorOccurred     EventType = "error_occurred"
	EventDebugInfo         EventType = "debug_info"
	EventPerformanceMetric EventType = "performance_metric"
)

// EventPriority orders events in the bus queue. A lower value is served
// first.
type EventPriority int

// The five priority levels, from served-first to served-last.
const (
	PriorityCritical EventPriority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityBackground
)

func (p EventPriority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityBackground:
		return "background"
	}

	return "unknown"
}

// Payload is the open key-value data attached to an event. The bus treats
// it as opaque transport. Each event kind defines typed accessors over the
// keys it uses, so handlers do not perform untyped lookups.
type Payload map[string]any

func (p Payload) str(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p Payload) num(key string) float64 {
	f, _ := p[key].(float64)
	return f
}

// An Event is something that happened on the battlefield and needs to be
// delivered to interested handlers. An empty target list means broadcast.
type Event struct {
	ID        string
	Type      EventType
	Priority  EventPriority
	Timestamp time.Time

	SourceID  string
	TargetIDs []string

	Data     Payload
	Position *Vec2

	// seq breaks ordering ties between events that carry the same priority
	// and timestamp. Assigned by the bus at publish time.
	seq uint64

	processed      bool
	processingTime time.Time
}

// NewEvent creates an event of the given type with a fresh ID and the
// current time as its timestamp.
func NewEvent(t EventType, priority EventPriority) *Event {
	return &Event{
		ID:        GetIDGenerator().Generate(),
		Type:      t,
		Priority:  priority,
		Timestamp: time.Now(),
		Data:      Payload{},
	}
}

// IsTargetedAt tells if the event should be seen by the given agent. An
// event without targets is a broadcast and is targeted at everyone.
func (e *Event) IsTargetedAt(agentID string) bool {
	if len(e.TargetIDs) == 0 {
		return true
	}

	for _, id := range e.TargetIDs {
		if id == agentID {
			return true
		}
	}

	return false
}

// AddTarget adds a target to the event. Adding the same target twice is a
// no-op.
func (e *Event) AddTarget(agentID string) {
	for _, id := range e.TargetIDs {
		if id == agentID {
			return
		}
	}

	e.TargetIDs = append(e.TargetIDs, agentID)
}

// Processed tells if the event has completed dispatch.
func (e *Event) Processed() bool {
	return e.processed
}

// ProcessingDelay returns the time between the event creation and the
// completion of its dispatch. It returns zero for unprocessed events.
func (e *Event) ProcessingDelay() time.Duration {
	if !e.processed {
		return 0
	}

	return e.processingTime.Sub(e.Timestamp)
}

// markProcessed records the completion of the dispatch. The transition
// happens at most once; later calls do nothing.
func (e *Event) markProcessed(now time.Time) {
	if e.processed {
		return
	}

	e.processed = true
	e.processingTime = now
}
