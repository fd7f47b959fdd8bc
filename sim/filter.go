package sim

import "time"

// An EventFilter is a conjunction of optional constraints over an event.
// A filter with no constraints matches everything. Filters are consulted
// at publish time only; an event already in the queue is never dropped
// retroactively.
type EventFilter struct {
	eventTypes map[EventType]bool
	sourceIDs  map[string]bool
	targetIDs  map[string]bool

	minPriority   *EventPriority
	maxAge        time.Duration
	maxAgeLimited bool
}

// NewEventFilter creates a filter that matches every event.
func NewEventFilter() *EventFilter {
	return &EventFilter{
		eventTypes: make(map[EventType]bool),
		sourceIDs:  make(map[string]bool),
		targetIDs:  make(map[string]bool),
	}
}

// AddEventType restricts the filter to the given event type. Calling it
// multiple times widens the accepted type set.
func (f *EventFilter) AddEventType(t EventType) *EventFilter {
	f.eventTypes[t] = true
	return f
}

// AddSourceID restricts the filter to events from the given source.
func (f *EventFilter) AddSourceID(id string) *EventFilter {
	f.sourceIDs[id] = true
	return f
}

// AddTargetID restricts the filter to events targeted at the given agent.
func (f *EventFilter) AddTargetID(id string) *EventFilter {
	f.targetIDs[id] = true
	return f
}

// SetMinPriority rejects events with a priority served later than the
// given level.
func (f *EventFilter) SetMinPriority(p EventPriority) *EventFilter {
	f.minPriority = &p
	return f
}

// SetMaxAge rejects events older than the given duration at publish time.
func (f *EventFilter) SetMaxAge(d time.Duration) *EventFilter {
	f.maxAge = d
	f.maxAgeLimited = true
	return f
}

// Matches reports whether the event satisfies every constraint of the
// filter.
func (f *EventFilter) Matches(e *Event) bool {
	if len(f.eventTypes) > 0 && !f.eventTypes[e.Type] {
		return false
	}

	if len(f.sourceIDs) > 0 && !f.sourceIDs[e.SourceID] {
		return false
	}

	if len(f.targetIDs) > 0 {
		anyTarget := false
		for _, t := range e.TargetIDs {
			if f.targetIDs[t] {
				anyTarget = true
				break
			}
		}

		if !anyTarget {
			return false
		}
	}

	if f.minPriority != nil && e.Priority > *f.minPriority {
		return false
	}

	if f.maxAgeLimited && time.Since(e.Timestamp) > f.maxAge {
		return false
	}

	return true
}
