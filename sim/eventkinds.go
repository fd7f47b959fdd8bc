package sim

// The wrappers in this file give each event kind a typed surface over the
// open payload map. Constructors fill in the keys; accessors read them
// back, so producers and consumers agree on the schema without the bus
// knowing anything about it.

// A CombatEvent describes one agent attacking another.
type CombatEvent struct {
	*Event
}

// NewCombatEvent creates a high-priority attack event targeted at the
// victim.
func NewCombatEvent(
	attackerID, victimID string,
	damage float64,
	weaponType string,
	position *Vec2,
) CombatEvent {
	e := NewEvent(EventAgentAttacked, PriorityHigh)
	e.SourceID = attackerID
	e.TargetIDs = []string{victimID}
	e.Position = position
	e.Data["attacker_id"] = attackerID
	e.Data["victim_id"] = victimID
	e.Data["damage_amount"] = damage
	e.Data["weapon_type"] = weaponType

	return CombatEvent{Event: e}
}

// AsCombatEvent wraps an existing event with combat accessors.
func AsCombatEvent(e *Event) CombatEvent {
	return CombatEvent{Event: e}
}

func (e CombatEvent) AttackerID() string    { return e.Data.str("attacker_id") }
func (e CombatEvent) VictimID() string      { return e.Data.str("victim_id") }
func (e CombatEvent) DamageAmount() float64 { return e.Data.num("damage_amount") }
func (e CombatEvent) WeaponType() string    { return e.Data.str("weapon_type") }

// A MovementEvent describes an agent changing position.
type MovementEvent struct {
	*Event
}

// NewMovementEvent creates a low-priority movement event. The event
// position carries the new location; the payload carries the old one.
func NewMovementEvent(agentID string, oldPos, newPos Vec2) MovementEvent {
	e := NewEvent(EventAgentMoved, PriorityLow)
	e.SourceID = agentID
	e.Position = &newPos
	e.Data["old_x"] = oldPos.X
	e.Data["old_y"] = oldPos.Y

	return MovementEvent{Event: e}
}

// AsMovementEvent wraps an existing event with movement accessors.
func AsMovementEvent(e *Event) MovementEvent {
	return MovementEvent{Event: e}
}

// OldPosition returns the position the agent moved from.
func (e MovementEvent) OldPosition() Vec2 {
	return Vec2{X: e.Data.num("old_x"), Y: e.Data.num("old_y")}
}

// NewPosition returns the position the agent moved to.
func (e MovementEvent) NewPosition() Vec2 {
	if e.Position == nil {
		return Vec2{}
	}

	return *e.Position
}

// DistanceMoved returns the length of the move.
func (e MovementEvent) DistanceMoved() float64 {
	return e.OldPosition().DistanceTo(e.NewPosition())
}

// A CommunicationEvent carries a message between agents. An event without
// targets is a broadcast.
type CommunicationEvent struct {
	*Event
}

// NewCommunicationEvent creates a normal-priority message event. A nil or
// empty target list broadcasts the message.
func NewCommunicationEvent(
	senderID, message, commType string,
	targets []string,
) CommunicationEvent {
	e := NewEvent(EventStrategyShared, PriorityNormal)
	e.SourceID = senderID
	e.TargetIDs = targets
	e.Data["message"] = message
	e.Data["communication_type"] = commType

	return CommunicationEvent{Event: e}
}

// AsCommunicationEvent wraps an existing event with message accessors.
func AsCommunicationEvent(e *Event) CommunicationEvent {
	return CommunicationEvent{Event: e}
}

func (e CommunicationEvent) Message() string  { return e.Data.str("message") }
func (e CommunicationEvent) SenderID() string { return e.SourceID }

// CommunicationType returns the category of the message, defaulting to
// "general".
func (e CommunicationEvent) CommunicationType() string {
	if t := e.Data.str("communication_type"); t != "" {
		return t
	}

	return "general"
}

// IsBroadcast tells if the message goes to every agent.
func (e CommunicationEvent) IsBroadcast() bool {
	return len(e.TargetIDs) == 0
}
