package main

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/arenasim/arena/sim"
)

// battlefield is the demo environment: a bounded rectangle with nothing
// on it.
type battlefield struct {
	width, height float64
	elapsed       sim.VTimeInSec
}

func newBattlefield(width, height float64) *battlefield {
	return &battlefield{width: width, height: height}
}

func (b *battlefield) Update(deltaTime sim.VTimeInSec) error {
	b.elapsed += deltaTime
	return nil
}

func (b *battlefield) Info() sim.EnvironmentInfo {
	return sim.EnvironmentInfo{Width: b.width, Height: b.height}
}

// wanderer is the demo agent: it walks randomly inside the battlefield
// and reports its moves on the bus.
type wanderer struct {
	id       string
	bus      *sim.EventBus
	position sim.Vec2
	heading  sim.Vec2
	speed    float64
}

func newWanderer(id string, bus *sim.EventBus, field *battlefield) *wanderer {
	return &wanderer{
		id:  id,
		bus: bus,
		position: sim.Vec2{
			X: rand.Float64() * field.width,
			Y: rand.Float64() * field.height,
		},
		heading: randomHeading(),
		speed:   10,
	}
}

func randomHeading() sim.Vec2 {
	angle := rand.Float64() * 2 * math.Pi
	return sim.Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
}

func (w *wanderer) ID() string {
	return w.id
}

func (w *wanderer) Alive() bool {
	return true
}

func (w *wanderer) Update(deltaTime sim.VTimeInSec, info sim.EnvironmentInfo) error {
	oldPos := w.position
	w.position = w.position.Add(w.heading.Scale(w.speed * float64(deltaTime)))

	// Bounce off the battlefield edges.
	bounced := false
	if w.position.X < 0 || w.position.X > info.Width {
		w.heading.X = -w.heading.X
		bounced = true
	}
	if w.position.Y < 0 || w.position.Y > info.Height {
		w.heading.Y = -w.heading.Y
		bounced = true
	}

	if bounced {
		w.position = oldPos
		w.bus.CreateAndPublish(sim.EventBoundaryHit, w.id, nil, nil,
			&w.position, sim.PriorityLow)
		return nil
	}

	evt := sim.NewMovementEvent(w.id, oldPos, w.position)
	w.bus.Publish(evt.Event)

	return nil
}

// skirmishLogHandler prints movement summaries while the demo runs.
type skirmishLogHandler struct {
	moves int
}

func (h *skirmishLogHandler) CanHandle(e *sim.Event) bool {
	return e.Type == sim.EventAgentMoved || e.Type == sim.EventBoundaryHit
}

func (h *skirmishLogHandler) Handle(e *sim.Event) error {
	h.moves++
	if h.moves%500 == 0 {
		move := sim.AsMovementEvent(e)
		fmt.Printf("%d moves dispatched, last: %s moved %.2f\n",
			h.moves, e.SourceID, move.DistanceMoved())
	}

	return nil
}

func (h *skirmishLogHandler) Priority() int {
	return 100
}
