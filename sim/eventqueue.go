package sim

import (
	"container/heap"
)

// eventHeap orders events by (priority, timestamp, seq). The seq field is
// assigned by the bus at publish time, which makes the ordering total and
// keeps same-priority same-timestamp events in publish order.
type eventHeap []*Event

func (h eventHeap) Len() int {
	return len(h)
}

func (h eventHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}

	if !h[i].Timestamp.Equal(h[j].Timestamp) {
		return h[i].Timestamp.Before(h[j].Timestamp)
	}

	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	evt := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return evt
}

// eventQueue is the priority queue inside the bus. It is not safe for
// concurrent use on its own; the bus serializes access with its mutex.
type eventQueue struct {
	events eventHeap
}

func newEventQueue() *eventQueue {
	q := &eventQueue{events: make(eventHeap, 0)}
	heap.Init(&q.events)
	return q
}

func (q *eventQueue) push(evt *Event) {
	heap.Push(&q.events, evt)
}

func (q *eventQueue) pop() *Event {
	return heap.Pop(&q.events).(*Event)
}

func (q *eventQueue) len() int {
	return len(q.events)
}
