package sim

import (
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("eventQueue", func() {
	var queue *eventQueue

	BeforeEach(func() {
		queue = newEventQueue()
	})

	It("should pop in priority order", func() {
		numEvents := 100
		for i := 0; i < numEvents; i++ {
			evt := NewEvent(EventDebugInfo,
				EventPriority(rand.Intn(5)))
			evt.seq = uint64(i)
			queue.push(evt)
		}

		prev := PriorityCritical
		for i := 0; i < numEvents; i++ {
			evt := queue.pop()
			Expect(evt.Priority >= prev).To(BeTrue())
			prev = evt.Priority
		}
		Expect(queue.len()).To(Equal(0))
	})

	It("should break priority ties by timestamp", func() {
		base := time.Now()

		late := NewEvent(EventDebugInfo, PriorityNormal)
		late.Timestamp = base.Add(time.Second)
		late.seq = 1

		early := NewEvent(EventDebugInfo, PriorityNormal)
		early.Timestamp = base
		early.seq = 2

		queue.push(late)
		queue.push(early)

		Expect(queue.pop()).To(BeIdenticalTo(early))
		Expect(queue.pop()).To(BeIdenticalTo(late))
	})

	It("should keep publish order for identical priority and timestamp", func() {
		base := time.Now()

		first := NewEvent(EventDebugInfo, PriorityNormal)
		first.Timestamp = base
		first.seq = 1

		second := NewEvent(EventDebugInfo, PriorityNormal)
		second.Timestamp = base
		second.seq = 2

		queue.push(second)
		queue.push(first)

		Expect(queue.pop()).To(BeIdenticalTo(first))
		Expect(queue.pop()).To(BeIdenticalTo(second))
	})
})
