package command

import (
	"context"
	"sync"
)

// DefaultCapacity bounds the normal lane when NewQueue is given zero.
const DefaultCapacity = 64

// Stats is a snapshot of queue counters.
type Stats struct {
	Pushed     uint64
	Dropped    uint64
	Coalesced  uint64
	Superseded uint64

	PriorityDepth int
	NormalDepth   int
}

// Queue is the engine's inbox. Two lanes: a priority lane for StopAll
// and Exit that is never dropped and always drained first, and a bounded
// normal lane that sheds its oldest event when full. Push never blocks;
// the engine consumes via Ready + TryNext so it can select over other
// channels, or via Next when it only waits on the queue.
type Queue struct {
	mu       sync.Mutex
	priority []Event
	normal   []Event
	capacity int
	ready    chan struct{}

	pushed     uint64
	dropped    uint64
	coalesced  uint64
	superseded uint64
}

// NewQueue creates a queue with the given normal-lane capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		capacity: capacity,
		ready:    make(chan struct{}, 1),
	}
}

// Push enqueues an event. Full normal lane drops the oldest normal
// event; priority events always land. A priority event also supersedes
// every mode request queued before it: a stop must never be followed
// by a stale mode entry.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	q.pushed++
	if ev.Kind.Priority() {
		q.priority = append(q.priority, ev)
		kept := q.normal[:0]
		for _, queued := range q.normal {
			if queued.Kind == KindSelectMode {
				q.superseded++
				continue
			}
			kept = append(kept, queued)
		}
		q.normal = kept
	} else {
		if len(q.normal) >= q.capacity {
			copy(q.normal, q.normal[1:])
			q.normal = q.normal[:len(q.normal)-1]
			q.dropped++
		}
		q.normal = append(q.normal, ev)
	}
	q.mu.Unlock()
	q.signal()
}

// Ready signals when at least one event may be available. After waking,
// call TryNext until it reports empty.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// TryNext pops the next event without blocking. Priority lane first.
func (q *Queue) TryNext() (Event, bool) {
	q.mu.Lock()
	var ev Event
	var ok bool
	switch {
	case len(q.priority) > 0:
		ev, ok = q.priority[0], true
		q.priority = append(q.priority[:0], q.priority[1:]...)
	case len(q.normal) > 0:
		ev, ok = q.normal[0], true
		q.normal = append(q.normal[:0], q.normal[1:]...)
	}
	remaining := len(q.priority)+len(q.normal) > 0
	q.mu.Unlock()

	if remaining {
		q.signal()
	}
	return ev, ok
}

// Next blocks until an event is available or the context ends.
func (q *Queue) Next(ctx context.Context) (Event, error) {
	for {
		if ev, ok := q.TryNext(); ok {
			return ev, nil
		}
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// CoalesceSelect implements latest-wins for mode selection: given a
// SelectMode event just dequeued, it removes every SelectMode still
// queued in the normal lane and returns the newest of them, or ev itself
// when none are queued. The count of superseded events is returned.
func (q *Queue) CoalesceSelect(ev Event) (Event, int) {
	if ev.Kind != KindSelectMode {
		return ev, 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	winner := ev
	removed := 0
	kept := q.normal[:0]
	for _, queued := range q.normal {
		if queued.Kind == KindSelectMode {
			winner = queued
			removed++
			continue
		}
		kept = append(kept, queued)
	}
	q.normal = kept
	q.coalesced += uint64(removed)
	return winner, removed
}

// Depth returns the total number of queued events.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.priority) + len(q.normal)
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Pushed:        q.pushed,
		Dropped:       q.dropped,
		Coalesced:     q.coalesced,
		Superseded:    q.superseded,
		PriorityDepth: len(q.priority),
		NormalDepth:   len(q.normal),
	}
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
