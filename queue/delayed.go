package queue

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// DelayedElement pairs an executable with the UTC time at which it becomes
// eligible for promotion into the ready queue.
type DelayedElement struct {
	Element Executable // Executable payload
	ReadyAt time.Time  // Promotion time (UTC)
}

// DelayedElementQueue is a time-ordered delayed element queue.
// Elements are kept sorted ascending by ReadyAt at all times.
type DelayedElementQueue struct {
	mu       sync.Mutex        // Mutex to ensure thread safety
	elements []*DelayedElement // Queue sorted ascending by ReadyAt
}

// NewDelayedElementQueue creates a new DelayedElementQueue.
func NewDelayedElementQueue() *DelayedElementQueue {
	return &DelayedElementQueue{
		elements: make([]*DelayedElement, 0),
	}
}

// Add inserts the element keeping the queue sorted by ReadyAt. Elements with
// equal ReadyAt may end up in either order.
func (q *DelayedElementQueue) Add(element *DelayedElement) {
	q.mu.Lock()
	defer q.mu.Unlock()

	inserted := false
	for i, e := range q.elements {
		if e.ReadyAt.After(element.ReadyAt) {
			q.elements = append(q.elements, nil)
			copy(q.elements[i+1:], q.elements[i:])
			q.elements[i] = element
			inserted = true
			break
		}
	}
	if !inserted {
		q.elements = append(q.elements, element)
	}

	MetricsDelayedInc(1)
	log.Trace("delayed element added", "ready_at", element.ReadyAt)
}

// TryPop removes and returns the head element when its ReadyAt has passed.
// Returns false when the queue is empty or the head is not yet due.
func (q *DelayedElementQueue) TryPop() (*DelayedElement, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.elements) == 0 {
		return nil, false
	}
	head := q.elements[0]
	if time.Now().UTC().Before(head.ReadyAt) {
		return nil, false
	}
	q.elements = q.elements[1:]

	MetricsDelayedDec(1)
	log.Trace("delayed element due", "ready_at", head.ReadyAt)
	return head, true
}

// Len returns the number of delayed elements.
func (q *DelayedElementQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.elements)
}
