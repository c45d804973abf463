// Package queue implements a single-consumer, delay-aware executable queue.
//
// A PollingExecutableQueue owns one ready queue, two delayed element queues
// (one promoting to the front, one to the end) and two background goroutines:
// the executor, which serially pops and runs payloads, and the promoter, which
// moves due delayed elements into the ready queue once per poll interval.
// Execution results are routed to a caller-supplied ExecutionHook; payloads
// never run on the caller's goroutine.
package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

var (
	// ErrDisposed is returned by insertions on a disposed queue.
	ErrDisposed = errors.New("executable queue disposed")
	// ErrDrainInProgress is returned when WaitUntilEmpty is called while
	// another caller is already waiting.
	ErrDrainInProgress = errors.New("wait until empty already in progress")
)

// ExecutableQueue is the public insertion surface of the polling queue.
type ExecutableQueue interface {
	// InsertAtFront inserts the executable at the front of the ready queue.
	InsertAtFront(element Executable) error
	// AppendToEnd appends the executable to the end of the ready queue.
	AppendToEnd(element Executable) error
	// InsertAtFrontAt inserts the executable at the front of the ready queue
	// once the given UTC time has passed.
	InsertAtFrontAt(element Executable, at time.Time) error
	// AppendToEndAt appends the executable to the end of the ready queue once
	// the given UTC time has passed.
	AppendToEndAt(element Executable, at time.Time) error
	// InsertAtFrontAfter inserts the executable at the front of the ready
	// queue once the delay has elapsed.
	InsertAtFrontAfter(element Executable, delay time.Duration) error
	// AppendToEndAfter appends the executable to the end of the ready queue
	// once the delay has elapsed.
	AppendToEndAfter(element Executable, delay time.Duration) error
	// WaitUntilEmpty blocks until the executor observes an empty ready queue
	// with no payload in flight. A single waiter is supported at a time.
	WaitUntilEmpty() error
	// Dispose stops both background goroutines and joins them. Idempotent.
	Dispose()
}

// ExecutionHook supplies per-invocation parameters and consumes results. The
// hook is invoked on the executor goroutine, outside the queue lock.
type ExecutionHook interface {
	// ExecutionParameters is called once per execution, immediately before the
	// payload is invoked. The returned map is passed to Executable.Execute.
	ExecutionParameters() map[string]any
	// HandleResult is called once per execution with the payload's result.
	HandleResult(result any)
}

// FailureResulter is implemented by hooks that can produce a synthetic result
// for a failed payload. When the hook does not implement it, payload errors
// are logged and dropped.
type FailureResulter interface {
	FailureResult(err error) any
}

// PollingExecutableQueue is the polling implementation of ExecutableQueue.
type PollingExecutableQueue struct {
	config Config
	hook   ExecutionHook

	mu    sync.Mutex   // Guards the ready queue and the drain handshake
	queue []Executable // Ready queue; front insertions land at index 0

	frontDelayed *DelayedElementQueue // Promoted to the front of the ready queue
	endDelayed   *DelayedElementQueue // Promoted to the end of the ready queue

	waitingForEmpty atomic.Bool   // Set by the drain waiter, read by the executor
	emptyWait       chan struct{} // Executor -> waiter: queue just became empty
	emptyDone       chan struct{} // Waiter -> executor: proceed
	draining        atomic.Bool   // Single-slot drain admission

	active      atomic.Bool // Cleared by Dispose; both loops exit on the next check
	wg          sync.WaitGroup
	disposeOnce sync.Once
}

// NewPollingExecutableQueue creates the queue and starts its executor and
// promoter goroutines.
func NewPollingExecutableQueue(config Config, hook ExecutionHook) *PollingExecutableQueue {
	q := &PollingExecutableQueue{
		config:       config.sanitized(),
		hook:         hook,
		queue:        make([]Executable, 0),
		frontDelayed: NewDelayedElementQueue(),
		endDelayed:   NewDelayedElementQueue(),
		emptyWait:    make(chan struct{}, 1),
		emptyDone:    make(chan struct{}, 1),
	}
	q.active.Store(true)
	q.wg.Add(2)
	go q.promoteLoop()
	go q.executeLoop()
	return q
}

// promoteLoop drains due delayed elements into the ready queue once per poll
// interval, front-bound elements first.
func (q *PollingExecutableQueue) promoteLoop() {
	defer q.wg.Done()
	for q.active.Load() {
		time.Sleep(q.config.PollInterval)
		for {
			element, ok := q.frontDelayed.TryPop()
			if !ok {
				break
			}
			if err := q.InsertAtFront(element.Element); err != nil {
				return
			}
		}
		for {
			element, ok := q.endDelayed.TryPop()
			if !ok {
				break
			}
			if err := q.AppendToEnd(element.Element); err != nil {
				return
			}
		}
	}
}

// executeLoop serially pops and runs ready payloads. When the ready queue is
// empty and a drain waiter is parked, the loop signals the waiter and holds
// the queue lock until the waiter acknowledges.
func (q *PollingExecutableQueue) executeLoop() {
	defer q.wg.Done()
	for q.active.Load() {
		var element Executable
		q.mu.Lock()
		if len(q.queue) != 0 {
			element = q.queue[len(q.queue)-1]
			q.queue = q.queue[:len(q.queue)-1]
		} else if q.waitingForEmpty.Load() {
			q.emptyWait <- struct{}{}
			<-q.emptyDone
		}
		q.mu.Unlock()
		if element == nil {
			time.Sleep(q.config.PollInterval)
			continue
		}
		MetricsPendingDec(1)
		q.execute(element)
	}
}

// execute runs a single payload outside the queue lock and routes its result.
// Payload and hook failures are contained; the executor stays alive.
func (q *PollingExecutableQueue) execute(element Executable) {
	defer MetricsExecuteCost(time.Now())
	defer func() {
		if r := recover(); r != nil {
			MetricsExecuteFailure()
			log.Error("queue execution panicked", "panic", r)
		}
	}()

	result, err := element.Execute(q.hook.ExecutionParameters())
	if err != nil {
		MetricsExecuteFailure()
		if fr, ok := q.hook.(FailureResulter); ok {
			q.hook.HandleResult(fr.FailureResult(err))
			return
		}
		log.Warn("queue execution failed", "err", err)
		return
	}
	MetricsExecuteSuccess()
	q.hook.HandleResult(result)
}

// InsertAtFront inserts the executable at the front of the ready queue.
func (q *PollingExecutableQueue) InsertAtFront(element Executable) error {
	if !q.active.Load() {
		return ErrDisposed
	}
	q.mu.Lock()
	q.queue = append(q.queue, nil)
	copy(q.queue[1:], q.queue)
	q.queue[0] = element
	q.mu.Unlock()

	MetricsPendingInc(1)
	log.Trace("queue element inserted at front")
	return nil
}

// AppendToEnd appends the executable to the end of the ready queue.
func (q *PollingExecutableQueue) AppendToEnd(element Executable) error {
	if !q.active.Load() {
		return ErrDisposed
	}
	q.mu.Lock()
	q.queue = append(q.queue, element)
	q.mu.Unlock()

	MetricsPendingInc(1)
	log.Trace("queue element appended to end")
	return nil
}

// InsertAtFrontAt inserts the executable at the front of the ready queue once
// the given UTC time has passed.
func (q *PollingExecutableQueue) InsertAtFrontAt(element Executable, at time.Time) error {
	if !q.active.Load() {
		return ErrDisposed
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	q.frontDelayed.Add(&DelayedElement{Element: element, ReadyAt: at.UTC()})
	return nil
}

// AppendToEndAt appends the executable to the end of the ready queue once the
// given UTC time has passed.
func (q *PollingExecutableQueue) AppendToEndAt(element Executable, at time.Time) error {
	if !q.active.Load() {
		return ErrDisposed
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	q.endDelayed.Add(&DelayedElement{Element: element, ReadyAt: at.UTC()})
	return nil
}

// InsertAtFrontAfter inserts the executable at the front of the ready queue
// once the delay has elapsed.
func (q *PollingExecutableQueue) InsertAtFrontAfter(element Executable, delay time.Duration) error {
	return q.InsertAtFrontAt(element, time.Now().UTC().Add(delay))
}

// AppendToEndAfter appends the executable to the end of the ready queue once
// the delay has elapsed.
func (q *PollingExecutableQueue) AppendToEndAfter(element Executable, delay time.Duration) error {
	return q.AppendToEndAt(element, time.Now().UTC().Add(delay))
}

// WaitUntilEmpty blocks until the executor observes an empty ready queue with
// no payload in flight. Delayed elements whose ready time has not arrived are
// not awaited. Only one waiter is supported at a time.
func (q *PollingExecutableQueue) WaitUntilEmpty() error {
	if !q.active.Load() {
		return ErrDisposed
	}
	if !q.draining.CompareAndSwap(false, true) {
		return ErrDrainInProgress
	}
	defer q.draining.Store(false)

	q.waitingForEmpty.Store(true)
	<-q.emptyWait
	q.waitingForEmpty.Store(false)
	q.emptyDone <- struct{}{}
	return nil
}

// Dispose stops both background goroutines and joins them. The in-flight
// payload, if any, is drained first. Elements still in the delayed queues are
// dropped. Idempotent.
func (q *PollingExecutableQueue) Dispose() {
	q.disposeOnce.Do(func() {
		q.active.Store(false)
		q.wg.Wait()
		log.Debug("executable queue disposed")
	})
}

// Len returns the number of elements in the ready queue.
func (q *PollingExecutableQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.queue)
}
