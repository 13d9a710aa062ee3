package netsock

import (
	"sync"

	"github.com/cykyes/netsock/log"
	"github.com/cykyes/netsock/metrics"
)

// EventID identifies a socket lifecycle transition.
type EventID int

const (
	// EventConnected is posted when an outbound connect completes.
	EventConnected EventID = iota + 1
	// EventDisconnected is posted when a connected or listening socket
	// is closed.
	EventDisconnected
	// EventAccepted is posted with the handle of a newly accepted
	// socket.
	EventAccepted
	// EventError is posted when a terminal native failure occurs on a
	// socket.
	EventError
)

// String returns the event name.
func (id EventID) String() string {
	switch id {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventAccepted:
		return "accepted"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification. Socket is a handle value, not a
// reference: the socket may have been destroyed by the time the event
// is drained, and consumers must validate it with IsSocket before use.
type Event struct {
	ID     EventID
	Socket Handle
}

// EventQueue is the fixed-capacity FIFO lifecycle channel owned by a
// Network. Posting is safe from any thread, including socket I/O
// threads; draining is independent of socket lifetime.
type EventQueue struct {
	mu      sync.RWMutex
	ch      chan Event
	closed  bool
	log     log.Logger
	metrics *metrics.Collector
}

func newEventQueue(size int, logger log.Logger, collector *metrics.Collector) *EventQueue {
	return &EventQueue{
		ch:      make(chan Event, size),
		log:     logger,
		metrics: collector,
	}
}

// Post appends an event. A full queue drops the event rather than block
// the posting I/O thread.
func (q *EventQueue) Post(id EventID, sock Handle) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.ch <- Event{ID: id, Socket: sock}:
		q.metrics.IncEventsPosted()
	default:
		q.metrics.IncEventsDropped()
		q.log.Warn("event queue full, dropping %s event for socket %#x", id, uint64(sock))
	}
}

// Next pops the oldest pending event. ok is false when the queue is
// empty or finalized.
func (q *EventQueue) Next() (Event, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return Event{}, false
	}
	select {
	case e := <-q.ch:
		return e, true
	default:
		return Event{}, false
	}
}

// Drain pops all pending events in FIFO order.
func (q *EventQueue) Drain() []Event {
	var out []Event
	for {
		e, ok := q.Next()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.ch)
}

// Cap returns the queue's fixed capacity.
func (q *EventQueue) Cap() int {
	return cap(q.ch)
}

// close finalizes the queue, discarding unread entries. Idempotent.
func (q *EventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for {
		select {
		case <-q.ch:
		default:
			return
		}
	}
}
