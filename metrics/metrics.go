// Package metrics collects socket lifecycle and traffic counters.
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector accumulates counters for one Network instance. All methods
// are safe to call from socket I/O threads.
type Collector struct {
	// Lifecycle stats.
	socketsOpened    int64
	socketsClosed    int64
	socketsDestroyed int64

	// Connection stats.
	connectsTotal  int64
	connectsFailed int64
	acceptsTotal   int64
	acceptsFailed  int64
	acceptTimeouts int64
	listensTotal   int64

	// Traffic stats.
	bytesSent     int64
	bytesReceived int64
	datagramsSent int64
	datagramsRecv int64

	// Event channel stats.
	eventsPosted  int64
	eventsDropped int64

	// Error stats.
	errorsTotal int64

	startTime time.Time
}

// NewCollector creates a Collector.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

func (c *Collector) IncSocketsOpened() {
	atomic.AddInt64(&c.socketsOpened, 1)
}

func (c *Collector) IncSocketsClosed() {
	atomic.AddInt64(&c.socketsClosed, 1)
}

func (c *Collector) IncSocketsDestroyed() {
	atomic.AddInt64(&c.socketsDestroyed, 1)
}

func (c *Collector) IncConnectsTotal() {
	atomic.AddInt64(&c.connectsTotal, 1)
}

func (c *Collector) IncConnectsFailed() {
	atomic.AddInt64(&c.connectsFailed, 1)
}

func (c *Collector) IncAcceptsTotal() {
	atomic.AddInt64(&c.acceptsTotal, 1)
}

func (c *Collector) IncAcceptsFailed() {
	atomic.AddInt64(&c.acceptsFailed, 1)
}

func (c *Collector) IncAcceptTimeouts() {
	atomic.AddInt64(&c.acceptTimeouts, 1)
}

func (c *Collector) IncListensTotal() {
	atomic.AddInt64(&c.listensTotal, 1)
}

func (c *Collector) AddBytesSent(n int64) {
	atomic.AddInt64(&c.bytesSent, n)
}

func (c *Collector) AddBytesReceived(n int64) {
	atomic.AddInt64(&c.bytesReceived, n)
}

func (c *Collector) IncDatagramsSent() {
	atomic.AddInt64(&c.datagramsSent, 1)
}

func (c *Collector) IncDatagramsRecv() {
	atomic.AddInt64(&c.datagramsRecv, 1)
}

func (c *Collector) IncEventsPosted() {
	atomic.AddInt64(&c.eventsPosted, 1)
}

func (c *Collector) IncEventsDropped() {
	atomic.AddInt64(&c.eventsDropped, 1)
}

func (c *Collector) IncErrorsTotal() {
	atomic.AddInt64(&c.errorsTotal, 1)
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Uptime time.Duration

	SocketsOpened    int64
	SocketsClosed    int64
	SocketsDestroyed int64

	ConnectsTotal  int64
	ConnectsFailed int64
	AcceptsTotal   int64
	AcceptsFailed  int64
	AcceptTimeouts int64
	ListensTotal   int64

	BytesSent     int64
	BytesReceived int64
	DatagramsSent int64
	DatagramsRecv int64

	EventsPosted  int64
	EventsDropped int64

	ErrorsTotal int64
}

func (c *Collector) GetSnapshot() Snapshot {
	return Snapshot{
		Uptime: time.Since(c.startTime),

		SocketsOpened:    atomic.LoadInt64(&c.socketsOpened),
		SocketsClosed:    atomic.LoadInt64(&c.socketsClosed),
		SocketsDestroyed: atomic.LoadInt64(&c.socketsDestroyed),

		ConnectsTotal:  atomic.LoadInt64(&c.connectsTotal),
		ConnectsFailed: atomic.LoadInt64(&c.connectsFailed),
		AcceptsTotal:   atomic.LoadInt64(&c.acceptsTotal),
		AcceptsFailed:  atomic.LoadInt64(&c.acceptsFailed),
		AcceptTimeouts: atomic.LoadInt64(&c.acceptTimeouts),
		ListensTotal:   atomic.LoadInt64(&c.listensTotal),

		BytesSent:     atomic.LoadInt64(&c.bytesSent),
		BytesReceived: atomic.LoadInt64(&c.bytesReceived),
		DatagramsSent: atomic.LoadInt64(&c.datagramsSent),
		DatagramsRecv: atomic.LoadInt64(&c.datagramsRecv),

		EventsPosted:  atomic.LoadInt64(&c.eventsPosted),
		EventsDropped: atomic.LoadInt64(&c.eventsDropped),

		ErrorsTotal: atomic.LoadInt64(&c.errorsTotal),
	}
}

// Reset zeroes all counters and restarts the uptime clock.
func (c *Collector) Reset() {
	atomic.StoreInt64(&c.socketsOpened, 0)
	atomic.StoreInt64(&c.socketsClosed, 0)
	atomic.StoreInt64(&c.socketsDestroyed, 0)

	atomic.StoreInt64(&c.connectsTotal, 0)
	atomic.StoreInt64(&c.connectsFailed, 0)
	atomic.StoreInt64(&c.acceptsTotal, 0)
	atomic.StoreInt64(&c.acceptsFailed, 0)
	atomic.StoreInt64(&c.acceptTimeouts, 0)
	atomic.StoreInt64(&c.listensTotal, 0)

	atomic.StoreInt64(&c.bytesSent, 0)
	atomic.StoreInt64(&c.bytesReceived, 0)
	atomic.StoreInt64(&c.datagramsSent, 0)
	atomic.StoreInt64(&c.datagramsRecv, 0)

	atomic.StoreInt64(&c.eventsPosted, 0)
	atomic.StoreInt64(&c.eventsDropped, 0)

	atomic.StoreInt64(&c.errorsTotal, 0)

	c.startTime = time.Now()
}

// Global is the process-level collector used when a Network is not
// configured with its own.
var Global = NewCollector()
