// Package netsock is a socket abstraction layer over IPv4/IPv6 TCP and
// UDP. It exposes a handle-based API with an explicit connection state
// machine, a byte-stream adapter for connected sockets, and a
// fixed-capacity event queue reporting lifecycle transitions. No wire
// protocol is introduced: on the wire this is plain TCP/UDP with native
// socket semantics.
//
// Each socket is driven by whichever thread calls its blocking
// operations; the library assumes one owning thread per socket for I/O.
// Handle validation (IsSocket) and event posting are the only
// operations that are safe from any thread.
package netsock

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/cykyes/netsock/address"
	"github.com/cykyes/netsock/log"
	"github.com/cykyes/netsock/metrics"
)

// Network is the module context: it owns the socket table, the event
// queue, the logger and the metrics collector. Create one with New and
// release it with Close.
type Network struct {
	cfg     *Config
	log     log.Logger
	metrics *metrics.Collector
	socks   arena
	events  *EventQueue

	closed    atomic.Bool
	closeOnce sync.Once

	supportsIPv4 func() bool
	supportsIPv6 func() bool
}

// New creates a Network from cfg. A nil cfg uses DefaultConfig; zero
// fields are filled with defaults before validation.
func New(cfg *Config) (*Network, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("netsock: config: %w", err)
	}

	n := &Network{
		cfg:     cfg,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
	}
	n.events = newEventQueue(cfg.EventQueueSize, n.log, n.metrics)
	n.supportsIPv4 = sync.OnceValue(func() bool { return probeFamily(address.IPv4) })
	n.supportsIPv6 = sync.OnceValue(func() bool { return probeFamily(address.IPv6) })
	return n, nil
}

// Close destroys all live sockets and finalizes the event queue.
// Idempotent; concurrent socket owners must have stopped their I/O
// before Close runs.
func (n *Network) Close() error {
	var err error
	n.closeOnce.Do(func() {
		n.closed.Store(true)
		for _, h := range n.socks.handles() {
			err = multierr.Append(err, n.Destroy(h))
		}
		n.events.close()
	})
	return err
}

func (n *Network) isClosed() bool {
	return n.closed.Load()
}

// Events returns the lifecycle event queue for draining.
func (n *Network) Events() *EventQueue {
	return n.events
}

// Metrics returns the collector receiving this Network's counters.
func (n *Network) Metrics() *metrics.Collector {
	return n.metrics
}

// post publishes a lifecycle event tagged with the originating handle.
func (n *Network) post(id EventID, h Handle) {
	n.events.Post(id, h)
}

// SupportsIPv4 reports whether the host can open IPv4 sockets. The
// probe runs once per Network.
func (n *Network) SupportsIPv4() bool {
	return n.supportsIPv4()
}

// SupportsIPv6 reports whether the host can open IPv6 sockets.
func (n *Network) SupportsIPv6() bool {
	return n.supportsIPv6()
}

func probeFamily(family address.Family) bool {
	fd, err := sysOpen(family, sotypeDgram)
	if err != nil {
		return false
	}
	sysClose(fd)
	return true
}
