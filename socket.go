package netsock

import (
	"fmt"
	"time"

	"github.com/cykyes/netsock/address"
)

// State is a socket's lifecycle stage. Transitions are monotonic within
// a connection attempt (NotConnected -> Connecting -> Connected, or
// NotConnected -> Listening) and are only reset by close/destroy.
type State int

const (
	// StateNotConnected is the initial and post-close state.
	StateNotConnected State = iota
	// StateConnecting is an outbound connect in progress.
	StateConnecting
	// StateConnected is an established connection (or a UDP socket
	// with a fixed default peer).
	StateConnected
	// StateListening is a TCP socket accepting connections.
	StateListening
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotConnected:
		return "notconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateListening:
		return "listening"
	default:
		return "unknown"
	}
}

// transport is the closed set of per-transport behaviors. The two
// implementations are tcpTransport and udpTransport.
type transport interface {
	name() string
	sotype() int
	// connect initiates an outbound connection. done=false means the
	// attempt is still in progress (non-blocking TCP); the socket stays
	// in StateConnecting until State observes the outcome.
	connect(n *Network, s *socket, target *address.Address, timeout time.Duration) (done bool, err error)
	// initStream stamps transport reliability/ordering onto a stream.
	initStream(st *Stream)
}

// socket is the backing record behind a Handle. It is owned by the
// thread driving its blocking I/O; only handle lookup and event posting
// are cross-thread-safe.
type socket struct {
	fd       int
	family   address.Family // valid while fd is open
	state    State
	blocking bool
	delay    bool // TCP coalescing (Nagle) flag
	local    *address.Address
	remote   *address.Address
	tr       transport
}

func (n *Network) newSocket(tr transport) *socket {
	return &socket{
		fd:       invalidFD,
		state:    StateNotConnected,
		blocking: true,
		tr:       tr,
	}
}

// openFD ensures the descriptor is open for the given family, reopening
// it when the family differs. The blocking flag and transport options
// are applied at open time.
func (n *Network) openFD(s *socket, family address.Family) error {
	if s.fd != invalidFD {
		if s.family == family {
			return nil
		}
		sysClose(s.fd)
		s.fd = invalidFD
	}

	fd, err := sysOpen(family, s.tr.sotype())
	if err != nil {
		n.log.Error("unable to open %s/%s socket: %v (%d)",
			s.tr.name(), family, err, errnoValue(err))
		n.metrics.IncErrorsTotal()
		return fmt.Errorf("netsock: open %s socket: %w", s.tr.name(), err)
	}
	s.fd = fd
	s.family = family
	n.metrics.IncSocketsOpened()

	if !s.blocking {
		sysSetBlocking(fd, false)
	}
	if _, ok := s.tr.(tcpTransport); ok {
		sysSetNoDelay(fd, !s.delay)
	}
	n.log.Debug("opened %s/%s socket fd %d", s.tr.name(), family, fd)
	return nil
}

// Bind binds the socket to a local endpoint, opening the descriptor for
// the address family on first use. Fails without state change when the
// socket is already bound or past NotConnected.
func (n *Network) Bind(h Handle, addr *address.Address) error {
	s := n.socks.get(h)
	if s == nil {
		return ErrNotSocket
	}
	if s.state != StateNotConnected || s.local != nil {
		return ErrInvalidState
	}

	if err := n.openFD(s, addr.Family()); err != nil {
		return err
	}
	if err := sysBind(s.fd, addr); err != nil {
		n.log.Error("unable to bind %s socket fd %d to %s: %v (%d)",
			s.tr.name(), s.fd, addr, err, errnoValue(err))
		n.metrics.IncErrorsTotal()
		return fmt.Errorf("netsock: bind to %s: %w", addr, err)
	}

	// Read the address back so ephemeral ports are reflected.
	if local := sysLocalAddress(s.fd); local != nil {
		s.local = local
	} else {
		s.local = addr.Clone()
	}
	n.log.Debug("bound %s socket fd %d to %s", s.tr.name(), s.fd, s.local)
	return nil
}

// Connect initiates an outbound connection. For blocking sockets with
// timeout 0 the call blocks until connected or failed. Non-blocking
// sockets may be left in StateConnecting; State resolves the outcome.
func (n *Network) Connect(h Handle, addr *address.Address, timeout time.Duration) error {
	s := n.socks.get(h)
	if s == nil {
		return ErrNotSocket
	}
	if s.state != StateNotConnected {
		return ErrInvalidState
	}

	if err := n.openFD(s, addr.Family()); err != nil {
		return err
	}

	n.metrics.IncConnectsTotal()
	s.state = StateConnecting
	s.remote = addr.Clone()

	done, err := s.tr.connect(n, s, addr, timeout)
	if err != nil {
		s.state = StateNotConnected
		s.remote = nil
		n.metrics.IncConnectsFailed()
		n.log.Error("unable to connect %s socket fd %d to %s: %v (%d)",
			s.tr.name(), s.fd, addr, err, errnoValue(err))
		n.post(EventError, h)
		return fmt.Errorf("netsock: connect to %s: %w", addr, err)
	}
	if !done {
		// In progress; stays in StateConnecting.
		return nil
	}

	s.state = StateConnected
	if local := sysLocalAddress(s.fd); local != nil {
		s.local = local
	}
	n.log.Debug("connected %s socket fd %d to %s", s.tr.name(), s.fd, addr)
	n.post(EventConnected, h)
	return nil
}

// closeSocket releases the descriptor and owned addresses. Idempotent.
func (n *Network) closeSocket(h Handle, s *socket) {
	wasUp := s.state == StateConnected || s.state == StateListening
	if s.fd != invalidFD {
		if err := sysClose(s.fd); err != nil {
			n.log.Warn("close fd %d: %v", s.fd, err)
		}
		s.fd = invalidFD
		n.metrics.IncSocketsClosed()
	}
	s.state = StateNotConnected
	s.local = nil
	s.remote = nil
	if wasUp {
		n.post(EventDisconnected, h)
	}
}

// CloseSocket closes the descriptor and resets the socket to
// NotConnected. The handle stays valid and may be reused for a new
// bind/connect. Safe to call on an already-closed socket.
func (n *Network) CloseSocket(h Handle) error {
	s := n.socks.get(h)
	if s == nil {
		return ErrNotSocket
	}
	n.closeSocket(h, s)
	return nil
}

// Destroy closes the socket and invalidates the handle. Subsequent
// IsSocket calls on h report false and all other operations fail with
// ErrNotSocket.
func (n *Network) Destroy(h Handle) error {
	s := n.socks.release(h)
	if s == nil {
		return ErrNotSocket
	}
	n.closeSocket(h, s)
	n.metrics.IncSocketsDestroyed()
	return nil
}

// SetBlocking toggles the descriptor's blocking mode without affecting
// the connection state.
func (n *Network) SetBlocking(h Handle, blocking bool) error {
	s := n.socks.get(h)
	if s == nil {
		return ErrNotSocket
	}
	s.blocking = blocking
	if s.fd != invalidFD {
		if err := sysSetBlocking(s.fd, blocking); err != nil {
			return fmt.Errorf("netsock: set blocking: %w", err)
		}
	}
	return nil
}

// Blocking reports the socket's blocking flag. Dead handles report
// false.
func (n *Network) Blocking(h Handle) bool {
	s := n.socks.get(h)
	return s != nil && s.blocking
}

// State returns the socket's lifecycle state. A socket left in
// StateConnecting by a non-blocking connect is polled here and promoted
// to StateConnected (or reset on failure) once the outcome is known.
// Dead handles report StateNotConnected.
func (n *Network) State(h Handle) State {
	s := n.socks.get(h)
	if s == nil {
		return StateNotConnected
	}
	if s.state == StateConnecting && s.fd != invalidFD {
		writable, err := sysWait(s.fd, true, 0)
		if err == nil && writable {
			if serr := sysSocketError(s.fd); serr == nil {
				s.state = StateConnected
				if local := sysLocalAddress(s.fd); local != nil {
					s.local = local
				}
				n.post(EventConnected, h)
			} else {
				s.state = StateNotConnected
				s.remote = nil
				n.metrics.IncConnectsFailed()
				n.log.Debug("connect on fd %d failed: %v (%d)",
					s.fd, serr, errnoValue(serr))
				n.post(EventError, h)
			}
		}
	}
	return s.state
}

// LocalAddress returns an owned copy of the bound local address, or nil
// when the socket is unbound or dead.
func (n *Network) LocalAddress(h Handle) *address.Address {
	s := n.socks.get(h)
	if s == nil {
		return nil
	}
	return s.local.Clone()
}

// RemoteAddress returns an owned copy of the peer address, or nil when
// unknown.
func (n *Network) RemoteAddress(h Handle) *address.Address {
	s := n.socks.get(h)
	if s == nil {
		return nil
	}
	return s.remote.Clone()
}

// IsSocket reports whether h refers to a live socket. Safe to call with
// any previously returned handle value, including destroyed ones.
func (n *Network) IsSocket(h Handle) bool {
	return n.socks.get(h) != nil
}
