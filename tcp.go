package netsock

import (
	"fmt"
	"time"

	"github.com/cykyes/netsock/address"
)

// tcpTransport is the connection-oriented transport.
type tcpTransport struct{}

func (tcpTransport) name() string { return "tcp" }
func (tcpTransport) sotype() int  { return sotypeStream }

func (tcpTransport) connect(n *Network, s *socket, target *address.Address, timeout time.Duration) (bool, error) {
	// The connect is driven non-blocking in every mode so the wait can
	// be bounded by select and an interrupted syscall resolved through
	// SO_ERROR instead of a bare retry.
	if s.blocking {
		sysSetBlocking(s.fd, false)
		defer sysSetBlocking(s.fd, true)
	}

	err := sysConnect(s.fd, target)
	if err == nil {
		return true, nil
	}
	if !isInProgress(err) && !isWouldBlock(err) {
		return false, err
	}

	if !s.blocking && timeout == 0 {
		// Caller polls State for the outcome.
		return false, nil
	}

	wait := timeout
	if wait == 0 {
		wait = -1 // blocking socket, no timeout: wait until resolved
	}
	ready, werr := sysWait(s.fd, true, wait)
	if werr != nil {
		return false, werr
	}
	if !ready {
		return false, ErrTimeout
	}
	if serr := sysSocketError(s.fd); serr != nil {
		return false, serr
	}
	return true, nil
}

func (tcpTransport) initStream(st *Stream) {
	st.reliable = true
	st.inorder = true
}

// NewTCP allocates a TCP socket in StateNotConnected. The descriptor is
// opened on first bind or connect, when the address family is known.
func (n *Network) NewTCP() (Handle, error) {
	if n.isClosed() {
		return InvalidHandle, ErrClosed
	}
	h, ok := n.socks.alloc(n.newSocket(tcpTransport{}), n.cfg.MaxSockets)
	if !ok {
		return InvalidHandle, ErrTooManySockets
	}
	return h, nil
}

// Listen transitions a bound, unconnected TCP socket to StateListening.
func (n *Network) Listen(h Handle) error {
	s := n.socks.get(h)
	if s == nil {
		return ErrNotSocket
	}
	if _, ok := s.tr.(tcpTransport); !ok {
		return ErrInvalidState
	}
	if s.state != StateNotConnected || s.fd == invalidFD || s.local == nil {
		// Must be locally bound.
		return ErrInvalidState
	}

	if err := sysListen(s.fd, n.cfg.Backlog); err != nil {
		n.log.Error("unable to listen on tcp socket fd %d %s: %v (%d)",
			s.fd, s.local, err, errnoValue(err))
		n.metrics.IncErrorsTotal()
		return fmt.Errorf("netsock: listen on %s: %w", s.local, err)
	}

	s.state = StateListening
	n.metrics.IncListensTotal()
	n.log.Info("listening on tcp socket fd %d %s", s.fd, s.local)
	return nil
}

// Accept waits for an inbound connection on a listening socket. With
// timeout > 0 on a blocking socket, blocking mode is suspended for the
// duration of the call and restored on every exit path; the accept is
// retried exactly once after a bounded readiness wait when the first
// attempt would block. On success a new connected socket is returned,
// with the peer recorded as its remote address.
func (n *Network) Accept(h Handle, timeout time.Duration) (Handle, error) {
	s := n.socks.get(h)
	if s == nil {
		return InvalidHandle, ErrNotSocket
	}
	if s.state != StateListening || s.fd == invalidFD || s.local == nil {
		n.log.Error("unable to accept on non-listening tcp socket fd %d state %s",
			s.fd, s.state)
		return InvalidHandle, ErrInvalidState
	}

	if timeout > 0 && s.blocking {
		sysSetBlocking(s.fd, false)
		defer sysSetBlocking(s.fd, true)
	}

	nfd, remote, err := sysAccept(s.fd)
	if err != nil && isWouldBlock(err) && timeout > 0 {
		ready, werr := sysWait(s.fd, false, timeout)
		if werr == nil && ready {
			nfd, remote, err = sysAccept(s.fd)
		}
	}

	if err != nil {
		if isWouldBlock(err) {
			n.metrics.IncAcceptTimeouts()
			return InvalidHandle, ErrTimeout
		}
		n.metrics.IncAcceptsFailed()
		n.log.Error("accept on tcp socket fd %d failed: %v (%d)",
			s.fd, err, errnoValue(err))
		n.post(EventError, h)
		return InvalidHandle, fmt.Errorf("netsock: accept: %w", err)
	}

	if remote == nil {
		remote = sysRemoteAddress(nfd)
	}

	accepted := n.newSocket(tcpTransport{})
	accepted.fd = nfd
	accepted.family = s.family
	accepted.state = StateConnected
	accepted.delay = s.delay
	accepted.remote = remote
	accepted.local = sysLocalAddress(nfd)

	// Accepted descriptors inherit the listener's per-call mode; reset
	// to the fresh socket's blocking default and apply the delay flag.
	sysSetBlocking(nfd, true)
	sysSetNoDelay(nfd, !accepted.delay)

	ah, ok := n.socks.alloc(accepted, n.cfg.MaxSockets)
	if !ok {
		sysClose(nfd)
		n.metrics.IncAcceptsFailed()
		return InvalidHandle, ErrTooManySockets
	}

	n.metrics.IncAcceptsTotal()
	n.log.Debug("accepted connection on tcp socket fd %d: new socket fd %d remote %s",
		s.fd, nfd, remote)
	n.post(EventAccepted, ah)
	return ah, nil
}

// Delay reports the socket's coalescing (Nagle) flag.
func (n *Network) Delay(h Handle) bool {
	s := n.socks.get(h)
	return s != nil && s.delay
}

// SetDelay toggles TCP coalescing. The flag takes effect immediately on
// an open descriptor and is otherwise applied at open time.
func (n *Network) SetDelay(h Handle, delay bool) error {
	s := n.socks.get(h)
	if s == nil {
		return ErrNotSocket
	}
	if _, ok := s.tr.(tcpTransport); !ok {
		return ErrInvalidState
	}
	s.delay = delay
	if s.fd != invalidFD {
		if err := sysSetNoDelay(s.fd, !delay); err != nil {
			return fmt.Errorf("netsock: set delay: %w", err)
		}
	}
	return nil
}
