package netsock

import (
	"fmt"
	"time"

	"github.com/cykyes/netsock/address"
)

// udpTransport is the connectionless datagram transport.
type udpTransport struct{}

func (udpTransport) name() string { return "udp" }
func (udpTransport) sotype() int  { return sotypeDgram }

func (udpTransport) connect(n *Network, s *socket, target *address.Address, timeout time.Duration) (bool, error) {
	// Connecting a datagram socket only fixes the default peer; the
	// call completes immediately.
	if err := sysConnect(s.fd, target); err != nil {
		return false, err
	}
	return true, nil
}

func (udpTransport) initStream(st *Stream) {
	st.reliable = false
	st.inorder = false
}

// NewUDP allocates a UDP socket and opens its descriptor immediately
// for the default (IPv4) family. The descriptor is reopened on a later
// bind or connect whose address family differs.
func (n *Network) NewUDP() (Handle, error) {
	if n.isClosed() {
		return InvalidHandle, ErrClosed
	}
	s := n.newSocket(udpTransport{})
	if err := n.openFD(s, address.IPv4); err != nil {
		return InvalidHandle, err
	}
	h, ok := n.socks.alloc(s, n.cfg.MaxSockets)
	if !ok {
		sysClose(s.fd)
		return InvalidHandle, ErrTooManySockets
	}
	return h, nil
}

// SendTo transmits p as one datagram addressed to target. The whole
// payload is sent or the call fails; the byte count returned always
// equals len(p) on success. Usable regardless of connection state.
func (n *Network) SendTo(h Handle, p []byte, target *address.Address) (int, error) {
	s := n.socks.get(h)
	if s == nil {
		return 0, ErrNotSocket
	}
	if _, ok := s.tr.(udpTransport); !ok {
		return 0, ErrInvalidState
	}

	if s.fd == invalidFD {
		if err := n.openFD(s, target.Family()); err != nil {
			return 0, err
		}
	} else if s.family != target.Family() {
		return 0, fmt.Errorf("netsock: sendto %s from %s socket: %w",
			target.Family(), s.family, ErrInvalidState)
	}

	sent, err := sysSendTo(s.fd, p, target)
	if err != nil {
		n.metrics.IncErrorsTotal()
		return 0, fmt.Errorf("netsock: sendto %s: %w", target, err)
	}
	if sent != len(p) {
		n.metrics.IncErrorsTotal()
		return sent, ErrShortWrite
	}
	n.metrics.AddBytesSent(int64(sent))
	n.metrics.IncDatagramsSent()
	return sent, nil
}

// RecvFrom blocks (when the socket is blocking) until a datagram
// arrives, fills buf with its payload and returns the payload size plus
// an owned copy of the sender's address. Datagrams larger than buf are
// truncated to len(buf); the buffer bounds the largest receivable
// datagram and is the caller's contract.
func (n *Network) RecvFrom(h Handle, buf []byte) (int, *address.Address, error) {
	s := n.socks.get(h)
	if s == nil {
		return 0, nil, ErrNotSocket
	}
	if _, ok := s.tr.(udpTransport); !ok {
		return 0, nil, ErrInvalidState
	}
	if s.fd == invalidFD {
		return 0, nil, ErrInvalidState
	}

	count, from, err := sysRecvFrom(s.fd, buf)
	if err != nil {
		if !isWouldBlock(err) {
			n.metrics.IncErrorsTotal()
		}
		return 0, nil, fmt.Errorf("netsock: recvfrom: %w", err)
	}
	n.metrics.AddBytesReceived(int64(count))
	n.metrics.IncDatagramsRecv()
	return count, from, nil
}
