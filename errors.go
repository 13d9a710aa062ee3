package netsock

import "errors"

var (
	// ErrNotSocket is returned when a handle does not refer to a live
	// socket, either because it was destroyed or never allocated.
	ErrNotSocket = errors.New("netsock: not a socket")

	// ErrInvalidState is returned when an operation is attempted in a
	// socket state that does not permit it. The socket is unchanged.
	ErrInvalidState = errors.New("netsock: invalid socket state")

	// ErrTimeout is returned by timed operations that expired without
	// completing.
	ErrTimeout = errors.New("netsock: timed out")

	// ErrNotConnected is returned by operations that require a
	// connected socket.
	ErrNotConnected = errors.New("netsock: socket not connected")

	// ErrClosed is returned by operations on a closed Network or
	// stream.
	ErrClosed = errors.New("netsock: closed")

	// ErrTooManySockets is returned when the socket table is full.
	ErrTooManySockets = errors.New("netsock: too many sockets")

	// ErrShortWrite is returned when a datagram could not be sent in
	// full. Partial sends of a datagram are failures.
	ErrShortWrite = errors.New("netsock: short datagram write")
)
