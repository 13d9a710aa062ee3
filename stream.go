package netsock

import (
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/cykyes/netsock/internal/pool"
)

// streamFlushThreshold bounds the write buffer of a reliable stream;
// larger buffered writes are flushed eagerly.
const streamFlushThreshold = 32 * 1024

// Stream is the byte-oriented read/write/flush view over a connected
// socket. For TCP the stream is reliable and order-preserving and
// writes may be buffered until Flush. For a connected UDP socket each
// Write/Flush pair produces one discrete datagram, and Read returns at
// most the remaining bytes of the most recently received datagram.
//
// A Stream is owned by the thread driving the socket's I/O, like the
// socket itself.
type Stream struct {
	nw       *Network
	h        Handle
	sock     *socket
	owns     bool
	reliable bool
	inorder  bool

	wbuf []byte

	// Datagram read-side carryover.
	rbuf *[]byte
	rpos int
	rlen int

	closed bool
}

// Stream wraps a connected socket as a byte stream. When owns is true,
// closing the stream destroys the socket; otherwise the socket outlives
// the stream.
func (n *Network) Stream(h Handle, owns bool) (*Stream, error) {
	s := n.socks.get(h)
	if s == nil {
		return nil, ErrNotSocket
	}
	if s.state != StateConnected || s.fd == invalidFD {
		return nil, ErrNotConnected
	}
	st := &Stream{nw: n, h: h, sock: s, owns: owns}
	s.tr.initStream(st)
	return st, nil
}

// Reliable reports whether the underlying transport guarantees
// delivery.
func (st *Stream) Reliable() bool { return st.reliable }

// InOrder reports whether the underlying transport preserves ordering.
func (st *Stream) InOrder() bool { return st.inorder }

// Write buffers p for transmission. Reliable streams flush eagerly once
// the buffer passes the flush threshold; datagram streams buffer until
// Flush so one flush maps to one datagram.
func (st *Stream) Write(p []byte) (int, error) {
	if st.closed {
		return 0, ErrClosed
	}
	st.wbuf = append(st.wbuf, p...)
	if st.reliable && len(st.wbuf) >= streamFlushThreshold {
		if err := st.Flush(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush transmits buffered writes. For a datagram stream the buffered
// bytes are sent as exactly one datagram; a short send is a failure.
func (st *Stream) Flush() error {
	if st.closed {
		return ErrClosed
	}
	if len(st.wbuf) == 0 {
		return nil
	}

	if st.reliable {
		for len(st.wbuf) > 0 {
			count, err := sysWrite(st.sock.fd, st.wbuf)
			if count > 0 {
				st.nw.metrics.AddBytesSent(int64(count))
				st.wbuf = st.wbuf[count:]
			}
			if err != nil {
				return fmt.Errorf("netsock: stream write: %w", err)
			}
		}
		st.wbuf = st.wbuf[:0]
		return nil
	}

	count, err := sysWrite(st.sock.fd, st.wbuf)
	if err != nil {
		return fmt.Errorf("netsock: datagram write: %w", err)
	}
	if count != len(st.wbuf) {
		return ErrShortWrite
	}
	st.nw.metrics.AddBytesSent(int64(count))
	st.nw.metrics.IncDatagramsSent()
	st.wbuf = st.wbuf[:0]
	return nil
}

// Read fills p from the stream. On a blocking reliable stream the call
// blocks until len(p) bytes are available or the connection closes, in
// which case the bytes read so far are returned; a closed connection
// with nothing read returns io.EOF. On a datagram stream Read serves
// the remainder of the last received datagram, receiving a new one only
// when the remainder is empty.
func (st *Stream) Read(p []byte) (int, error) {
	if st.closed {
		return 0, ErrClosed
	}
	if st.reliable {
		return st.readStream(p)
	}
	return st.readDatagram(p)
}

func (st *Stream) readStream(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		count, err := sysRead(st.sock.fd, p[total:])
		if count > 0 {
			total += count
			st.nw.metrics.AddBytesReceived(int64(count))
			continue
		}
		if err == nil {
			// Zero-length read: peer closed the connection.
			if total == 0 {
				return 0, io.EOF
			}
			return total, nil
		}
		if isWouldBlock(err) && total > 0 {
			return total, nil
		}
		if isConnReset(err) {
			// A reset peer is end of stream, not a local failure.
			if total == 0 {
				return 0, io.EOF
			}
			return total, nil
		}
		return total, fmt.Errorf("netsock: stream read: %w", err)
	}
	return total, nil
}

func (st *Stream) readDatagram(p []byte) (int, error) {
	if st.rpos >= st.rlen {
		if st.rbuf == nil {
			st.rbuf = pool.GetDatagramBuffer()
		}
		count, err := sysRead(st.sock.fd, *st.rbuf)
		if err != nil {
			return 0, fmt.Errorf("netsock: datagram read: %w", err)
		}
		st.nw.metrics.AddBytesReceived(int64(count))
		st.nw.metrics.IncDatagramsRecv()
		st.rpos, st.rlen = 0, count
	}
	count := copy(p, (*st.rbuf)[st.rpos:st.rlen])
	st.rpos += count
	return count, nil
}

// Close flushes pending writes and releases the stream. The underlying
// socket is destroyed only when the stream owns it. Idempotent.
func (st *Stream) Close() error {
	if st.closed {
		return nil
	}
	err := st.Flush()
	st.closed = true

	if st.rbuf != nil {
		pool.PutDatagramBuffer(st.rbuf)
		st.rbuf = nil
	}
	if st.owns {
		err = multierr.Append(err, st.nw.Destroy(st.h))
	}
	return err
}
