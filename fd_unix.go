//go:build !windows

package netsock

import (
	"errors"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cykyes/netsock/address"
)

const invalidFD = -1

// Socket types for the transport variants.
const (
	sotypeStream = unix.SOCK_STREAM
	sotypeDgram  = unix.SOCK_DGRAM
)

func familyAF(family address.Family) int {
	if family == address.IPv6 {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

func sockaddrOf(a *address.Address) (unix.Sockaddr, error) {
	switch a.Family() {
	case address.IPv4:
		sa := &unix.SockaddrInet4{Port: a.Port()}
		copy(sa.Addr[:], a.IP().To4())
		return sa, nil
	case address.IPv6:
		sa := &unix.SockaddrInet6{Port: a.Port()}
		copy(sa.Addr[:], a.IP().To16())
		return sa, nil
	default:
		return nil, errors.New("netsock: unsupported address family")
	}
}

func addressOf(sa unix.Sockaddr) *address.Address {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return address.FromIP(net.IP(sa.Addr[:]), sa.Port)
	case *unix.SockaddrInet6:
		return address.FromIP(net.IP(sa.Addr[:]), sa.Port)
	default:
		return nil
	}
}

// sysOpen creates a descriptor for the family and socket type with
// SO_REUSEADDR set, so a closed listener's endpoint can be rebound
// without waiting out TIME_WAIT.
func sysOpen(family address.Family, sotype int) (int, error) {
	fd, err := unix.Socket(familyAF(family), sotype, 0)
	if err != nil {
		return invalidFD, err
	}
	unix.CloseOnExec(fd)
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return invalidFD, err
	}
	return fd, nil
}

func sysClose(fd int) error {
	return unix.Close(fd)
}

func sysBind(fd int, a *address.Address) error {
	sa, err := sockaddrOf(a)
	if err != nil {
		return err
	}
	return unix.Bind(fd, sa)
}

func sysConnect(fd int, a *address.Address) error {
	sa, err := sockaddrOf(a)
	if err != nil {
		return err
	}
	return unix.Connect(fd, sa)
}

func sysListen(fd, backlog int) error {
	return unix.Listen(fd, backlog)
}

func sysAccept(fd int) (int, *address.Address, error) {
	for {
		nfd, sa, err := unix.Accept(fd)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return invalidFD, nil, err
		}
		unix.CloseOnExec(nfd)
		return nfd, addressOf(sa), nil
	}
}

func sysLocalAddress(fd int) *address.Address {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil
	}
	return addressOf(sa)
}

func sysRemoteAddress(fd int) *address.Address {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return nil
	}
	return addressOf(sa)
}

func sysSetBlocking(fd int, blocking bool) error {
	return unix.SetNonblock(fd, !blocking)
}

func sysSetNoDelay(fd int, nodelay bool) error {
	v := 0
	if nodelay {
		v = 1
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
}

// sysSocketError reads and clears the pending SO_ERROR, used to resolve
// the outcome of a non-blocking connect.
func sysSocketError(fd int) error {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

func sysRead(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func sysWrite(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Write(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func sysSendTo(fd int, p []byte, to *address.Address) (int, error) {
	sa, err := sockaddrOf(to)
	if err != nil {
		return 0, err
	}
	for {
		err := unix.Sendto(fd, p, 0, sa)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		// sendto on a datagram socket transmits the whole payload or
		// fails; there is no partial length to report.
		return len(p), nil
	}
}

func sysRecvFrom(fd int, p []byte) (int, *address.Address, error) {
	for {
		n, sa, err := unix.Recvfrom(fd, p, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, nil, err
		}
		return n, addressOf(sa), nil
	}
}

// sysWait blocks until fd is ready for reading (or writing when write
// is true), an error condition is raised, or timeout elapses. A
// negative timeout waits indefinitely; a zero timeout polls. Returns
// false when the wait expired.
func sysWait(fd int, write bool, timeout time.Duration) (bool, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		var ioset, eset unix.FdSet
		ioset.Zero()
		eset.Zero()
		ioset.Set(fd)
		eset.Set(fd)

		var tv *unix.Timeval
		if timeout >= 0 {
			remain := time.Until(deadline)
			if remain < 0 {
				remain = 0
			}
			t := unix.NsecToTimeval(int64(remain))
			tv = &t
		}

		var nready int
		var err error
		if write {
			nready, err = unix.Select(fd+1, nil, &ioset, &eset, tv)
		} else {
			nready, err = unix.Select(fd+1, &ioset, nil, &eset, tv)
		}
		if err == unix.EINTR {
			if timeout >= 0 && !time.Now().Before(deadline) {
				return false, nil
			}
			continue
		}
		if err != nil {
			return false, err
		}
		return nready > 0, nil
	}
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

func isInProgress(err error) bool {
	return errors.Is(err, unix.EINPROGRESS)
}

func isConnReset(err error) bool {
	return errors.Is(err, unix.ECONNRESET) || errors.Is(err, unix.EPIPE)
}

// errnoValue extracts the platform error code for logging.
func errnoValue(err error) int {
	var e unix.Errno
	if errors.As(err, &e) {
		return int(e)
	}
	return 0
}
