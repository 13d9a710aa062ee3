// Package address represents IPv4/IPv6 network endpoints as value types.
// An Address pairs an IP with a port and a fixed family; the family is
// decided at construction and never changes afterwards. Addresses are
// never shared implicitly: Clone produces an independent copy and the
// enumeration helpers return freshly owned slices.
package address

import (
	"fmt"
	"net"
	"strconv"
)

// Family discriminates the IP protocol family of an Address.
type Family int

const (
	// IPv4 is the 32-bit address family.
	IPv4 Family = iota
	// IPv6 is the 128-bit address family.
	IPv6
)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// Address is an IP endpoint (IP + port) with a fixed family.
type Address struct {
	family Family
	ip     net.IP // 4 bytes for IPv4, 16 bytes for IPv6
	port   int
}

// FromIP builds an Address from an IP and port. IPv4-mapped IPv6 forms
// (::ffff:a.b.c.d) are normalized to the IPv4 family so that rendering
// and equality stay unambiguous. Returns nil for an invalid IP or port.
func FromIP(ip net.IP, port int) *Address {
	if port < 0 || port > 65535 {
		return nil
	}
	if v4 := ip.To4(); v4 != nil {
		return &Address{family: IPv4, ip: append(net.IP(nil), v4...), port: port}
	}
	if v6 := ip.To16(); v6 != nil {
		return &Address{family: IPv6, ip: append(net.IP(nil), v6...), port: port}
	}
	return nil
}

// Parse parses a numeric endpoint string. Accepted forms are
// "1.2.3.4:80", "[::1]:80" and a bare IP (port 0).
func Parse(s string) (*Address, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		// Bare IP without port.
		ip := net.ParseIP(s)
		if ip == nil {
			return nil, fmt.Errorf("address: cannot parse %q", s)
		}
		return FromIP(ip, 0), nil
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("address: cannot parse host in %q", s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return nil, fmt.Errorf("address: invalid port in %q", s)
	}
	return FromIP(ip, port), nil
}

// Loopback returns the loopback endpoint for the given family.
func Loopback(family Family, port int) *Address {
	if family == IPv6 {
		return FromIP(net.IPv6loopback, port)
	}
	return FromIP(net.IPv4(127, 0, 0, 1), port)
}

// Family returns the protocol family.
func (a *Address) Family() Family { return a.family }

// IP returns a copy of the raw IP bytes.
func (a *Address) IP() net.IP { return append(net.IP(nil), a.ip...) }

// Port returns the port.
func (a *Address) Port() int { return a.port }

// SetPort mutates the port in place. Family and IP are unchanged.
// Out-of-range values are ignored.
func (a *Address) SetPort(port int) {
	if port < 0 || port > 65535 {
		return
	}
	a.port = port
}

// Equal reports whether two addresses have the same family, IP and port.
// Addresses of different families are never equal.
func (a *Address) Equal(b *Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.family == b.family && a.port == b.port && a.ip.Equal(b.ip)
}

// Clone returns an independently owned copy.
func (a *Address) Clone() *Address {
	if a == nil {
		return nil
	}
	return &Address{family: a.family, ip: append(net.IP(nil), a.ip...), port: a.port}
}

// HostString renders the canonical numeric IP without the port.
func (a *Address) HostString() string {
	return a.ip.String()
}

// String renders the canonical numeric form including the port,
// "1.2.3.4:80" or "[::1]:80".
func (a *Address) String() string {
	return net.JoinHostPort(a.ip.String(), strconv.Itoa(a.port))
}
