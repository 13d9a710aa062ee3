package address

import "net"

// LocalAddresses enumerates the host's configured interface addresses
// and returns one independently owned Address per bindable IP, port 0.
// Loopback entries are included; callers filter by family when they need
// a specific stack.
func LocalAddresses() ([]*Address, error) {
	ifaddrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	addrs := make([]*Address, 0, len(ifaddrs))
	for _, ia := range ifaddrs {
		var ip net.IP
		switch v := ia.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}
		if a := FromIP(ip, 0); a != nil {
			addrs = append(addrs, a)
		}
	}
	return addrs, nil
}
