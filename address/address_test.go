package address

import (
	"net"
	"testing"
)

func TestParseAndString(t *testing.T) {
	tests := []struct {
		in     string
		family Family
		port   int
		out    string
	}{
		{"192.168.1.10:8080", IPv4, 8080, "192.168.1.10:8080"},
		{"[::1]:443", IPv6, 443, "[::1]:443"},
		{"10.0.0.1", IPv4, 0, "10.0.0.1:0"},
		{"fe80::1", IPv6, 0, "[fe80::1]:0"},
	}
	for _, tt := range tests {
		a, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if a.Family() != tt.family {
			t.Errorf("Parse(%q).Family() = %v, want %v", tt.in, a.Family(), tt.family)
		}
		if a.Port() != tt.port {
			t.Errorf("Parse(%q).Port() = %d, want %d", tt.in, a.Port(), tt.port)
		}
		if got := a.String(); got != tt.out {
			t.Errorf("Parse(%q).String() = %q, want %q", tt.in, got, tt.out)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "not-an-ip", "10.0.0.1:notaport", "10.0.0.1:70000"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestMappedIPv6Normalizes(t *testing.T) {
	a, err := Parse("[::ffff:192.0.2.1]:80")
	if err != nil {
		t.Fatal(err)
	}
	if a.Family() != IPv4 {
		t.Errorf("mapped address family = %v, want IPv4", a.Family())
	}
	if got := a.String(); got != "192.0.2.1:80" {
		t.Errorf("mapped address renders as %q", got)
	}
}

func TestEqual(t *testing.T) {
	a1, _ := Parse("10.1.2.3:500")
	a2, _ := Parse("10.1.2.3:500")
	if !a1.Equal(a2) {
		t.Error("same family, IP and port should be equal")
	}

	a3, _ := Parse("10.1.2.4:500")
	if a1.Equal(a3) {
		t.Error("different IP should not be equal")
	}

	// Different families are never equal regardless of value.
	v6, _ := Parse("[::1]:500")
	v4, _ := Parse("127.0.0.1:500")
	if v4.Equal(v6) {
		t.Error("different families should not be equal")
	}
}

func TestSetPort(t *testing.T) {
	a1, _ := Parse("10.1.2.3:500")
	a2 := a1.Clone()
	a2.SetPort(501)
	if a1.Equal(a2) {
		t.Error("port change should break equality")
	}
	if a2.Port() != 501 {
		t.Errorf("Port() = %d after SetPort(501)", a2.Port())
	}
	if a2.Family() != a1.Family() || a2.HostString() != a1.HostString() {
		t.Error("SetPort must not change family or IP")
	}

	a2.SetPort(-1)
	if a2.Port() != 501 {
		t.Error("out-of-range SetPort should be ignored")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a, _ := Parse("10.1.2.3:500")
	c := a.Clone()
	c.SetPort(9999)
	if a.Port() != 500 {
		t.Error("mutating a clone must not touch the original")
	}
}

func TestFromIPRejectsInvalid(t *testing.T) {
	if FromIP(net.IP{1, 2}, 80) != nil {
		t.Error("malformed IP should yield nil")
	}
	if FromIP(net.IPv4(1, 2, 3, 4), 70000) != nil {
		t.Error("out-of-range port should yield nil")
	}
}

func TestLoopback(t *testing.T) {
	v4 := Loopback(IPv4, 80)
	if v4.String() != "127.0.0.1:80" {
		t.Errorf("IPv4 loopback = %q", v4.String())
	}
	v6 := Loopback(IPv6, 80)
	if v6.String() != "[::1]:80" {
		t.Errorf("IPv6 loopback = %q", v6.String())
	}
}

func TestLocalAddresses(t *testing.T) {
	addrs, err := LocalAddresses()
	if err != nil {
		t.Fatalf("LocalAddresses: %v", err)
	}
	if len(addrs) == 0 {
		t.Fatal("expected at least one local address")
	}
	for _, a := range addrs {
		if a == nil {
			t.Fatal("nil entry in enumeration")
		}
		if a.Port() != 0 {
			t.Errorf("enumerated address %s should carry port 0", a)
		}
	}
}
