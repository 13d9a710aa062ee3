package netsock

import (
	"errors"
	"testing"
	"time"

	"github.com/cykyes/netsock/address"
)

// listenLoopback binds a TCP socket to an ephemeral loopback port and
// puts it into StateListening.
func listenLoopback(t *testing.T, n *Network) Handle {
	t.Helper()
	h, err := n.NewTCP()
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Bind(h, address.Loopback(address.IPv4, 0)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := n.Listen(h); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	return h
}

func TestListenRequiresBind(t *testing.T) {
	n := newTestNetwork(t)

	h, err := n.NewTCP()
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Listen(h); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Listen without bind = %v, want ErrInvalidState", err)
	}
	if st := n.State(h); st != StateNotConnected {
		t.Errorf("failed listen left state %v", st)
	}
}

func TestListenTransitionsState(t *testing.T) {
	n := newTestNetwork(t)
	h := listenLoopback(t, n)
	if st := n.State(h); st != StateListening {
		t.Errorf("state after listen = %v", st)
	}
}

func TestListenOnUDPFails(t *testing.T) {
	n := newTestNetwork(t)
	h, err := n.NewUDP()
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Listen(h); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Listen on udp = %v, want ErrInvalidState", err)
	}
}

func TestAcceptOnNonListeningFails(t *testing.T) {
	n := newTestNetwork(t)

	h, err := n.NewTCP()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := n.Accept(h, 0); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Accept on non-listening socket = %v, want ErrInvalidState", err)
	}
}

func TestAcceptTimeout(t *testing.T) {
	n := newTestNetwork(t)
	h := listenLoopback(t, n)

	before := n.Blocking(h)
	timeout := 200 * time.Millisecond

	start := time.Now()
	accepted, err := n.Accept(h, timeout)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Accept with no pending connection = %v, want ErrTimeout", err)
	}
	if accepted != InvalidHandle {
		t.Error("timed-out accept must return an invalid handle")
	}
	if elapsed < timeout-20*time.Millisecond {
		t.Errorf("accept returned after %v, before the %v timeout", elapsed, timeout)
	}
	if elapsed > 5*time.Second {
		t.Errorf("accept blocked for %v, far past the %v timeout", elapsed, timeout)
	}
	if n.Blocking(h) != before {
		t.Error("blocking flag not restored after timed accept")
	}
	if st := n.State(h); st != StateListening {
		t.Errorf("timed-out accept left state %v", st)
	}
}

func TestAcceptTimeoutOnNonBlockingSocket(t *testing.T) {
	n := newTestNetwork(t)
	h := listenLoopback(t, n)
	if err := n.SetBlocking(h, false); err != nil {
		t.Fatal(err)
	}

	if _, err := n.Accept(h, 100*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("Accept = %v, want ErrTimeout", err)
	}
	if n.Blocking(h) {
		t.Error("socket should still be non-blocking")
	}
}

func TestConnectAccept(t *testing.T) {
	n := newTestNetwork(t)
	listener := listenLoopback(t, n)
	target := n.LocalAddress(listener)

	client, err := n.NewTCP()
	if err != nil {
		t.Fatal(err)
	}
	// The listener's backlog completes the handshake without a
	// concurrent accept call.
	if err := n.Connect(client, target, 0); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if st := n.State(client); st != StateConnected {
		t.Fatalf("client state = %v", st)
	}
	if remote := n.RemoteAddress(client); remote == nil || !remote.Equal(target) {
		t.Errorf("client remote = %v, want %v", remote, target)
	}

	accepted, err := n.Accept(listener, 2*time.Second)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if st := n.State(accepted); st != StateConnected {
		t.Errorf("accepted state = %v", st)
	}
	if local := n.LocalAddress(accepted); local == nil || !local.Equal(target) {
		t.Errorf("accepted local = %v, want %v", local, target)
	}
	if remote := n.RemoteAddress(accepted); remote == nil || !remote.Equal(n.LocalAddress(client)) {
		t.Errorf("accepted remote = %v, want client address %v", remote, n.LocalAddress(client))
	}

	var sawConnected, sawAccepted bool
	for _, e := range n.Events().Drain() {
		switch {
		case e.ID == EventConnected && e.Socket == client:
			sawConnected = true
		case e.ID == EventAccepted && e.Socket == accepted:
			sawAccepted = true
		}
	}
	if !sawConnected {
		t.Error("missing connected event for client")
	}
	if !sawAccepted {
		t.Error("missing accepted event for new socket")
	}
}

func TestNonBlockingConnectResolvesViaState(t *testing.T) {
	n := newTestNetwork(t)
	listener := listenLoopback(t, n)
	target := n.LocalAddress(listener)

	client, err := n.NewTCP()
	if err != nil {
		t.Fatal(err)
	}
	if err := n.SetBlocking(client, false); err != nil {
		t.Fatal(err)
	}
	if err := n.Connect(client, target, 0); err != nil {
		t.Fatalf("non-blocking connect: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for n.State(client) == StateConnecting {
		if time.Now().After(deadline) {
			t.Fatal("connect did not resolve")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if st := n.State(client); st != StateConnected {
		t.Fatalf("state = %v, want Connected", st)
	}
}

func TestDelayFlag(t *testing.T) {
	n := newTestNetwork(t)

	h, err := n.NewTCP()
	if err != nil {
		t.Fatal(err)
	}
	if n.Delay(h) {
		t.Error("delay defaults to off")
	}
	// Recorded in flags before the descriptor exists, applied at open.
	if err := n.SetDelay(h, true); err != nil {
		t.Fatal(err)
	}
	if !n.Delay(h) {
		t.Error("Delay should report the recorded flag")
	}
	if err := n.Bind(h, address.Loopback(address.IPv4, 0)); err != nil {
		t.Fatal(err)
	}
	// Takes effect immediately on the open descriptor.
	if err := n.SetDelay(h, false); err != nil {
		t.Fatal(err)
	}
	if n.Delay(h) {
		t.Error("Delay should report false")
	}
}

func TestSetDelayOnUDPFails(t *testing.T) {
	n := newTestNetwork(t)
	h, err := n.NewUDP()
	if err != nil {
		t.Fatal(err)
	}
	if err := n.SetDelay(h, true); !errors.Is(err, ErrInvalidState) {
		t.Errorf("SetDelay on udp = %v, want ErrInvalidState", err)
	}
}

func TestAcceptedSocketInheritsDelay(t *testing.T) {
	n := newTestNetwork(t)

	listener, err := n.NewTCP()
	if err != nil {
		t.Fatal(err)
	}
	if err := n.SetDelay(listener, true); err != nil {
		t.Fatal(err)
	}
	if err := n.Bind(listener, address.Loopback(address.IPv4, 0)); err != nil {
		t.Fatal(err)
	}
	if err := n.Listen(listener); err != nil {
		t.Fatal(err)
	}

	client, err := n.NewTCP()
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Connect(client, n.LocalAddress(listener), 0); err != nil {
		t.Fatal(err)
	}
	accepted, err := n.Accept(listener, 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !n.Delay(accepted) {
		t.Error("accepted socket should inherit the listener's delay flag")
	}
}
