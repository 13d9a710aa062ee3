package netsock

import "sync"

// Handle is an opaque reference to a pooled socket record. Handles are
// index+generation pairs: the generation is bumped when the slot is
// released, so a stale handle is detected on lookup instead of reaching
// freed state. The zero Handle is never live.
type Handle uint64

// InvalidHandle is the zero, never-live handle value.
const InvalidHandle Handle = 0

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index+1))
}

func (h Handle) index() (uint32, bool) {
	idx := uint32(h & 0xffffffff)
	if idx == 0 {
		return 0, false
	}
	return idx - 1, true
}

func (h Handle) generation() uint32 {
	return uint32(h >> 32)
}

type slot struct {
	gen  uint32
	sock *socket
}

// arena is the socket table. Lookup is the only operation that is safe
// from any thread; the socket records themselves are single-owner.
type arena struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
	live  int
}

// alloc stores sock and returns its handle, or false when the table has
// reached max live sockets.
func (a *arena) alloc(sock *socket, max int) (Handle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if max > 0 && a.live >= max {
		return InvalidHandle, false
	}

	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	a.slots[idx].sock = sock
	a.live++
	return makeHandle(idx, a.slots[idx].gen), true
}

// get returns the socket for h, or nil when h is stale or unknown.
func (a *arena) get(h Handle) *socket {
	idx, ok := h.index()
	if !ok {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(idx) >= len(a.slots) {
		return nil
	}
	s := &a.slots[idx]
	if s.gen != h.generation() {
		return nil
	}
	return s.sock
}

// release invalidates h and returns the removed socket, or nil when h
// was already dead. The generation bump makes every outstanding copy of
// h stale.
func (a *arena) release(h Handle) *socket {
	idx, ok := h.index()
	if !ok {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(idx) >= len(a.slots) {
		return nil
	}
	s := &a.slots[idx]
	if s.gen != h.generation() || s.sock == nil {
		return nil
	}
	sock := s.sock
	s.sock = nil
	s.gen++
	a.free = append(a.free, idx)
	a.live--
	return sock
}

// handles snapshots all live handles.
func (a *arena) handles() []Handle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Handle, 0, a.live)
	for i := range a.slots {
		if a.slots[i].sock != nil {
			out = append(out, makeHandle(uint32(i), a.slots[i].gen))
		}
	}
	return out
}
