// Package pool provides reusable buffers for datagram receive paths.
package pool

import "sync"

// DatagramBufferSize bounds a single UDP payload read through the
// stream adapter. 64 KiB covers the largest representable datagram.
const DatagramBufferSize = 65535

var datagramPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, DatagramBufferSize)
		return &buf
	},
}

// GetDatagramBuffer fetches a 64 KiB buffer. Callers must return it
// with PutDatagramBuffer when done.
func GetDatagramBuffer() *[]byte {
	return datagramPool.Get().(*[]byte)
}

// PutDatagramBuffer returns a buffer to the pool.
func PutDatagramBuffer(buf *[]byte) {
	if buf == nil {
		return
	}
	*buf = (*buf)[:cap(*buf)]
	datagramPool.Put(buf)
}
