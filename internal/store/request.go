package store

import (
	"encoding/binary"
)

// headerSize is the fixed on-disk record header: key length and value length,
// both big-endian uint32.
const headerSize = 8

// request is one queued append. The buffer is a single contiguous allocation
// laid out exactly as the on-disk record (header, key, value), so ownership
// transfers whole through the ring and the flush worker can hand it straight
// to the write syscall. A shutdown request is a tagged variant carrying no
// record; it exists only to wake and terminate workers.
type request struct {
	buf      []byte
	keyLen   int
	shutdown bool
	failed   bool
}

func newRequest(key, value []byte) *request {
	buf := make([]byte, headerSize+len(key)+len(value))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(key)))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(value)))
	copy(buf[headerSize:], key)
	copy(buf[headerSize+len(key):], value)
	return &request{buf: buf, keyLen: len(key)}
}

func newShutdownRequest() *request { return &request{shutdown: true} }

func (r *request) key() []byte { return r.buf[headerSize : headerSize+r.keyLen] }

func (r *request) size() int { return len(r.buf) }
