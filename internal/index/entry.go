package index

import (
	"encoding/binary"
)

// entrySize is the fixed on-disk size of an encoded Entry: 8-byte offset
// followed by a 4-byte length, both big-endian.
const entrySize = 12

// Entry locates one record inside the data file.
type Entry struct {
	Offset uint64
	Length uint32
}

// Encode renders the entry into its fixed 12-byte layout.
func (e Entry) Encode() []byte {
	b := make([]byte, entrySize)
	binary.BigEndian.PutUint64(b[0:8], e.Offset)
	binary.BigEndian.PutUint32(b[8:12], e.Length)
	return b
}

// DecodeEntry parses a 12-byte encoded entry. It reports false for buffers of
// the wrong size.
func DecodeEntry(b []byte) (Entry, bool) {
	if len(b) != entrySize {
		return Entry{}, false
	}
	return Entry{
		Offset: binary.BigEndian.Uint64(b[0:8]),
		Length: binary.BigEndian.Uint32(b[8:12]),
	}, true
}
