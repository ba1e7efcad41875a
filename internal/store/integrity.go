package store

import (
	"bytes"
	"encoding/binary"

	"github.com/rzbill/quill/internal/index"
	"github.com/rzbill/quill/pkg/log"
)

// IntegrityStats aggregates the outcome of one integrity scan.
type IntegrityStats struct {
	Scanned uint64
	Valid   uint64
	Pruned  uint64
	Errors  uint64
}

// IntegrityScan cross-checks every persistent index entry against the data
// file: the extent must lie within the file, the on-disk header must agree
// with the indexed length, and the on-disk key bytes must equal the indexed
// key. Entries failing any check are counted as errors and, when prune is
// set, removed from both indexes. Scanning continues past failures.
func (s *Store) IntegrityScan(prune bool) (IntegrityStats, error) {
	var stats IntegrityStats
	size := s.cursor.Load()

	var bad [][]byte
	err := s.idx.Iterate(func(key []byte, e index.Entry) error {
		stats.Scanned++
		if s.entryValid(key, e, size) {
			stats.Valid++
			return nil
		}
		stats.Errors++
		if prune {
			bad = append(bad, append([]byte(nil), key...))
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	for _, key := range bad {
		if derr := s.idx.Delete(key); derr != nil {
			s.logger.Error("prune failed", log.Err(derr))
			continue
		}
		s.mem.delete(key)
		stats.Pruned++
	}

	s.logger.Info("integrity scan complete",
		log.Uint64("scanned", stats.Scanned),
		log.Uint64("valid", stats.Valid),
		log.Uint64("pruned", stats.Pruned),
		log.Uint64("errors", stats.Errors))
	return stats, nil
}

func (s *Store) entryValid(key []byte, e index.Entry, size uint64) bool {
	if e.Length < headerSize+1 {
		return false
	}
	if e.Offset+headerSize > size || e.Offset+uint64(e.Length) > size {
		return false
	}
	var hdr [headerSize]byte
	if _, err := s.file.ReadAt(hdr[:], int64(e.Offset)); err != nil {
		return false
	}
	keyLen := binary.BigEndian.Uint32(hdr[0:4])
	valLen := binary.BigEndian.Uint32(hdr[4:8])
	if keyLen != uint32(len(key)) {
		return false
	}
	if headerSize+keyLen+valLen != e.Length {
		return false
	}
	diskKey := make([]byte, keyLen)
	if _, err := s.file.ReadAt(diskKey, int64(e.Offset)+headerSize); err != nil {
		return false
	}
	return bytes.Equal(diskKey, key)
}
