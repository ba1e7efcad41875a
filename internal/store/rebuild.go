package store

import (
	"encoding/binary"
	"fmt"

	"github.com/rzbill/quill/internal/index"
	"github.com/rzbill/quill/pkg/log"
)

// rebuildFromFile sequentially scans the data file and (re)inserts every
// structurally valid record into both indexes. The scan stops at the first
// invalid or short record; with TruncateOnRebuild the file is cut back to the
// last known-good end, which is the crash-recovery contract: the log is
// recoverable up to the last complete record.
//
// Called from Open before any worker exists, so it may truncate freely.
func (s *Store) rebuildFromFile() error {
	size := s.cursor.Load()
	var (
		off     uint64
		records int
		hdr     [headerSize]byte
		probe   [1]byte
	)

	for off+headerSize <= size {
		if _, err := s.file.ReadAt(hdr[:], int64(off)); err != nil {
			break
		}
		keyLen := binary.BigEndian.Uint32(hdr[0:4])
		valLen := binary.BigEndian.Uint32(hdr[4:8])
		if keyLen == 0 || keyLen > uint32(s.opts.MaxKeyBytes) || valLen > uint32(s.opts.MaxValueBytes) {
			break
		}
		recLen := uint64(headerSize) + uint64(keyLen) + uint64(valLen)
		if off+recLen > size {
			break
		}

		key := make([]byte, keyLen)
		if _, err := s.file.ReadAt(key, int64(off)+headerSize); err != nil {
			break
		}
		// Probe the value's last byte instead of reading the whole value; a
		// short read here means the tail is torn.
		if valLen > 0 {
			if _, err := s.file.ReadAt(probe[:], int64(off+recLen)-1); err != nil {
				break
			}
		}

		e := index.Entry{Offset: off, Length: uint32(recLen)}
		if err := s.idx.Put(key, e); err != nil {
			return fmt.Errorf("store: rebuild index put: %w", err)
		}
		s.mem.put(key, e)
		records++
		off += recLen
	}

	if off < size {
		s.logger.Warn("rebuild stopped before end of file",
			log.Uint64("good_end", off), log.Uint64("file_size", size))
		if s.opts.TruncateOnRebuild {
			if err := s.file.Truncate(int64(off)); err != nil {
				return fmt.Errorf("store: truncate to last good record: %w", err)
			}
			s.cursor.Store(off)
			s.logger.Info("truncated trailing partial write", log.Uint64("file_size", off))
		}
	}
	s.logger.Info("rebuild complete", log.Int("records", records), log.Uint64("scanned_bytes", off))
	return nil
}
