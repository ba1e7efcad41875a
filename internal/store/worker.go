package store

import (
	"context"
	"time"

	"github.com/rzbill/quill/internal/index"
	"github.com/rzbill/quill/pkg/log"
)

// flushLoop is the body of one flush worker. Workers are the only goroutines
// that write the data file or issue fsync. Each loop iteration blocks on the
// batcher, flushes whatever live requests it drained, and exits once the
// store is draining and the ring is empty.
func (s *Store) flushLoop(id int) {
	defer s.workers.Done()
	logger := s.logger.With(log.Int("worker", id))

	buf := make([]*request, 0, s.opts.BatchSize)
	for {
		items, err := s.batcher.Next(context.Background(), buf)
		if err != nil {
			return
		}

		// Split out shutdown sentinels; they carry no record. Filtering in
		// place keeps the batch in dequeue order.
		live := items[:0]
		for _, req := range items {
			if !req.shutdown {
				live = append(live, req)
			}
		}
		if len(live) > 0 {
			s.flushBatch(logger, live)
		}

		if !s.running.Load() && s.batcher.Empty() {
			// Cascade so siblings blocked in Next re-check and exit too.
			s.batcher.Wake()
			return
		}
		buf = items[:0]
	}
}

// flushBatch reserves the batch's file extent once, writes every record with
// one vectorized call, then updates both indexes and applies the fsync
// policy. Write failures are logged and skip only the affected records'
// index updates; prior records stay intact.
func (s *Store) flushBatch(logger log.Logger, reqs []*request) {
	total := 0
	for _, req := range reqs {
		total += req.size()
	}
	base := s.cursor.Add(uint64(total)) - uint64(total)

	iovs := make([][]byte, len(reqs))
	for i, req := range reqs {
		iovs[i] = req.buf
	}
	if err := pwritevFull(s.file, iovs, int64(base)); err != nil {
		logger.Warn("vectorized write failed, falling back to per-record writes",
			log.Err(err), log.Uint64("offset", base), log.Int("records", len(reqs)))
		s.counters.RecordIOError()
		// The extent is already reserved, so each record's offset is fixed;
		// rewriting from the start of the extent cannot double-append.
		off := base
		for _, req := range reqs {
			if _, werr := s.file.WriteAt(req.buf, int64(off)); werr != nil {
				logger.Error("record write failed, index update skipped",
					log.Err(werr), log.Uint64("offset", off), log.Int("len", req.size()))
				s.counters.RecordIOError()
				req.failed = true
			}
			off += uint64(req.size())
		}
	}

	keys := make([][]byte, 0, len(reqs))
	entries := make([]index.Entry, 0, len(reqs))
	off := base
	for _, req := range reqs {
		if !req.failed {
			keys = append(keys, req.key())
			entries = append(entries, index.Entry{Offset: off, Length: uint32(req.size())})
		}
		off += uint64(req.size())
	}
	if len(keys) > 0 {
		if err := s.idx.PutBatch(keys, entries); err != nil {
			// Recoverable via rebuild-on-open; the records are on disk.
			logger.Error("persistent index update failed", log.Err(err), log.Int("records", len(keys)))
			s.counters.RecordIOError()
		}
		s.mem.putBatch(keys, entries)
	}

	s.applyFsyncPolicy(logger)
	s.counters.RecordFlush(len(reqs))
	for range reqs {
		s.counters.ReleaseRequest()
	}
}

func (s *Store) applyFsyncPolicy(logger log.Logger) {
	switch s.opts.Fsync {
	case FsyncNone:
	case FsyncEachBatch:
		s.fsyncFile(logger)
	case FsyncInterval:
		now := time.Now().UnixNano()
		last := s.lastFsync.Load()
		if now-last >= s.opts.FsyncInterval.Nanoseconds() && s.lastFsync.CompareAndSwap(last, now) {
			s.fsyncFile(logger)
		}
	case FsyncEveryN:
		if s.batchCount.Add(1)%uint64(s.opts.FsyncEveryN) == 0 {
			s.fsyncFile(logger)
		}
	}
}

// fsyncFile syncs the data file. Concurrent fsync with in-flight writes is
// safe; it only flushes writes already issued.
func (s *Store) fsyncFile(logger log.Logger) {
	if err := s.file.Sync(); err != nil {
		logger.Error("fsync failed", log.Err(err))
		s.counters.RecordIOError()
		return
	}
	s.counters.RecordFsync()
}

// backgroundFsyncLoop syncs on the configured interval independent of write
// activity, so a quiet store still bounds its crash-loss window.
func (s *Store) backgroundFsyncLoop() {
	defer close(s.fsyncDone)
	logger := s.logger.With(log.Str("goroutine", "bg-fsync"))
	ticker := time.NewTicker(s.opts.FsyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now().UnixNano()
			last := s.lastFsync.Load()
			if now-last >= s.opts.FsyncInterval.Nanoseconds() && s.lastFsync.CompareAndSwap(last, now) {
				s.fsyncFile(logger)
			}
		case <-s.fsyncStop:
			return
		}
	}
}
