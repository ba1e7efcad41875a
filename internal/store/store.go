package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rzbill/quill/internal/batch"
	"github.com/rzbill/quill/internal/index"
	"github.com/rzbill/quill/internal/metrics"
	"github.com/rzbill/quill/internal/ring"
	"github.com/rzbill/quill/pkg/log"
)

const dataFileName = "data.log"

var (
	// ErrClosed is returned by Append and Get once the store is draining or
	// closed.
	ErrClosed = errors.New("store: closed")
	// ErrEmptyKey is returned by Append for zero-length keys.
	ErrEmptyKey = errors.New("store: empty key")
	// ErrKeyTooLarge is returned when a key exceeds the configured maximum.
	ErrKeyTooLarge = errors.New("store: key too large")
	// ErrValueTooLarge is returned when a value exceeds the configured maximum.
	ErrValueTooLarge = errors.New("store: value too large")
	// ErrNotFound is returned by Get when no index holds the key or the
	// on-disk header disagrees with the indexed length.
	ErrNotFound = errors.New("store: key not found")
	// ErrBackpressure is returned under BackpressureReject when the ring
	// stays full.
	ErrBackpressure = errors.New("store: submission queue full")
)

// Append retry backoff on a full ring.
const (
	enqueueInitialBackoff = 50 * time.Microsecond
	enqueueMaxBackoff     = 2 * time.Millisecond
)

// Store is an embedded append-only log of key/value records. Producers
// submit through a lock-free ring and never touch the disk; dedicated flush
// workers drain batches, write them with vectorized positional I/O, and keep
// the persistent and in-memory indexes consistent.
type Store struct {
	opts    Options
	logger  log.Logger
	file    *os.File
	idx     *index.Index
	mem     *memIndex
	batcher *batch.Batcher[*request]

	// cursor is the shared end-of-file position. Workers reserve a batch's
	// extent with one fetch-and-add before writing, so multiple workers can
	// never overlap extents.
	cursor atomic.Uint64

	counters   metrics.Counters
	running    atomic.Bool
	closeOnce  sync.Once
	closeErr   error
	workers    sync.WaitGroup
	lastFsync  atomic.Int64 // unix nanos of the last data file sync
	batchCount atomic.Uint64
	fsyncStop  chan struct{}
	fsyncDone  chan struct{}
}

// Open validates opts, opens or creates the data file and persistent index,
// optionally rebuilds from the file, and starts the flush workers. On any
// failure every partially created resource is released before returning.
func Open(opts Options) (*Store, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}

	// No O_APPEND: workers position every write explicitly off the shared
	// cursor, and pwrite on an append-mode descriptor ignores its offset.
	file, err := os.OpenFile(filepath.Join(opts.Dir, dataFileName), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open data file: %w", err)
	}
	fi, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("store: stat data file: %w", err)
	}

	idx, err := index.Open(index.Options{
		Dir:     filepath.Join(opts.Dir, "index"),
		Bucket:  opts.Bucket,
		MapSize: opts.IndexMapSize,
	})
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	r, err := ring.New[*request](opts.RingCapacity)
	if err != nil {
		_ = idx.Close()
		_ = file.Close()
		return nil, err
	}
	b, err := batch.New(r, opts.BatchSize)
	if err != nil {
		_ = idx.Close()
		_ = file.Close()
		return nil, err
	}

	s := &Store{
		opts:    opts,
		logger:  opts.Logger.WithComponent("store"),
		file:    file,
		idx:     idx,
		mem:     newMemIndex(),
		batcher: b,
	}
	s.cursor.Store(uint64(fi.Size()))
	s.lastFsync.Store(time.Now().UnixNano())

	if opts.RebuildOnOpen {
		// Runs strictly before workers and the background fsync goroutine
		// exist, so the truncation below cannot race any sync or write.
		if err := s.rebuildFromFile(); err != nil {
			_ = idx.Close()
			_ = file.Close()
			return nil, err
		}
	}
	if opts.PreloadIndex {
		if err := s.preloadMemIndex(); err != nil {
			_ = idx.Close()
			_ = file.Close()
			return nil, err
		}
	}

	s.running.Store(true)
	for i := 0; i < opts.Workers; i++ {
		s.workers.Add(1)
		go s.flushLoop(i)
	}
	if opts.Fsync == FsyncInterval && opts.BackgroundFsync {
		s.fsyncStop = make(chan struct{})
		s.fsyncDone = make(chan struct{})
		go s.backgroundFsyncLoop()
	}

	s.logger.Info("store opened",
		log.Str("dir", opts.Dir),
		log.Str("bucket", opts.Bucket),
		log.Int("workers", opts.Workers),
		log.Int("batch_size", opts.BatchSize),
		log.Uint64("ring_capacity", opts.RingCapacity),
		log.Uint64("file_size", s.cursor.Load()))
	return s, nil
}

// preloadMemIndex fills the in-memory index from the persistent one.
func (s *Store) preloadMemIndex() error {
	return s.idx.Iterate(func(key []byte, e index.Entry) error {
		s.mem.put(key, e)
		return nil
	})
}

// Append submits one record. The key and value are copied into a single
// contiguous request, so the caller's slices are free for reuse on return.
// The ring being momentarily full is absorbed by bounded backoff under the
// Block policy; only shutdown or the Reject policy surfaces a failure.
func (s *Store) Append(key, value []byte) error {
	if !s.running.Load() {
		return ErrClosed
	}
	if len(key) == 0 {
		s.counters.RecordReject()
		return ErrEmptyKey
	}
	if len(key) > s.opts.MaxKeyBytes || len(key) > HardMaxKeyBytes {
		s.counters.RecordReject()
		return ErrKeyTooLarge
	}
	if len(value) > s.opts.MaxValueBytes || len(value) > HardMaxValueBytes {
		s.counters.RecordReject()
		return ErrValueTooLarge
	}

	req := newRequest(key, value)
	s.counters.RecordAppend(req.size())

	delay := enqueueInitialBackoff
	for {
		if !s.running.Load() {
			s.counters.ReleaseRequest()
			return ErrClosed
		}
		if err := s.batcher.Enqueue(req); err == nil {
			return nil
		}
		if s.opts.Backpressure == BackpressureReject {
			s.counters.ReleaseRequest()
			s.counters.RecordReject()
			return ErrBackpressure
		}
		s.counters.RecordEnqueueRetry()
		time.Sleep(delay)
		if delay *= 2; delay > enqueueMaxBackoff {
			delay = enqueueMaxBackoff
		}
	}
}

// Get returns the most recently flushed value for key. It consults the
// in-memory index first and falls back to the persistent index, backfilling
// the cache on a hit.
func (s *Store) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrNotFound
	}
	e, ok := s.mem.get(key)
	if !ok {
		var err error
		e, err = s.idx.Get(key)
		if err != nil {
			if errors.Is(err, index.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		s.mem.put(key, e)
		s.counters.RecordIndexBackfill()
	}
	return s.readRecordValue(key, e)
}

// readRecordValue reads the header at the entry's offset, cross-checks it
// against the indexed length, then reads the value bytes.
func (s *Store) readRecordValue(key []byte, e index.Entry) ([]byte, error) {
	var hdr [headerSize]byte
	if _, err := s.file.ReadAt(hdr[:], int64(e.Offset)); err != nil {
		return nil, ErrNotFound
	}
	keyLen := binary.BigEndian.Uint32(hdr[0:4])
	valLen := binary.BigEndian.Uint32(hdr[4:8])
	if keyLen != uint32(len(key)) || headerSize+keyLen+valLen != e.Length {
		return nil, ErrNotFound
	}
	val := make([]byte, valLen)
	if valLen == 0 {
		return val, nil
	}
	if _, err := s.file.ReadAt(val, int64(e.Offset)+headerSize+int64(keyLen)); err != nil {
		return nil, ErrNotFound
	}
	return val, nil
}

// Stats returns a snapshot of the diagnostic counters.
func (s *Store) Stats() metrics.Snapshot { return s.counters.Snapshot() }

// Size returns the current logical end of the data file.
func (s *Store) Size() uint64 { return s.cursor.Load() }

// Close drains and stops the flush workers, syncs and closes the data file,
// and closes the persistent index. It blocks until every accepted append has
// been flushed. Safe to call more than once and on a nil store.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.running.Store(false)

		// One shutdown sentinel per worker; retry on a full ring since the
		// workers are actively draining it.
		for i := 0; i < s.opts.Workers; i++ {
			req := newShutdownRequest()
			for s.batcher.Enqueue(req) != nil {
				time.Sleep(enqueueInitialBackoff)
			}
		}
		s.workers.Wait()

		if s.fsyncStop != nil {
			close(s.fsyncStop)
			<-s.fsyncDone
		}

		// Defensive: nothing should remain queued once the workers exit.
		leaked := s.drainLeftovers()
		if leaked > 0 {
			s.logger.Warn("requests drained unflushed at close", log.Int("count", leaked))
		}
		if n := s.counters.Outstanding(); n != 0 {
			s.logger.Warn("outstanding request count nonzero at close", log.Int("count", int(n)))
		}

		if err := s.file.Sync(); err != nil {
			s.logger.Error("final fsync failed", log.Err(err))
		}
		if err := s.idx.Close(); err != nil {
			s.closeErr = err
		}
		if err := s.file.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
		s.logger.Info("store closed", log.Uint64("file_size", s.cursor.Load()))
	})
	return s.closeErr
}

func (s *Store) drainLeftovers() int {
	n := 0
	for {
		req, ok := s.batcher.TryDequeue()
		if !ok {
			return n
		}
		if !req.shutdown {
			s.counters.ReleaseRequest()
			n++
		}
	}
}
