package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/rzbill/quill/pkg/log"
)

// FsyncPolicy governs how often buffered data file writes are forced to
// stable storage.
type FsyncPolicy int

const (
	// FsyncNone never syncs; fastest, largest crash-loss window.
	FsyncNone FsyncPolicy = iota
	// FsyncEachBatch syncs after every successfully written batch.
	FsyncEachBatch
	// FsyncInterval syncs when the configured interval has elapsed since the
	// last sync; an optional background goroutine syncs on the same interval
	// independent of write activity.
	FsyncInterval
	// FsyncEveryN syncs after every Nth successfully flushed batch.
	FsyncEveryN
)

// Backpressure selects how Append behaves while the ring stays full.
type Backpressure int

const (
	// BackpressureBlock retries with bounded backoff until the ring accepts
	// the request or the store shuts down. The default.
	BackpressureBlock Backpressure = iota
	// BackpressureReject fails the append after the first full ring attempt.
	BackpressureReject
)

// Soft defaults and hard ceilings for record sizing. The ceilings guard the
// rebuild scan against corrupt-length amplification and apply regardless of
// configured soft limits.
const (
	DefaultMaxKeyBytes   = 1 << 20
	DefaultMaxValueBytes = 8 << 20
	HardMaxKeyBytes      = 32 << 20
	HardMaxValueBytes    = 128 << 20

	DefaultRingCapacity  = 1024
	DefaultBatchSize     = 32
	DefaultWorkers       = 1
	DefaultFsyncInterval = 100 * time.Millisecond
	DefaultBucket        = "default"
)

// Options configures a Store.
type Options struct {
	// Dir is the base directory holding the data file and the persistent
	// index. Required.
	Dir string
	// Bucket names the persistent-index bucket. Defaults to "default".
	Bucket string
	// IndexMapSize bounds the persistent index memtable in bytes. 0 uses the
	// index's internal default.
	IndexMapSize uint64

	// RingCapacity is the submission queue size; must be a power of two.
	// Defaults to 1024.
	RingCapacity uint64
	// BatchSize bounds each flush worker drain. Defaults to 32.
	BatchSize int
	// Workers is the flush worker count. Defaults to 1.
	Workers int

	// Fsync selects the durability policy for the data file.
	Fsync FsyncPolicy
	// FsyncInterval applies to FsyncInterval. Defaults to 100ms.
	FsyncInterval time.Duration
	// FsyncEveryN applies to FsyncEveryN; 0 is treated as 1.
	FsyncEveryN int
	// BackgroundFsync spawns an interval goroutine that syncs independent of
	// write activity. Only meaningful with FsyncInterval.
	BackgroundFsync bool

	// RebuildOnOpen reconstructs both indexes by scanning the data file
	// before workers start.
	RebuildOnOpen bool
	// TruncateOnRebuild drops any trailing partial record found by the
	// rebuild scan.
	TruncateOnRebuild bool
	// PreloadIndex fills the in-memory index from the persistent index at
	// open instead of lazily on read misses.
	PreloadIndex bool

	// MaxKeyBytes and MaxValueBytes are soft limits; 0 selects the defaults.
	// Values above the hard ceilings are rejected at open.
	MaxKeyBytes   int
	MaxValueBytes int

	// Backpressure selects Append's behavior on a persistently full ring.
	Backpressure Backpressure

	// Logger receives store diagnostics. Defaults to a no-op logger.
	Logger log.Logger
}

func (o Options) withDefaults() Options {
	if o.Bucket == "" {
		o.Bucket = DefaultBucket
	}
	if o.RingCapacity == 0 {
		o.RingCapacity = DefaultRingCapacity
	}
	if o.BatchSize == 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.FsyncInterval <= 0 {
		o.FsyncInterval = DefaultFsyncInterval
	}
	if o.FsyncEveryN <= 0 {
		o.FsyncEveryN = 1
	}
	if o.MaxKeyBytes == 0 {
		o.MaxKeyBytes = DefaultMaxKeyBytes
	}
	if o.MaxValueBytes == 0 {
		o.MaxValueBytes = DefaultMaxValueBytes
	}
	if o.Logger == nil {
		o.Logger = log.NewNop()
	}
	return o
}

func (o Options) validate() error {
	if o.Dir == "" {
		return errors.New("store: Options.Dir is required")
	}
	if o.RingCapacity < 2 || o.RingCapacity&(o.RingCapacity-1) != 0 {
		return fmt.Errorf("store: ring capacity %d is not a power of two >= 2", o.RingCapacity)
	}
	if o.BatchSize < 1 {
		return fmt.Errorf("store: batch size %d must be >= 1", o.BatchSize)
	}
	if o.Workers < 1 {
		return fmt.Errorf("store: worker count %d must be >= 1", o.Workers)
	}
	if uint64(o.Workers) >= o.RingCapacity {
		// Close pushes one shutdown sentinel per worker; they must all fit.
		return fmt.Errorf("store: worker count %d must be below ring capacity %d", o.Workers, o.RingCapacity)
	}
	if o.MaxKeyBytes < 0 || o.MaxKeyBytes > HardMaxKeyBytes {
		return fmt.Errorf("store: max key bytes %d exceeds hard ceiling %d", o.MaxKeyBytes, HardMaxKeyBytes)
	}
	if o.MaxValueBytes < 0 || o.MaxValueBytes > HardMaxValueBytes {
		return fmt.Errorf("store: max value bytes %d exceeds hard ceiling %d", o.MaxValueBytes, HardMaxValueBytes)
	}
	switch o.Fsync {
	case FsyncNone, FsyncEachBatch, FsyncInterval, FsyncEveryN:
	default:
		return fmt.Errorf("store: unknown fsync policy %d", o.Fsync)
	}
	return nil
}
