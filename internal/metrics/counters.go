// Package metrics collects diagnostic counters for the store's hot paths.
//
// Counters are plain atomics so producers and flush workers can record
// without locks; Snapshot gives tests and tooling a consistent-enough view.
package metrics

import (
	"sync/atomic"
)

// Counters aggregates store activity. The zero value is ready to use.
type Counters struct {
	appends         atomic.Uint64
	appendedBytes   atomic.Uint64
	enqueueRetries  atomic.Uint64
	flushedBatches  atomic.Uint64
	flushedRecords  atomic.Uint64
	fsyncs          atomic.Uint64
	ioErrors        atomic.Uint64
	indexBackfills  atomic.Uint64
	outstanding     atomic.Int64
	rejectedAppends atomic.Uint64
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Appends         uint64
	AppendedBytes   uint64
	EnqueueRetries  uint64
	FlushedBatches  uint64
	FlushedRecords  uint64
	Fsyncs          uint64
	IOErrors        uint64
	IndexBackfills  uint64
	Outstanding     int64
	RejectedAppends uint64
}

// RecordAppend notes one accepted append of n payload bytes.
func (c *Counters) RecordAppend(n int) {
	c.appends.Add(1)
	c.appendedBytes.Add(uint64(n))
	c.outstanding.Add(1)
}

// RecordReject notes an append refused at the call boundary.
func (c *Counters) RecordReject() { c.rejectedAppends.Add(1) }

// RecordEnqueueRetry notes one backoff cycle on a full ring.
func (c *Counters) RecordEnqueueRetry() { c.enqueueRetries.Add(1) }

// RecordFlush notes a flushed batch of n records.
func (c *Counters) RecordFlush(n int) {
	c.flushedBatches.Add(1)
	c.flushedRecords.Add(uint64(n))
}

// RecordFsync notes one fsync of the data file.
func (c *Counters) RecordFsync() { c.fsyncs.Add(1) }

// RecordIOError notes a non-fatal data file I/O failure.
func (c *Counters) RecordIOError() { c.ioErrors.Add(1) }

// RecordIndexBackfill notes a read-path miss served from the persistent index.
func (c *Counters) RecordIndexBackfill() { c.indexBackfills.Add(1) }

// ReleaseRequest notes one request freed after flush or drain.
func (c *Counters) ReleaseRequest() { c.outstanding.Add(-1) }

// Outstanding returns the live request count, for leak diagnostics.
func (c *Counters) Outstanding() int64 { return c.outstanding.Load() }

// Snapshot copies every counter.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Appends:         c.appends.Load(),
		AppendedBytes:   c.appendedBytes.Load(),
		EnqueueRetries:  c.enqueueRetries.Load(),
		FlushedBatches:  c.flushedBatches.Load(),
		FlushedRecords:  c.flushedRecords.Load(),
		Fsyncs:          c.fsyncs.Load(),
		IOErrors:        c.ioErrors.Load(),
		IndexBackfills:  c.indexBackfills.Load(),
		Outstanding:     c.outstanding.Load(),
		RejectedAppends: c.rejectedAppends.Load(),
	}
}
