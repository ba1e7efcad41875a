// Package store implements Quill's embedded append-only log store.
//
// # Overview
//
// Records are opaque key/value pairs written to one append-only data file as
// [key_len:u32][value_len:u32][key][value] (big-endian, no padding) and
// located through a two-tier index: a persistent transactional index (source
// of truth across restarts) and an in-memory cache guarded by a
// reader-writer lock (authoritative while running).
//
// # Write path
//
// Append copies the record into one contiguous request and pushes it through
// a lock-free ring wrapped by a wakeup-coalescing batcher, so producers
// never block on disk I/O. Dedicated flush workers drain bounded batches,
// reserve the batch's file extent from a single shared atomic end-of-file
// cursor, write the whole batch with one vectorized call, update both
// indexes, and apply the configured fsync policy.
//
// # Recovery
//
// RebuildOnOpen reconstructs the indexes by scanning the data file up to the
// first torn record (optionally truncating the tail), and IntegrityScan
// cross-checks index entries against on-disk structure, pruning stale ones
// on request.
//
//	st, _ := store.Open(store.Options{Dir: dir, Fsync: store.FsyncEachBatch})
//	defer st.Close()
//	_ = st.Append([]byte("k"), []byte("v"))
//	v, err := st.Get([]byte("k")) // flushed shortly after Append returns
package store
