package index

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned by Get when no entry exists for the key.
var ErrNotFound = errors.New("index: entry not found")

// Options configures the persistent index.
type Options struct {
	// Dir is the path to the Pebble database directory.
	Dir string
	// Bucket namespaces this index's keys inside the database.
	Bucket string
	// MapSize bounds the memtable in bytes. 0 uses Pebble's default.
	MapSize uint64
	// SyncWrites requests a WAL fsync on each committed write.
	SyncWrites bool
	// PebbleOptions allows advanced tuning. If nil, defaults are used.
	PebbleOptions *pebble.Options
}

// Index is a durable, transactional key -> Entry map backed by Pebble. Every
// mutation commits through a batch, so an operation either fully applies or
// has no effect.
type Index struct {
	inner     *pebble.DB
	bucket    string
	writeSync bool
}

// Open creates or opens the persistent index.
func Open(opts Options) (*Index, error) {
	if opts.Dir == "" {
		return nil, errors.New("index: Options.Dir is required")
	}
	if opts.Bucket == "" {
		return nil, errors.New("index: Options.Bucket is required")
	}

	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	if opts.MapSize > 0 {
		po.MemTableSize = opts.MapSize
	}

	inner, err := pebble.Open(opts.Dir, po)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", opts.Dir, err)
	}
	return &Index{inner: inner, bucket: opts.Bucket, writeSync: opts.SyncWrites}, nil
}

// Close closes the underlying database. Nil-safe.
func (ix *Index) Close() error {
	if ix == nil || ix.inner == nil {
		return nil
	}
	return ix.inner.Close()
}

func (ix *Index) syncMode() *pebble.WriteOptions {
	if ix.writeSync {
		return pebble.Sync
	}
	return pebble.NoSync
}

// Put stores the entry for key atomically.
func (ix *Index) Put(key []byte, e Entry) error {
	b := ix.inner.NewBatch()
	defer b.Close()
	if err := b.Set(keyEntry(ix.bucket, key), e.Encode(), nil); err != nil {
		return err
	}
	return b.Commit(ix.syncMode())
}

// PutBatch stores all entries in one atomic commit. Keys and entries are
// matched by position.
func (ix *Index) PutBatch(keys [][]byte, entries []Entry) error {
	if len(keys) != len(entries) {
		return errors.New("index: keys/entries length mismatch")
	}
	b := ix.inner.NewBatch()
	defer b.Close()
	for i, key := range keys {
		if err := b.Set(keyEntry(ix.bucket, key), entries[i].Encode(), nil); err != nil {
			return err
		}
	}
	return b.Commit(ix.syncMode())
}

// Get loads the entry for key. Returns ErrNotFound when absent or when the
// stored value does not decode.
func (ix *Index) Get(key []byte) (Entry, error) {
	val, closer, err := ix.inner.Get(keyEntry(ix.bucket, key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	defer closer.Close()
	e, ok := DecodeEntry(val)
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Delete removes the entry for key atomically. Deleting an absent key is not
// an error.
func (ix *Index) Delete(key []byte) error {
	b := ix.inner.NewBatch()
	defer b.Close()
	if err := b.Delete(keyEntry(ix.bucket, key), nil); err != nil {
		return err
	}
	return b.Commit(ix.syncMode())
}

// Iterate visits every entry in the bucket in key order. The key slice passed
// to fn is only valid for the duration of the call. Returning an error from
// fn stops the scan and propagates the error.
func (ix *Index) Iterate(fn func(key []byte, e Entry) error) error {
	prefix := entryPrefix(ix.bucket)
	iter, err := ix.inner.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		e, ok := DecodeEntry(iter.Value())
		if !ok {
			continue
		}
		if err := fn(iter.Key()[len(prefix):], e); err != nil {
			return err
		}
	}
	return iter.Error()
}

// SetMeta stores opaque bucket metadata.
func (ix *Index) SetMeta(val []byte) error {
	b := ix.inner.NewBatch()
	defer b.Close()
	if err := b.Set(keyMeta(ix.bucket), val, nil); err != nil {
		return err
	}
	return b.Commit(ix.syncMode())
}

// GetMeta loads bucket metadata; a copy is returned.
func (ix *Index) GetMeta() ([]byte, error) {
	val, closer, err := ix.inner.Get(keyMeta(ix.bucket))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}
