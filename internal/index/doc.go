// Package index persists the key -> (offset, length) map on Pebble.
//
// Every record key maps to a fixed 12-byte entry (8-byte offset, 4-byte
// length, big-endian) under a bucket-scoped keyspace:
//   - bucket/{name}/k/{key}  (entries)
//   - bucket/{name}/m        (bucket metadata)
//
// All mutations go through Pebble batches so each operation commits fully or
// not at all, and iteration walks entries in key order. This index is the
// source of truth after a restart; the store layers a volatile cache on top.
package index
