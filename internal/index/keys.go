package index

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - bucket/{name}/k/{key}  (one entry per record key)
// - bucket/{name}/m        (bucket metadata)

var (
	bucketPrefix = []byte("bucket/")
	entrySeg     = []byte("/k/")
	metaSuffix   = []byte("/m")
)

// keyEntry builds the Pebble key holding the Entry for a record key.
func keyEntry(bucket string, key []byte) []byte {
	k := make([]byte, 0, len(bucketPrefix)+len(bucket)+len(entrySeg)+len(key))
	k = append(k, bucketPrefix...)
	k = append(k, bucket...)
	k = append(k, entrySeg...)
	k = append(k, key...)
	return k
}

// keyMeta builds the bucket metadata key.
func keyMeta(bucket string) []byte {
	k := make([]byte, 0, len(bucketPrefix)+len(bucket)+len(metaSuffix))
	k = append(k, bucketPrefix...)
	k = append(k, bucket...)
	k = append(k, metaSuffix...)
	return k
}

// entryPrefix returns the range prefix covering every entry key in a bucket.
func entryPrefix(bucket string) []byte {
	k := make([]byte, 0, len(bucketPrefix)+len(bucket)+len(entrySeg))
	k = append(k, bucketPrefix...)
	k = append(k, bucket...)
	k = append(k, entrySeg...)
	return k
}

// prefixUpperBound returns the smallest key greater than every key carrying
// the prefix.
func prefixUpperBound(prefix []byte) []byte {
	ub := append([]byte(nil), prefix...)
	for i := len(ub) - 1; i >= 0; i-- {
		if ub[i] < 0xff {
			ub[i]++
			return ub[:i+1]
		}
	}
	return nil
}
