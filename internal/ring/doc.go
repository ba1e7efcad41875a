// Package ring implements a bounded lock-free MPMC queue.
//
// # Overview
//
// Each slot carries a sequence counter published with atomic stores. Fullness
// and emptiness are detected by the signed difference between a slot's
// sequence and the producer/consumer cursor, so no shared count field is
// needed and neither path ever blocks or allocates:
//
//	r, _ := ring.New[*work](1024)
//	if err := r.Enqueue(w); err == ring.ErrFull { /* back off */ }
//	w, err := r.Dequeue() // ring.ErrEmpty when nothing is ready
//
// Enqueue on a full ring and Dequeue on an empty ring fail immediately;
// callers own the retry policy.
package ring
