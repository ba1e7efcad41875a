// Package batch layers a wakeup-coalescing drain API over a ring buffer.
//
// Separating "a signal that work exists" from the work itself lets the
// consumer sleep instead of polling the ring, while the bounded drain
// amortizes per-batch costs (file write, index update, fsync) across every
// record submitted in the same window.
package batch
