//go:build !linux

package store

import (
	"os"
)

// maxIovecs mirrors the kernel's IOV_MAX.
const maxIovecs = 1024

// pwritevFull degrades to sequential positional writes on platforms without
// pwritev. Offsets are still fixed by the caller's extent reservation.
func pwritevFull(f *os.File, bufs [][]byte, off int64) error {
	for _, b := range bufs {
		if _, err := f.WriteAt(b, off); err != nil {
			return err
		}
		off += int64(len(b))
	}
	return nil
}
