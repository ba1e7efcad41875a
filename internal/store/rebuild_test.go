package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// appendGarbage simulates a torn final write by appending raw bytes that do
// not form a complete record.
func appendGarbage(t *testing.T, dir string, garbage []byte) {
	t.Helper()
	f, err := os.OpenFile(filepath.Join(dir, dataFileName), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open data file: %v", err)
	}
	if _, err := f.Write(garbage); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func dataFileSize(t *testing.T, dir string) int64 {
	t.Helper()
	fi, err := os.Stat(filepath.Join(dir, dataFileName))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	return fi.Size()
}

func TestRebuildRecoversAllCompleteRecords(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	const total = 50
	for i := 0; i < total; i++ {
		if err := s.Append([]byte(fmt.Sprintf("k%02d", i)), []byte(fmt.Sprintf("v%02d", i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Wipe the persistent index to prove recovery comes from the file alone.
	if err := os.RemoveAll(filepath.Join(dir, "index")); err != nil {
		t.Fatalf("remove index: %v", err)
	}

	s2 := newTestStore(t, Options{Dir: dir, RebuildOnOpen: true})
	for i := 0; i < total; i++ {
		got, err := s2.Get([]byte(fmt.Sprintf("k%02d", i)))
		if err != nil {
			t.Fatalf("get k%02d: %v", i, err)
		}
		if want := fmt.Sprintf("v%02d", i); string(got) != want {
			t.Fatalf("k%02d: got %q want %q", i, got, want)
		}
	}
}

func TestRebuildStopsAtTornRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Append([]byte("good"), []byte("value")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// A plausible header whose value bytes were never written.
	torn := []byte{0, 0, 0, 4, 0, 0, 1, 0, 't', 'o', 'r', 'n'}
	appendGarbage(t, dir, torn)
	if err := os.RemoveAll(filepath.Join(dir, "index")); err != nil {
		t.Fatalf("remove index: %v", err)
	}

	s2 := newTestStore(t, Options{Dir: dir, RebuildOnOpen: true})
	got, err := s2.Get([]byte("good"))
	if err != nil || !bytes.Equal(got, []byte("value")) {
		t.Fatalf("prior record corrupted: %q, %v", got, err)
	}
	if _, err := s2.Get([]byte("torn")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("torn record must not be indexed: %v", err)
	}
}

func TestTruncateOnRebuildDropsTail(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Append([]byte("keep"), []byte("me")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	goodSize := dataFileSize(t, dir)

	appendGarbage(t, dir, []byte{0xde, 0xad, 0xbe})
	if dataFileSize(t, dir) == goodSize {
		t.Fatalf("garbage not appended")
	}

	s2, err := Open(Options{Dir: dir, RebuildOnOpen: true, TruncateOnRebuild: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := dataFileSize(t, dir); got != goodSize {
		t.Fatalf("file size after truncate: got %d want %d", got, goodSize)
	}
	if s2.Size() != uint64(goodSize) {
		t.Fatalf("cursor after truncate: got %d want %d", s2.Size(), goodSize)
	}

	// New appends land at the truncated end and survive another cycle.
	if err := s2.Append([]byte("next"), []byte("record")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s2.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s3 := newTestStore(t, Options{Dir: dir})
	for _, kv := range [][2]string{{"keep", "me"}, {"next", "record"}} {
		got, err := s3.Get([]byte(kv[0]))
		if err != nil || string(got) != kv[1] {
			t.Fatalf("get %s: %q, %v", kv[0], got, err)
		}
	}
}

func TestRebuildWithoutTruncateKeepsTail(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Append([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	appendGarbage(t, dir, []byte{1, 2, 3})
	size := dataFileSize(t, dir)

	s2 := newTestStore(t, Options{Dir: dir, RebuildOnOpen: true})
	if got := dataFileSize(t, dir); got != size {
		t.Fatalf("file must not shrink without TruncateOnRebuild: got %d want %d", got, size)
	}
	if _, err := s2.Get([]byte("k")); err != nil {
		t.Fatalf("get: %v", err)
	}
}
