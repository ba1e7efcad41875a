package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rzbill/quill/internal/store"
)

func TestLoadDefaultsWhenPathEmpty(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bucket != store.DefaultBucket {
		t.Fatalf("bucket: got %q", cfg.Bucket)
	}
	if cfg.FsyncPolicy != "interval" {
		t.Fatalf("policy: got %q", cfg.FsyncPolicy)
	}
}

func TestLoadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.json")
	body := `{"dir":"/tmp/q","fsyncPolicy":"each-batch","batchSize":64,"rebuildOnOpen":true}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Dir != "/tmp/q" || cfg.BatchSize != 64 || !cfg.RebuildOnOpen {
		t.Fatalf("cfg: %+v", cfg)
	}
	// untouched fields keep defaults
	if cfg.Bucket != store.DefaultBucket {
		t.Fatalf("bucket default lost: %q", cfg.Bucket)
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFromEnvOverlay(t *testing.T) {
	t.Setenv("QUILL_DIR", "/env/dir")
	t.Setenv("QUILL_BATCH_SIZE", "128")
	t.Setenv("QUILL_FSYNC_POLICY", "none")
	t.Setenv("QUILL_TRUNCATE_ON_REBUILD", "true")
	t.Setenv("QUILL_WORKERS", "not-a-number")

	cfg := Default()
	FromEnv(&cfg)

	if cfg.Dir != "/env/dir" || cfg.BatchSize != 128 || cfg.FsyncPolicy != "none" {
		t.Fatalf("cfg: %+v", cfg)
	}
	if !cfg.TruncateOnRebuild {
		t.Fatalf("bool overlay lost")
	}
	if cfg.Workers != 0 {
		t.Fatalf("unparsable env must be ignored, got %d", cfg.Workers)
	}
}

func TestStoreOptionsConversion(t *testing.T) {
	cfg := Default()
	cfg.Dir = "/tmp/q"
	cfg.FsyncPolicy = "every-n"
	cfg.FsyncEveryN = 8
	cfg.FsyncIntervalMs = 250
	cfg.RejectWhenFull = true

	opts, err := cfg.StoreOptions()
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if opts.Fsync != store.FsyncEveryN || opts.FsyncEveryN != 8 {
		t.Fatalf("fsync: %+v", opts)
	}
	if opts.FsyncInterval != 250*time.Millisecond {
		t.Fatalf("interval: %v", opts.FsyncInterval)
	}
	if opts.Backpressure != store.BackpressureReject {
		t.Fatalf("backpressure: %v", opts.Backpressure)
	}

	cfg.FsyncPolicy = "sometimes"
	if _, err := cfg.StoreOptions(); err == nil {
		t.Fatalf("unknown policy must error")
	}
}

func TestParseFsyncPolicyNames(t *testing.T) {
	for name, want := range map[string]store.FsyncPolicy{
		"":           store.FsyncNone,
		"none":       store.FsyncNone,
		"each-batch": store.FsyncEachBatch,
		"batch":      store.FsyncEachBatch,
		"interval":   store.FsyncInterval,
		"every-n":    store.FsyncEveryN,
	} {
		got, err := ParseFsyncPolicy(name)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if got != want {
			t.Fatalf("%q: got %v want %v", name, got, want)
		}
	}
}
