package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rzbill/quill/internal/store"
)

// Config is the declarative store configuration loaded from file/env.
type Config struct {
	Dir               string `json:"dir"`
	Bucket            string `json:"bucket"`
	IndexMapSize      uint64 `json:"indexMapSize"`
	RingCapacity      uint64 `json:"ringCapacity"`
	BatchSize         int    `json:"batchSize"`
	Workers           int    `json:"workers"`
	FsyncPolicy       string `json:"fsyncPolicy"`
	FsyncIntervalMs   int    `json:"fsyncIntervalMs"`
	FsyncEveryN       int    `json:"fsyncEveryN"`
	BackgroundFsync   bool   `json:"backgroundFsync"`
	RebuildOnOpen     bool   `json:"rebuildOnOpen"`
	TruncateOnRebuild bool   `json:"truncateOnRebuild"`
	PreloadIndex      bool   `json:"preloadIndex"`
	MaxKeyBytes       int    `json:"maxKeyBytes"`
	MaxValueBytes     int    `json:"maxValueBytes"`
	RejectWhenFull    bool   `json:"rejectWhenFull"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Dir:         DefaultDataDir(),
		Bucket:      store.DefaultBucket,
		FsyncPolicy: "interval",
	}
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ParseFsyncPolicy maps a policy name to its store enum.
func ParseFsyncPolicy(s string) (store.FsyncPolicy, error) {
	switch s {
	case "none", "":
		return store.FsyncNone, nil
	case "each-batch", "each_batch", "batch":
		return store.FsyncEachBatch, nil
	case "interval":
		return store.FsyncInterval, nil
	case "every-n", "every_n":
		return store.FsyncEveryN, nil
	}
	return store.FsyncNone, fmt.Errorf("config: unknown fsync policy %q", s)
}

// StoreOptions converts the declarative config into store options.
func (c Config) StoreOptions() (store.Options, error) {
	policy, err := ParseFsyncPolicy(c.FsyncPolicy)
	if err != nil {
		return store.Options{}, err
	}
	bp := store.BackpressureBlock
	if c.RejectWhenFull {
		bp = store.BackpressureReject
	}
	return store.Options{
		Dir:               c.Dir,
		Bucket:            c.Bucket,
		IndexMapSize:      c.IndexMapSize,
		RingCapacity:      c.RingCapacity,
		BatchSize:         c.BatchSize,
		Workers:           c.Workers,
		Fsync:             policy,
		FsyncInterval:     time.Duration(c.FsyncIntervalMs) * time.Millisecond,
		FsyncEveryN:       c.FsyncEveryN,
		BackgroundFsync:   c.BackgroundFsync,
		RebuildOnOpen:     c.RebuildOnOpen,
		TruncateOnRebuild: c.TruncateOnRebuild,
		PreloadIndex:      c.PreloadIndex,
		MaxKeyBytes:       c.MaxKeyBytes,
		MaxValueBytes:     c.MaxValueBytes,
		Backpressure:      bp,
	}, nil
}
