package config

import (
	"os"
	"strconv"
)

// FromEnv overlays QUILL_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("QUILL_DIR"); v != "" {
		cfg.Dir = v
	}
	if v := os.Getenv("QUILL_BUCKET"); v != "" {
		cfg.Bucket = v
	}
	if v := os.Getenv("QUILL_INDEX_MAP_SIZE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.IndexMapSize = n
		}
	}
	if v := os.Getenv("QUILL_RING_CAPACITY"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.RingCapacity = n
		}
	}
	if v := os.Getenv("QUILL_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("QUILL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("QUILL_FSYNC_POLICY"); v != "" {
		cfg.FsyncPolicy = v
	}
	if v := os.Getenv("QUILL_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("QUILL_FSYNC_EVERY_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FsyncEveryN = n
		}
	}
	if v := os.Getenv("QUILL_BACKGROUND_FSYNC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.BackgroundFsync = b
		}
	}
	if v := os.Getenv("QUILL_REBUILD_ON_OPEN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RebuildOnOpen = b
		}
	}
	if v := os.Getenv("QUILL_TRUNCATE_ON_REBUILD"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.TruncateOnRebuild = b
		}
	}
	if v := os.Getenv("QUILL_PRELOAD_INDEX"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.PreloadIndex = b
		}
	}
	if v := os.Getenv("QUILL_MAX_KEY_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxKeyBytes = n
		}
	}
	if v := os.Getenv("QUILL_MAX_VALUE_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxValueBytes = n
		}
	}
	if v := os.Getenv("QUILL_REJECT_WHEN_FULL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RejectWhenFull = b
		}
	}
}
