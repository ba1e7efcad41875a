package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"

	cfgpkg "github.com/rzbill/quill/internal/config"
	"github.com/rzbill/quill/internal/index"
	"github.com/rzbill/quill/internal/store"
	logpkg "github.com/rzbill/quill/pkg/log"
)

func main() {
	// Respect QUILL_LOG_LEVEL for CLI output
	level := os.Getenv("QUILL_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.WarnLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	var (
		dirFlag    string
		configFlag string
	)

	loadOptions := func() (store.Options, error) {
		cfg, err := cfgpkg.Load(configFlag)
		if err != nil {
			return store.Options{}, err
		}
		cfgpkg.FromEnv(&cfg)
		if dirFlag != "" {
			cfg.Dir = dirFlag
		}
		opts, err := cfg.StoreOptions()
		if err != nil {
			return store.Options{}, err
		}
		opts.Logger = logger
		return opts, nil
	}

	openStore := func() (*store.Store, error) {
		opts, err := loadOptions()
		if err != nil {
			return nil, err
		}
		return store.Open(opts)
	}

	rootCmd := &cobra.Command{
		Use:   "quill",
		Short: "Quill append-only log store CLI",
		Long:  "Quill is an embedded append-only log store. This CLI inspects and manipulates a store directory.",
	}
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "Store directory (overrides config file)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to JSON config file")

	appendCmd := &cobra.Command{
		Use:   "append <key> <value>",
		Short: "Append one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			if err := s.Append([]byte(args[0]), []byte(args[1])); err != nil {
				_ = s.Close()
				return err
			}
			// Close drains the queue, so the record is flushed on return.
			return s.Close()
		},
	}
	rootCmd.AddCommand(appendCmd)

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			val, err := s.Get([]byte(args[0]))
			if err != nil {
				return err
			}
			if utf8.Valid(val) {
				fmt.Println(string(val))
			} else {
				fmt.Println(hex.EncodeToString(val))
			}
			return nil
		},
	}
	rootCmd.AddCommand(getCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "List indexed keys in key order",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions()
			if err != nil {
				return err
			}
			ix, err := index.Open(index.Options{
				Dir:     filepath.Join(opts.Dir, "index"),
				Bucket:  opts.Bucket,
				MapSize: opts.IndexMapSize,
			})
			if err != nil {
				return err
			}
			defer ix.Close()
			return ix.Iterate(func(key []byte, e index.Entry) error {
				fmt.Printf("%s\toffset=%d\tlength=%d\n", key, e.Offset, e.Length)
				return nil
			})
		},
	}
	rootCmd.AddCommand(scanCmd)

	var pruneFlag bool
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Cross-check index entries against the data file",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			stats, err := s.IntegrityScan(pruneFlag)
			if err != nil {
				return err
			}
			fmt.Printf("scanned=%d valid=%d pruned=%d errors=%d\n",
				stats.Scanned, stats.Valid, stats.Pruned, stats.Errors)
			if stats.Errors > 0 && !pruneFlag {
				return fmt.Errorf("%d invalid entries (rerun with --prune to remove)", stats.Errors)
			}
			return nil
		},
	}
	verifyCmd.Flags().BoolVar(&pruneFlag, "prune", false, "Remove invalid entries from both indexes")
	rootCmd.AddCommand(verifyCmd)

	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the indexes by scanning the data file",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions()
			if err != nil {
				return err
			}
			truncate, _ := cmd.Flags().GetBool("truncate")
			opts.RebuildOnOpen = true
			opts.TruncateOnRebuild = truncate
			s, err := store.Open(opts)
			if err != nil {
				return err
			}
			fmt.Printf("rebuilt, file size %d\n", s.Size())
			return s.Close()
		},
	}
	rebuildCmd.Flags().Bool("truncate", false, "Truncate trailing partial writes")
	rootCmd.AddCommand(rebuildCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print store counters and file size",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Printf("file_size=%d\n", s.Size())
			snap := s.Stats()
			fmt.Printf("appends=%d appended_bytes=%d flushed_batches=%d flushed_records=%d fsyncs=%d io_errors=%d\n",
				snap.Appends, snap.AppendedBytes, snap.FlushedBatches, snap.FlushedRecords, snap.Fsyncs, snap.IOErrors)
			return nil
		},
	}
	rootCmd.AddCommand(statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
