// Package config loads Quill's declarative store configuration.
//
// Configuration comes from a JSON file (Load), is overlaid with QUILL_*
// environment variables (FromEnv), and converts into store.Options
// (StoreOptions). Unset fields fall back to the store's own defaults.
package config
