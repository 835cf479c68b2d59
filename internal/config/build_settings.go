package config

import (
	"fmt"
	"runtime"
	"time"
)

// KeyMode selects how artifact entries are keyed.
type KeyMode string

const (
	// KeyChecksum keys entries by the sha256 of the asset's content.
	KeyChecksum KeyMode = "checksum"
	// KeyPath keys entries by the asset's project-relative path.
	KeyPath KeyMode = "path"
)

// ParseKeyMode validates a key mode name.
func ParseKeyMode(s string) (KeyMode, error) {
	switch KeyMode(s) {
	case KeyChecksum, KeyPath:
		return KeyMode(s), nil
	default:
		return "", fmt.Errorf("key mode must be %q or %q (got %q)", KeyChecksum, KeyPath, s)
	}
}

// BuildSettings holds runtime tuning for prebuild. None of it lives in
// cazan.json: it describes the machine doing the build, not the project.
type BuildSettings struct {
	// Workers is the size of the worker pool
	// Default: number of CPUs, Range: 1-256
	Workers int

	// FileTimeout bounds the geometry pass of a single asset
	// A timed-out asset is reported as failed; the rest of the build continues
	// Default: 60s, Range: 1s-1h
	FileTimeout time.Duration

	// KeyMode selects artifact keys ("checksum" or "path")
	// Default: "checksum"
	KeyMode KeyMode

	// CacheEnabled reuses results of previously built assets with the same
	// content and epsilon
	// Default: true
	CacheEnabled bool

	// CacheTTL drops cache entries written longer ago than this before each
	// build. Zero keeps entries forever
	// Default: 720h (30 days)
	CacheTTL time.Duration
}

// DefaultBuildSettings returns the default build settings
func DefaultBuildSettings() BuildSettings {
	workers := runtime.NumCPU()
	if workers > 256 {
		workers = 256
	}
	return BuildSettings{
		Workers:      workers,
		FileTimeout:  60 * time.Second,
		KeyMode:      KeyChecksum,
		CacheEnabled: true,
		CacheTTL:     30 * 24 * time.Hour,
	}
}

// Validate checks if the settings have valid values
func (s BuildSettings) Validate() error {
	if s.Workers < 1 || s.Workers > 256 {
		return fmt.Errorf("workers must be between 1 and 256 (got %d)", s.Workers)
	}
	if s.FileTimeout < time.Second || s.FileTimeout > time.Hour {
		return fmt.Errorf("file timeout must be between 1s and 1h (got %s)", s.FileTimeout)
	}
	if _, err := ParseKeyMode(string(s.KeyMode)); err != nil {
		return err
	}
	if s.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must not be negative (got %s)", s.CacheTTL)
	}
	return nil
}

// String returns a human-readable representation of the settings
func (s BuildSettings) String() string {
	return fmt.Sprintf(
		"BuildSettings{Workers: %d, FileTimeout: %s, KeyMode: %s, CacheEnabled: %t, CacheTTL: %s}",
		s.Workers, s.FileTimeout, s.KeyMode, s.CacheEnabled, s.CacheTTL,
	)
}

// BuildSettingsFromEnv creates BuildSettings from environment variables,
// falling back to defaults
//
// Environment variables:
//   - CAZAN_WORKERS: worker pool size (default: number of CPUs)
//   - CAZAN_FILE_TIMEOUT: per-asset timeout, e.g. "90s" (default: 60s)
//   - CAZAN_KEY_MODE: "checksum" or "path" (default: checksum)
//   - CAZAN_CACHE: enable the result cache (default: true)
//   - CAZAN_CACHE_TTL: prune cache entries older than this, "0" keeps them (default: 720h)
//
// Returns an error if any environment variable has an invalid value.
func BuildSettingsFromEnv() (BuildSettings, error) {
	s := DefaultBuildSettings()

	if err := parseEnvInt("CAZAN_WORKERS", &s.Workers); err != nil {
		return s, err
	}
	if err := parseEnvDuration("CAZAN_FILE_TIMEOUT", &s.FileTimeout); err != nil {
		return s, err
	}
	keyMode := string(s.KeyMode)
	if err := parseEnvString("CAZAN_KEY_MODE", &keyMode); err != nil {
		return s, err
	}
	s.KeyMode = KeyMode(keyMode)
	if err := parseEnvBool("CAZAN_CACHE", &s.CacheEnabled); err != nil {
		return s, err
	}
	if err := parseEnvDuration("CAZAN_CACHE_TTL", &s.CacheTTL); err != nil {
		return s, err
	}

	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid build settings from environment: %w", err)
	}

	return s, nil
}
