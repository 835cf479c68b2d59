package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aeliadev/cazan/internal/checksum"
)

// StaleReason explains a staleness verdict.
type StaleReason string

const (
	// ReasonFresh means the stored checksum matches the live config.
	ReasonFresh StaleReason = "fresh"
	// ReasonUnlocked means no checksum has ever been stored.
	ReasonUnlocked StaleReason = "unlocked"
	// ReasonEmpty means the checksum file exists but holds no digest.
	ReasonEmpty StaleReason = "empty"
	// ReasonChanged means cazan.json changed since the last lock.
	ReasonChanged StaleReason = "changed"
)

// Staleness is the advisory result of comparing the live config with the
// last locked checksum.
type Staleness struct {
	Stale  bool
	Reason StaleReason
	Live   checksum.Digest
	Locked checksum.Digest
}

// ReadChecksum loads a persisted checksum. A missing file is not an error:
// exists is false and the digest is empty.
func ReadChecksum(path string) (d checksum.Digest, exists bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", true, fmt.Errorf("%w: checksum file: %v", ErrRead, err)
	}
	return checksum.Parse(string(data)), true, nil
}

// IsStale recomputes the digest of the live config and compares it with the
// digest stored at checksumPath. It never modifies either file.
func IsStale(livePath, checksumPath string) (Staleness, error) {
	live, err := checksum.File(livePath)
	if err != nil {
		return Staleness{}, fmt.Errorf("checksum %s: %w", livePath, err)
	}

	locked, exists, err := ReadChecksum(checksumPath)
	if err != nil {
		return Staleness{}, err
	}

	s := Staleness{Live: live, Locked: locked}
	switch {
	case !exists:
		s.Stale, s.Reason = true, ReasonUnlocked
	case locked == "":
		s.Stale, s.Reason = true, ReasonEmpty
	case locked != live:
		s.Stale, s.Reason = true, ReasonChanged
	default:
		s.Reason = ReasonFresh
	}
	return s, nil
}
