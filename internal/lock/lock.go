// Package lock implements the checksum-gated lock step that copies a
// validated cazan.json into .cazan/config.json.
//
// States: Unlocked (no checksum) -> Locked. Locked with a matching checksum
// is a no-op; Locked with a stale checksum is re-locked.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aeliadev/cazan/internal/checksum"
	"github.com/aeliadev/cazan/internal/config"
	"github.com/aeliadev/cazan/internal/fsutil"
	"github.com/aeliadev/cazan/internal/logging"
	"github.com/aeliadev/cazan/internal/project"
)

var (
	// ErrNotInitialized indicates .cazan or cazan.json is missing.
	ErrNotInitialized = errors.New("lock: project not initialized")
	// ErrConfigRead indicates cazan.json exists but could not be read.
	ErrConfigRead = errors.New("lock: cannot read config")
	// ErrInvalidConfig wraps the parse or validation failure of cazan.json.
	ErrInvalidConfig = errors.New("lock: invalid config")
	// ErrLockWrite indicates the snapshot or checksum could not be persisted.
	ErrLockWrite = errors.New("lock: write failed")
)

// Status is the outcome of a successful lock.
type Status string

const (
	// StatusUpToDate means the stored checksum already matched; nothing was written.
	StatusUpToDate Status = "up-to-date"
	// StatusLocked means a new snapshot and checksum were written.
	StatusLocked Status = "locked"
)

// Options control a lock run.
type Options struct {
	// Force copies cazan.json verbatim without validation, even when fresh.
	Force bool
	// AllowUnknown keeps unknown fields by copying the raw bytes after
	// validation succeeds.
	AllowUnknown bool
}

// Result describes what Lock did.
type Result struct {
	Status   Status
	Forced   bool
	Checksum checksum.Digest
	// Unknown lists unknown top-level fields found in cazan.json.
	Unknown []string
	// Warnings are user-facing messages the caller should surface.
	Warnings []string
}

// Manager runs the lock step for one project.
type Manager struct {
	layout project.Layout
}

// NewManager returns a Manager bound to the project layout.
func NewManager(l project.Layout) *Manager {
	return &Manager{layout: l}
}

// Lock validates cazan.json and persists its snapshot and checksum.
func (m *Manager) Lock(ctx context.Context, opts Options) (*Result, error) {
	log := logging.FromContext(ctx)

	if !m.layout.Initialized() {
		return nil, ErrNotInitialized
	}
	live := m.layout.ConfigFile()
	data, err := os.ReadFile(live)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigRead, err)
	}

	digest := checksum.Bytes(data)
	stored, exists, err := config.ReadChecksum(m.layout.ChecksumFile())
	if err != nil {
		// An unreadable checksum is treated as stale so the lock repairs it.
		log.Debug("stored checksum unreadable", "error", err)
		exists = false
	}

	if exists && stored != "" && stored == digest && !opts.Force {
		log.Debug("lock is up to date", "checksum", digest.Short(12))
		return &Result{Status: StatusUpToDate, Checksum: digest}, nil
	}

	res := &Result{Status: StatusLocked, Checksum: digest, Forced: opts.Force}
	if exists && stored == "" {
		res.Warnings = append(res.Warnings, "Warning stored checksum was empty and has been regenerated")
	}

	snapshot := data
	if !opts.Force {
		parsed, err := config.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		res.Unknown = parsed.Unknown
		if !opts.AllowUnknown {
			if len(parsed.Unknown) > 0 {
				res.Warnings = append(res.Warnings, UnknownFieldsWarning(parsed.Unknown))
			}
			if snapshot, err = parsed.Config.Marshal(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrLockWrite, err)
			}
		}
	}

	if err := m.commit(snapshot, digest); err != nil {
		return nil, err
	}
	log.Debug("locked config", "checksum", digest.Short(12), "forced", opts.Force, "unknown", len(res.Unknown))
	return res, nil
}

// commit stages both files and renames the snapshot into place before the
// checksum, so a checksum on disk always describes a committed snapshot.
func (m *Manager) commit(snapshot []byte, digest checksum.Digest) error {
	snapTmp, err := fsutil.StageFile(m.layout.LockedConfigFile(), snapshot, 0o644)
	if err != nil {
		return fmt.Errorf("%w: snapshot: %v", ErrLockWrite, err)
	}
	sumTmp, err := fsutil.StageFile(m.layout.ChecksumFile(), []byte(digest.String()), 0o644)
	if err != nil {
		fsutil.Discard(snapTmp)
		return fmt.Errorf("%w: checksum: %v", ErrLockWrite, err)
	}
	if err := fsutil.Commit(snapTmp, m.layout.LockedConfigFile()); err != nil {
		fsutil.Discard(sumTmp)
		return fmt.Errorf("%w: snapshot: %v", ErrLockWrite, err)
	}
	if err := fsutil.Commit(sumTmp, m.layout.ChecksumFile()); err != nil {
		return fmt.Errorf("%w: checksum: %v", ErrLockWrite, err)
	}
	return nil
}

// UnknownFieldsWarning formats the warning shown when unknown fields are dropped.
func UnknownFieldsWarning(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = "`" + f + "`"
	}
	return fmt.Sprintf("Warning unknown fields (%s) are ignored. To force using them, use --allow-unknown",
		strings.Join(quoted, ", "))
}

// StaleWarning is shown by commands that notice cazan.json changed since the last lock.
const StaleWarning = "Warning lock file is not up-to-date with cazan.json. To update it use `cazan lock`"
