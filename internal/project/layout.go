// Package project locates cazan's files inside a project root and scaffolds
// new projects.
//
// Every path is derived from an explicit root; nothing here consults the
// process working directory.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aeliadev/cazan/internal/config"
)

const (
	// MetaDir holds cazan's generated state. Its absence means the project is
	// not initialized.
	MetaDir = ".cazan"

	// AssetsDir is the conventional source directory created by init.
	AssetsDir = "assets"
)

// ErrNotInitialized indicates the project has no .cazan directory.
var ErrNotInitialized = errors.New("cazan is not initialized for this directory")

// Layout resolves the well-known files of one project.
type Layout struct {
	Root string
}

// New returns the layout rooted at root, made absolute.
func New(root string) (Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, fmt.Errorf("invalid project root %q: %w", root, err)
	}
	return Layout{Root: abs}, nil
}

// ConfigFile is the live cazan.json.
func (l Layout) ConfigFile() string { return filepath.Join(l.Root, config.FileName) }

// MetaDir is the .cazan directory.
func (l Layout) MetaDir() string { return filepath.Join(l.Root, MetaDir) }

// LockedConfigFile is the locked snapshot.
func (l Layout) LockedConfigFile() string { return filepath.Join(l.MetaDir(), "config.json") }

// ChecksumFile holds the digest of cazan.json at the last lock.
func (l Layout) ChecksumFile() string { return filepath.Join(l.MetaDir(), "checksum.txt") }

// BuildDir holds build outputs.
func (l Layout) BuildDir() string { return filepath.Join(l.MetaDir(), "build") }

// ArtifactFile is the default build artifact.
func (l Layout) ArtifactFile() string { return filepath.Join(l.BuildDir(), "assets.json") }

// ReportFile is the per-run build report.
func (l Layout) ReportFile() string { return filepath.Join(l.BuildDir(), "report.yaml") }

// CacheFile is the result cache database.
func (l Layout) CacheFile() string { return filepath.Join(l.MetaDir(), "cache.db") }

// AssetsDir is the default asset source directory.
func (l Layout) AssetsDir() string { return filepath.Join(l.Root, AssetsDir) }

// Rel returns path relative to the root with forward slashes, or path
// unchanged when it lies outside the root.
func (l Layout) Rel(path string) string {
	rel, err := filepath.Rel(l.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Initialized reports whether the .cazan directory exists.
func (l Layout) Initialized() bool {
	info, err := os.Stat(l.MetaDir())
	return err == nil && info.IsDir()
}

// RequireInitialized returns ErrNotInitialized when the .cazan directory is missing.
func (l Layout) RequireInitialized() error {
	if !l.Initialized() {
		return ErrNotInitialized
	}
	return nil
}
