package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aeliadev/cazan/internal/config"
)

// ErrAlreadyInitialized indicates init ran on an initialized project without force.
var ErrAlreadyInitialized = errors.New("a cazan project already exists in this directory")

// InitOptions controls scaffolding.
type InitOptions struct {
	// Force recreates .cazan from scratch when it already exists.
	Force bool

	// Config is written to cazan.json when that file does not exist yet.
	// Nil means config.DefaultProjectConfig named after the root directory.
	Config *config.ProjectConfig
}

// InitResult reports what Init created.
type InitResult struct {
	Reinitialized bool
	WroteConfig   bool
	CreatedAssets bool
}

// Init scaffolds .cazan/, .cazan/build/, assets/ and a default cazan.json.
//
// An existing cazan.json is never overwritten, even with Force: it is the
// user's source of truth. Force only resets cazan's generated state.
func Init(l Layout, opts InitOptions) (*InitResult, error) {
	if info, err := os.Stat(l.Root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project directory does not exist: %s", l.Root)
	}

	res := &InitResult{}
	if l.Initialized() {
		if !opts.Force {
			return nil, ErrAlreadyInitialized
		}
		if err := os.RemoveAll(l.MetaDir()); err != nil {
			return nil, fmt.Errorf("failed to remove %s directory: %w", MetaDir, err)
		}
		res.Reinitialized = true
	}

	if err := os.MkdirAll(l.BuildDir(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", MetaDir, err)
	}

	if _, err := os.Stat(l.AssetsDir()); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(l.AssetsDir(), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", AssetsDir, err)
		}
		res.CreatedAssets = true
	}

	if _, err := os.Stat(l.ConfigFile()); errors.Is(err, fs.ErrNotExist) {
		cfg := opts.Config
		if cfg == nil {
			cfg = config.DefaultProjectConfig(filepath.Base(l.Root))
		}
		data, err := cfg.Marshal()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(l.ConfigFile(), data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", config.FileName, err)
		}
		res.WroteConfig = true
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", config.FileName, err)
	}

	return res, nil
}
