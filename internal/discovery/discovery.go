// Package discovery expands asset inputs (directories, globs, literal paths)
// into the sorted, deduplicated list of image files a build processes.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidPattern indicates an input is neither a directory nor a valid glob.
var ErrInvalidPattern = errors.New("discovery: invalid pattern")

// DefaultExtensions is the image allow-list.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".gif"}

// Asset is one discovered source file.
type Asset struct {
	// Path is the cleaned, slash-separated path. It is relative to the
	// project root when the file lies inside it.
	Path string
	// Abs is the absolute path used to open the file.
	Abs string
	// Ext is the lower-cased extension including the dot.
	Ext string
}

// Options tune discovery.
type Options struct {
	// Extensions overrides DefaultExtensions. Entries include the dot.
	Extensions []string
	// CaseSensitive requires extensions to match exactly instead of
	// case-insensitively.
	CaseSensitive bool
	// Exclude holds doublestar patterns, relative to the root, for paths
	// that are never returned.
	Exclude []string
	// IncludeHidden walks into directories whose names start with a dot.
	IncludeHidden bool
}

// Discover resolves every input against root and returns the matching
// assets sorted by Path. Inputs that match nothing are not an error.
func Discover(root string, inputs []string, opts Options) ([]Asset, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid root %q: %w", root, err)
	}
	for _, ex := range opts.Exclude {
		if !doublestar.ValidatePattern(filepath.ToSlash(ex)) {
			return nil, fmt.Errorf("%w: exclude %q", ErrInvalidPattern, ex)
		}
	}

	d := &discoverer{root: absRoot, opts: opts, seen: make(map[string]Asset)}
	d.allow = make(map[string]bool)
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	for _, e := range exts {
		if !opts.CaseSensitive {
			e = strings.ToLower(e)
		}
		d.allow[e] = true
	}

	for _, input := range inputs {
		if strings.TrimSpace(input) == "" {
			continue
		}
		if err := d.expand(input); err != nil {
			return nil, err
		}
	}

	assets := make([]Asset, 0, len(d.seen))
	for _, a := range d.seen {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Path < assets[j].Path })
	return assets, nil
}

type discoverer struct {
	root  string
	opts  Options
	allow map[string]bool
	seen  map[string]Asset
}

func (d *discoverer) resolve(input string) string {
	p := filepath.FromSlash(input)
	if !filepath.IsAbs(p) {
		p = filepath.Join(d.root, p)
	}
	return filepath.Clean(p)
}

func (d *discoverer) expand(input string) error {
	abs := d.resolve(input)

	info, err := os.Stat(abs)
	if err == nil {
		if info.IsDir() {
			return d.walk(abs)
		}
		d.add(abs)
		return nil
	}

	pattern := filepath.ToSlash(abs)
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("%w: %q", ErrInvalidPattern, input)
	}
	matches, err := doublestar.FilepathGlob(abs, doublestar.WithFilesOnly())
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, input, err)
	}
	for _, m := range matches {
		d.add(m)
	}
	return nil
}

func (d *discoverer) walk(dir string) error {
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != dir && !d.opts.IncludeHidden && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		d.add(path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return nil
}

func (d *discoverer) add(abs string) {
	abs = filepath.Clean(abs)
	ext := filepath.Ext(abs)
	key := ext
	if !d.opts.CaseSensitive {
		key = strings.ToLower(ext)
	}
	if !d.allow[key] {
		return
	}

	rel := d.rel(abs)
	for _, ex := range d.opts.Exclude {
		if ok, _ := doublestar.Match(filepath.ToSlash(ex), rel); ok {
			return
		}
	}

	d.seen[rel] = Asset{Path: rel, Abs: abs, Ext: strings.ToLower(ext)}
}

func (d *discoverer) rel(abs string) string {
	rel, err := filepath.Rel(d.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}
