// Package build runs the geometry pipeline over discovered assets with a
// bounded worker pool and merges the results into one artifact map.
package build

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aeliadev/cazan/internal/artifact"
	"github.com/aeliadev/cazan/internal/checksum"
	"github.com/aeliadev/cazan/internal/config"
	"github.com/aeliadev/cazan/internal/discovery"
	"github.com/aeliadev/cazan/internal/geometry"
)

// ErrTimeout indicates an asset exceeded the per-file timeout.
var ErrTimeout = errors.New("build: timed out")

// Pipeline turns one image file into triangles.
type Pipeline interface {
	Process(ctx context.Context, path string, epsilon float64) ([]geometry.Triangle, error)
}

// Cache stores results of previous builds. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context, digest checksum.Digest, epsilon float64) ([]geometry.Triangle, bool, error)
	Put(ctx context.Context, digest checksum.Digest, epsilon float64, tris []geometry.Triangle) error
}

// Reporter receives per-slot status lines.
type Reporter interface {
	Write(slot int, text string)
	Rewrite(slot int, text string)
	Slots() int
}

// Options configure an Orchestrator.
type Options struct {
	Epsilon     float64
	Workers     int
	FileTimeout time.Duration
	KeyMode     config.KeyMode
	// Cache is consulted before running the pipeline. Nil disables caching.
	Cache Cache
	// Reporter shows progress. Nil discards progress output.
	Reporter Reporter
}

// Status is the per-asset result class.
type Status string

const (
	StatusBuilt  Status = "built"
	StatusCached Status = "cached"
	StatusFailed Status = "failed"
)

// FileError attaches the asset path to a per-file failure.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Outcome is the result of processing one asset.
type Outcome struct {
	Asset     discovery.Asset
	Slot      int
	Key       string
	Digest    checksum.Digest
	Triangles []geometry.Triangle
	Status    Status
	Err       error
	Duration  time.Duration
}

// Collision records two different assets that produced the same key. The
// later asset in discovery order wins.
type Collision struct {
	Key     string
	Kept    string
	Dropped string
}

// Result is the merged output of a run.
type Result struct {
	// Outcomes are in discovery order.
	Outcomes   []Outcome
	Artifacts  artifact.Map
	Collisions []Collision
	Built      int
	Cached     int
	Failed     int
}

// Failures returns the failed outcomes in discovery order.
func (r *Result) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}
