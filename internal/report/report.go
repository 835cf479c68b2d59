// Package report writes a YAML summary of one prebuild run next to the
// artifact.
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/aeliadev/cazan/internal/build"
	"github.com/aeliadev/cazan/internal/fsutil"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Report is the on-disk run summary.
type Report struct {
	BuildID    string       `yaml:"build_id"`
	StartedAt  time.Time    `yaml:"started_at"`
	FinishedAt time.Time    `yaml:"finished_at"`
	Epsilon    float64      `yaml:"epsilon"`
	KeyMode    string       `yaml:"key_mode"`
	Artifact   string       `yaml:"artifact"`
	Totals     Totals       `yaml:"totals"`
	Assets     []AssetEntry `yaml:"assets"`
	Collisions []Collision  `yaml:"collisions,omitempty"`
}

// Totals counts outcomes by status.
type Totals struct {
	Assets int `yaml:"assets"`
	Built  int `yaml:"built"`
	Cached int `yaml:"cached"`
	Failed int `yaml:"failed"`
}

// AssetEntry describes one asset.
type AssetEntry struct {
	Path      string `yaml:"path"`
	Key       string `yaml:"key,omitempty"`
	Status    string `yaml:"status"`
	Triangles int    `yaml:"triangles"`
	Error     string `yaml:"error,omitempty"`
	Duration  string `yaml:"duration"`
}

// Collision mirrors build.Collision.
type Collision struct {
	Key     string `yaml:"key"`
	Kept    string `yaml:"kept"`
	Dropped string `yaml:"dropped"`
}

// Meta carries run details the build result does not know about.
type Meta struct {
	StartedAt time.Time
	Epsilon   float64
	KeyMode   string
	Artifact  string
}

// New summarizes res. A fresh random build ID is assigned.
func New(res *build.Result, meta Meta) *Report {
	r := &Report{
		BuildID:    uuid.NewString(),
		StartedAt:  meta.StartedAt.UTC(),
		FinishedAt: time.Now().UTC(),
		Epsilon:    meta.Epsilon,
		KeyMode:    meta.KeyMode,
		Artifact:   meta.Artifact,
		Totals: Totals{
			Assets: len(res.Outcomes),
			Built:  res.Built,
			Cached: res.Cached,
			Failed: res.Failed,
		},
		Assets: make([]AssetEntry, 0, len(res.Outcomes)),
	}
	for _, oc := range res.Outcomes {
		e := AssetEntry{
			Path:      oc.Asset.Path,
			Key:       oc.Key,
			Status:    string(oc.Status),
			Triangles: len(oc.Triangles),
			Duration:  oc.Duration.Round(time.Microsecond).String(),
		}
		if oc.Err != nil {
			e.Error = oc.Err.Error()
		}
		r.Assets = append(r.Assets, e)
	}
	for _, c := range res.Collisions {
		r.Collisions = append(r.Collisions, Collision{Key: c.Key, Kept: c.Kept, Dropped: c.Dropped})
	}
	return r
}

// Write stores r at path atomically.
func (r *Report) Write(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Read loads a report written by Write.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &r, nil
}
