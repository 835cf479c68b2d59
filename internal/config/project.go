// Package config models cazan's declarative project configuration: the
// user-edited cazan.json, its locked snapshot, and the runtime settings that
// tune a build.
package config

import (
	"encoding/json"
	"fmt"
)

const (
	// FileName is the live, user-editable project configuration.
	FileName = "cazan.json"

	// DefaultVersion is written into freshly scaffolded configs.
	DefaultVersion = "0.1.0"

	// DefaultEpsilon is the Ramer-Douglas-Peucker tolerance used when neither
	// the command line nor the config sets one.
	DefaultEpsilon = 3.0

	// DefaultAssetPattern is the asset glob written by init.
	DefaultAssetPattern = "assets/**/*.png"
)

// ProjectConfig models cazan.json.
type ProjectConfig struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Authors []string `json:"authors"`
	Epsilon *float64 `json:"epsilon,omitempty"`
	Assets  []string `json:"assets,omitempty"`
	Plugins []string `json:"plugins,omitempty"`
}

// knownFields lists the top-level keys ProjectConfig understands. Anything
// else in cazan.json is reported as unknown.
var knownFields = map[string]bool{
	"name":    true,
	"version": true,
	"authors": true,
	"epsilon": true,
	"assets":  true,
	"plugins": true,
}

// DefaultProjectConfig returns the config init writes for a new project.
func DefaultProjectConfig(name string) *ProjectConfig {
	return &ProjectConfig{
		Name:    name,
		Version: DefaultVersion,
		Authors: []string{},
		Assets:  []string{DefaultAssetPattern},
	}
}

// EffectiveEpsilon resolves the RDP tolerance: an explicit override wins,
// then the config value, then DefaultEpsilon.
func (c *ProjectConfig) EffectiveEpsilon(override *float64) float64 {
	if override != nil {
		return *override
	}
	if c != nil && c.Epsilon != nil {
		return *c.Epsilon
	}
	return DefaultEpsilon
}

// Marshal renders the normalized form of the config: known fields only,
// two-space indented, newline terminated.
func (c *ProjectConfig) Marshal() ([]byte, error) {
	out := *c
	if out.Authors == nil {
		out.Authors = []string{}
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal project config: %w", err)
	}
	return append(data, '\n'), nil
}
