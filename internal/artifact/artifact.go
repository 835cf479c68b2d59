// Package artifact persists the merged build result map.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aeliadev/cazan/internal/fsutil"
	"github.com/aeliadev/cazan/internal/geometry"
)

// ErrWrite indicates the artifact could not be persisted. The destination
// keeps its previous content when this is returned.
var ErrWrite = errors.New("artifact: write failed")

// Map associates an asset key (content checksum or path) with its triangles.
type Map map[string][]geometry.Triangle

// Marshal encodes m as compact JSON. encoding/json sorts map keys, so equal
// maps always produce identical bytes.
func Marshal(m Map) ([]byte, error) {
	out := make(Map, len(m))
	for k, v := range m {
		if v == nil {
			v = []geometry.Triangle{}
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// Write serializes m to dest atomically, creating parent directories.
func Write(m Map, dest string) error {
	data, err := Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrWrite, err)
	}
	if err := fsutil.WriteFileAtomic(dest, data, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, dest, err)
	}
	return nil
}

// Read loads an artifact written by Write.
func Read(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return m, nil
}
