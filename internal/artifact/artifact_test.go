package artifact

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aeliadev/cazan/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tri(x float64) geometry.Triangle {
	return geometry.Triangle{{X: x, Y: 0}, {X: x + 1, Y: 0}, {X: x, Y: 1}}
}

func TestWrite_CreatesParentsAndRoundTrips(t *testing.T) {
	dest := filepath.Join(t.TempDir(), ".cazan", "build", "assets.json")
	m := Map{
		"bbb": {tri(0), tri(5)},
		"aaa": {tri(2)},
	}

	require.NoError(t, Write(m, dest))

	got, err := Read(dest)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestWrite_Format(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "assets.json")
	require.NoError(t, Write(Map{"k": {tri(0)}}, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":[[{"x":0,"y":0},{"x":1,"y":0},{"x":0,"y":1}]]}`, string(data))
}

func TestMarshal_DeterministicKeyOrder(t *testing.T) {
	a := Map{"z": {tri(1)}, "a": {tri(2)}, "m": nil}
	b := Map{"m": nil, "a": {tri(2)}, "z": {tri(1)}}

	da, err := Marshal(a)
	require.NoError(t, err)
	db, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)

	var generic map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(da, &generic))
	assert.JSONEq(t, `[]`, string(generic["m"]))
}

func TestWrite_EmptyMap(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "assets.json")
	require.NoError(t, Write(nil, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestWrite_FailureKeepsPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "assets.json")
	require.NoError(t, Write(Map{"old": {tri(0)}}, dest))

	// A directory squatting on the temp file's target name makes rename fail.
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "assets.json"), 0o755))
	err := Write(Map{"new": {tri(1)}}, filepath.Join(blocked, "assets.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWrite))

	got, err := Read(dest)
	require.NoError(t, err)
	assert.Contains(t, got, "old")
}
