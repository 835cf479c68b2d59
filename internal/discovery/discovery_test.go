package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
}

func paths(assets []Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Path
	}
	return out
}

func TestDiscover_DirectoryFiltersExtensions(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "assets/a.png", "assets/b.png", "assets/sub/c.png", "assets/notes.txt")

	got, err := Discover(root, []string{"assets"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"assets/a.png", "assets/b.png", "assets/sub/c.png"}, paths(got))

	for _, a := range got {
		assert.Equal(t, ".png", a.Ext)
		assert.True(t, filepath.IsAbs(a.Abs))
	}
}

func TestDiscover_GlobAndDedupe(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "assets/a.png", "assets/deep/b.jpg", "other/c.gif")

	got, err := Discover(root, []string{"assets/**/*", "assets", "assets/a.png", "other/*.gif"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"assets/a.png", "assets/deep/b.jpg", "other/c.gif"}, paths(got))
}

func TestDiscover_CaseInsensitiveExtensions(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a/UPPER.PNG", "a/Mixed.JpEg", "a/lower.png")

	got, err := Discover(root, []string{"a"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/Mixed.JpEg", "a/UPPER.PNG", "a/lower.png"}, paths(got))
	assert.Equal(t, ".png", got[1].Ext)

	got, err = Discover(root, []string{"a"}, Options{CaseSensitive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/lower.png"}, paths(got))
}

func TestDiscover_NoMatchesIsNotAnError(t *testing.T) {
	root := t.TempDir()

	got, err := Discover(root, []string{"missing/**/*.png", "nope.png"}, Options{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiscover_InvalidPattern(t *testing.T) {
	root := t.TempDir()

	_, err := Discover(root, []string{"assets/[.png"}, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPattern))
}

func TestDiscover_SkipsHiddenDirs(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.png", ".cazan/build/x.png", "sub/.cache/y.png", "sub/z.png")

	got, err := Discover(root, []string{"."}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "sub/z.png"}, paths(got))

	got, err = Discover(root, []string{"."}, Options{IncludeHidden: true})
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestDiscover_Exclude(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "assets/a.png", "assets/wip/b.png")

	got, err := Discover(root, []string{"assets"}, Options{Exclude: []string{"assets/wip/**"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"assets/a.png"}, paths(got))

	_, err = Discover(root, []string{"assets"}, Options{Exclude: []string{"["}})
	assert.True(t, errors.Is(err, ErrInvalidPattern))
}

func TestDiscover_CustomExtensions(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.png", "b.webp")

	got, err := Discover(root, []string{"."}, Options{Extensions: []string{".webp"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.webp"}, paths(got))
}

func TestDiscover_ThreePNGsAndText(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "assets/one.png", "assets/two.png", "assets/three.png", "assets/readme.txt")

	got, err := Discover(root, []string{"assets/**/*.png", "assets"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"assets/one.png", "assets/three.png", "assets/two.png"}, paths(got))
}
