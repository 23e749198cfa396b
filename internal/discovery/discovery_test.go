package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	}
}

func TestDiscover_PatternsThenExplicit(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"basic_zeta.ipynb",
		"basic_alpha.ipynb",
		"introduction_python.ipynb",
		"introduction_quickstart.ipynb",
		"other.ipynb",
	)

	res, err := Discover(Options{
		Dir:       dir,
		Patterns:  []string{"basic*.ipynb"},
		Notebooks: []string{"introduction_python.ipynb", "introduction_quickstart.ipynb"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "basic_alpha.ipynb"),
		filepath.Join(dir, "basic_zeta.ipynb"),
		filepath.Join(dir, "introduction_python.ipynb"),
		filepath.Join(dir, "introduction_quickstart.ipynb"),
	}, res.Notebooks)
	assert.Empty(t, res.Missing)
}

func TestDiscover_Deduplicates(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "basic_one.ipynb", "basic_two.ipynb")

	res, err := Discover(Options{
		Dir:       dir,
		Patterns:  []string{"basic*.ipynb", "*_one.ipynb"},
		Notebooks: []string{"basic_two.ipynb", "./basic_one.ipynb"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "basic_one.ipynb"),
		filepath.Join(dir, "basic_two.ipynb"),
	}, res.Notebooks)
}

func TestDiscover_MissingExplicitNotebookIsKept(t *testing.T) {
	dir := t.TempDir()

	res, err := Discover(Options{Dir: dir, Notebooks: []string{"gone.ipynb"}})
	require.NoError(t, err)

	want := filepath.Join(dir, "gone.ipynb")
	assert.Equal(t, []string{want}, res.Notebooks)
	assert.Equal(t, []string{want}, res.Missing)
}

func TestDiscover_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "basic_real.ipynb")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "basic_dir.ipynb"), 0755))

	res, err := Discover(Options{Dir: dir, Patterns: []string{"basic*"}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "basic_real.ipynb")}, res.Notebooks)
}

func TestDiscover_AbsoluteExplicitPath(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	touch(t, other, "elsewhere.ipynb")

	res, err := Discover(Options{Dir: dir, Notebooks: []string{filepath.Join(other, "elsewhere.ipynb")}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(other, "elsewhere.ipynb")}, res.Notebooks)
}

func TestDiscover_Errors(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "file.ipynb")

	_, err := Discover(Options{Dir: filepath.Join(dir, "nope")})
	assert.Error(t, err)

	_, err = Discover(Options{Dir: filepath.Join(dir, "file.ipynb")})
	assert.Error(t, err)

	_, err = Discover(Options{Dir: dir, Patterns: []string{"[unclosed"}})
	assert.Error(t, err)
}
