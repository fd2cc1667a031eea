package forest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oceanFixtureDir(t *testing.T) string {
	t.Helper()
	abs, err := filepath.Abs(filepath.Join("..", "..", "testdata", "fixtures", "ocean"))
	require.NoError(t, err)
	return abs
}

func TestScanFiltered(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "build"), 0o755))

	write := func(rel string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, rel), []byte("====== x ======\n"), 0o644))
	}
	write("src/ice_ptree")
	write("src/ocean_ptree.txt")
	write("src/notes.md")
	write("build/skipme_ptree")

	paths, err := ScanFiltered(dir, "", []string{"build"})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "src", "ice_ptree"), paths[0])
	assert.Equal(t, filepath.Join(dir, "src", "ocean_ptree.txt"), paths[1],
		"the suffix check ignores a trailing extension")
}

func TestScanCustomSuffix(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_dump"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_ptree"), nil, 0o644))

	paths, err := ScanFiltered(dir, "_dump", nil)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, "a_dump"), paths[0])
}

func TestAnalyzeOceanFixture(t *testing.T) {
	f, err := Analyze(context.Background(), oceanFixtureDir(t))
	require.NoError(t, err)
	require.Len(t, f.Trees, 3)

	reg := f.Registry
	assert.Len(t, reg.Modules(), 3)
	assert.Len(t, reg.Programs(), 1)
	assert.Len(t, reg.Interfaces(), 1)
	assert.Len(t, reg.DerivedTypes(), 1)

	ext := f.ExternalModules()
	require.Len(t, ext, 1)
	assert.Equal(t, "netcdf", ext[0].Name())

	subs, funcs := f.UnresolvedCalls()
	require.Len(t, subs, 1)
	assert.Equal(t, "advect_tracers", subs[0].Callee)
	assert.Empty(t, funcs)
}

func TestAnalyzeEmptyDir(t *testing.T) {
	_, err := Analyze(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no _ptree files")
}

func TestParseSkipsFailingFile(t *testing.T) {
	dir := t.TempDir()
	bad := "====== Fortran::parser::Program ======\n" +
		"Program -> ProgramUnit -> Module\n" +
		"| ModuleStmt -> Name = 'bad_mod'\n" +
		"| EndModuleStmt -> Name = 'other_mod'\n"
	good := "====== Fortran::parser::Program ======\n" +
		"Program -> ProgramUnit -> Module\n" +
		"| ModuleStmt -> Name = 'good_mod'\n" +
		"| EndModuleStmt -> Name = 'good_mod'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_bad_ptree"), []byte(bad), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_good_ptree"), []byte(good), 0o644))

	f, err := Analyze(context.Background(), dir)
	require.NoError(t, err, "a per-file syntax error must not abort the run")
	require.Len(t, f.Trees, 2)

	var names []string
	for _, m := range f.Registry.Modules() {
		if m.TreePath != "" {
			names = append(names, m.Name())
		}
	}
	assert.Contains(t, names, "good_mod", "files after the failing one still get parsed")
}

func TestParseCancellation(t *testing.T) {
	paths, err := Scan(oceanFixtureDir(t))
	require.NoError(t, err)
	f, err := Load(context.Background(), paths)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.Parse(ctx), context.Canceled)
}
