package ptree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// fixture is one in-memory dump file: the path names the file (and therefore
// the stem of a module-less subprogram), text is the raw dump.
type fixture struct {
	path string
	text string
}

func treeFromText(path, text string, reg *Registry) *Tree {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	return NewTreeFromLines(path, lines, reg)
}

// analyzeFixtures runs all three passes over the fixtures in order, the way
// the forest does, and returns the shared registry plus each tree by path.
func analyzeFixtures(t *testing.T, fixtures []fixture) (*Registry, map[string]*Tree) {
	t.Helper()
	reg := NewRegistry()
	trees := make(map[string]*Tree, len(fixtures))
	order := make([]*Tree, 0, len(fixtures))
	for _, f := range fixtures {
		tr := treeFromText(f.path, f.text, reg)
		trees[f.path] = tr
		order = append(order, tr)
	}
	for _, pass := range []func(*Tree) error{
		(*Tree).ParseStructure,
		(*Tree).ParseInterfaces,
		(*Tree).ParseCalls,
	} {
		for _, tr := range order {
			require.NoError(t, pass(tr))
		}
	}
	return reg, trees
}

func calleeNames(c *Callable) []string {
	var out []string
	for callee := range c.Callees {
		out = append(out, callee.CalleeName())
	}
	return out
}

func findSub(t *testing.T, reg *Registry, key string) *Callable {
	t.Helper()
	for _, c := range reg.Subroutines() {
		if c.ScopeKey() == key {
			return c
		}
	}
	t.Fatalf("subroutine %s not in registry", key)
	return nil
}

// ---------------------------------------------------------------------------
// Line-level plumbing
// ---------------------------------------------------------------------------

func TestLevel(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"Program -> ProgramUnit -> Module", 0},
		{"| ModuleStmt -> Name = 'm'", 1},
		{"| | | | Name = 'x'", 4},
		{"", 0},
		{"| | ", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.line), "line %q", tt.line)
	}
}

func TestProduction(t *testing.T) {
	assert.Equal(t, "Name = 'x'", production("| | | Name = 'x'"))
	assert.Equal(t, "ModuleStmt -> Name = 'm'", production("| ModuleStmt -> Name = 'm'"))
}

func TestStem(t *testing.T) {
	tr := treeFromText("dumps/solver_ptree.txt", "", nil)
	assert.Equal(t, "solver_ptree", tr.Stem())
}

func TestMissingHeaderSkipsFile(t *testing.T) {
	reg := NewRegistry()
	tr := treeFromText("broken", "Program -> ProgramUnit -> Module\n| ModuleStmt -> Name = 'm'", reg)
	require.NoError(t, tr.ParseStructure())
	assert.Empty(t, reg.Modules())
	assert.Empty(t, tr.Modules)
}

// ---------------------------------------------------------------------------
// Structure pass
// ---------------------------------------------------------------------------

const physModText = `====== Fortran::parser::Program ======
Program -> ProgramUnit -> Module
| ModuleStmt -> Name = 'phys_mod'
| SpecificationPart
| ModuleSubprogramPart
| | ContainsStmt
| | ModuleSubprogram -> SubroutineSubprogram
| | | SubroutineStmt
| | | | Name = 'update'
| | | | DummyArg -> Name = 'x'
| | | | DummyArg -> Name = 'n'
| | | SpecificationPart
| | | | DeclarationConstruct -> SpecificationConstruct -> TypeDeclarationStmt
| | | | | DeclarationTypeSpec -> IntrinsicTypeSpec -> Real
| | | | | | KindSelector -> Scalar -> Integer -> Constant -> Expr = 'r8'
| | | | | AttrSpec -> ArraySpec -> DeferredShapeSpecList -> int = '2'
| | | | | EntityDecl
| | | | | | Name = 'x'
| | | | DeclarationConstruct -> SpecificationConstruct -> TypeDeclarationStmt
| | | | | DeclarationTypeSpec -> IntrinsicTypeSpec -> IntegerTypeSpec
| | | | | AttrSpec -> Optional
| | | | | EntityDecl
| | | | | | Name = 'n'
| | | ExecutionPart -> Block
| | | EndSubroutineStmt -> Name = 'update'
| | ModuleSubprogram -> FunctionSubprogram
| | | FunctionStmt
| | | | Prefix -> DeclarationTypeSpec -> IntrinsicTypeSpec -> Real
| | | | Name = 'mean'
| | | | Name = 'v'
| | | SpecificationPart
| | | | DeclarationConstruct -> SpecificationConstruct -> TypeDeclarationStmt
| | | | | DeclarationTypeSpec -> IntrinsicTypeSpec -> Real
| | | | | AttrSpec -> ArraySpec -> DeferredShapeSpecList -> int = '1'
| | | | | EntityDecl
| | | | | | Name = 'v'
| | | ExecutionPart -> Block
| | | EndFunctionStmt -> Name = 'mean'
| EndModuleStmt -> Name = 'phys_mod'
`

func TestParseStructureModule(t *testing.T) {
	reg, trees := analyzeFixtures(t, []fixture{{"phys_ptree", physModText}})
	tr := trees["phys_ptree"]

	mods := reg.Modules()
	require.Len(t, mods, 1)
	mod := mods[0]
	assert.Equal(t, "phys_mod", mod.Name())
	assert.Equal(t, UnitModule, mod.Kind)
	assert.Equal(t, "phys_ptree", mod.TreePath)
	assert.Equal(t, []*ProgramUnit{mod}, tr.Modules)

	require.Len(t, mod.Subroutines, 1)
	require.Len(t, mod.Functions, 1)

	update := findSub(t, reg, "phys_mod::update")
	require.True(t, update.HasSignature())
	assert.Equal(t, []string{"x", "n"}, update.ArgNames)
	assert.Equal(t, []string{"real", "integer"}, update.ArgTypes)
	assert.Equal(t, []int{2, 0}, update.ArgRanks)
	assert.Equal(t, []string{"r8", ""}, update.ArgKinds)
	assert.Equal(t, 1, update.NumRequiredArgs, "optional n must not be required")
	assert.Equal(t, 2, update.NumArgs())

	funcs := reg.Functions()
	require.Len(t, funcs, 1)
	mean := funcs[0]
	assert.Equal(t, "mean", mean.Name())
	assert.Equal(t, []string{"v"}, mean.ArgNames)
	assert.Equal(t, []int{1}, mean.ArgRanks)
}

func TestParseStructureVariableTable(t *testing.T) {
	_, trees := analyzeFixtures(t, []fixture{{"phys_ptree", physModText}})
	tr := trees["phys_ptree"]

	info, ok := tr.Vars.lookup("phys_mod::update", "x")
	require.True(t, ok)
	assert.Equal(t, VariableInfo{Type: typeReal, Rank: 2, Kind: "r8"}, info)

	// Lookup is case-insensitive on the variable name.
	info, ok = tr.Vars.lookup("phys_mod::update", "X")
	require.True(t, ok)
	assert.Equal(t, 2, info.Rank)

	_, ok = tr.Vars.lookup("phys_mod::mean", "x")
	assert.False(t, ok, "x is not visible in mean's scope key")
}

func TestNestedRoutine(t *testing.T) {
	text := `====== Fortran::parser::Program ======
Program -> ProgramUnit -> Module
| ModuleStmt -> Name = 'm'
| ModuleSubprogramPart
| | ContainsStmt
| | ModuleSubprogram -> SubroutineSubprogram
| | | SubroutineStmt
| | | | Name = 'outer'
| | | InternalSubprogramPart
| | | | ContainsStmt
| | | | InternalSubprogram -> SubroutineSubprogram
| | | | | SubroutineStmt
| | | | | | Name = 'inner'
| | | | | EndSubroutineStmt -> Name = 'inner'
| | | EndSubroutineStmt -> Name = 'outer'
| EndModuleStmt -> Name = 'm'
`
	reg, _ := analyzeFixtures(t, []fixture{{"m_ptree", text}})

	mod := reg.Modules()[0]
	assert.Len(t, mod.Subroutines, 1, "only outer is unit-owned")

	inner := findSub(t, reg, "m::outer::inner")
	require.NotNil(t, inner.Parent)
	assert.Equal(t, "outer", inner.Parent.Name())
}

func TestModuleLessSubprogram(t *testing.T) {
	text := `====== Fortran::parser::Program ======
Program -> ProgramUnit -> SubroutineSubprogram
| SubroutineStmt
| | Name = 'standalone'
| EndSubroutineStmt -> Name = 'standalone'
`
	reg, _ := analyzeFixtures(t, []fixture{{"legacy/standalone_ptree.txt", text}})

	subs := reg.Subprograms()
	require.Len(t, subs, 1)
	assert.Equal(t, "standalone_ptree", subs[0].Name(), "unit is named after the file stem")
	assert.Len(t, subs[0].Subroutines, 1)
}

func TestMainProgram(t *testing.T) {
	text := `====== Fortran::parser::Program ======
Program -> ProgramUnit -> MainProgram
| ProgramStmt -> Name = 'driver'
| EndProgramStmt -> Name = 'driver'
`
	reg, _ := analyzeFixtures(t, []fixture{{"driver_ptree", text}})
	progs := reg.Programs()
	require.Len(t, progs, 1)
	assert.Equal(t, "driver", progs[0].Name())
	assert.Equal(t, UnitProgram, progs[0].Kind)
}

func TestUseStatements(t *testing.T) {
	text := `====== Fortran::parser::Program ======
Program -> ProgramUnit -> Module
| ModuleStmt -> Name = 'consumer'
| SpecificationPart
| | UseStmt
| | | Name = 'wide_open'
| | UseStmt
| | | Name = 'narrow'
| | | Only -> GenericSpec -> Name = 'wanted'
| | | Only -> GenericSpec -> DefinedOperator -> IntrinsicOperator = Add
| | UseStmt
| | | Name = 'renamed_from'
| | | Rename -> Names
| | | | Name = 'local_name'
| | | | Name = 'true_name'
| EndModuleStmt -> Name = 'consumer'
`
	reg, _ := analyzeFixtures(t, []fixture{{"consumer_ptree", text}})

	consumer := reg.Module("consumer")
	names := consumer.UseNames()
	renames := consumer.UseRenames()

	assert.Equal(t, []string{importAll}, names[reg.Module("wide_open")])
	assert.Equal(t, []string{"wanted"}, names[reg.Module("narrow")], "operator specs are dropped")
	require.Len(t, renames[reg.Module("renamed_from")], 1)
	assert.Equal(t, Rename{Alias: "local_name", Orig: "true_name"}, renames[reg.Module("renamed_from")][0])

	// Used-but-undefined targets stay external.
	assert.Empty(t, reg.Module("wide_open").TreePath)
}

func TestRoutineScopedUse(t *testing.T) {
	text := `====== Fortran::parser::Program ======
Program -> ProgramUnit -> Module
| ModuleStmt -> Name = 'host'
| ModuleSubprogramPart
| | ContainsStmt
| | ModuleSubprogram -> SubroutineSubprogram
| | | SubroutineStmt
| | | | Name = 'worker'
| | | SpecificationPart
| | | | UseStmt
| | | | | Name = 'helper_mod'
| | | ExecutionPart -> Block
| | | EndSubroutineStmt -> Name = 'worker'
| EndModuleStmt -> Name = 'host'
`
	reg, _ := analyzeFixtures(t, []fixture{{"host_ptree", text}})

	host := reg.Module("host")
	assert.Empty(t, host.UseNames(), "the import belongs to the routine, not the unit")

	worker := findSub(t, reg, "host::worker")
	assert.Equal(t, []string{importAll}, worker.UseNames()[reg.Module("helper_mod")])
	assert.Equal(t, []*ProgramUnit{reg.Module("helper_mod")}, worker.UsedUnits())
}

func TestDerivedTypeBindings(t *testing.T) {
	text := `====== Fortran::parser::Program ======
Program -> ProgramUnit -> Module
| ModuleStmt -> Name = 'types_mod'
| SpecificationPart
| | DeclarationConstruct -> SpecificationConstruct -> DerivedTypeDef
| | | DerivedTypeStmt
| | | | TypeAttrSpec -> Extends -> Name = 'base_type'
| | | | Name = 'wave_type'
| | | TypeBoundProcedurePart
| | | | ContainsStmt
| | | | TypeBoundProcedureStmt
| | | | | TypeBoundProcBinding -> TypeBoundProcedureDecl
| | | | | | Name = 'advance'
| | | | | | Name = 'wave_advance'
| | | | TypeBoundProcedureStmt
| | | | | TypeBoundProcBinding -> TypeBoundProcedureDecl
| | | | | | Name = 'report'
| | | EndTypeStmt -> Name = 'wave_type'
| EndModuleStmt -> Name = 'types_mod'
`
	reg, _ := analyzeFixtures(t, []fixture{{"types_ptree", text}})

	dts := reg.DerivedTypes()
	require.Len(t, dts, 1)
	dt := dts[0]
	assert.Equal(t, "wave_type", dt.Name())
	assert.Equal(t, "base_type", dt.ParentTypeName)
	assert.Equal(t, map[string]string{
		"advance": "wave_advance",
		"report":  "report",
	}, dt.Bindings)
}

func TestRegistryInterning(t *testing.T) {
	reg := NewRegistry()
	m1 := reg.Module("m")
	m2 := reg.Module("m")
	assert.Same(t, m1, m2)

	s1 := reg.Subroutine("s", m1, nil)
	s2 := reg.Subroutine("s", m1, nil)
	assert.Same(t, s1, s2)

	other := reg.Module("other")
	s3 := reg.Subroutine("s", other, nil)
	assert.NotSame(t, s1, s3, "same name in a different unit is a distinct symbol")

	assert.Equal(t, "m::s", s1.ScopeKey())
	assert.Equal(t, "other::s", s3.ScopeKey())
}

func TestDerivedTypeInterningPerScope(t *testing.T) {
	reg := NewRegistry()
	solveA := reg.Subroutine("solve", reg.Module("mod_a"), nil)
	solveB := reg.Subroutine("solve", reg.Module("mod_b"), nil)

	d1 := reg.DerivedType("local_t", solveA)
	d2 := reg.DerivedType("local_t", solveB)
	assert.NotSame(t, d1, d2, "same type name inside same-named routines of different units")
	assert.Same(t, d1, reg.DerivedType("local_t", solveA))
	assert.Same(t, solveA, d1.Scope)
	assert.Same(t, solveB, d2.Scope)
}

func TestSubroutinesBySuffix(t *testing.T) {
	reg := NewRegistry()
	m := reg.Module("m")
	reg.Subroutine("ice_step", m, nil)
	reg.Subroutine("ocean_step", m, nil)
	reg.Subroutine("setup", m, nil)

	got := reg.SubroutinesBySuffix("_step")
	require.Len(t, got, 2)
	assert.Equal(t, "ice_step", got[0].Name())
	assert.Equal(t, "ocean_step", got[1].Name())
}
