package ptree

import (
	"strings"
)

// Structure pass recognizers. Each receives the tree positioned on the
// candidate line and reports notApplicable, handled, or skipped. Handlers
// that consume additional lines leave the cursor on the last consumed line.

// parseModuleStmt opens a module definition.
func (t *Tree) parseModuleStmt() (outcome, error) {
	line, _ := t.cur.Current()
	if !strings.Contains(line, "| ModuleStmt") {
		return notApplicable, nil
	}
	m := reModuleStmt.FindStringSubmatch(line)
	if m == nil {
		return notApplicable, t.syntaxErrorf("ModuleStmt syntax not recognized")
	}
	if t.st.module != nil {
		return notApplicable, t.syntaxErrorf("encountered module %q inside module %q", m[1], t.st.module.Name())
	}
	mod := t.reg.Module(m[1])
	mod.TreePath = t.Path
	t.st.module = mod
	if !containsUnit(t.Modules, mod) {
		t.Modules = append(t.Modules, mod)
	}
	return handled, nil
}

// parseEndModuleStmt closes the open module, checking the closing name when
// the dump carries one.
func (t *Tree) parseEndModuleStmt() (outcome, error) {
	line, _ := t.cur.Current()
	if !strings.Contains(line, "| EndModuleStmt") {
		return notApplicable, nil
	}
	if t.st.module == nil {
		return notApplicable, t.syntaxErrorf("EndModuleStmt without an open module")
	}
	if m := reEndModuleStmt.FindStringSubmatch(line); m != nil && m[1] != t.st.module.Name() {
		return notApplicable, t.syntaxErrorf("EndModuleStmt name %q does not match module %q", m[1], t.st.module.Name())
	}
	t.st.module = nil
	return handled, nil
}

// parseProgramUnit classifies a top-level ProgramUnit production: main
// program, module, or file-level subprogram. Modules are handled by their own
// ModuleStmt recognizer and need no action here.
func (t *Tree) parseProgramUnit() (outcome, error) {
	line, _ := t.cur.Current()
	if !strings.HasPrefix(line, "Program -> ProgramUnit") {
		return notApplicable, nil
	}
	switch {
	case strings.Contains(line, "-> Module"):
		return handled, nil
	case strings.Contains(line, "FunctionSubprogram"), strings.Contains(line, "SubroutineSubprogram"):
		sub := t.reg.Subprogram(t.Stem())
		sub.TreePath = t.Path
		t.st.subprogram = sub
		return handled, nil
	case strings.Contains(line, "MainProgram"):
		next, err := t.advanceLine()
		if err != nil {
			return notApplicable, err
		}
		m := reProgramStmt.FindStringSubmatch(next)
		if m == nil {
			return notApplicable, t.syntaxErrorf("ProgramStmt syntax not recognized")
		}
		prog := t.reg.Program(m[1])
		prog.TreePath = t.Path
		t.st.program = prog
		return handled, nil
	default:
		return notApplicable, t.syntaxErrorf("ProgramUnit syntax not recognized")
	}
}

// parseRoutineBegin opens a subroutine or function definition and records its
// dummy-argument name list. Runs in every pass so the open-routine tracking
// stays consistent; signature slices are only allocated the first time.
func (t *Tree) parseRoutineBegin() (outcome, error) {
	line, _ := t.cur.Current()
	isFunc := strings.HasSuffix(line, "| FunctionStmt")
	isSub := strings.HasSuffix(line, "| SubroutineStmt")
	if !isFunc && !isSub {
		return notApplicable, nil
	}
	stmtLevel := Level(line)
	block := t.collectBlock(stmtLevel)
	if len(block) == 0 {
		return notApplicable, t.syntaxErrorf("empty routine statement")
	}

	// The name is the first direct child that is not a Prefix clause.
	childLevel := Level(block[0])
	i := 0
	for i < len(block) && (rePrefix.MatchString(block[i]) || Level(block[i]) > childLevel) {
		i++
	}
	if i >= len(block) {
		return notApplicable, t.syntaxErrorf("routine statement syntax not recognized")
	}
	m := reBareName.FindStringSubmatch(production(block[i]))
	if m == nil {
		return notApplicable, t.syntaxErrorf("routine statement syntax not recognized")
	}
	name := m[1]

	if t.st.routine != nil && t.st.parentRoutine != nil {
		return notApplicable, t.syntaxErrorf("more than one level of routine nesting at %q", name)
	}
	unit := t.st.programUnit()
	if unit == nil {
		return notApplicable, t.syntaxErrorf("routine %q outside any program unit", name)
	}

	parent := t.st.routine
	var routine *Callable
	if isSub {
		routine = t.reg.Subroutine(name, unit, parent)
		if parent == nil {
			unit.Subroutines[routine] = struct{}{}
		}
	} else {
		routine = t.reg.Function(name, unit, parent)
		if parent == nil {
			unit.Functions[routine] = struct{}{}
		}
	}
	t.st.parentRoutine = parent
	t.st.routine = routine

	// Dummy arguments follow the name at the same nesting level. Functions
	// list bare names; subroutines wrap each in a DummyArg production, with
	// alternate-return stars skipped. A result Suffix ends nothing: its
	// sub-lines are simply not argument productions.
	var args []string
	for _, bl := range block[i+1:] {
		if Level(bl) != childLevel {
			continue
		}
		prod := production(bl)
		if isSub {
			if am := reDummyArg.FindStringSubmatch(prod); am != nil {
				args = append(args, am[1])
			}
			continue
		}
		if am := reBareName.FindStringSubmatch(prod); am != nil {
			args = append(args, am[1])
		}
	}
	routine.initSignature(args)
	return handled, nil
}

// parseRoutineEnd closes the open routine, restoring a parent routine when
// the definition was nested.
func (t *Tree) parseRoutineEnd() (outcome, error) {
	line, _ := t.cur.Current()
	endFunc := strings.Contains(line, "| EndFunctionStmt")
	endSub := strings.Contains(line, "| EndSubroutineStmt")
	if !endFunc && !endSub {
		return notApplicable, nil
	}
	if endFunc && !t.st.inFunction() {
		return notApplicable, t.syntaxErrorf("EndFunctionStmt without an open function")
	}
	if endSub && !t.st.inSubroutine() {
		return notApplicable, t.syntaxErrorf("EndSubroutineStmt without an open subroutine")
	}
	var m []string
	if endFunc {
		m = reEndFunction.FindStringSubmatch(line)
	} else {
		m = reEndSubroutine.FindStringSubmatch(line)
	}
	if m != nil && m[1] != t.st.routine.Name() {
		return notApplicable, t.syntaxErrorf("closing name %q does not match routine %q", m[1], t.st.routine.Name())
	}
	t.st.routine = t.st.parentRoutine
	t.st.parentRoutine = nil
	return handled, nil
}

// parseUseStmt opens a use-relation from the current scope to a module. The
// statement's Only and Rename clauses, if any, arrive as subsequent lines;
// peeking one line ahead decides whether the import is restricted.
func (t *Tree) parseUseStmt() (outcome, error) {
	line, _ := t.cur.Current()
	if !strings.Contains(line, "| UseStmt") {
		return notApplicable, nil
	}
	if !reUseStmtTail.MatchString(line) {
		return notApplicable, t.syntaxErrorf("UseStmt syntax not recognized")
	}
	scope := t.st.scope()
	if scope == nil {
		return notApplicable, t.syntaxErrorf("UseStmt outside any scope")
	}

	next, err := t.advanceLine()
	if err != nil {
		return notApplicable, err
	}
	if strings.Contains(next, "ModuleNature") {
		if next, err = t.advanceLine(); err != nil {
			return notApplicable, err
		}
	}
	m := reBareName.FindStringSubmatch(production(next))
	if m == nil {
		return notApplicable, t.syntaxErrorf("UseStmt module name not recognized")
	}
	mod := t.reg.Module(m[1])

	peek, ok := t.cur.Peek()
	restricted := ok && (strings.Contains(peek, "| Only") || strings.Contains(peek, "| Rename"))
	scope.beginUse(mod, restricted)
	if restricted {
		t.st.usedUnit = mod
	} else {
		t.st.usedUnit = nil
	}
	return handled, nil
}

// parseOnlyOrRename records one Only or Rename clause of the pending use
// statement. Operator and assignment specs are recognized but deliberately
// dropped.
func (t *Tree) parseOnlyOrRename() (outcome, error) {
	line, _ := t.cur.Current()
	isOnly := strings.Contains(line, "| Only")
	isRename := !isOnly && strings.Contains(line, "| Rename")
	if !isOnly && !isRename {
		return notApplicable, nil
	}
	if t.st.usedUnit == nil {
		return notApplicable, t.syntaxErrorf("Only clause without a preceding UseStmt")
	}
	scope := t.st.scope()

	if m := reOnlyName.FindStringSubmatch(line); m != nil {
		scope.addUseName(t.st.usedUnit, m[1])
		return handled, nil
	}
	if reOnlyOperator.MatchString(line) || strings.Contains(line, "Assignment") {
		return skipped, nil
	}
	if isOnly && !strings.Contains(line, "Rename") {
		return notApplicable, t.syntaxErrorf("Only clause syntax not recognized")
	}

	// Rename -> Names carries two child Name lines: local alias first, then
	// the original name inside the module.
	aliasLine, err := t.advanceLine()
	if err != nil {
		return notApplicable, err
	}
	am := reName.FindStringSubmatch(aliasLine)
	origLine, err := t.advanceLine()
	if err != nil {
		return notApplicable, err
	}
	om := reName.FindStringSubmatch(origLine)
	if am == nil || om == nil {
		return notApplicable, t.syntaxErrorf("Rename clause syntax not recognized")
	}
	scope.addUseRename(t.st.usedUnit, Rename{Alias: am[1], Orig: om[1]})
	return handled, nil
}

// parseDerivedTypeBegin opens a derived-type definition, capturing an EXTENDS
// parent name when present. Tracking runs in every pass; interning makes the
// re-registration idempotent.
func (t *Tree) parseDerivedTypeBegin() (outcome, error) {
	line, _ := t.cur.Current()
	if !strings.HasSuffix(line, "| DerivedTypeStmt") && !strings.HasSuffix(production(line), "DerivedTypeStmt") {
		return notApplicable, nil
	}
	if t.st.derivedType != nil {
		return notApplicable, t.syntaxErrorf("nested derived-type definitions are not supported")
	}
	scope := t.st.scope()
	if scope == nil {
		return notApplicable, t.syntaxErrorf("derived type outside any scope")
	}

	stmtLevel := Level(line)
	var parentType string
	for {
		next, err := t.advanceLine()
		if err != nil {
			return notApplicable, err
		}
		if Level(next) > stmtLevel+1 {
			continue // attribute sub-lines
		}
		if strings.Contains(next, "TypeAttrSpec") {
			if m := reExtends.FindStringSubmatch(next); m != nil {
				parentType = m[1]
			}
			continue
		}
		m := reBareName.FindStringSubmatch(production(next))
		if m == nil {
			return notApplicable, t.syntaxErrorf("DerivedTypeStmt syntax not recognized")
		}
		dt := t.reg.DerivedType(m[1], scope)
		if parentType != "" {
			dt.ParentTypeName = parentType
		}
		t.st.derivedType = dt
		return handled, nil
	}
}

// parseDerivedTypeEnd closes the open derived-type definition.
func (t *Tree) parseDerivedTypeEnd() (outcome, error) {
	line, _ := t.cur.Current()
	if !strings.Contains(line, "| EndTypeStmt") {
		return notApplicable, nil
	}
	if t.st.derivedType == nil {
		return notApplicable, t.syntaxErrorf("EndTypeStmt without an open derived type")
	}
	if m := reEndTypeStmt.FindStringSubmatch(line); m != nil && m[1] != t.st.derivedType.Name() {
		return notApplicable, t.syntaxErrorf("EndTypeStmt name %q does not match type %q", m[1], t.st.derivedType.Name())
	}
	t.st.derivedType = nil
	return handled, nil
}

// parseTypeBinding records one type-bound procedure of the open derived type.
// One Name line binds a procedure under its own name; a second Name line maps
// a public binding name to a differently named implementation.
func (t *Tree) parseTypeBinding() (outcome, error) {
	line, _ := t.cur.Current()
	if !strings.Contains(line, "TypeBoundProcedureStmt") {
		return notApplicable, nil
	}
	if t.st.derivedType == nil {
		return skipped, nil
	}
	block := t.collectBlock(Level(line))
	var names []string
	for _, bl := range block {
		if m := reBareName.FindStringSubmatch(production(bl)); m != nil {
			names = append(names, m[1])
		}
	}
	switch len(names) {
	case 1:
		t.st.derivedType.Bindings[names[0]] = names[0]
	case 2:
		t.st.derivedType.Bindings[names[0]] = names[1]
	default:
		return skipped, nil
	}
	return handled, nil
}

func containsUnit(units []*ProgramUnit, u *ProgramUnit) bool {
	for _, x := range units {
		if x == u {
			return true
		}
	}
	return false
}
