package ptree

// parseState is the mutable per-file cursor context: which program unit,
// routine, derived type, and pending use statement the parser is currently
// inside. Reset between passes and between files.
type parseState struct {
	module     *ProgramUnit
	program    *ProgramUnit
	subprogram *ProgramUnit

	routine       *Callable
	parentRoutine *Callable

	// usedUnit is the target of the most recent use statement while its
	// Only/Rename clauses are still being read.
	usedUnit *ProgramUnit

	// derivedType is the type definition currently open, if any.
	derivedType *DerivedType
}

// programUnit is the innermost open top-level unit.
func (s *parseState) programUnit() *ProgramUnit {
	switch {
	case s.module != nil:
		return s.module
	case s.subprogram != nil:
		return s.subprogram
	default:
		return s.program
	}
}

// scope is the current declaration scope: the open routine if any, else the
// program unit.
func (s *parseState) scope() Scope {
	if s.routine != nil {
		return s.routine
	}
	if u := s.programUnit(); u != nil {
		return u
	}
	return nil
}

func (s *parseState) inFunction() bool {
	return s.routine != nil && s.routine.Kind == KindFunction
}

func (s *parseState) inSubroutine() bool {
	return s.routine != nil && s.routine.Kind == KindSubroutine
}

// scopeKey is the variable-table key for the current scope, empty when no
// scope is open.
func (s *parseState) scopeKey() string {
	sc := s.scope()
	if sc == nil {
		return ""
	}
	return sc.ScopeKey()
}

func (s *parseState) reset() {
	*s = parseState{}
}
