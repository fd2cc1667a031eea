package ptree

import (
	"log"
	"strings"
)

// parseCallStmt handles an explicit CALL statement. The whole Call subtree is
// consumed: the designator decides the callee, the actual arguments feed
// overload resolution, and function references nested inside the arguments
// are recorded as their own call edges.
func (t *Tree) parseCallStmt() (outcome, error) {
	line, _ := t.cur.Current()
	if !strings.Contains(line, "CallStmt") {
		return notApplicable, nil
	}
	if !strings.HasSuffix(line, "ActionStmt -> CallStmt") {
		return notApplicable, t.syntaxErrorf("CallStmt syntax not recognized")
	}
	caller := t.st.routine
	if caller == nil {
		return notApplicable, t.syntaxErrorf("CallStmt outside any routine")
	}

	callLine, err := t.advanceLine()
	if err != nil {
		return notApplicable, err
	}
	if !strings.HasSuffix(callLine, "| Call") {
		return notApplicable, t.syntaxErrorf("CallStmt is not followed by a Call production")
	}
	callLevel := Level(callLine)
	block := t.collectBlock(callLevel)
	if len(block) == 0 {
		return notApplicable, t.syntaxErrorf("empty Call production")
	}

	desig := block[0]
	dLevel := Level(desig)
	args := t.argsFromBlock(block, dLevel, caller)
	t.recordNestedFunctionRefs(block, caller)

	if strings.HasSuffix(desig, "ProcedureDesignator -> ProcComponentRef -> Scalar -> StructureComponent") {
		root, binding, ok := decomposeComponentDesignator(block, dLevel)
		if !ok {
			return skipped, nil
		}
		info, found := t.lookupVariableOK(caller, root)
		if !found {
			return skipped, nil
		}
		typeName, isDerived := derivedTypeName(info.Type)
		if !isDerived {
			return skipped, nil
		}
		name, defScope := t.resolveBindingName(caller, typeName, binding)
		t.recordCall(caller, name, defScope, args, KindSubroutine)
		return handled, nil
	}

	m := reProcDesignator.FindStringSubmatch(desig)
	if m == nil {
		return notApplicable, t.syntaxErrorf("CallStmt designator not recognized")
	}
	t.recordCall(caller, m[1], nil, args, KindSubroutine)
	return handled, nil
}

// parseFunctionReference handles a FunctionReference production outside a
// CALL statement, such as in an assignment's right-hand side. References in
// specification-part initializers, where no routine is open, are ignored.
func (t *Tree) parseFunctionReference() (outcome, error) {
	line, _ := t.cur.Current()
	if !strings.Contains(line, "FunctionReference -> Call") {
		return notApplicable, nil
	}
	caller := t.st.routine
	block := t.collectBlock(Level(line))
	if caller == nil {
		return skipped, nil
	}
	lines := make([]string, 0, len(block)+1)
	lines = append(lines, line)
	lines = append(lines, block...)
	t.recordFunctionRef(lines, caller)
	t.recordNestedFunctionRefs(block, caller)
	return handled, nil
}

// recordNestedFunctionRefs scans a consumed subtree for function references
// and records each one. Nested references are found by the scan itself, so
// recordFunctionRef never recurses.
func (t *Tree) recordNestedFunctionRefs(block []string, caller *Callable) {
	for j, bl := range block {
		if strings.Contains(bl, "FunctionReference -> Call") {
			t.recordFunctionRef(block[j:], caller)
		}
	}
}

// recordFunctionRef resolves one function reference given its dump lines,
// lines[0] holding the FunctionReference production. Intrinsic calls are
// dropped; a designator naming a declared variable is an array access, not a
// call.
func (t *Tree) recordFunctionRef(lines []string, caller *Callable) {
	refLevel := Level(lines[0])
	end := 1
	for end < len(lines) && Level(lines[end]) > refLevel {
		end++
	}
	sub := lines[1:end]

	var name string
	var dLevel int
	for _, s := range sub {
		if m := reProcDesignator.FindStringSubmatch(s); m != nil {
			name = m[1]
			dLevel = Level(s)
			break
		}
	}
	if name == "" || isIntrinsic(name) {
		return
	}
	if _, ok := t.lookupVariableOK(caller, name); ok {
		return
	}
	args := t.argsFromBlock(sub, dLevel, caller)
	t.recordCall(caller, name, nil, args, KindFunction)
}

// argsFromBlock extracts the actual arguments of a call: ActualArgSpec
// productions at exactly level, each inferred from its own subtree.
func (t *Tree) argsFromBlock(block []string, level int, caller *Callable) []callArg {
	var args []callArg
	for i := 0; i < len(block); i++ {
		bl := block[i]
		if Level(bl) != level || !strings.Contains(bl, "ActualArgSpec") {
			continue
		}
		sub := subtreeAfter(block, i, level)
		argLines := make([]string, 0, len(sub)+1)
		argLines = append(argLines, bl)
		argLines = append(argLines, sub...)

		arg := callArg{}
		for _, s := range argLines {
			if m := reKeyword.FindStringSubmatch(s); m != nil {
				arg.Keyword = m[1]
				break
			}
		}
		info := t.inferExpr(argLines, caller)
		arg.Type = info.Type
		arg.Rank = info.Rank
		arg.Kind = info.Kind
		args = append(args, arg)
		i += len(sub)
	}
	return args
}

// decomposeComponentDesignator splits a type-bound call designator into the
// receiver variable and the binding name. Only the single-level obj%binding
// form is supported; chained component receivers cannot be typed and make the
// whole designator unresolvable.
func decomposeComponentDesignator(block []string, dLevel int) (root, binding string, ok bool) {
	for _, bl := range block[1:] {
		if Level(bl) <= dLevel {
			break
		}
		prod := production(bl)
		if strings.Contains(prod, "DataRef -> StructureComponent") {
			return "", "", false
		}
		if m := reDataRefName.FindStringSubmatch(prod); m != nil && root == "" {
			root = m[1]
			continue
		}
		if m := reBareName.FindStringSubmatch(prod); m != nil && Level(bl) == dLevel+1 {
			binding = m[1]
		}
	}
	return root, binding, root != "" && binding != ""
}

// recordCall resolves name from the caller's scope (or, for resolved
// type-bound calls, from the binding's defining scope) and records the edge.
// Calls into the MPI library are dropped; an interface target additionally
// fans out to its argument-compatible member procedures.
func (t *Tree) recordCall(caller *Callable, name string, defScope Scope, args []callArg, kind CallableKind) {
	if isForeignCall(name) {
		return
	}
	origin := Scope(caller)
	if defScope != nil {
		origin = defScope
	}
	target := t.findNamedEntity(origin, name)
	if target == nil {
		rec := UnresolvedCall{Caller: caller.Name(), Callee: name}
		if kind == KindSubroutine {
			t.UnfoundSubroutineCalls = append(t.UnfoundSubroutineCalls, rec)
			log.Printf("Warning: cannot resolve subroutine call %s -> %s (%s)", caller.Name(), name, t.Path)
		} else {
			t.UnfoundFunctionCalls = append(t.UnfoundFunctionCalls, rec)
			log.Printf("Warning: cannot resolve function call %s -> %s (%s)", caller.Name(), name, t.Path)
		}
		return
	}
	addCallEdge(caller, target)
	if iface, ok := target.(*Interface); ok {
		for _, proc := range resolveInterfaceProcedures(iface, args) {
			addCallEdge(caller, proc)
		}
	}
}
