package ptree

import "strings"

// Expression inference walks the dump lines of one actual-argument subtree
// and derives a conservative (type, rank, kind) triple. The first
// discriminating production wins; anything unrecognized degrades to unknown
// rather than guessing.

// numericOps are arithmetic productions: the operand types collapse to the
// numeric family and the rank of the result is not tracked.
var numericOps = map[string]struct{}{
	"Add": {}, "Subtract": {}, "Multiply": {}, "Divide": {},
	"Power": {}, "Negate": {},
}

// logicalOps yield logical results of unknown rank.
var logicalOps = map[string]struct{}{
	"AND": {}, "OR": {}, "NOT": {}, "EQV": {}, "NEQV": {},
}

// relationalOps yield scalar logicals.
var relationalOps = map[string]struct{}{
	"EQ": {}, "NE": {}, "LT": {}, "LE": {}, "GT": {}, "GE": {},
}

// inferExpr derives the signature of the expression spanned by lines, where
// lines[0] is the Expr root and the rest its subtree in dump order. caller is
// the routine the expression appears in, for variable lookups.
func (t *Tree) inferExpr(lines []string, caller *Callable) VariableInfo {
	for i, line := range lines {
		prod := production(line)

		switch {
		case strings.Contains(prod, "IntLiteralConstant"):
			return VariableInfo{Type: typeInteger, Rank: 0}
		case strings.Contains(prod, "RealLiteralConstant"):
			return VariableInfo{Type: typeReal, Rank: 0}
		case strings.Contains(prod, "CharLiteralConstant"):
			return VariableInfo{Type: typeCharacter, Rank: 0}
		case strings.Contains(prod, "LogicalLiteralConstant"):
			return VariableInfo{Type: typeLogical, Rank: 0}
		case strings.Contains(prod, "BOZLiteralConstant"):
			return VariableInfo{Type: typeLogical, Rank: 0}
		case strings.Contains(prod, "ComplexLiteralConstant"):
			return VariableInfo{Type: typeComplex, Rank: 0}
		case strings.Contains(prod, "ArrayConstructor"):
			return VariableInfo{Type: typeUnknown, Rank: 1}
		case strings.Contains(prod, "FunctionReference"):
			// A reference that names a known variable is really an array
			// access; anything else is an actual function call whose result
			// signature we do not track.
			return t.inferFunctionRef(lines[i:], caller)
		}

		if op := exprOperator(prod); op != "" {
			if _, ok := numericOps[op]; ok {
				return VariableInfo{Type: typeNumeric, Rank: rankUnknown}
			}
			if _, ok := logicalOps[op]; ok {
				return VariableInfo{Type: typeLogical, Rank: rankUnknown}
			}
			if _, ok := relationalOps[op]; ok {
				return VariableInfo{Type: typeLogical, Rank: 0}
			}
			if op == "Concat" {
				return VariableInfo{Type: typeCharacter, Rank: rankUnknown}
			}
		}

		switch {
		case strings.Contains(prod, "Designator -> DataRef -> StructureComponent"),
			strings.HasPrefix(prod, "DataRef -> StructureComponent"):
			// Component types are not tracked; stay fully unknown.
			return unknownVariable()
		case strings.Contains(prod, "ArrayElement"), strings.Contains(prod, "ArraySection"):
			return t.inferArrayRef(lines[i:], caller)
		}
		if m := reDataRefName.FindStringSubmatch(prod); m != nil && strings.Contains(prod, "Designator") {
			return t.lookupVariable(caller, m[1])
		}
		// Parentheses and Expr wrapper lines carry no information of their
		// own; keep scanning into the subtree.
	}
	return unknownVariable()
}

// inferArrayRef handles an indexed or sectioned designator: the base
// variable's declared rank reduced by one for every scalar subscript.
// Section triplets keep their dimension.
func (t *Tree) inferArrayRef(lines []string, caller *Callable) VariableInfo {
	var base VariableInfo
	haveBase := false
	scalarSubscripts := 0
	level := Level(lines[0])

	for _, line := range lines[1:] {
		if Level(line) <= level {
			break
		}
		prod := production(line)
		switch {
		case !haveBase && strings.HasPrefix(prod, "DataRef -> StructureComponent"):
			return unknownVariable()
		case !haveBase:
			if m := reDataRefName.FindStringSubmatch(prod); m != nil {
				base = t.lookupVariable(caller, m[1])
				haveBase = true
			}
		case strings.Contains(prod, "SectionSubscript"):
			if !strings.Contains(prod, "SubscriptTriplet") {
				scalarSubscripts++
			}
		}
	}
	if !haveBase {
		return unknownVariable()
	}
	if base.Rank == rankUnknown {
		return base
	}
	rank := base.Rank - scalarSubscripts
	if rank < 0 {
		rank = 0
	}
	return VariableInfo{Type: base.Type, Rank: rank, Kind: base.Kind}
}

// inferFunctionRef disambiguates the dump's shared rendering of function
// calls and array accesses: when the designator names a declared variable the
// reference is an array access and infers like one, otherwise the call's
// result is unknown.
func (t *Tree) inferFunctionRef(lines []string, caller *Callable) VariableInfo {
	var name string
	dLevel := -1
	for _, line := range lines[1:] {
		if m := reProcDesignator.FindStringSubmatch(line); m != nil {
			name = m[1]
			dLevel = Level(line)
			break
		}
	}
	if name == "" {
		return unknownVariable()
	}
	base, ok := t.lookupVariableOK(caller, name)
	if !ok {
		return unknownVariable()
	}
	if base.Rank == rankUnknown {
		return base
	}
	// Arguments of the pseudo-call are the subscripts; triplets keep their
	// dimension, everything else is scalar.
	scalarSubscripts := 0
	for _, line := range lines[1:] {
		if Level(line) != dLevel {
			continue
		}
		prod := production(line)
		if strings.Contains(prod, "ActualArgSpec") && !strings.Contains(prod, "SubscriptTriplet") {
			scalarSubscripts++
		}
	}
	rank := base.Rank - scalarSubscripts
	if rank < 0 {
		rank = 0
	}
	return VariableInfo{Type: base.Type, Rank: rank, Kind: base.Kind}
}

// lookupVariable resolves a variable name through the scope chain of the
// current routine: the routine itself, its parent when nested, then the
// enclosing program unit. Unknown names infer as fully unknown.
func (t *Tree) lookupVariable(caller *Callable, name string) VariableInfo {
	info, _ := t.lookupVariableOK(caller, name)
	return info
}

func (t *Tree) lookupVariableOK(caller *Callable, name string) (VariableInfo, bool) {
	var keys []string
	if caller != nil {
		keys = append(keys, caller.ScopeKey())
		if caller.Parent != nil {
			keys = append(keys, caller.Parent.ScopeKey())
		}
		if caller.Unit != nil {
			keys = append(keys, caller.Unit.ScopeKey())
		}
	}
	for _, key := range keys {
		if info, ok := t.Vars.lookup(key, name); ok {
			return info, true
		}
	}
	return unknownVariable(), false
}

// exprOperator extracts a bare operator production: the node text after the
// last arrow, only when it is a single token.
func exprOperator(prod string) string {
	tail := prod
	if i := strings.LastIndex(prod, "-> "); i >= 0 {
		tail = prod[i+3:]
	}
	tail = strings.TrimSpace(tail)
	if tail == "" || strings.ContainsAny(tail, " ='") {
		return ""
	}
	return tail
}
