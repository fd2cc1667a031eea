package ptree

// Base type names used throughout signature parsing and inference.
const (
	typeInteger   = "integer"
	typeReal      = "real"
	typeLogical   = "logical"
	typeCharacter = "character"
	typeComplex   = "complex"
	typeNumeric   = "numeric" // result of arithmetic: integer or real
	typeUnknown   = "unknown"
)

// Rank sentinels. Rank 0 is a scalar, 1+ an array of that dimensionality.
const rankUnknown = -1

// VariableInfo records a declared variable's type, rank, and kind. It is a
// plain value: variables are not interned.
type VariableInfo struct {
	// Type is integer/real/logical/character/complex, "derived:<name>" for a
	// derived type, or unknown.
	Type string
	// Rank is 0 for scalars, 1+ for arrays, rankUnknown when assumed-rank or
	// undeterminable.
	Rank int
	// Kind is the kind-specifier text (e.g. "r8_kind"), empty when absent.
	Kind string
}

func unknownVariable() VariableInfo {
	return VariableInfo{Type: typeUnknown, Rank: rankUnknown}
}

// variableTable maps scope-key -> lowercased variable name -> info. One table
// per dump file; it is filled during the structure pass and consulted by the
// call pass, so it persists across the three passes of a file.
type variableTable map[string]map[string]VariableInfo

func (vt variableTable) set(scopeKey, name string, info VariableInfo) {
	scope, ok := vt[scopeKey]
	if !ok {
		scope = make(map[string]VariableInfo)
		vt[scopeKey] = scope
	}
	scope[lower(name)] = info
}

func (vt variableTable) lookup(scopeKey, name string) (VariableInfo, bool) {
	scope, ok := vt[scopeKey]
	if !ok {
		return VariableInfo{}, false
	}
	info, ok := scope[lower(name)]
	return info, ok
}
