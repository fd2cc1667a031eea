package ptree

import (
	"sort"
	"strings"
)

// visitKey guards the recursive lookup against use-relation cycles: each
// (unit, name) pair is searched at most once per resolution.
type visitKey struct {
	unit *ProgramUnit
	name string
}

// findNamedEntity resolves a bare procedure or interface name from an origin
// scope. The search order is fixed: subroutines, functions, then interfaces
// owned by the origin's enclosing unit; then each used module of the origin
// chain (routine, parent routine, unit), recursively, restricted by
// only-lists; finally rename aliases, resolving the original name inside the
// renamed-from module. The first match wins.
func (t *Tree) findNamedEntity(origin Scope, name string) Callee {
	unit := owningUnit(origin)
	if unit == nil {
		return nil
	}
	visited := map[visitKey]struct{}{{unit, name}: {}}
	if c := ownedEntity(unit, name); c != nil {
		return c
	}
	for _, sc := range scopeChain(origin) {
		if c := searchUses(sc, name, visited); c != nil {
			return c
		}
	}
	return nil
}

// lookupInUnit searches one unit and, transitively, its imports.
func lookupInUnit(unit *ProgramUnit, name string, visited map[visitKey]struct{}) Callee {
	if _, ok := visited[visitKey{unit, name}]; ok {
		return nil
	}
	visited[visitKey{unit, name}] = struct{}{}
	if c := ownedEntity(unit, name); c != nil {
		return c
	}
	return searchUses(unit, name, visited)
}

// ownedEntity checks a unit's directly owned symbols in the fixed
// subroutine, function, interface order.
func ownedEntity(unit *ProgramUnit, name string) Callee {
	for c := range unit.Subroutines {
		if c.Name() == name {
			return c
		}
	}
	for c := range unit.Functions {
		if c.Name() == name {
			return c
		}
	}
	for i := range unit.Interfaces {
		if i.Name() == name {
			return i
		}
	}
	return nil
}

// searchUses follows a scope's use-relations for name. Modules are visited
// in name order so resolution is deterministic.
func searchUses(sc Scope, name string, visited map[visitKey]struct{}) Callee {
	useNames := sc.UseNames()
	useRenames := sc.UseRenames()
	for _, mod := range sortedUseTargets(useNames, useRenames) {
		if importLicenses(useNames[mod], name) {
			if c := lookupInUnit(mod, name, visited); c != nil {
				return c
			}
		}
		for _, r := range useRenames[mod] {
			if r.Alias == name {
				if c := lookupInUnit(mod, r.Orig, visited); c != nil {
					return c
				}
			}
		}
	}
	return nil
}

// importLicenses reports whether an only-list admits name. The importAll
// sentinel admits everything.
func importLicenses(names []string, name string) bool {
	for _, n := range names {
		if n == importAll || n == name {
			return true
		}
	}
	return false
}

func sortedUseTargets(names map[*ProgramUnit][]string, renames map[*ProgramUnit][]Rename) []*ProgramUnit {
	seen := make(map[*ProgramUnit]struct{}, len(names))
	var out []*ProgramUnit
	for m := range names {
		seen[m] = struct{}{}
		out = append(out, m)
	}
	for m := range renames {
		if _, ok := seen[m]; !ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// scopeChain lists the scopes whose imports are visible from origin, from
// innermost outwards: the routine itself, its parent when nested, and the
// enclosing program unit.
func scopeChain(origin Scope) []Scope {
	switch o := origin.(type) {
	case *Callable:
		chain := []Scope{o}
		if o.Parent != nil {
			chain = append(chain, o.Parent)
		}
		if o.Unit != nil {
			chain = append(chain, o.Unit)
		}
		return chain
	case *ProgramUnit:
		return []Scope{o}
	default:
		return nil
	}
}

func owningUnit(origin Scope) *ProgramUnit {
	switch o := origin.(type) {
	case *Callable:
		return o.Unit
	case *ProgramUnit:
		return o
	default:
		return nil
	}
}

// findDerivedTypeByName locates a derived-type definition visible from origin
// under the same licensing rules as procedure lookup: the origin chain's own
// types first, then imported units, transitively and cycle-guarded.
func (t *Tree) findDerivedTypeByName(origin Scope, name string) *DerivedType {
	for _, sc := range scopeChain(origin) {
		if dt := scopeOwnedType(sc, name); dt != nil {
			return dt
		}
	}
	unit := owningUnit(origin)
	if unit == nil {
		return nil
	}
	visited := map[visitKey]struct{}{{unit, name}: {}}
	for _, sc := range scopeChain(origin) {
		if dt := searchUsesForType(sc, name, visited); dt != nil {
			return dt
		}
	}
	return nil
}

func scopeOwnedType(sc Scope, name string) *DerivedType {
	var set map[*DerivedType]struct{}
	switch s := sc.(type) {
	case *Callable:
		set = s.DerivedTypes
	case *ProgramUnit:
		set = s.DerivedTypes
	}
	for dt := range set {
		if dt.Name() == name {
			return dt
		}
	}
	return nil
}

func searchUsesForType(sc Scope, name string, visited map[visitKey]struct{}) *DerivedType {
	useNames := sc.UseNames()
	useRenames := sc.UseRenames()
	for _, mod := range sortedUseTargets(useNames, useRenames) {
		if importLicenses(useNames[mod], name) {
			if dt := lookupTypeInUnit(mod, name, visited); dt != nil {
				return dt
			}
		}
		for _, r := range useRenames[mod] {
			if r.Alias == name {
				if dt := lookupTypeInUnit(mod, r.Orig, visited); dt != nil {
					return dt
				}
			}
		}
	}
	return nil
}

func lookupTypeInUnit(unit *ProgramUnit, name string, visited map[visitKey]struct{}) *DerivedType {
	if _, ok := visited[visitKey{unit, name}]; ok {
		return nil
	}
	visited[visitKey{unit, name}] = struct{}{}
	if dt := scopeOwnedType(unit, name); dt != nil {
		return dt
	}
	return searchUsesForType(unit, name, visited)
}

// resolveBindingName maps a type-bound call's binding name to its
// implementation routine name by scanning only the receiver type's own
// binding map. The EXTENDS chain is never walked. An unresolved binding
// passes the name through unchanged with no defining scope, so the caller
// falls back to ordinary scoped lookup.
func (t *Tree) resolveBindingName(origin Scope, typeName, bindingName string) (string, Scope) {
	dt := t.findDerivedTypeByName(origin, typeName)
	if dt == nil {
		return bindingName, nil
	}
	if impl, ok := dt.Bindings[bindingName]; ok {
		return impl, dt.Scope
	}
	return bindingName, nil
}

// callArg is one actual argument at a call site: its inferred signature plus
// the keyword when the argument is keyword-passed.
type callArg struct {
	Type    string
	Rank    int
	Kind    string
	Keyword string
}

// resolveInterfaceProcedures narrows a generic interface's member set to the
// procedures compatible with the given actual arguments. When no member has
// a parsed signature, or no member survives filtering, the full member set
// is returned: over-approximating keeps the call graph conservative.
func resolveInterfaceProcedures(iface *Interface, args []callArg) []*Callable {
	members := make([]*Callable, 0, len(iface.Procedures))
	for p := range iface.Procedures {
		members = append(members, p)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ScopeKey() < members[j].ScopeKey() })

	anySignature := false
	for _, m := range members {
		if m.HasSignature() {
			anySignature = true
			break
		}
	}
	if !anySignature {
		return members
	}

	var matched []*Callable
	for _, m := range members {
		if procedureMatches(m, args) {
			matched = append(matched, m)
		}
	}
	if len(matched) == 0 {
		return members
	}
	return matched
}

// procedureMatches reports whether proc could be the target of a call with
// the given actual arguments: arity within [required, total], keywords
// matching dummy names case-insensitively, and each argument's type, rank,
// and kind independently compatible with the dummy at its mapped position.
func procedureMatches(proc *Callable, args []callArg) bool {
	if !proc.HasSignature() {
		return false
	}
	if len(args) < proc.NumRequiredArgs || len(args) > proc.NumArgs() {
		return false
	}
	for i, arg := range args {
		idx := i
		if arg.Keyword != "" {
			idx = proc.argIndex(arg.Keyword)
			if idx < 0 {
				return false
			}
		}
		if !typesCompatible(arg.Type, proc.ArgTypes[idx]) {
			return false
		}
		if !ranksCompatible(arg.Rank, proc.ArgRanks[idx]) {
			return false
		}
		if !kindsCompatible(arg.Kind, proc.ArgKinds[idx]) {
			return false
		}
	}
	return true
}

// typesCompatible is deliberately permissive: unknown matches anything, the
// numeric family (integer, real, numeric) is interchangeable, and derived
// types match on exact name. Inference errs toward unknown, so a strict
// check here would silently drop real call edges.
func typesCompatible(a, b string) bool {
	if a == typeUnknown || b == typeUnknown {
		return true
	}
	if a == b {
		return true
	}
	if isNumericType(a) && isNumericType(b) {
		return true
	}
	return false
}

func isNumericType(typ string) bool {
	return typ == typeInteger || typ == typeReal || typ == typeNumeric
}

func ranksCompatible(a, b int) bool {
	return a == rankUnknown || b == rankUnknown || a == b
}

func kindsCompatible(a, b string) bool {
	return a == "" || b == "" || strings.EqualFold(a, b)
}
