package ptree

import "strings"

// UnitKind classifies top-level program units.
type UnitKind string

const (
	UnitModule     UnitKind = "module"
	UnitProgram    UnitKind = "program"
	UnitSubprogram UnitKind = "subprogram"
)

// CallableKind classifies callables.
type CallableKind string

const (
	KindSubroutine CallableKind = "subroutine"
	KindFunction   CallableKind = "function"
)

// Rename pairs a local alias with the original name inside the used module.
type Rename struct {
	Alias string
	Orig  string
}

// importAll is the single-element sentinel recorded for an unrestricted use
// statement: every name the module exports is visible.
const importAll = "*"

// Scope is any node that can own use-relations and derived-type definitions:
// a program unit or a callable.
type Scope interface {
	Name() string
	// ScopeKey uniquely identifies the scope within one registry; it doubles
	// as the variable-table key prefix.
	ScopeKey() string
	UseNames() map[*ProgramUnit][]string
	UseRenames() map[*ProgramUnit][]Rename
	beginUse(mod *ProgramUnit, restricted bool)
	addUseName(mod *ProgramUnit, name string)
	addUseRename(mod *ProgramUnit, r Rename)
	addDerivedType(dt *DerivedType)
}

// Callee is any node a call edge may point at: a callable or an interface.
type Callee interface {
	CalleeName() string
	addCaller(c *Callable)
}

// scopeUses holds the per-scope import bookkeeping shared by program units
// and callables. A nested routine may use modules independently of its owner.
type scopeUses struct {
	usedNames   map[*ProgramUnit][]string
	usedRenames map[*ProgramUnit][]Rename
}

func newScopeUses() scopeUses {
	return scopeUses{
		usedNames:   make(map[*ProgramUnit][]string),
		usedRenames: make(map[*ProgramUnit][]Rename),
	}
}

func (s *scopeUses) UseNames() map[*ProgramUnit][]string { return s.usedNames }

func (s *scopeUses) UseRenames() map[*ProgramUnit][]Rename { return s.usedRenames }

// UsedUnits returns every unit this scope imports, whether via only-lists,
// renames, or unrestricted use.
func (s *scopeUses) UsedUnits() []*ProgramUnit {
	seen := make(map[*ProgramUnit]struct{}, len(s.usedNames))
	var out []*ProgramUnit
	for m := range s.usedNames {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	for m := range s.usedRenames {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// beginUse opens an import entry for mod. Restricted imports start empty and
// are filled by subsequent Only/Rename clauses; unrestricted imports record
// the importAll sentinel immediately.
func (s *scopeUses) beginUse(mod *ProgramUnit, restricted bool) {
	if restricted {
		if _, ok := s.usedNames[mod]; !ok {
			s.usedNames[mod] = []string{}
		}
		return
	}
	s.usedNames[mod] = []string{importAll}
}

// addUseName appends an only-name for mod. Once a whole-module sentinel is
// recorded, further only-names are redundant and ignored.
func (s *scopeUses) addUseName(mod *ProgramUnit, name string) {
	names := s.usedNames[mod]
	if len(names) > 0 && names[0] == importAll {
		return
	}
	s.usedNames[mod] = append(names, name)
}

func (s *scopeUses) addUseRename(mod *ProgramUnit, r Rename) {
	s.usedRenames[mod] = append(s.usedRenames[mod], r)
}

// ProgramUnit is a module, main program, or file-level subprogram: the
// top-level namespace containing callables, interfaces, and derived types.
// Instances are interned by the Registry; a unit first seen as the target of
// a use statement is completed in place once its defining dump is parsed.
type ProgramUnit struct {
	scopeUses
	Kind UnitKind

	name         string
	Subroutines  map[*Callable]struct{}
	Functions    map[*Callable]struct{}
	Interfaces   map[*Interface]struct{}
	DerivedTypes map[*DerivedType]struct{}

	// TreePath is the dump file this unit was defined in. Empty for units
	// referenced only by name (external libraries such as netcdf or mpi).
	TreePath string
}

func newProgramUnit(kind UnitKind, name string) *ProgramUnit {
	return &ProgramUnit{
		scopeUses:    newScopeUses(),
		Kind:         kind,
		name:         name,
		Subroutines:  make(map[*Callable]struct{}),
		Functions:    make(map[*Callable]struct{}),
		Interfaces:   make(map[*Interface]struct{}),
		DerivedTypes: make(map[*DerivedType]struct{}),
	}
}

func (u *ProgramUnit) Name() string     { return u.name }
func (u *ProgramUnit) ScopeKey() string { return u.name }

func (u *ProgramUnit) addDerivedType(dt *DerivedType) {
	u.DerivedTypes[dt] = struct{}{}
}

// Callable is a subroutine or function. Argument info is unset (nil slices)
// until the signature has been recovered from the specification part.
type Callable struct {
	scopeUses
	Kind CallableKind

	name   string
	Unit   *ProgramUnit
	Parent *Callable // enclosing callable when nested one level deep

	Callees      map[Callee]struct{}
	Callers      map[*Callable]struct{}
	DerivedTypes map[*DerivedType]struct{}

	// Signature info, parallel slices indexed by declaration order.
	ArgNames        []string
	ArgTypes        []string
	ArgRanks        []int
	ArgKinds        []string
	NumRequiredArgs int

	argOptional []bool
}

func newCallable(kind CallableKind, name string, unit *ProgramUnit, parent *Callable) *Callable {
	return &Callable{
		scopeUses:    newScopeUses(),
		Kind:         kind,
		name:         name,
		Unit:         unit,
		Parent:       parent,
		Callees:      make(map[Callee]struct{}),
		Callers:      make(map[*Callable]struct{}),
		DerivedTypes: make(map[*DerivedType]struct{}),
	}
}

func (c *Callable) Name() string       { return c.name }
func (c *Callable) CalleeName() string { return c.name }

func (c *Callable) ScopeKey() string {
	return callableKey(c.Unit.Name(), parentName(c.Parent), c.name)
}

func (c *Callable) addDerivedType(dt *DerivedType) {
	c.DerivedTypes[dt] = struct{}{}
}

func (c *Callable) addCaller(caller *Callable) {
	c.Callers[caller] = struct{}{}
}

// NumArgs is the total argument count, -1 until the signature is parsed.
func (c *Callable) NumArgs() int {
	if c.ArgTypes == nil {
		return -1
	}
	return len(c.ArgTypes)
}

// HasSignature reports whether argument info has been recovered.
func (c *Callable) HasSignature() bool { return c.ArgTypes != nil }

// initSignature records the dummy-argument name list from the routine's
// opening statement and allocates the parallel type/rank/kind slices, all
// initially unknown. Calling it again on an already-initialized signature is
// a no-op, so repeat parse passes over the same routine are harmless.
func (c *Callable) initSignature(argNames []string) {
	if c.ArgTypes != nil {
		return
	}
	n := len(argNames)
	c.ArgNames = append([]string(nil), argNames...)
	c.ArgTypes = make([]string, n)
	c.ArgRanks = make([]int, n)
	c.ArgKinds = make([]string, n)
	c.argOptional = make([]bool, n)
	for i := range c.ArgTypes {
		c.ArgTypes[i] = typeUnknown
		c.ArgRanks[i] = rankUnknown
	}
	c.NumRequiredArgs = n
}

// argIndex returns the position of the dummy argument named name,
// case-insensitively, or -1 when the routine has no such argument.
func (c *Callable) argIndex(name string) int {
	for i, a := range c.ArgNames {
		if strings.EqualFold(a, name) {
			return i
		}
	}
	return -1
}

// markOptional flags the dummy argument at idx as OPTIONAL and refreshes the
// required-argument count.
func (c *Callable) markOptional(idx int) {
	if idx < 0 || idx >= len(c.argOptional) {
		return
	}
	c.argOptional[idx] = true
	required := 0
	for _, opt := range c.argOptional {
		if !opt {
			required++
		}
	}
	c.NumRequiredArgs = required
}

// callableKey builds the composite registry key for a callable: the same name
// nested in different units (or parents) is a distinct symbol.
func callableKey(unitName, parent, name string) string {
	if parent == "" {
		return unitName + "::" + name
	}
	return unitName + "::" + parent + "::" + name
}

func parentName(p *Callable) string {
	if p == nil {
		return ""
	}
	return p.Name()
}

// CallableKey exposes the composite key derivation for variable-table lookups.
func CallableKey(unitName, parent, name string) string {
	return callableKey(unitName, parent, name)
}

// Interface is a named generic interface block. Creation registers the
// interface into its owning unit's interface set.
type Interface struct {
	name       string
	Unit       *ProgramUnit
	Procedures map[*Callable]struct{}
	Callers    map[*Callable]struct{}
}

func newInterface(name string, unit *ProgramUnit) *Interface {
	iface := &Interface{
		name:       name,
		Unit:       unit,
		Procedures: make(map[*Callable]struct{}),
		Callers:    make(map[*Callable]struct{}),
	}
	unit.Interfaces[iface] = struct{}{}
	return iface
}

func (i *Interface) Name() string       { return i.name }
func (i *Interface) CalleeName() string { return i.name }

func (i *Interface) addCaller(caller *Callable) {
	i.Callers[caller] = struct{}{}
}

// DerivedType is a Fortran derived-type definition. Bindings map a type-bound
// procedure's public name to its implementation routine name; the parent type
// of an EXTENDS clause is kept as text, never resolved to an object.
type DerivedType struct {
	name           string
	Scope          Scope
	Bindings       map[string]string
	ParentTypeName string
}

func newDerivedType(name string, scope Scope) *DerivedType {
	dt := &DerivedType{
		name:     name,
		Scope:    scope,
		Bindings: make(map[string]string),
	}
	scope.addDerivedType(dt)
	return dt
}

func (d *DerivedType) Name() string { return d.name }

// addCallEdge records a resolved call bidirectionally: the callee lands in
// the caller's callee set and the caller in the callee's caller set.
func addCallEdge(caller *Callable, callee Callee) {
	caller.Callees[callee] = struct{}{}
	callee.addCaller(caller)
}

// Compile-time callee checks.
var (
	_ Callee = (*Callable)(nil)
	_ Callee = (*Interface)(nil)
	_ Scope  = (*ProgramUnit)(nil)
	_ Scope  = (*Callable)(nil)
)

// typeDerivedPrefix marks a derived-type name in a VariableInfo or argument
// type string, e.g. "derived:ocean_grid_type".
const typeDerivedPrefix = "derived:"

func derivedTypeName(typ string) (string, bool) {
	if strings.HasPrefix(typ, typeDerivedPrefix) {
		return typ[len(typeDerivedPrefix):], true
	}
	return "", false
}
