package ptree

import (
	"sort"
	"strings"
)

// Registry interns symbol nodes so each named entity is created at most once
// per analysis run. A single Registry is shared across every tree in a forest,
// which is what lets a module first seen only as a use-statement target be
// completed in place once its defining dump file is parsed.
//
// The registry (and everything it owns) is mutated by exactly one goroutine;
// see the forest for the sequencing contract.
type Registry struct {
	modules      map[string]*ProgramUnit
	programs     map[string]*ProgramUnit
	subprograms  map[string]*ProgramUnit
	subroutines  map[string]*Callable
	functions    map[string]*Callable
	interfaces   map[string]*Interface
	derivedTypes map[string]*DerivedType
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modules:      make(map[string]*ProgramUnit),
		programs:     make(map[string]*ProgramUnit),
		subprograms:  make(map[string]*ProgramUnit),
		subroutines:  make(map[string]*Callable),
		functions:    make(map[string]*Callable),
		interfaces:   make(map[string]*Interface),
		derivedTypes: make(map[string]*DerivedType),
	}
}

// Module returns the interned module named name, creating it on first request.
func (r *Registry) Module(name string) *ProgramUnit {
	if m, ok := r.modules[name]; ok {
		return m
	}
	m := newProgramUnit(UnitModule, name)
	r.modules[name] = m
	return m
}

// Program returns the interned main program named name.
func (r *Registry) Program(name string) *ProgramUnit {
	if p, ok := r.programs[name]; ok {
		return p
	}
	p := newProgramUnit(UnitProgram, name)
	r.programs[name] = p
	return p
}

// Subprogram returns the interned file-level subprogram named name.
func (r *Registry) Subprogram(name string) *ProgramUnit {
	if s, ok := r.subprograms[name]; ok {
		return s
	}
	s := newProgramUnit(UnitSubprogram, name)
	r.subprograms[name] = s
	return s
}

// Subroutine returns the interned subroutine for (unit, parent, name).
func (r *Registry) Subroutine(name string, unit *ProgramUnit, parent *Callable) *Callable {
	key := callableKey(unit.Name(), parentName(parent), name)
	if c, ok := r.subroutines[key]; ok {
		return c
	}
	c := newCallable(KindSubroutine, name, unit, parent)
	r.subroutines[key] = c
	return c
}

// Function returns the interned function for (unit, parent, name).
func (r *Registry) Function(name string, unit *ProgramUnit, parent *Callable) *Callable {
	key := callableKey(unit.Name(), parentName(parent), name)
	if c, ok := r.functions[key]; ok {
		return c
	}
	c := newCallable(KindFunction, name, unit, parent)
	r.functions[key] = c
	return c
}

// Interface returns the interned interface for (unit, name), registering a
// new interface into the unit's interface set on first request.
func (r *Registry) Interface(name string, unit *ProgramUnit) *Interface {
	key := unit.Name() + "::" + name
	if i, ok := r.interfaces[key]; ok {
		return i
	}
	i := newInterface(name, unit)
	r.interfaces[key] = i
	return i
}

// DerivedType returns the interned derived type for (scope, name). The key
// uses the full scope key: a bare routine name may recur across units.
func (r *Registry) DerivedType(name string, scope Scope) *DerivedType {
	key := scope.ScopeKey() + "::" + name
	if d, ok := r.derivedTypes[key]; ok {
		return d
	}
	d := newDerivedType(name, scope)
	r.derivedTypes[key] = d
	return d
}

// Modules returns every interned module, sorted by name.
func (r *Registry) Modules() []*ProgramUnit { return sortedUnits(r.modules) }

// Programs returns every interned main program, sorted by name.
func (r *Registry) Programs() []*ProgramUnit { return sortedUnits(r.programs) }

// Subprograms returns every interned file-level subprogram, sorted by name.
func (r *Registry) Subprograms() []*ProgramUnit { return sortedUnits(r.subprograms) }

// Subroutines returns every interned subroutine, sorted by key.
func (r *Registry) Subroutines() []*Callable { return sortedCallables(r.subroutines) }

// Functions returns every interned function, sorted by key.
func (r *Registry) Functions() []*Callable { return sortedCallables(r.functions) }

// Interfaces returns every interned interface, sorted by key.
func (r *Registry) Interfaces() []*Interface {
	keys := make([]string, 0, len(r.interfaces))
	for k := range r.interfaces {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Interface, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.interfaces[k])
	}
	return out
}

// DerivedTypes returns every interned derived type, sorted by key.
func (r *Registry) DerivedTypes() []*DerivedType {
	keys := make([]string, 0, len(r.derivedTypes))
	for k := range r.derivedTypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*DerivedType, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.derivedTypes[k])
	}
	return out
}

// SubroutinesBySuffix returns subroutines whose name ends with suffix,
// sorted by key. Callers use this for explorer-style lookups where only the
// trailing part of a long routine name is known.
func (r *Registry) SubroutinesBySuffix(suffix string) []*Callable {
	var out []*Callable
	for _, c := range sortedCallables(r.subroutines) {
		if strings.HasSuffix(c.Name(), suffix) {
			out = append(out, c)
		}
	}
	return out
}

func sortedUnits(m map[string]*ProgramUnit) []*ProgramUnit {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*ProgramUnit, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func sortedCallables(m map[string]*Callable) []*Callable {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Callable, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
