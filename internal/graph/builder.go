package graph

import (
	"context"

	"github.com/alperaltuntas/flinspect/internal/ptree"
)

// Build projects a parsed symbol registry into a graph store: one Unit node
// per program unit, one Callable node per subroutine, function, and generic
// interface, with USES, OWNS, CALLS, and MEMBER edges between them.
//
// Use-relations declared inside routines are hoisted to their owning unit, so
// the USES graph stays a unit-level dependency graph.
func Build(ctx context.Context, store Store, reg *ptree.Registry) error {
	if err := store.InitSchema(ctx); err != nil {
		return err
	}

	for _, u := range allUnits(reg) {
		if err := store.AddUnit(ctx, unitNode(u)); err != nil {
			return err
		}
	}

	ifaceKeys := make(map[*ptree.Interface]string)
	for _, i := range reg.Interfaces() {
		key := interfaceKey(i)
		ifaceKeys[i] = key
		node := CallableNode{
			Key:      key,
			Name:     i.Name(),
			Kind:     CallableKindInterface,
			UnitName: i.Unit.Name(),
			NumArgs:  -1,
		}
		if err := store.AddCallable(ctx, node); err != nil {
			return err
		}
	}
	callables := append(reg.Subroutines(), reg.Functions()...)
	for _, c := range callables {
		if err := store.AddCallable(ctx, callableNode(c)); err != nil {
			return err
		}
	}

	if err := addUseEdges(ctx, store, reg, callables); err != nil {
		return err
	}
	if err := addOwnEdges(ctx, store, reg, ifaceKeys); err != nil {
		return err
	}
	if err := addCallEdges(ctx, store, callables, ifaceKeys); err != nil {
		return err
	}
	return addMemberEdges(ctx, store, reg, ifaceKeys)
}

func allUnits(reg *ptree.Registry) []*ptree.ProgramUnit {
	var out []*ptree.ProgramUnit
	out = append(out, reg.Modules()...)
	out = append(out, reg.Programs()...)
	return append(out, reg.Subprograms()...)
}

func unitNode(u *ptree.ProgramUnit) UnitNode {
	return UnitNode{
		Name:     u.Name(),
		Kind:     UnitKind(u.Kind),
		TreePath: u.TreePath,
		External: u.Kind == ptree.UnitModule && u.TreePath == "",
	}
}

func callableNode(c *ptree.Callable) CallableNode {
	node := CallableNode{
		Key:      c.ScopeKey(),
		Name:     c.Name(),
		Kind:     CallableKind(c.Kind),
		UnitName: c.Unit.Name(),
		NumArgs:  c.NumArgs(),
	}
	if c.Parent != nil {
		node.Parent = c.Parent.Name()
	}
	return node
}

func interfaceKey(i *ptree.Interface) string {
	return i.Unit.Name() + "::" + i.Name() + "#interface"
}

func addUseEdges(ctx context.Context, store Store, reg *ptree.Registry, callables []*ptree.Callable) error {
	type pair struct{ src, dst string }
	seen := make(map[pair]struct{})
	add := func(src, dst *ptree.ProgramUnit) error {
		if src == dst {
			return nil
		}
		p := pair{src.Name(), dst.Name()}
		if _, ok := seen[p]; ok {
			return nil
		}
		seen[p] = struct{}{}
		return store.AddEdge(ctx, Edge{SourceID: p.src, TargetID: p.dst, Kind: EdgeKindUses})
	}

	for _, u := range allUnits(reg) {
		for _, used := range u.UsedUnits() {
			if err := add(u, used); err != nil {
				return err
			}
		}
	}
	for _, c := range callables {
		for _, used := range c.UsedUnits() {
			if err := add(c.Unit, used); err != nil {
				return err
			}
		}
	}
	return nil
}

func addOwnEdges(ctx context.Context, store Store, reg *ptree.Registry, ifaceKeys map[*ptree.Interface]string) error {
	for _, u := range allUnits(reg) {
		for c := range u.Subroutines {
			if err := store.AddEdge(ctx, Edge{SourceID: u.Name(), TargetID: c.ScopeKey(), Kind: EdgeKindOwns}); err != nil {
				return err
			}
		}
		for c := range u.Functions {
			if err := store.AddEdge(ctx, Edge{SourceID: u.Name(), TargetID: c.ScopeKey(), Kind: EdgeKindOwns}); err != nil {
				return err
			}
		}
		for i := range u.Interfaces {
			if err := store.AddEdge(ctx, Edge{SourceID: u.Name(), TargetID: ifaceKeys[i], Kind: EdgeKindOwns}); err != nil {
				return err
			}
		}
	}
	return nil
}

func addCallEdges(ctx context.Context, store Store, callables []*ptree.Callable, ifaceKeys map[*ptree.Interface]string) error {
	for _, c := range callables {
		for callee := range c.Callees {
			var target string
			switch t := callee.(type) {
			case *ptree.Callable:
				target = t.ScopeKey()
			case *ptree.Interface:
				target = ifaceKeys[t]
			default:
				continue
			}
			if err := store.AddEdge(ctx, Edge{SourceID: c.ScopeKey(), TargetID: target, Kind: EdgeKindCalls}); err != nil {
				return err
			}
		}
	}
	return nil
}

func addMemberEdges(ctx context.Context, store Store, reg *ptree.Registry, ifaceKeys map[*ptree.Interface]string) error {
	for _, i := range reg.Interfaces() {
		for proc := range i.Procedures {
			if err := store.AddEdge(ctx, Edge{SourceID: ifaceKeys[i], TargetID: proc.ScopeKey(), Kind: EdgeKindMember}); err != nil {
				return err
			}
		}
	}
	return nil
}
