// Package export renders an analyzed symbol graph as JSON or Mermaid.
package export

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/alperaltuntas/flinspect/internal/forest"
	"github.com/alperaltuntas/flinspect/internal/graph"
	"github.com/alperaltuntas/flinspect/internal/ptree"
)

// ModelExport is the top-level JSON export structure.
type ModelExport struct {
	ExportedAt string               `json:"exportedAt"`
	Files      []string             `json:"files"`
	Units      []graph.UnitNode     `json:"units"`
	Callables  []graph.CallableNode `json:"callables"`
	Interfaces []InterfaceExport    `json:"interfaces,omitempty"`
	Edges      []graph.Edge         `json:"edges"`
	Unresolved UnresolvedExport     `json:"unresolved"`
}

// InterfaceExport describes one generic interface and its member procedures.
type InterfaceExport struct {
	Name    string   `json:"name"`
	Unit    string   `json:"unit"`
	Members []string `json:"members,omitempty"` // member callable keys
}

// UnresolvedExport lists call sites that resolved to no known target.
type UnresolvedExport struct {
	SubroutineCalls []CallSiteExport `json:"subroutineCalls,omitempty"`
	FunctionCalls   []CallSiteExport `json:"functionCalls,omitempty"`
}

// CallSiteExport is one unresolved call site.
type CallSiteExport struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
}

// BuildModel assembles a ModelExport from an analyzed forest and the store
// its graph was built into.
func BuildModel(ctx context.Context, f *forest.Forest, store graph.Store) (*ModelExport, error) {
	out := &ModelExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, t := range f.Trees {
		out.Files = append(out.Files, t.Path)
	}

	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return nil, err
	}
	out.Edges = edges

	reg := f.Registry
	for _, u := range reg.Modules() {
		out.Units = append(out.Units, graph.UnitNode{
			Name: u.Name(), Kind: graph.UnitKindModule,
			TreePath: u.TreePath, External: u.TreePath == "",
		})
	}
	for _, u := range reg.Programs() {
		out.Units = append(out.Units, graph.UnitNode{Name: u.Name(), Kind: graph.UnitKindProgram, TreePath: u.TreePath})
	}
	for _, u := range reg.Subprograms() {
		out.Units = append(out.Units, graph.UnitNode{Name: u.Name(), Kind: graph.UnitKindSubprogram, TreePath: u.TreePath})
	}

	for _, c := range append(reg.Subroutines(), reg.Functions()...) {
		node := graph.CallableNode{
			Key:      c.ScopeKey(),
			Name:     c.Name(),
			Kind:     graph.CallableKind(c.Kind),
			UnitName: c.Unit.Name(),
			NumArgs:  c.NumArgs(),
		}
		if c.Parent != nil {
			node.Parent = c.Parent.Name()
		}
		out.Callables = append(out.Callables, node)
	}

	for _, i := range reg.Interfaces() {
		ie := InterfaceExport{Name: i.Name(), Unit: i.Unit.Name()}
		for p := range i.Procedures {
			ie.Members = append(ie.Members, p.ScopeKey())
		}
		sort.Strings(ie.Members)
		out.Interfaces = append(out.Interfaces, ie)
	}

	subs, funcs := f.UnresolvedCalls()
	out.Unresolved.SubroutineCalls = callSites(subs)
	out.Unresolved.FunctionCalls = callSites(funcs)
	return out, nil
}

// WriteJSON renders the model as indented JSON.
func WriteJSON(w io.Writer, model *ModelExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(model)
}

func callSites(calls []ptree.UnresolvedCall) []CallSiteExport {
	out := make([]CallSiteExport, 0, len(calls))
	for _, c := range calls {
		out = append(out, CallSiteExport{Caller: c.Caller, Callee: c.Callee})
	}
	return out
}
