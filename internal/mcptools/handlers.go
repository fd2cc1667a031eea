package mcptools

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alperaltuntas/flinspect/internal/export"
	"github.com/alperaltuntas/flinspect/internal/forest"
	"github.com/alperaltuntas/flinspect/internal/graph"
)

// InspectService holds the graph store and the last analyzed forest, shared
// by the MCP tool handlers. build_model replaces both; the query tools only
// read, so a single mutex around the swap is enough.
type InspectService struct {
	mu     sync.RWMutex
	store  graph.Store
	forest *forest.Forest
}

// NewInspectService creates an InspectService backed by the given store.
func NewInspectService(store graph.Store) *InspectService {
	return &InspectService{store: store}
}

// SetForest installs an already-analyzed forest, for callers that run the
// analysis outside the MCP surface.
func (s *InspectService) SetForest(f *forest.Forest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forest = f
}

// BuildModel scans a dump directory, runs the three parse passes, projects
// the registry into the graph store, and computes module clusters.
func (s *InspectService) BuildModel(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BuildModelInput,
) (*mcp.CallToolResult, BuildModelOutput, error) {
	if input.DumpDir == "" {
		return nil, BuildModelOutput{}, fmt.Errorf("dumpDir is required")
	}
	info, err := os.Stat(input.DumpDir)
	if err != nil {
		return nil, BuildModelOutput{}, fmt.Errorf("cannot access dumpDir: %w", err)
	}
	if !info.IsDir() {
		return nil, BuildModelOutput{}, fmt.Errorf("dumpDir is not a directory: %s", input.DumpDir)
	}

	paths, err := forest.ScanFiltered(input.DumpDir, input.DumpSuffix, input.ExcludeDirs)
	if err != nil {
		return nil, BuildModelOutput{}, err
	}
	if len(paths) == 0 {
		return nil, BuildModelOutput{}, fmt.Errorf("no dump files under %s", input.DumpDir)
	}
	f, err := forest.Load(ctx, paths)
	if err != nil {
		return nil, BuildModelOutput{}, err
	}
	if err := f.Parse(ctx); err != nil {
		return nil, BuildModelOutput{}, err
	}

	if err := graph.Build(ctx, s.store, f.Registry); err != nil {
		return nil, BuildModelOutput{}, fmt.Errorf("build graph: %w", err)
	}
	if _, err := graph.ComputeClusters(ctx, s.store, definedUnits(f)); err != nil {
		return nil, BuildModelOutput{}, fmt.Errorf("compute clusters: %w", err)
	}

	s.mu.Lock()
	s.forest = f
	s.mu.Unlock()

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, BuildModelOutput{}, fmt.Errorf("stats: %w", err)
	}
	return nil, BuildModelOutput{
		Stats:      *stats,
		Unresolved: unresolvedExport(f),
	}, nil
}

// definedUnits lists the modules defined by the analyzed dumps; external
// modules are left out so they never glue unrelated clusters together.
func definedUnits(f *forest.Forest) []graph.UnitNode {
	var out []graph.UnitNode
	for _, m := range f.Registry.Modules() {
		if m.TreePath == "" {
			continue
		}
		out = append(out, graph.UnitNode{
			Name:     m.Name(),
			Kind:     graph.UnitKindModule,
			TreePath: m.TreePath,
		})
	}
	return out
}

func unresolvedExport(f *forest.Forest) export.UnresolvedExport {
	var out export.UnresolvedExport
	if f == nil {
		return out
	}
	subs, funcs := f.UnresolvedCalls()
	for _, c := range subs {
		out.SubroutineCalls = append(out.SubroutineCalls, export.CallSiteExport{Caller: c.Caller, Callee: c.Callee})
	}
	for _, c := range funcs {
		out.FunctionCalls = append(out.FunctionCalls, export.CallSiteExport{Caller: c.Caller, Callee: c.Callee})
	}
	return out
}

// QuerySymbols searches for callables by name substring match.
func (s *InspectService) QuerySymbols(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuerySymbolsInput,
) (*mcp.CallToolResult, QuerySymbolsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	callables, err := s.store.QueryCallables(ctx, input.Query, limit)
	if err != nil {
		return nil, QuerySymbolsOutput{}, fmt.Errorf("query callables: %w", err)
	}

	if input.Kind != "" {
		kind := graph.CallableKind(strings.ToLower(input.Kind))
		filtered := callables[:0]
		for _, c := range callables {
			if c.Kind == kind {
				filtered = append(filtered, c)
			}
		}
		callables = filtered
	}

	return nil, QuerySymbolsOutput{
		Callables: callables,
		Total:     len(callables),
	}, nil
}

// GetCallers returns the callables that call the given callable.
func (s *InspectService) GetCallers(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CallNeighborsInput,
) (*mcp.CallToolResult, CallNeighborsOutput, error) {
	if input.Key == "" {
		return nil, CallNeighborsOutput{}, fmt.Errorf("key is required")
	}
	callers, err := s.store.Callers(ctx, input.Key)
	if err != nil {
		return nil, CallNeighborsOutput{}, fmt.Errorf("get callers: %w", err)
	}
	return nil, CallNeighborsOutput{Callables: callers}, nil
}

// GetCallees returns the callables the given callable calls.
func (s *InspectService) GetCallees(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CallNeighborsInput,
) (*mcp.CallToolResult, CallNeighborsOutput, error) {
	if input.Key == "" {
		return nil, CallNeighborsOutput{}, fmt.Errorf("key is required")
	}
	callees, err := s.store.Callees(ctx, input.Key)
	if err != nil {
		return nil, CallNeighborsOutput{}, fmt.Errorf("get callees: %w", err)
	}
	return nil, CallNeighborsOutput{Callables: callees}, nil
}

// ModuleUses traverses the unit dependency graph from a given unit.
func (s *InspectService) ModuleUses(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ModuleUsesInput,
) (*mcp.CallToolResult, ModuleUsesOutput, error) {
	if input.Unit == "" {
		return nil, ModuleUsesOutput{}, fmt.Errorf("unit is required")
	}

	direction := graph.DirectionUpstream
	if strings.EqualFold(input.Direction, "downstream") {
		direction = graph.DirectionDownstream
	}

	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	chains, err := s.store.GetDependencies(ctx, input.Unit, direction, maxDepth)
	if err != nil {
		return nil, ModuleUsesOutput{}, fmt.Errorf("get dependencies: %w", err)
	}
	return nil, ModuleUsesOutput{Chains: chains}, nil
}

// UnresolvedCalls returns the call sites the last build_model run could not
// resolve.
func (s *InspectService) UnresolvedCalls(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ UnresolvedCallsInput,
) (*mcp.CallToolResult, UnresolvedCallsOutput, error) {
	s.mu.RLock()
	f := s.forest
	s.mu.RUnlock()
	if f == nil {
		return nil, UnresolvedCallsOutput{}, fmt.Errorf("no model built yet; call build_model first")
	}
	return nil, UnresolvedCallsOutput{Unresolved: unresolvedExport(f)}, nil
}

// GraphStats returns node and edge counts of the symbol graph.
func (s *InspectService) GraphStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GraphStatsInput,
) (*mcp.CallToolResult, GraphStatsOutput, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, GraphStatsOutput{}, fmt.Errorf("stats: %w", err)
	}
	return nil, GraphStatsOutput{Stats: *stats}, nil
}

// GetClusters returns all module clusters in the graph.
func (s *InspectService) GetClusters(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetClustersInput,
) (*mcp.CallToolResult, GetClustersOutput, error) {
	clusters, err := s.store.GetClusters(ctx)
	if err != nil {
		return nil, GetClustersOutput{}, fmt.Errorf("get clusters: %w", err)
	}
	return nil, GetClustersOutput{Clusters: clusters}, nil
}
