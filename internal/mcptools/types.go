package mcptools

import (
	"github.com/alperaltuntas/flinspect/internal/export"
	"github.com/alperaltuntas/flinspect/internal/graph"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// BuildModelInput is the input for the build_model MCP tool.
type BuildModelInput struct {
	DumpDir     string   `json:"dumpDir" jsonschema:"the absolute path to the directory containing flang parse-tree dump files"`
	DumpSuffix  string   `json:"dumpSuffix,omitempty" jsonschema:"file-name suffix of dump files (default: _ptree)"`
	ExcludeDirs []string `json:"excludeDirs,omitempty" jsonschema:"directories to exclude from scanning"`
}

// BuildModelOutput is the result of the build_model MCP tool.
type BuildModelOutput struct {
	Stats      graph.GraphStats        `json:"stats"`
	Unresolved export.UnresolvedExport `json:"unresolved"`
}

// QuerySymbolsInput is the input for the query_symbols MCP tool.
type QuerySymbolsInput struct {
	Query string `json:"query" jsonschema:"search query for callable names (substring match)"`
	Kind  string `json:"kind,omitempty" jsonschema:"filter by kind: subroutine, function, interface"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// QuerySymbolsOutput is the result of the query_symbols MCP tool.
type QuerySymbolsOutput struct {
	Callables []graph.CallableNode `json:"callables"`
	Total     int                  `json:"total"`
}

// CallNeighborsInput is the input for the get_callers and get_callees tools.
type CallNeighborsInput struct {
	Key string `json:"key" jsonschema:"composite callable key, e.g. my_module::my_subroutine"`
}

// CallNeighborsOutput is the result of the get_callers and get_callees tools.
type CallNeighborsOutput struct {
	Callables []graph.CallableNode `json:"callables"`
}

// ModuleUsesInput is the input for the module_uses MCP tool.
type ModuleUsesInput struct {
	Unit      string `json:"unit" jsonschema:"program unit name to traverse from"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (what it uses) or downstream (what uses it). Default: upstream"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// ModuleUsesOutput is the result of the module_uses MCP tool.
type ModuleUsesOutput struct {
	Chains []graph.DependencyChain `json:"chains"`
}

// UnresolvedCallsInput is the input for the unresolved_calls MCP tool.
type UnresolvedCallsInput struct{}

// UnresolvedCallsOutput is the result of the unresolved_calls MCP tool.
type UnresolvedCallsOutput struct {
	Unresolved export.UnresolvedExport `json:"unresolved"`
}

// GraphStatsInput is the input for the graph_stats MCP tool.
type GraphStatsInput struct{}

// GraphStatsOutput is the result of the graph_stats MCP tool.
type GraphStatsOutput struct {
	Stats graph.GraphStats `json:"stats"`
}

// GetClustersInput is the input for the get_clusters MCP tool.
type GetClustersInput struct{}

// GetClustersOutput is the result of the get_clusters MCP tool.
type GetClustersOutput struct {
	Clusters []graph.ClusterNode `json:"clusters"`
}
