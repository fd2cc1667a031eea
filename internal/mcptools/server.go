// Package mcptools exposes the symbol model over the Model Context Protocol.
package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewInspectMCPServer creates an MCP server with all symbol-model tools
// registered.
func NewInspectMCPServer(svc *InspectService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "flinspect",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_model",
		Description: "Scan a directory of flang parse-tree dump files and build the cross-file symbol model: program units, callables, generic interfaces, use-relations, and resolved call edges.",
	}, svc.BuildModel)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_symbols",
		Description: "Search for subroutines, functions, and generic interfaces by name substring match. Optionally filter by kind and limit results.",
	}, svc.QuerySymbols)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_callers",
		Description: "Return the callables that call the given subroutine, function, or interface, identified by its composite key.",
	}, svc.GetCallers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_callees",
		Description: "Return the callables the given subroutine or function calls, identified by its composite key.",
	}, svc.GetCallees)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "module_uses",
		Description: "Traverse the module use-dependency graph upstream or downstream from a program unit. Returns dependency chains up to the specified depth.",
	}, svc.ModuleUses)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "unresolved_calls",
		Description: "Return the call sites of the last built model that resolved to no known subroutine, function, or interface.",
	}, svc.UnresolvedCalls)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "graph_stats",
		Description: "Return node and edge counts of the current symbol graph.",
	}, svc.GraphStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_clusters",
		Description: "Return the module clusters discovered during model building. Clusters are groups of tightly connected modules with cohesion scores.",
	}, svc.GetClusters)

	return server
}

// RunMCPServer starts an HTTP server exposing the symbol-model MCP tools.
func RunMCPServer(ctx context.Context, svc *InspectService, addr string) error {
	server := NewInspectMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
