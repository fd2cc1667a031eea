// Command flinspect builds a cross-file symbol model from flang parse-tree
// dump files and reports on it: call graphs, module dependencies, generic
// interface resolution.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alperaltuntas/flinspect/internal/config"
	"github.com/alperaltuntas/flinspect/internal/export"
	"github.com/alperaltuntas/flinspect/internal/forest"
	"github.com/alperaltuntas/flinspect/internal/graph"
	"github.com/alperaltuntas/flinspect/internal/mcptools"
)

// CLI flags parsed from command line.
type cliFlags struct {
	DumpDir    string
	DumpSuffix string
	GraphDB    string
	JSON       bool
	Mermaid    bool
	Query      string
	Callers    string
	ServeMCP   bool
	Addr       string
	Verbose    bool
	Version    bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("flinspect", flag.ContinueOnError)
	fs.StringVar(&flags.DumpDir, "dump-dir", ".", "directory scanned for parse-tree dump files")
	fs.StringVar(&flags.DumpSuffix, "suffix", "", "dump file-name suffix (default: _ptree)")
	fs.StringVar(&flags.GraphDB, "graph-db", "", "directory for a persistent graph database (default: in-memory)")
	fs.BoolVar(&flags.JSON, "json", false, "write the full symbol model as JSON to stdout")
	fs.BoolVar(&flags.Mermaid, "mermaid", false, "write a Mermaid module-dependency diagram to stdout")
	fs.StringVar(&flags.Query, "query", "", "print callables whose name contains the given substring")
	fs.StringVar(&flags.Callers, "callers", "", "print the callers of every subroutine whose name ends with the given suffix")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as MCP server exposing the symbol model")
	fs.StringVar(&flags.Addr, "addr", "localhost:7177", "listen address for the MCP server")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(flags.DumpDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyConfig(&flags, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(flags.GraphDB)
	if err != nil {
		return err
	}
	defer store.Close()

	if flags.ServeMCP {
		svc := mcptools.NewInspectService(store)
		fmt.Fprintf(os.Stderr, "flinspect MCP server listening on %s\n", flags.Addr)
		return mcptools.RunMCPServer(ctx, svc, flags.Addr)
	}

	f, err := analyze(ctx, store, flags, cfg)
	if err != nil {
		return err
	}

	switch {
	case flags.JSON:
		model, err := export.BuildModel(ctx, f, store)
		if err != nil {
			return err
		}
		return export.WriteJSON(os.Stdout, model)
	case flags.Mermaid:
		diagram, err := export.GenerateMermaid(ctx, store)
		if err != nil {
			return err
		}
		fmt.Print(diagram)
		return nil
	case flags.Query != "":
		return printQuery(ctx, store, flags.Query)
	case flags.Callers != "":
		return printCallers(ctx, store, f, flags.Callers)
	default:
		f.WriteSummary(os.Stdout)
		return nil
	}
}

// applyConfig fills flag zero-values from the project config file. The dump
// directory only follows the config when the flag was left at its default.
func applyConfig(flags *cliFlags, cfg *config.ProjectConfig) {
	if flags.DumpDir == "." && cfg.DumpDir != "" {
		flags.DumpDir = cfg.DumpDir
	}
	if flags.DumpSuffix == "" {
		flags.DumpSuffix = cfg.DumpSuffix
	}
	if flags.GraphDB == "" {
		flags.GraphDB = cfg.GraphDB
	}
	if cfg.Verbose {
		flags.Verbose = true
	}
}

// analyze runs the full pipeline: scan, load, three parse passes, graph
// projection, clustering.
func analyze(ctx context.Context, store graph.Store, flags cliFlags, cfg *config.ProjectConfig) (*forest.Forest, error) {
	paths, err := forest.ScanFiltered(flags.DumpDir, flags.DumpSuffix, cfg.ExcludeDirs)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no parse-tree dump files under %s", flags.DumpDir)
	}
	if flags.Verbose {
		fmt.Fprintf(os.Stderr, "analyzing %d dump files\n", len(paths))
	}

	f, err := forest.Load(ctx, paths)
	if err != nil {
		return nil, err
	}
	if err := f.Parse(ctx); err != nil {
		return nil, err
	}

	if err := graph.Build(ctx, store, f.Registry); err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	var units []graph.UnitNode
	for _, m := range f.Registry.Modules() {
		if m.TreePath != "" {
			units = append(units, graph.UnitNode{Name: m.Name(), Kind: graph.UnitKindModule, TreePath: m.TreePath})
		}
	}
	if _, err := graph.ComputeClusters(ctx, store, units); err != nil {
		return nil, fmt.Errorf("compute clusters: %w", err)
	}
	return f, nil
}

func printQuery(ctx context.Context, store graph.Store, query string) error {
	callables, err := store.QueryCallables(ctx, query, 0)
	if err != nil {
		return err
	}
	for _, c := range callables {
		fmt.Printf("%-12s %s\n", c.Kind, c.Key)
	}
	return nil
}

func printCallers(ctx context.Context, store graph.Store, f *forest.Forest, suffix string) error {
	for _, sub := range f.Registry.SubroutinesBySuffix(suffix) {
		fmt.Printf("%s\n", sub.ScopeKey())
		callers, err := store.Callers(ctx, sub.ScopeKey())
		if err != nil {
			return err
		}
		for _, c := range callers {
			fmt.Printf("  <- %s\n", c.Key)
		}
	}
	return nil
}
