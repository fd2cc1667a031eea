// Package forest drives the three-pass analysis of a collection of parse-tree
// dump files against one shared symbol registry. File contents are loaded
// concurrently; parsing itself is strictly sequential, because every pass of
// every file mutates the shared registry and later passes depend on the
// earlier passes of all files, not just their own.
package forest

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alperaltuntas/flinspect/internal/ptree"
)

// DumpSuffix is the file-name suffix the scanner selects by default.
const DumpSuffix = "_ptree"

// Forest holds the parsed trees of one analysis run and the registry they
// intern their symbols into.
type Forest struct {
	Trees    []*ptree.Tree
	Registry *ptree.Registry
}

// Scan walks root for parse-tree dump files, in lexical order.
func Scan(root string) ([]string, error) {
	return ScanFiltered(root, DumpSuffix, nil)
}

// ScanFiltered walks root for files carrying the given name suffix (before
// any extension), skipping the named directories.
func ScanFiltered(root, suffix string, excludeDirs []string) ([]string, error) {
	if suffix == "" {
		suffix = DumpSuffix
	}
	excluded := make(map[string]struct{}, len(excludeDirs))
	for _, d := range excludeDirs {
		excluded[d] = struct{}{}
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := excluded[d.Name()]; skip && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, suffix) || strings.HasSuffix(strings.TrimSuffix(name, filepath.Ext(name)), suffix) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("forest: scan %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads every dump file and builds its tree. Reading is I/O bound and
// fans out across goroutines; the shared registry is not touched until the
// parse passes run, so concurrent loading is safe.
func Load(ctx context.Context, paths []string) (*Forest, error) {
	reg := ptree.NewRegistry()
	trees := make([]*ptree.Tree, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(16)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := ptree.NewTree(path, reg)
			if err != nil {
				return err
			}
			trees[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Forest{Trees: trees, Registry: reg}, nil
}

// Parse runs the three passes. Each pass covers every file before the next
// pass starts: interface members may live in modules another file defines,
// and call resolution needs every interface of the collection populated.
// A file whose pass fails is logged and dropped from the remaining passes;
// the symbols it interned before the failure stay visible to other files.
func (f *Forest) Parse(ctx context.Context) error {
	passes := []struct {
		name string
		run  func(*ptree.Tree) error
	}{
		{"structure", (*ptree.Tree).ParseStructure},
		{"interfaces", (*ptree.Tree).ParseInterfaces},
		{"calls", (*ptree.Tree).ParseCalls},
	}
	failed := make(map[*ptree.Tree]bool)
	for _, pass := range passes {
		for _, t := range f.Trees {
			if err := ctx.Err(); err != nil {
				return err
			}
			if failed[t] {
				continue
			}
			if err := pass.run(t); err != nil {
				log.Printf("Warning: %s pass: %s: %v; skipping file", pass.name, t.Path, err)
				failed[t] = true
			}
		}
	}
	f.reportExternalModules()
	return nil
}

// Analyze is Scan, Load, and Parse in one call.
func Analyze(ctx context.Context, root string) (*Forest, error) {
	paths, err := Scan(root)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("forest: no %s files under %s", DumpSuffix, root)
	}
	f, err := Load(ctx, paths)
	if err != nil {
		return nil, err
	}
	if err := f.Parse(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// ExternalModules lists modules referenced by use statements but never
// defined by any dump file of the collection, e.g. netcdf or system modules.
func (f *Forest) ExternalModules() []*ptree.ProgramUnit {
	var out []*ptree.ProgramUnit
	for _, m := range f.Registry.Modules() {
		if m.TreePath == "" {
			out = append(out, m)
		}
	}
	return out
}

// UnresolvedCalls aggregates the per-file unresolved call sites, subroutine
// calls first.
func (f *Forest) UnresolvedCalls() (subs, funcs []ptree.UnresolvedCall) {
	for _, t := range f.Trees {
		subs = append(subs, t.UnfoundSubroutineCalls...)
		funcs = append(funcs, t.UnfoundFunctionCalls...)
	}
	return subs, funcs
}

func (f *Forest) reportExternalModules() {
	for _, m := range f.ExternalModules() {
		log.Printf("Note: module %s is used but not defined by any dump file", m.Name())
	}
}

// WriteSummary prints registry totals, for the CLI's default output.
func (f *Forest) WriteSummary(w *os.File) {
	reg := f.Registry
	subs, funcs := f.UnresolvedCalls()
	fmt.Fprintf(w, "files:        %d\n", len(f.Trees))
	fmt.Fprintf(w, "modules:      %d (%d external)\n", len(reg.Modules()), len(f.ExternalModules()))
	fmt.Fprintf(w, "programs:     %d\n", len(reg.Programs()))
	fmt.Fprintf(w, "subprograms:  %d\n", len(reg.Subprograms()))
	fmt.Fprintf(w, "subroutines:  %d\n", len(reg.Subroutines()))
	fmt.Fprintf(w, "functions:    %d\n", len(reg.Functions()))
	fmt.Fprintf(w, "interfaces:   %d\n", len(reg.Interfaces()))
	fmt.Fprintf(w, "derived types: %d\n", len(reg.DerivedTypes()))
	fmt.Fprintf(w, "unresolved:   %d subroutine calls, %d function calls\n", len(subs), len(funcs))
}
