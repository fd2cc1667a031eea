//go:build !cgo

package main

import (
	"fmt"
	"os"

	"github.com/alperaltuntas/flinspect/internal/graph"
)

// openStore falls back to the in-memory store; the KuzuDB backend needs cgo.
func openStore(dbPath string) (graph.Store, error) {
	if dbPath != "" {
		fmt.Fprintln(os.Stderr, "warning: built without cgo, ignoring graph-db setting")
	}
	return graph.NewMemStore(), nil
}
