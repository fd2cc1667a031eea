//go:build cgo

package main

import "github.com/alperaltuntas/flinspect/internal/graph"

// openStore returns a persistent KuzuDB store when a database path is
// configured, otherwise an in-memory store.
func openStore(dbPath string) (graph.Store, error) {
	if dbPath != "" {
		return graph.NewKuzuFileStore(dbPath)
	}
	return graph.NewMemStore(), nil
}
