package graph

import (
	"context"
	"io"
)

// Store is the interface for the symbol graph backend.
// Implementations: KuzuStore (persistent, cgo), MemStore (in-memory).
// All graph access goes through this interface.
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddUnit(ctx context.Context, node UnitNode) error
	AddCallable(ctx context.Context, node CallableNode) error
	AddCluster(ctx context.Context, node ClusterNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations.
	GetUnit(ctx context.Context, name string) (*UnitNode, error)
	GetCallable(ctx context.Context, key string) (*CallableNode, error)
	QueryCallables(ctx context.Context, query string, limit int) ([]CallableNode, error)

	// Call-graph neighborhood of one callable.
	Callers(ctx context.Context, key string) ([]CallableNode, error)
	Callees(ctx context.Context, key string) ([]CallableNode, error)

	// Module dependency traversal over USES edges.
	GetDependencies(ctx context.Context, unitName string, direction Direction, maxDepth int) ([]DependencyChain, error)
	GetClusters(ctx context.Context) ([]ClusterNode, error)
	GetAllEdges(ctx context.Context) ([]Edge, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}

// Direction controls dependency traversal direction.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // what does this unit use?
	DirectionDownstream Direction = "downstream" // what uses this unit?
)
